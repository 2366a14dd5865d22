package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"progress", "grant", "catalog", "log-action", "add-course", "add-lab", "set-profile", "migrate"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
}

// run executes the CLI against a fresh SQLite database per test.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", dbPath)
	t.Setenv("REDIS_DISABLED", "true")
	t.Setenv("APP_TIMEZONE", "UTC")

	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func tempDB(t *testing.T) string {
	return filepath.Join(t.TempDir(), "tracker.db")
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, tempDB(t), "catalog", "--format", "yaml")
	assert.ErrorContains(t, err, "invalid format")
}

func TestCatalog_JSON(t *testing.T) {
	out, err := run(t, tempDB(t), "catalog", "--format", "json", "--category", "labs")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   []struct {
			ID       string `json:"id"`
			Category string `json:"category"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.NotEmpty(t, resp.Data)
	for _, d := range resp.Data {
		assert.Equal(t, "labs", d.Category)
	}
}

func TestCatalog_UnknownCategory(t *testing.T) {
	_, err := run(t, tempDB(t), "catalog", "--category", "sports")
	assert.ErrorContains(t, err, "unknown category")
}

func TestLogAction_UnlocksFirstInjection(t *testing.T) {
	db := tempDB(t)
	out, err := run(t, db, "log-action", "injection", "-u", "alice", "--at", "2024-01-02 09:00")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged injection at 2024-01-02 09:00")
	assert.Contains(t, out, "Achievement unlocked")

	out, err = run(t, db, "log-action", "injection", "-u", "alice", "--at", "2024-01-03 09:00")
	require.NoError(t, err)
	assert.NotContains(t, out, "First Shot")
}

func TestLogAction_Rejections(t *testing.T) {
	db := tempDB(t)

	_, err := run(t, db, "log-action", "injection")
	assert.ErrorContains(t, err, "user")

	_, err = run(t, db, "log-action", "hug", "-u", "alice")
	assert.Error(t, err)

	_, err = run(t, db, "log-action", "tablet", "-u", "alice", "--at", "yesterday")
	assert.ErrorContains(t, err, "invalid time")

	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	_, err = run(t, db, "log-action", "tablet", "-u", "alice", "--at", future)
	assert.Error(t, err)
}

func TestAddLabAndProgress(t *testing.T) {
	db := tempDB(t)
	_, err := run(t, db, "add-lab", "-u", "bob", "--name", "CBC")
	require.NoError(t, err)

	out, err := run(t, db, "progress", "-u", "bob", "--format", "json", "--category", "labs")
	require.NoError(t, err)

	var resp struct {
		Data struct {
			UserID      string `json:"user_id"`
			EarnedCount int    `json:"earned_count"`
			TotalPoints int    `json:"total_points"`
			Items       []struct {
				Progress int  `json:"progress"`
				Earned   bool `json:"earned"`
			} `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "bob", resp.Data.UserID)
	assert.GreaterOrEqual(t, resp.Data.EarnedCount, 1)
	assert.Positive(t, resp.Data.TotalPoints)
	require.NotEmpty(t, resp.Data.Items)
	assert.Equal(t, 1, resp.Data.Items[0].Progress)
}

func TestSetProfile(t *testing.T) {
	db := tempDB(t)
	out, err := run(t, db, "set-profile", "-u", "carol", "--full-name", "Carol", "--city", "Almaty")
	require.NoError(t, err)
	assert.Contains(t, out, "Profile saved (2/7 fields filled)")

	_, err = run(t, db, "set-profile", "-u", "carol", "--avatar-url", "not a url")
	assert.Error(t, err)
}

func TestGrant_NothingNew(t *testing.T) {
	db := tempDB(t)
	_, err := run(t, db, "add-course", "diabetes", "-u", "dan", "--at", "2024-01-03 12:00")
	require.NoError(t, err)

	out, err := run(t, db, "grant", "-u", "dan")
	require.NoError(t, err)
	assert.Contains(t, out, "No new achievements")
}

func TestMigrate_SQLiteIsNoop(t *testing.T) {
	out, err := run(t, tempDB(t), "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Applied 0 migration(s)")
}

func TestParseTime(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)

	got, err := parseTime("2024-03-01 22:15", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 22, 15, 0, 0, loc), got)

	got, err = parseTime("2024-03-01T10:00:00Z", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), got)

	got, err = parseTime("", loc)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[#####.....]", progressBar(5, 10, 10))
	assert.Equal(t, "[##########]", progressBar(12, 10, 10))
	assert.Equal(t, "[##########]", progressBar(1, 0, 10))
}
