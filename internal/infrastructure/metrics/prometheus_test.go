package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/course-tracker/internal/domain/achievement"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder()

	r.GrantSucceeded(achievement.FirstLab)
	r.GrantSucceeded(achievement.FirstLab)
	r.GrantFailed(achievement.FirstLab)
	r.RunFinished("succeeded")
	r.RunFinished("partial")
	r.RunFinished("succeeded")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Granted.WithLabelValues(string(achievement.FirstLab))))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.GrantFailures.WithLabelValues(string(achievement.FirstLab))))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.GrantRuns.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.GrantRuns.WithLabelValues("partial")))
}

func TestRecorder_EvaluationHistogram(t *testing.T) {
	r := NewRecorder()
	r.ObserveEvaluation(20 * time.Millisecond)
	r.ObserveEvaluation(200 * time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(r.Evaluation))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.GrantSucceeded(achievement.FirstLab)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `tracker_achievements_granted_total{achievement_id="`+string(achievement.FirstLab)+`"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
