package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/coursehub/course-tracker/internal/application/command"
	"github.com/coursehub/course-tracker/internal/domain/achievement"
)

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Response is the JSON envelope of every command.
type Response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// Success writes data as JSON, or calls text for human-readable output.
func (f *OutputFormatter) Success(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(Response{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// grantView is the JSON shape of a command's grant outcome.
type grantView struct {
	Granted    []achievement.Definition `json:"granted"`
	GrantError string                   `json:"grant_error,omitempty"`
}

func newGrantView(o command.GrantOutcome) grantView {
	v := grantView{Granted: o.Granted}
	if v.Granted == nil {
		v.Granted = []achievement.Definition{}
	}
	if o.GrantErr != nil {
		v.GrantError = o.GrantErr.Error()
	}
	return v
}

func writeGranted(w io.Writer, granted []achievement.Definition) {
	for _, def := range granted {
		fmt.Fprintf(w, "%s Achievement unlocked: %s (+%d pts)\n", def.Icon, def.Name, def.Points)
	}
}

func writeGrantOutcome(w io.Writer, o command.GrantOutcome) {
	writeGranted(w, o.Granted)
	if o.GrantErr != nil {
		fmt.Fprintf(w, "warning: achievements not updated: %v\n", o.GrantErr)
	}
}

func progressBar(progress, required, width int) string {
	if required <= 0 {
		required = 1
	}
	filled := progress * width / required
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
