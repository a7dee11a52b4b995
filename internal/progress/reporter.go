// Package progress renders orchestrator progress events for the CLI.
package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/tobiasweide/ragent/internal/orchestrator"
)

// Reporter consumes the orchestrator's progress event stream.
type Reporter interface {
	Step(step orchestrator.ProgressStep)
	Finish()
}

// NewReporter returns a TerminalReporter for interactive use, or a
// CIReporter if the CI environment variable is set.
func NewReporter() Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{}
	}
	return &TerminalReporter{}
}

// TerminalReporter displays a progress bar in the terminal.
type TerminalReporter struct {
	bar *progressbar.ProgressBar
}

func (r *TerminalReporter) Step(step orchestrator.ProgressStep) {
	if r.bar == nil {
		r.bar = progressbar.NewOptions(100,
			progressbar.OptionSetDescription("Thinking"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionClearOnFinish(),
		)
	}
	r.bar.Describe(step.Message)
	_ = r.bar.Set(step.Progress)
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// CIReporter prints line-by-line progress suitable for CI logs.
type CIReporter struct{}

func (r *CIReporter) Step(step orchestrator.ProgressStep) {
	fmt.Fprintf(os.Stderr, "[%s/%s] %s\n", step.Phase, step.Status, step.Message)
}

func (r *CIReporter) Finish() {}
