package engine

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/taskrunner-go/taskrunner/internal/vars"
)

// RunContext holds the shared state for one run: the variable store,
// run configuration, and the log stream. It is passed explicitly to
// every operation so multiple engines stay independent.
type RunContext struct {
	RunID  string
	Vars   *vars.Store
	Quiet  bool
	DryRun bool
	Log    zerolog.Logger
	Stdin  io.Reader
}

// NewRunContext creates a context for a fresh run.
func NewRunContext(store *vars.Store, quiet, dryRun bool, log zerolog.Logger) *RunContext {
	return &RunContext{
		RunID:  uuid.New().String(),
		Vars:   store,
		Quiet:  quiet,
		DryRun: dryRun,
		Log:    log,
		Stdin:  os.Stdin,
	}
}
