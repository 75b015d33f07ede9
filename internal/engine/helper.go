package engine

import (
	trerrors "github.com/taskrunner-go/taskrunner/internal/errors"
	"github.com/taskrunner-go/taskrunner/internal/taskfile"
)

// Helper is an executable invoked only as a prerequisite of a task.
// The engine keeps one prototype per name; every invocation site gets
// its own clone so argument binding and captured output never leak
// between tasks referencing the same helper.
type Helper struct {
	Executable
}

// NewHelper builds a helper prototype from its document spec.
func NewHelper(spec *taskfile.Spec) *Helper {
	return &Helper{Executable: newExecutable(spec, "Helper")}
}

// Clone returns an independent invocation record bound to args. The
// prototype itself is never executed.
func (h *Helper) Clone(args []string) *Helper {
	c := &Helper{Executable: h.Executable}
	c.args = args
	c.state = StateCreated
	c.commands = nil
	c.output = nil
	c.checkOK = true
	return c
}

// Execute drives the helper invocation through the full lifecycle.
func (h *Helper) Execute(rc *RunContext) (ok bool, skipTo string, err *trerrors.RunError) {
	return h.execute(rc)
}
