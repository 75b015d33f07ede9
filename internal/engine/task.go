package engine

import (
	"bufio"
	"strings"

	trerrors "github.com/taskrunner-go/taskrunner/internal/errors"
	"github.com/taskrunner-go/taskrunner/internal/taskfile"
)

// Task is an executable with prerequisites, an output-check pattern,
// and an optional pause for interactive input. A failing task halts
// the run.
type Task struct {
	Executable
	Prerequisites string
	RequireInput  taskfile.InputPrompt
}

// NewTask builds a task from its document spec.
func NewTask(spec *taskfile.Spec) *Task {
	return &Task{
		Executable:    newExecutable(spec, "Task"),
		Prerequisites: spec.Prerequisites,
		RequireInput:  spec.RequireInput,
	}
}

// Execute drives the task lifecycle. Prerequisites have already run by
// the time the engine calls this.
func (t *Task) Execute(rc *RunContext) (ok bool, skipTo string, err *trerrors.RunError) {
	if rerr := t.prepare(rc); rerr != nil {
		return false, "", rerr
	}
	t.announce(rc)
	if t.RequireInput.Required {
		t.promptInput(rc)
	}
	t.runCommands(rc)
	ok = t.evaluate()
	t.state = StateEvaluated
	skipTo = t.dispatchHook(rc, ok)
	t.state = StateDone
	return ok, skipTo, nil
}

// promptInput blocks on a line of interactive input before any command
// runs and records it as <name>_input. There is no timeout; the whole
// run pauses here.
func (t *Task) promptInput(rc *RunContext) {
	t.state = StateAwaitingInput
	prompt := t.RequireInput.Prompt
	if prompt == "" {
		prompt = "Press ENTER to continue."
	}
	rc.Log.Info().Msg(prompt)
	line, _ := bufio.NewReader(rc.Stdin).ReadString('\n')
	rc.Vars.Set(t.Name+"_input", strings.TrimRight(line, " \t\r\n"))
}
