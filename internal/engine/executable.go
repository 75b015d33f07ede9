package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/taskrunner-go/taskrunner/internal/command"
	trerrors "github.com/taskrunner-go/taskrunner/internal/errors"
	"github.com/taskrunner-go/taskrunner/internal/taskfile"
	"github.com/taskrunner-go/taskrunner/internal/template"
	"github.com/taskrunner-go/taskrunner/internal/vars"
)

// State tracks an executable through its lifecycle.
type State int

const (
	StateCreated State = iota
	StatePrepared
	StateAnnounced
	StateAwaitingInput
	StateRunning
	StateEvaluated
	StatePostRun
	StateDone
)

// Executable is the shared execution shape of tasks and helpers: a run
// template, an iteration source, environment overrides, and post-run
// hooks. One invocation owns one materialized command list.
type Executable struct {
	Name        string
	Description string
	Run         taskfile.RunSpec
	Each        taskfile.EachSpec
	WorkingDir  string
	Env         map[string]string
	SuccessCode int
	ShowOutput  bool
	Check       string
	OnSuccess   *taskfile.Hook
	OnFailure   *taskfile.Hook

	kind     string // "Task" or "Helper", for log lines
	args     []string
	state    State
	dir      string
	check    *regexp.Regexp
	commands []*command.Command
	output   []string
	checkOK  bool
}

func newExecutable(spec *taskfile.Spec, kind string) Executable {
	return Executable{
		Name:        spec.Name,
		Description: spec.Description,
		Run:         spec.Run,
		Each:        spec.Each,
		WorkingDir:  spec.WorkingDir,
		Env:         spec.Env,
		SuccessCode: spec.SuccessCode,
		ShowOutput:  spec.ShowOutput,
		Check:       spec.Check,
		OnSuccess:   spec.OnSuccess,
		OnFailure:   spec.OnFailure,
		kind:        kind,
		checkOK:     true,
	}
}

// State returns the executable's lifecycle state.
func (e *Executable) State() State {
	return e.state
}

// Commands returns the materialized command list.
func (e *Executable) Commands() []*command.Command {
	return e.commands
}

// execute drives the full lifecycle: prepare, announce, run every
// command in order, evaluate, dispatch the post-run hook. It returns
// the overall success (the AND of all command outcomes plus the output
// check) and any skip target requested by the hook. A non-nil error is
// a fatal configuration problem.
func (e *Executable) execute(rc *RunContext) (ok bool, skipTo string, err *trerrors.RunError) {
	if rerr := e.prepare(rc); rerr != nil {
		return false, "", rerr
	}
	e.announce(rc)
	e.runCommands(rc)
	ok = e.evaluate()
	e.state = StateEvaluated
	skipTo = e.dispatchHook(rc, ok)
	e.state = StateDone
	return ok, skipTo, nil
}

// prepare resolves the working directory, compiles the check pattern,
// and materializes the command list from the run template and the
// iteration source. Any failure here is a fatal configuration error.
func (e *Executable) prepare(rc *RunContext) *trerrors.RunError {
	dir, err := e.resolveDir()
	if err != nil {
		return trerrors.NewConfigError(e.Name, err.Error())
	}
	e.dir = dir

	if e.Check != "" {
		rx, err := regexp.Compile(e.Check)
		if err != nil {
			return trerrors.NewConfigError(e.Name, fmt.Sprintf("invalid check pattern: %v", err))
		}
		e.check = rx
	}

	if rerr := e.materialize(rc); rerr != nil {
		return rerr
	}
	e.state = StatePrepared
	return nil
}

func (e *Executable) resolveDir() (string, error) {
	dir := e.WorkingDir
	if dir == "" {
		dir = "."
	}
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving working directory %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("working directory %q doesn't exist", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("working directory %q is not a directory", abs)
	}
	return abs, nil
}

func (e *Executable) materialize(rc *RunContext) *trerrors.RunError {
	if e.Run.IsZero() {
		return nil
	}

	if len(e.Run.Argv) > 0 {
		if !e.Each.IsZero() {
			return trerrors.NewConfigError(e.Name, "each requires run to be a single string, not a list")
		}
		argv := template.ResolveList(e.Run.Argv, rc.Vars, e.onMissing(rc))
		e.commands = append(e.commands, e.newCommand("", argv))
		return nil
	}

	line := e.Run.Line
	if len(e.args) > 0 {
		line = template.FormatPositional(line, e.args...)
	}

	if e.Each.IsZero() {
		resolved := template.Resolve(line, rc.Vars, e.onMissing(rc))
		e.commands = append(e.commands, e.newCommand(resolved, nil))
		return nil
	}

	items, rerr := e.eachItems(rc)
	if rerr != nil {
		return rerr
	}
	for _, item := range items {
		resolved := template.Resolve(formatItem(line, item), rc.Vars, e.onMissing(rc))
		e.commands = append(e.commands, e.newCommand(resolved, nil))
	}
	return nil
}

// eachItems produces the iteration sequence. A reference that resolves
// to nothing is an authoring error and aborts the run.
func (e *Executable) eachItems(rc *RunContext) ([]any, *trerrors.RunError) {
	if len(e.Each.Items) > 0 {
		return e.Each.Items, nil
	}
	name, ok := template.RefName(e.Each.Ref)
	if !ok {
		return nil, trerrors.NewConfigError(e.Name, fmt.Sprintf("each value %q is not a variables reference", e.Each.Ref))
	}
	items, ok := rc.Vars.GetList(name)
	if !ok || len(items) == 0 {
		return nil, trerrors.NewConfigError(e.Name, fmt.Sprintf("value for each (variables.%s) is not correct", name))
	}
	return items, nil
}

func (e *Executable) newCommand(line string, argv []string) *command.Command {
	return &command.Command{
		Line:     line,
		Argv:     argv,
		Dir:      e.dir,
		Env:      e.Env,
		WantCode: e.SuccessCode,
	}
}

// announce surfaces the executable's description before anything runs.
func (e *Executable) announce(rc *RunContext) {
	e.state = StateAnnounced
	if rc.Quiet || e.Description == "" {
		return
	}
	rc.Log.Info().Msg(fmt.Sprintf("%s %s - %s", e.kind, e.Name, e.Description))
}

// runCommands executes the materialized commands strictly in order.
// A failed command does not gate the ones after it; every command runs
// and the failures are picked up by evaluate.
func (e *Executable) runCommands(rc *RunContext) {
	e.state = StateRunning
	for _, cmd := range e.commands {
		runMsg := fmt.Sprintf("(shell: %t, cwd: %s): %s", cmd.Shell(), e.dir, cmd)
		if rc.DryRun {
			rc.Log.Info().Msg("DRY RUN " + runMsg)
			cmd.MarkSkipped()
			continue
		}
		rc.Log.Debug().Msg("Running " + runMsg)

		_ = cmd.Execute(func(line string) {
			if e.ShowOutput {
				rc.Log.Info().Msg(line)
			} else {
				rc.Log.Debug().Msg(line)
			}
		})

		e.output = append(e.output, cmd.Output...)
		rc.Vars.Set(e.Name+"_output", strings.Join(e.output, "\n"))
		e.checkOutput(rc)

		if cmd.Outcome() == command.OutcomeFailed {
			rc.Log.Error().Msg(fmt.Sprintf("Command %q failed: %s", cmd, cmd.Failure))
		}
	}
}

// checkOutput matches the accumulated output against the check pattern.
// A mismatch only flags failure; remaining commands still run.
func (e *Executable) checkOutput(rc *RunContext) {
	if e.check == nil {
		return
	}
	rc.Log.Debug().Msg(fmt.Sprintf("Checking for %s", e.check))
	if !e.check.MatchString(strings.Join(e.output, "\n")) {
		rc.Log.Error().Msg(fmt.Sprintf("%s - check %q failed", e.Name, e.Check))
		e.checkOK = false
		return
	}
	rc.Log.Debug().Msg(fmt.Sprintf("%q is present in output", e.Check))
}

// evaluate decides overall success: every command outcome must be
// non-failed and the output check must have held.
func (e *Executable) evaluate() bool {
	ok := e.checkOK
	for _, cmd := range e.commands {
		if cmd.Outcome() == command.OutcomeFailed {
			ok = false
		}
	}
	return ok
}

// dispatchHook selects exactly one of on_success/on_failure from the
// evaluated outcome. A hook may log a message, fire an auxiliary
// command whose own outcome is not checked, and name a skip target for
// the engine's cursor.
func (e *Executable) dispatchHook(rc *RunContext, ok bool) string {
	var h *taskfile.Hook
	if ok {
		h = e.OnSuccess
	} else {
		h = e.OnFailure
	}
	if h == nil {
		return ""
	}
	e.state = StatePostRun

	if h.Message != "" {
		rc.Log.Info().Msg(template.Resolve(h.Message, rc.Vars, e.onMissing(rc)))
	}
	if !h.Run.IsZero() {
		aux := e.hookCommand(rc, h.Run)
		if rc.DryRun {
			rc.Log.Info().Msg(fmt.Sprintf("DRY RUN (shell: %t, cwd: %s): %s", aux.Shell(), e.dir, aux))
			aux.MarkSkipped()
		} else {
			rc.Log.Debug().Msg(fmt.Sprintf("Running hook command: %s", aux))
			_ = aux.Execute(nil)
		}
	}
	return h.SkipTo
}

func (e *Executable) hookCommand(rc *RunContext, run taskfile.RunSpec) *command.Command {
	if len(run.Argv) > 0 {
		return e.newCommand("", template.ResolveList(run.Argv, rc.Vars, e.onMissing(rc)))
	}
	return e.newCommand(template.Resolve(run.Line, rc.Vars, e.onMissing(rc)), nil)
}

// onMissing logs an unknown variable reference. The reference resolves
// to empty and the run continues; existing task files rely on this.
func (e *Executable) onMissing(rc *RunContext) func(name string) {
	return func(name string) {
		rc.Log.Error().Msg(fmt.Sprintf("%s - variable %q doesn't exist", e.Name, name))
	}
}

// formatItem substitutes one iteration element into the run template:
// keyed for mappings, positional for sequences and scalars.
func formatItem(tmpl string, item any) string {
	switch v := item.(type) {
	case map[string]any:
		fields := make(map[string]string, len(v))
		for k, val := range v {
			fields[k] = vars.Stringify(val)
		}
		return template.FormatKeyed(tmpl, fields)
	case []any:
		args := make([]string, len(v))
		for i, val := range v {
			args[i] = vars.Stringify(val)
		}
		return template.FormatPositional(tmpl, args...)
	default:
		return template.FormatPositional(tmpl, vars.Stringify(item))
	}
}
