package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	trerrors "github.com/taskrunner-go/taskrunner/internal/errors"
	"github.com/taskrunner-go/taskrunner/internal/taskfile"
)

// helperRefRe matches the helpers.<name>(<args>) prerequisite syntax.
var helperRefRe = regexp.MustCompile(`helpers\.(\w+)(?:\((.*?)\))?`)

// Engine executes an ordered list of tasks, resolving each task's
// prerequisites into helper invocations first. Declaration order has
// meaning and is preserved exactly.
type Engine struct {
	Tasks   []*Task
	Helpers map[string]*Helper
}

// New builds an engine from a loaded task document.
func New(doc *taskfile.Document) *Engine {
	en := &Engine{Helpers: map[string]*Helper{}}
	for _, spec := range doc.Tasks {
		en.Tasks = append(en.Tasks, NewTask(spec))
	}
	for name, spec := range doc.Helpers {
		en.Helpers[name] = NewHelper(spec)
	}
	return en
}

// Run walks the tasks in declaration order. A failing task halts the
// run after its post-run hook unless dry-run is active; a failing
// prerequisite halts before its task starts. Interruption is only
// checked between lifecycles and surfaces as an aborted run.
func (en *Engine) Run(ctx context.Context, rc *RunContext) (*Result, error) {
	result := &Result{RunID: rc.RunID, Success: true, Started: time.Now()}
	rc.Log.Info().Msg(fmt.Sprintf("Started: %s", result.Started.Format(time.DateTime)))

	for i := 0; i < len(en.Tasks); i++ {
		task := en.Tasks[i]

		if ctx.Err() != nil {
			result.Success = false
			result.Aborted = true
			result.Ended = time.Now()
			return result, trerrors.ErrAborted
		}

		rc.Log.Debug().Msg(fmt.Sprintf("Starting task %s (%d/%d)", task.Name, i+1, len(en.Tasks)))

		skipTo, rerr := en.runPrerequisites(rc, task)
		if rerr != nil {
			result.Success = false
			result.FailedTask = task.Name
			result.Tasks = append(result.Tasks, TaskResult{Name: task.Name, Status: "failed"})
			en.markSkipped(result, i+1)
			result.Ended = time.Now()
			return result, rerr
		}
		if j := en.findLater(rc, i, skipTo); j != -1 {
			for k := i; k < j; k++ {
				result.Tasks = append(result.Tasks, TaskResult{Name: en.Tasks[k].Name, Status: "skipped"})
			}
			i = j - 1
			continue
		}

		start := time.Now()
		ok, skipTo, rerr := task.Execute(rc)
		if rerr != nil {
			result.Success = false
			result.FailedTask = task.Name
			result.Tasks = append(result.Tasks, TaskResult{Name: task.Name, Status: "failed"})
			en.markSkipped(result, i+1)
			result.Ended = time.Now()
			return result, rerr
		}
		result.Tasks = append(result.Tasks, TaskResult{
			Name:     task.Name,
			Status:   taskStatus(ok, rc.DryRun),
			Commands: len(task.Commands()),
			Duration: time.Since(start).Round(time.Millisecond).String(),
		})

		if j := en.findLater(rc, i, skipTo); j != -1 {
			for k := i + 1; k < j; k++ {
				result.Tasks = append(result.Tasks, TaskResult{Name: en.Tasks[k].Name, Status: "skipped"})
			}
			i = j - 1
			continue
		}

		if !ok && !rc.DryRun {
			result.Success = false
			result.FailedTask = task.Name
			en.markSkipped(result, i+1)
			result.Ended = time.Now()
			return result, trerrors.NewExecError(task.Name, "task failed")
		}
	}

	result.Ended = time.Now()
	rc.Log.Info().Msg(fmt.Sprintf("Ended: %s", result.Ended.Format(time.DateTime)))
	return result, nil
}

// runPrerequisites resolves a task's prerequisite expression. Only
// helpers.<name>(<args>) references mean anything; the argument list
// may itself contain spaces, so the whole expression is scanned for
// references rather than tokenized first. Surrounding text is reserved
// for future syntax and skipped. An unknown helper name is a logged
// warning; a failed helper invocation is fatal.
func (en *Engine) runPrerequisites(rc *RunContext, t *Task) (string, *trerrors.RunError) {
	for _, m := range helperRefRe.FindAllStringSubmatch(t.Prerequisites, -1) {
		proto, ok := en.Helpers[m[1]]
		if !ok {
			rc.Log.Error().Msg(fmt.Sprintf("%s - helper %q doesn't exist, skipping prerequisite", t.Name, m[1]))
			continue
		}
		inv := proto.Clone(splitArgs(m[2]))
		ok, skipTo, rerr := inv.Execute(rc)
		if rerr != nil {
			return "", rerr
		}
		if !ok && !rc.DryRun {
			return "", trerrors.NewExecError(inv.Name,
				fmt.Sprintf("stopping because prerequisite %s of task %s failed", inv.Name, t.Name))
		}
		if skipTo != "" {
			return skipTo, nil
		}
	}
	return "", nil
}

// findLater locates a skip target strictly ahead of the current task.
// Targets that are not later tasks are logged and ignored; nothing
// else about skip semantics is assumed.
func (en *Engine) findLater(rc *RunContext, current int, skipTo string) int {
	if skipTo == "" {
		return -1
	}
	for j := current + 1; j < len(en.Tasks); j++ {
		if en.Tasks[j].Name == skipTo {
			rc.Log.Info().Msg(fmt.Sprintf("Skipping to task %s", skipTo))
			return j
		}
	}
	rc.Log.Error().Msg(fmt.Sprintf("skip_to target %q is not a later task, ignoring", skipTo))
	return -1
}

// markSkipped records the tasks from index on as never reached.
func (en *Engine) markSkipped(result *Result, from int) {
	for j := from; j < len(en.Tasks); j++ {
		result.Tasks = append(result.Tasks, TaskResult{Name: en.Tasks[j].Name, Status: "skipped"})
	}
}

func taskStatus(ok, dryRun bool) string {
	switch {
	case dryRun:
		return "dry-run"
	case ok:
		return "succeeded"
	default:
		return "failed"
	}
}

// splitArgs parses a helper invocation's argument list, split on
// commas and/or spaces.
func splitArgs(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' '
	})
}
