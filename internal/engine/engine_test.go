package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/taskrunner-go/taskrunner/internal/command"
	trerrors "github.com/taskrunner-go/taskrunner/internal/errors"
	"github.com/taskrunner-go/taskrunner/internal/taskfile"
	"github.com/taskrunner-go/taskrunner/internal/vars"
)

func makeCtx(dryRun bool) *RunContext {
	return &RunContext{
		RunID:  "test-run",
		Vars:   vars.New(),
		DryRun: dryRun,
		Log:    zerolog.Nop(),
		Stdin:  strings.NewReader(""),
	}
}

func shellRun(line string) taskfile.RunSpec {
	return taskfile.RunSpec{Line: line}
}

func TestEachExpansionProducesOrderedCommands(t *testing.T) {
	task := NewTask(&taskfile.Spec{
		Name: "greet",
		Run:  shellRun("echo {}"),
		Each: taskfile.EachSpec{Items: []any{"a", "b", "c"}},
	})
	rc := makeCtx(false)
	ok, _, rerr := task.Execute(rc)
	if rerr != nil {
		t.Fatalf("unexpected error: %v", rerr)
	}
	if !ok {
		t.Fatal("expected success")
	}
	cmds := task.Commands()
	if len(cmds) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(cmds))
	}
	want := []string{"echo a", "echo b", "echo c"}
	for i, w := range want {
		if cmds[i].Line != w {
			t.Errorf("command %d: expected %q, got %q", i, w, cmds[i].Line)
		}
	}
	out, _ := rc.Vars.GetString("greet_output")
	if out != "a\nb\nc" {
		t.Errorf("expected accumulated output in order, got %q", out)
	}
}

func TestSuccessIsANDOfAllCommands(t *testing.T) {
	task := NewTask(&taskfile.Spec{
		Name: "mixed",
		Run:  shellRun("exit {}"),
		Each: taskfile.EachSpec{Items: []any{0, 1}},
	})
	rc := makeCtx(false)
	ok, _, rerr := task.Execute(rc)
	if rerr != nil {
		t.Fatalf("unexpected error: %v", rerr)
	}
	if ok {
		t.Fatal("expected overall failure even though the first command succeeded")
	}
	cmds := task.Commands()
	if cmds[0].Outcome() != command.OutcomeSucceeded {
		t.Errorf("expected first command succeeded, got %s", cmds[0].Outcome())
	}
	if cmds[1].Outcome() != command.OutcomeFailed {
		t.Errorf("expected second command failed, got %s", cmds[1].Outcome())
	}
}

func TestLaterCommandsRunAfterAFailure(t *testing.T) {
	dir := t.TempDir()
	task := NewTask(&taskfile.Spec{
		Name:       "keep-going",
		WorkingDir: dir,
		Run:        shellRun("{}"),
		Each:       taskfile.EachSpec{Items: []any{"false", "touch after.txt"}},
	})
	rc := makeCtx(false)
	ok, _, rerr := task.Execute(rc)
	if rerr != nil {
		t.Fatalf("unexpected error: %v", rerr)
	}
	if ok {
		t.Fatal("expected failure")
	}
	if _, err := os.Stat(filepath.Join(dir, "after.txt")); err != nil {
		t.Error("expected command after the failed one to have run")
	}
}

func TestEachVariableRefEmptyIsFatal(t *testing.T) {
	task := NewTask(&taskfile.Spec{
		Name: "bad",
		Run:  shellRun("echo {}"),
		Each: taskfile.EachSpec{Ref: "variables.missing"},
	})
	rc := makeCtx(false)
	_, _, rerr := task.Execute(rc)
	if rerr == nil || rerr.Type != trerrors.ConfigError {
		t.Fatalf("expected fatal config error, got %v", rerr)
	}
	if len(task.Commands()) != 0 {
		t.Error("expected no command to be materialized")
	}
}

func TestEachVariableRefResolvesSequence(t *testing.T) {
	task := NewTask(&taskfile.Spec{
		Name: "hosts",
		Run:  shellRun("echo {}"),
		Each: taskfile.EachSpec{Ref: "variables.hosts"},
	})
	rc := makeCtx(false)
	rc.Vars.Set("hosts", []any{"web1", "web2"})
	ok, _, rerr := task.Execute(rc)
	if rerr != nil || !ok {
		t.Fatalf("unexpected result: ok=%t err=%v", ok, rerr)
	}
	out, _ := rc.Vars.GetString("hosts_output")
	if out != "web1\nweb2" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestListRunCombinedWithEachIsFatal(t *testing.T) {
	task := NewTask(&taskfile.Spec{
		Name: "bad",
		Run:  taskfile.RunSpec{Argv: []string{"echo", "x"}},
		Each: taskfile.EachSpec{Items: []any{"a"}},
	})
	_, _, rerr := task.Execute(makeCtx(false))
	if rerr == nil || rerr.Type != trerrors.ConfigError {
		t.Fatalf("expected config error, got %v", rerr)
	}
}

func TestMissingWorkingDirIsFatal(t *testing.T) {
	task := NewTask(&taskfile.Spec{
		Name:       "bad",
		WorkingDir: "/definitely/not/a/real/dir",
		Run:        shellRun("true"),
	})
	_, _, rerr := task.Execute(makeCtx(false))
	if rerr == nil || rerr.Type != trerrors.ConfigError {
		t.Fatalf("expected config error, got %v", rerr)
	}
}

func TestMissingVariableResolvesEmptyAndContinues(t *testing.T) {
	task := NewTask(&taskfile.Spec{
		Name: "tolerant",
		Run:  shellRun("echo variables.missing end"),
	})
	rc := makeCtx(false)
	ok, _, rerr := task.Execute(rc)
	if rerr != nil || !ok {
		t.Fatalf("expected tolerant success, got ok=%t err=%v", ok, rerr)
	}
	out, _ := rc.Vars.GetString("tolerant_output")
	if out != "end" {
		t.Errorf("expected %q, got %q", "end", out)
	}
}

func TestKeyedSubstitutionForMappingItems(t *testing.T) {
	task := NewTask(&taskfile.Spec{
		Name: "keyed",
		Run:  shellRun("echo {name}={value}"),
		Each: taskfile.EachSpec{Items: []any{
			map[string]any{"name": "x", "value": 1},
		}},
	})
	rc := makeCtx(false)
	ok, _, rerr := task.Execute(rc)
	if rerr != nil || !ok {
		t.Fatalf("unexpected result: ok=%t err=%v", ok, rerr)
	}
	out, _ := rc.Vars.GetString("keyed_output")
	if out != "x=1" {
		t.Errorf("expected x=1, got %q", out)
	}
}

func TestPositionalSubstitutionForSequenceItems(t *testing.T) {
	task := NewTask(&taskfile.Spec{
		Name: "pos",
		Run:  shellRun("echo {} {}"),
		Each: taskfile.EachSpec{Items: []any{
			[]any{"a", "b"},
		}},
	})
	rc := makeCtx(false)
	ok, _, rerr := task.Execute(rc)
	if rerr != nil || !ok {
		t.Fatalf("unexpected result: ok=%t err=%v", ok, rerr)
	}
	out, _ := rc.Vars.GetString("pos_output")
	if out != "a b" {
		t.Errorf("expected a b, got %q", out)
	}
}

func TestArgvRunBypassesShell(t *testing.T) {
	task := NewTask(&taskfile.Spec{
		Name: "raw",
		Run:  taskfile.RunSpec{Argv: []string{"echo", "a|b"}},
	})
	rc := makeCtx(false)
	ok, _, rerr := task.Execute(rc)
	if rerr != nil || !ok {
		t.Fatalf("unexpected result: ok=%t err=%v", ok, rerr)
	}
	out, _ := rc.Vars.GetString("raw_output")
	if out != "a|b" {
		t.Errorf("expected literal a|b, got %q", out)
	}
}

func TestCheckMismatchFlagsFailureOnly(t *testing.T) {
	dir := t.TempDir()
	task := NewTask(&taskfile.Spec{
		Name:       "checked",
		WorkingDir: dir,
		Run:        shellRun("{}"),
		Each:       taskfile.EachSpec{Items: []any{"echo hello", "touch ran.txt"}},
		Check:      "not-in-output",
	})
	rc := makeCtx(false)
	ok, _, rerr := task.Execute(rc)
	if rerr != nil {
		t.Fatalf("unexpected error: %v", rerr)
	}
	if ok {
		t.Fatal("expected check mismatch to fail the task")
	}
	if _, err := os.Stat(filepath.Join(dir, "ran.txt")); err != nil {
		t.Error("expected remaining commands to run despite the check mismatch")
	}
}

func TestCheckMatchSucceeds(t *testing.T) {
	task := NewTask(&taskfile.Spec{
		Name:  "checked",
		Run:   shellRun("echo deploy complete"),
		Check: "complete",
	})
	ok, _, rerr := task.Execute(makeCtx(false))
	if rerr != nil || !ok {
		t.Fatalf("expected success, got ok=%t err=%v", ok, rerr)
	}
}

func TestRequireInputStoredTrimmed(t *testing.T) {
	task := NewTask(&taskfile.Spec{
		Name:         "ask",
		Run:          shellRun("true"),
		RequireInput: taskfile.InputPrompt{Required: true, Prompt: "Name? "},
	})
	rc := makeCtx(false)
	rc.Stdin = strings.NewReader("hello world  \n")
	ok, _, rerr := task.Execute(rc)
	if rerr != nil || !ok {
		t.Fatalf("unexpected result: ok=%t err=%v", ok, rerr)
	}
	in, _ := rc.Vars.GetString("ask_input")
	if in != "hello world" {
		t.Errorf("expected trimmed input, got %q", in)
	}
}

func TestFailureHookRunsCommandAndMessage(t *testing.T) {
	dir := t.TempDir()
	task := NewTask(&taskfile.Spec{
		Name:       "failing",
		WorkingDir: dir,
		Run:        shellRun("false"),
		OnFailure: &taskfile.Hook{
			Message: "it broke",
			Run:     shellRun("touch hook-ran.txt"),
		},
	})
	rc := makeCtx(false)
	ok, _, rerr := task.Execute(rc)
	if rerr != nil {
		t.Fatalf("unexpected error: %v", rerr)
	}
	if ok {
		t.Fatal("expected failure")
	}
	if _, err := os.Stat(filepath.Join(dir, "hook-ran.txt")); err != nil {
		t.Error("expected failure hook command to have run")
	}
}

func TestSuccessHookSelectedOnSuccess(t *testing.T) {
	dir := t.TempDir()
	task := NewTask(&taskfile.Spec{
		Name:       "passing",
		WorkingDir: dir,
		Run:        shellRun("true"),
		OnSuccess:  &taskfile.Hook{Run: shellRun("touch ok.txt")},
		OnFailure:  &taskfile.Hook{Run: shellRun("touch bad.txt")},
	})
	ok, _, rerr := task.Execute(makeCtx(false))
	if rerr != nil || !ok {
		t.Fatalf("unexpected result: ok=%t err=%v", ok, rerr)
	}
	if _, err := os.Stat(filepath.Join(dir, "ok.txt")); err != nil {
		t.Error("expected success hook to have run")
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.txt")); err == nil {
		t.Error("failure hook must not run on success")
	}
}

func newEngine(t *testing.T, doc string) *Engine {
	t.Helper()
	d, err := taskfile.Load([]byte(doc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := taskfile.Validate(d); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return New(d)
}

func TestHelperFailureHaltsBeforeTaskStarts(t *testing.T) {
	dir := t.TempDir()
	en := newEngine(t, `
helpers:
  prep:
    run: "false"
tasks:
  deploy:
    working_dir: `+dir+`
    run: "touch deployed.txt"
    prerequisites: helpers.prep()
`)
	rc := makeCtx(false)
	result, err := en.Run(context.Background(), rc)
	if err == nil {
		t.Fatal("expected run to halt")
	}
	if result.Success {
		t.Error("expected failed result")
	}
	if len(result.Tasks) != 1 || result.Tasks[0].Status != "failed" {
		t.Errorf("expected the halted task recorded as failed, got %+v", result.Tasks)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "deployed.txt")); statErr == nil {
		t.Error("task commands must not run after a failed prerequisite")
	}
}

func TestUnknownHelperIsToleratedButFailureIsNot(t *testing.T) {
	dir := t.TempDir()
	en := newEngine(t, `
tasks:
  deploy:
    working_dir: `+dir+`
    run: "touch deployed.txt"
    prerequisites: helpers.ghost()
`)
	rc := makeCtx(false)
	result, err := en.Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Error("expected success despite unknown helper")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "deployed.txt")); statErr != nil {
		t.Error("expected task to run after unknown helper reference")
	}
}

func TestSpacedHelperArgumentsStillInvoke(t *testing.T) {
	dir := t.TempDir()
	en := newEngine(t, `
helpers:
  gate:
    run: "false"
tasks:
  deploy:
    working_dir: `+dir+`
    run: "touch deployed.txt"
    prerequisites: helpers.gate(one, two three)
`)
	rc := makeCtx(false)
	if _, err := en.Run(context.Background(), rc); err == nil {
		t.Fatal("expected the failing prerequisite to halt the run")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "deployed.txt")); statErr == nil {
		t.Error("task must not run when its prerequisite failed")
	}
}

func TestPrerequisiteExpressionScannedForAllReferences(t *testing.T) {
	en := newEngine(t, `
helpers:
  a:
    run: "echo {}"
  b:
    run: "echo {}"
tasks:
  t:
    run: "true"
    prerequisites: first helpers.a(x y) then helpers.b(z)
`)
	rc := makeCtx(false)
	if _, err := en.Run(context.Background(), rc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out, _ := rc.Vars.GetString("a_output"); out != "x" {
		t.Errorf("expected first helper to run with its first argument, got %q", out)
	}
	if out, _ := rc.Vars.GetString("b_output"); out != "z" {
		t.Errorf("expected second helper to run, got %q", out)
	}
}

func TestHelperArgumentBinding(t *testing.T) {
	en := newEngine(t, `
helpers:
  greet:
    run: "echo {} {}"
tasks:
  t:
    run: "true"
    prerequisites: helpers.greet(hello, world)
`)
	rc := makeCtx(false)
	if _, err := en.Run(context.Background(), rc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, _ := rc.Vars.GetString("greet_output")
	if out != "hello world" {
		t.Errorf("expected bound arguments in output, got %q", out)
	}
}

func TestHelperInvocationsAreIsolated(t *testing.T) {
	en := newEngine(t, `
helpers:
  say:
    run: "echo {}"
tasks:
  first:
    run: "true"
    prerequisites: helpers.say(one)
  second:
    run: "true"
    prerequisites: helpers.say(two)
`)
	rc := makeCtx(false)
	if _, err := en.Run(context.Background(), rc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	proto := en.Helpers["say"]
	if len(proto.Commands()) != 0 {
		t.Error("prototype must never accumulate commands")
	}
	out, _ := rc.Vars.GetString("say_output")
	if out != "two" {
		t.Errorf("expected the second invocation's own output, got %q", out)
	}
}

func TestFailingTaskHaltsTheRun(t *testing.T) {
	dir := t.TempDir()
	en := newEngine(t, `
tasks:
  first:
    run: "false"
  second:
    working_dir: `+dir+`
    run: "touch second.txt"
`)
	rc := makeCtx(false)
	result, err := en.Run(context.Background(), rc)
	if err == nil {
		t.Fatal("expected run to halt")
	}
	if result.FailedTask != "first" {
		t.Errorf("expected first as failed task, got %q", result.FailedTask)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "second.txt")); statErr == nil {
		t.Error("no further task may execute after a failure")
	}
	if len(result.Tasks) != 2 || result.Tasks[1].Status != "skipped" {
		t.Errorf("expected second task marked skipped, got %+v", result.Tasks)
	}
}

func TestFatalTaskRecordedAsFailedNotSkipped(t *testing.T) {
	en := newEngine(t, `
tasks:
  broken:
    working_dir: /definitely/not/a/real/dir
    run: "true"
  after:
    run: "true"
`)
	rc := makeCtx(false)
	result, err := en.Run(context.Background(), rc)
	if err == nil {
		t.Fatal("expected run to halt")
	}
	if result.FailedTask != "broken" {
		t.Errorf("expected broken as failed task, got %q", result.FailedTask)
	}
	if len(result.Tasks) != 2 {
		t.Fatalf("expected both tasks recorded, got %+v", result.Tasks)
	}
	if result.Tasks[0].Status != "failed" {
		t.Errorf("expected the failing task recorded as failed, got %s", result.Tasks[0].Status)
	}
	if result.Tasks[1].Status != "skipped" {
		t.Errorf("expected the unreached task recorded as skipped, got %s", result.Tasks[1].Status)
	}
}

func TestDryRunSpawnsNothingAndWalksEverything(t *testing.T) {
	dir := t.TempDir()
	en := newEngine(t, `
helpers:
  prep:
    run: "false"
tasks:
  first:
    working_dir: `+dir+`
    run: "touch first.txt"
    prerequisites: helpers.prep()
  second:
    run: "false"
  third:
    run: "echo done"
`)
	rc := makeCtx(true)
	result, err := en.Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Error("dry run must not halt on would-be failures")
	}
	if len(result.Tasks) != 3 {
		t.Fatalf("expected all 3 tasks walked, got %d", len(result.Tasks))
	}
	for _, tr := range result.Tasks {
		if tr.Status != "dry-run" {
			t.Errorf("task %s: expected dry-run status, got %s", tr.Name, tr.Status)
		}
	}
	if _, statErr := os.Stat(filepath.Join(dir, "first.txt")); statErr == nil {
		t.Error("dry run must not spawn processes")
	}
}

func TestOutputVisibleToLaterTasks(t *testing.T) {
	en := newEngine(t, `
tasks:
  one:
    run: "echo hello"
  two:
    run: "echo variables.one_output again"
`)
	rc := makeCtx(false)
	if _, err := en.Run(context.Background(), rc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, _ := rc.Vars.GetString("two_output")
	if out != "hello again" {
		t.Errorf("expected earlier output to flow through, got %q", out)
	}
}

func TestSkipToJumpsForward(t *testing.T) {
	dir := t.TempDir()
	en := newEngine(t, `
tasks:
  first:
    run: "true"
    on_success:
      skip_to: last
  middle:
    working_dir: `+dir+`
    run: "touch middle.txt"
  last:
    run: "echo done"
`)
	rc := makeCtx(false)
	result, err := en.Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "middle.txt")); statErr == nil {
		t.Error("skipped task must not run")
	}
	want := map[string]string{"first": "succeeded", "middle": "skipped", "last": "succeeded"}
	for _, tr := range result.Tasks {
		if want[tr.Name] != tr.Status {
			t.Errorf("task %s: expected %s, got %s", tr.Name, want[tr.Name], tr.Status)
		}
	}
}

func TestFailureHookSkipToContinuesInsteadOfHalting(t *testing.T) {
	en := newEngine(t, `
tasks:
  risky:
    run: "false"
    on_failure:
      message: jumping to cleanup
      skip_to: cleanup
  untouched:
    run: "echo variables.nope"
  cleanup:
    run: "echo cleaned"
`)
	rc := makeCtx(false)
	result, err := en.Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("expected run to continue to cleanup, got %v", err)
	}
	out, _ := rc.Vars.GetString("cleanup_output")
	if out != "cleaned" {
		t.Errorf("expected cleanup to run, got %q", out)
	}
	if result.Success != true {
		t.Error("expected run to finish without halting")
	}
}

func TestInterruptSurfacesAsAborted(t *testing.T) {
	en := newEngine(t, `
tasks:
  t:
    run: "true"
`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := en.Run(ctx, makeCtx(false))
	rerr, ok := err.(*trerrors.RunError)
	if !ok || rerr.Type != trerrors.Aborted {
		t.Fatalf("expected aborted error, got %v", err)
	}
	if !result.Aborted {
		t.Error("expected aborted result")
	}
}
