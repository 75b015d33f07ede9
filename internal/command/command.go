package command

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// Outcome is the tri-state result of a command, with an extra state for
// dry runs where nothing was spawned.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSucceeded
	OutcomeFailed
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "pending"
	}
}

// Command is one external process invocation. Exactly one of Line or
// Argv is set: Line runs through `sh -c` so pipes, redirection, and
// globbing apply; Argv is executed as a literal argument vector with no
// interpreter involved.
type Command struct {
	Line     string
	Argv     []string
	Dir      string
	Env      map[string]string // merged over the inherited environment
	WantCode int

	Output   []string // captured stdout, one entry per line
	Stderr   string
	ExitCode int
	Failure  string // diagnostic text when the outcome is failed

	outcome Outcome
}

// Shell reports whether the command goes through the shell.
func (c *Command) Shell() bool {
	return len(c.Argv) == 0
}

// Outcome returns the command's current outcome.
func (c *Command) Outcome() Outcome {
	return c.outcome
}

// MarkSkipped records a dry-run outcome without spawning anything.
func (c *Command) MarkSkipped() {
	if c.outcome == OutcomePending {
		c.outcome = OutcomeSkipped
	}
}

func (c *Command) String() string {
	if c.Shell() {
		return c.Line
	}
	return strings.Join(c.Argv, " ")
}

// Execute spawns the process and blocks until it exits, draining stdout
// line by line as it is produced. Each line is captured and passed to
// emit, so long-running commands stream instead of buffering into a
// full pipe. Stderr is drained after exit and recorded. The outcome is
// succeeded iff the exit code equals WantCode and stdout was read
// cleanly. Execute may be called at most once.
func (c *Command) Execute(emit func(line string)) error {
	if c.outcome != OutcomePending {
		return fmt.Errorf("command %q already executed", c.String())
	}

	var cmd *exec.Cmd
	if c.Shell() {
		cmd = exec.Command("sh", "-c", c.Line)
	} else {
		cmd = exec.Command(c.Argv[0], c.Argv[1:]...)
	}
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	cmd.Env = c.environ()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		c.fail(-1, fmt.Sprintf("opening stdout pipe: %v", err))
		return nil
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		c.fail(-1, fmt.Sprintf("starting command: %v", err))
		return nil
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		c.Output = append(c.Output, line)
		if emit != nil {
			emit(line)
		}
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// The process may still be writing; keep the pipe drained so
		// Wait can't deadlock on a full buffer.
		_, _ = io.Copy(io.Discard, stdout)
	}

	exitCode := 0
	if err := cmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}
	c.ExitCode = exitCode
	c.Stderr = strings.TrimRight(stderr.String(), "\n")

	if scanErr != nil {
		c.fail(exitCode, fmt.Sprintf("reading stdout: %v", scanErr))
		return nil
	}
	if exitCode != c.WantCode {
		c.fail(exitCode, fmt.Sprintf("exit code %d (expected %d): %s", exitCode, c.WantCode, c.Stderr))
		return nil
	}
	c.outcome = OutcomeSucceeded
	return nil
}

func (c *Command) fail(exitCode int, diag string) {
	c.ExitCode = exitCode
	c.Failure = diag
	c.outcome = OutcomeFailed
}

// environ merges the command's overrides over the inherited OS
// environment. With no overrides the child inherits as-is.
func (c *Command) environ() []string {
	if len(c.Env) == 0 {
		return nil
	}
	env := os.Environ()
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+c.Env[k])
	}
	return env
}
