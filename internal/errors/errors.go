package errors

import "fmt"

// Error type constants
const (
	ConfigError    = "CONFIG_ERROR"    // fatal, aborts the run
	ReferenceError = "REFERENCE_ERROR" // logged, run continues
	ExecError      = "EXEC_ERROR"      // failed outcome, halts per policy
	Aborted        = "ABORTED"         // external interruption
)

// RunError is a structured error carrying the failing entity's name.
type RunError struct {
	Type    string `json:"type"`
	Entity  string `json:"entity,omitempty"` // task or helper name
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

func (e *RunError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Entity, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// IsFatal reports whether the error must abort the whole run.
func (e *RunError) IsFatal() bool {
	return e.Type == ConfigError || e.Type == ExecError || e.Type == Aborted
}

func NewConfigError(entity, msg string) *RunError {
	return &RunError{Type: ConfigError, Entity: entity, Message: msg}
}

func NewReferenceError(entity, msg string) *RunError {
	return &RunError{Type: ReferenceError, Entity: entity, Message: msg}
}

func NewExecError(entity, msg string) *RunError {
	return &RunError{Type: ExecError, Entity: entity, Message: msg}
}

// ErrAborted is returned when the run is interrupted from outside.
var ErrAborted = &RunError{Type: Aborted, Message: "run aborted"}
