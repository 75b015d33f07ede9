package engine

import "time"

// Result is the structured outcome of a run.
type Result struct {
	RunID      string       `json:"run_id"`
	Success    bool         `json:"success"`
	Aborted    bool         `json:"aborted,omitempty"`
	FailedTask string       `json:"failed_task,omitempty"`
	Tasks      []TaskResult `json:"tasks"`
	Started    time.Time    `json:"started"`
	Ended      time.Time    `json:"ended"`
}

// TaskResult describes the outcome of a single task.
type TaskResult struct {
	Name     string `json:"name"`
	Status   string `json:"status"` // succeeded, failed, skipped, dry-run
	Commands int    `json:"commands,omitempty"`
	Duration string `json:"duration,omitempty"`
}
