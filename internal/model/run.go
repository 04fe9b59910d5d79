package model

import "time"

// RunStatus is the state of a recorded pipeline command.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run records one invocation of a pipeline command and what it produced.
type Run struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Args      string    `json:"args,omitempty"`
	Status    RunStatus `json:"status"`
	Rows      int       `json:"rows"`
	Output    string    `json:"output,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
