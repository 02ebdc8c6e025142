// Package workflow provides the HTTP client for the external workflow
// engine: starting runs and polling them until a terminal status.
package workflow

// RunStatus represents the lifecycle state of a workflow run as reported
// by the engine.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
	StatusStopped   RunStatus = "stopped"
)

// Terminal reports whether no further status transition can occur.
func (s RunStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusStopped
}

// Run is the handle returned by Start. In blocking mode the engine may
// resolve the run inside the initial response, in which case Result is
// already populated and no polling is needed.
type Run struct {
	ID     string
	TaskID string
	Result *Result
}

// Resolved reports whether the run already carries its final result.
func (r *Run) Resolved() bool {
	return r.Result != nil
}

// Result is the output of a succeeded run.
type Result struct {
	Outputs     map[string]any
	ElapsedTime float64
	TotalTokens int
}

type runRequest struct {
	Inputs       map[string]any `json:"inputs"`
	ResponseMode string         `json:"response_mode"`
	User         string         `json:"user"`
}

type runResponse struct {
	WorkflowRunID string   `json:"workflow_run_id"`
	TaskID        string   `json:"task_id"`
	Data          *runData `json:"data"`
}

type runData struct {
	ID          string         `json:"id"`
	Status      RunStatus      `json:"status"`
	Outputs     map[string]any `json:"outputs"`
	Error       string         `json:"error"`
	ElapsedTime float64        `json:"elapsed_time"`
	TotalTokens int            `json:"total_tokens"`
}

type runStatusResponse struct {
	ID          string         `json:"id"`
	Status      RunStatus      `json:"status"`
	Outputs     map[string]any `json:"outputs"`
	Error       string         `json:"error"`
	ElapsedTime float64        `json:"elapsed_time"`
	TotalTokens int            `json:"total_tokens"`
}
