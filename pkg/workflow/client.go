package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultPollAttempts = 30
	DefaultPollInterval = 10 * time.Second

	engineTimeout = 120 * time.Second
)

// Client talks to the workflow engine HTTP API.
type Client struct {
	http         *resty.Client
	responseMode string
	user         string
	pollAttempts int
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewClient creates a workflow engine client. The endpoint is the API base
// URL, the key is sent as a bearer token on every request.
func NewClient(endpoint, apiKey, responseMode, user string, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(endpoint, "/")).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(engineTimeout)

	return &Client{
		http:         httpClient,
		responseMode: responseMode,
		user:         user,
		pollAttempts: DefaultPollAttempts,
		pollInterval: DefaultPollInterval,
		logger:       logger.With("module", "workflow_client"),
	}
}

// WithPollBudget overrides the polling budget used by Execute.
func (c *Client) WithPollBudget(attempts int, interval time.Duration) *Client {
	c.pollAttempts = attempts
	c.pollInterval = interval

	return c
}

// Start submits a run request. In blocking mode the returned Run may
// already be resolved; otherwise it carries the run id to poll.
func (c *Client) Start(ctx context.Context, inputs map[string]any) (*Run, error) {
	if inputs == nil {
		inputs = map[string]any{}
	}

	c.logger.Info("Starting workflow run", "response_mode", c.responseMode)

	var body runResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(runRequest{Inputs: inputs, ResponseMode: c.responseMode, User: c.user}).
		SetResult(&body).
		Post("/workflows/run")
	if err != nil {
		return nil, &TransportError{Op: "start run", Err: err}
	}

	if resp.IsError() {
		return nil, &TransportError{
			Op:  "start run",
			Err: fmt.Errorf("engine returned status %d: %s", resp.StatusCode(), resp.String()),
		}
	}

	run := &Run{ID: body.WorkflowRunID, TaskID: body.TaskID}

	if body.Data != nil && body.Data.Status == StatusSucceeded && body.Data.Outputs != nil {
		run.Result = &Result{
			Outputs:     body.Data.Outputs,
			ElapsedTime: body.Data.ElapsedTime,
			TotalTokens: body.Data.TotalTokens,
		}
	}

	if run.Result == nil && run.ID == "" {
		return nil, &InvalidResponseError{Detail: "response carries neither outputs nor a workflow run id"}
	}

	c.logger.Info("Workflow run started", "run_id", run.ID, "resolved", run.Resolved())

	return run, nil
}

// AwaitCompletion polls the run status at a fixed interval until a
// terminal status or the attempt budget is exhausted. A succeeded run
// returns its result immediately; failed and stopped fail immediately
// with RunFailedError. An empty run id is a no-op.
func (c *Client) AwaitCompletion(ctx context.Context, runID string, maxAttempts int, pollInterval time.Duration) (*Result, error) {
	if runID == "" {
		c.logger.Warn("No workflow run id to wait on, skipping")

		return nil, nil
	}

	logger := c.logger.With("run_id", runID)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		logger.Info("Polling workflow run status", "attempt", attempt, "max_attempts", maxAttempts)

		status, err := c.fetchRun(ctx, runID)
		if err != nil {
			return nil, err
		}

		switch status.Status {
		case StatusSucceeded:
			logger.Info("Workflow run succeeded",
				"elapsed_time", status.ElapsedTime,
				"total_tokens", status.TotalTokens)

			return &Result{
				Outputs:     status.Outputs,
				ElapsedTime: status.ElapsedTime,
				TotalTokens: status.TotalTokens,
			}, nil
		case StatusFailed, StatusStopped:
			return nil, &RunFailedError{RunID: runID, Status: status.Status, Message: status.Error}
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(pollInterval):
			}
		}
	}

	return nil, &TimeoutError{RunID: runID, Attempts: maxAttempts}
}

// Execute starts a run and, unless the engine resolved it in the initial
// response, waits for completion with the configured polling budget.
func (c *Client) Execute(ctx context.Context, inputs map[string]any) (*Result, error) {
	run, err := c.Start(ctx, inputs)
	if err != nil {
		return nil, err
	}

	if run.Resolved() {
		c.logger.Info("Workflow run resolved in the initial response", "run_id", run.ID)

		return run.Result, nil
	}

	return c.AwaitCompletion(ctx, run.ID, c.pollAttempts, c.pollInterval)
}

func (c *Client) fetchRun(ctx context.Context, runID string) (*runStatusResponse, error) {
	var body runStatusResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		SetPathParam("runID", runID).
		Get("/workflows/run/{runID}")
	if err != nil {
		return nil, &TransportError{Op: "fetch run status", Err: err}
	}

	if resp.IsError() {
		return nil, &TransportError{
			Op:  "fetch run status",
			Err: fmt.Errorf("engine returned status %d: %s", resp.StatusCode(), resp.String()),
		}
	}

	return &body, nil
}
