// Package pipeline orchestrates one report cycle: execute the workflow,
// format the result, deliver it by mail. Any failure is converted into a
// best-effort error notification through the same notifier.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/dailybrief/pkg/notifier"
	"github.com/dukex/dailybrief/pkg/report"
	"github.com/dukex/dailybrief/pkg/workflow"
)

// Runner executes the external workflow to completion.
type Runner interface {
	Execute(ctx context.Context, inputs map[string]any) (*workflow.Result, error)
}

// Pipeline wires the workflow runner and the notifier together.
type Pipeline struct {
	runner   Runner
	notifier notifier.Notifier
	inputs   map[string]any
	now      func() time.Time
	logger   *slog.Logger
}

func New(runner Runner, sender notifier.Notifier, inputs map[string]any, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		runner:   runner,
		notifier: sender,
		inputs:   inputs,
		now:      time.Now,
		logger:   logger.With("module", "pipeline"),
	}
}

// WithClock overrides the clock used for document timestamps.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now

	return p
}

// Run executes one full report cycle. Errors are returned to the caller
// after the error-notification attempt; they are never retried here.
func (p *Pipeline) Run(ctx context.Context) error {
	executionID := uuid.NewString()
	logger := p.logger.With("execution_id", executionID)

	logger.Info("Starting report pipeline")

	result, err := p.runner.Execute(ctx, p.inputs)
	if err != nil {
		logger.Error("Workflow execution failed", "error", err)
		p.notifyFailure(ctx, logger, err)

		return err
	}

	doc := report.Format(result, p.now())

	receipt, err := p.notifier.Send(ctx, doc)
	if err != nil {
		logger.Error("Report delivery failed", "error", err)
		p.notifyFailure(ctx, logger, err)

		return err
	}

	logger.Info("Report pipeline finished", "recipients", len(receipt.Recipients))

	return nil
}

// notifyFailure makes exactly one attempt to deliver an error
// notification. A failure here is only logged, never escalated.
func (p *Pipeline) notifyFailure(ctx context.Context, logger *slog.Logger, cause error) {
	doc := report.FormatFailure(cause, p.now())

	if _, err := p.notifier.Send(ctx, doc); err != nil {
		logger.Error("Failed to deliver error notification", "error", err)
	}
}
