// Package schedule fires the report pipeline once per day at a fixed
// wall-clock time.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Callback is invoked on every schedule tick.
type Callback func(ctx context.Context)

// Trigger runs a single daily cron job. Overlapping executions are
// allowed: a manual trigger may race a scheduled one and both run.
type Trigger struct {
	Time     string // HH:MM wall clock
	location *time.Location
	cron     *cron.Cron
	entry    cron.EntryID
	callback Callback
	logger   *slog.Logger
}

func NewTrigger(wallTime string, location *time.Location, logger *slog.Logger) (*Trigger, error) {
	if location == nil {
		location = time.UTC
	}

	trigger := &Trigger{
		Time:     wallTime,
		location: location,
		logger: logger.With(
			"module", "schedule_trigger",
			"time", wallTime,
			"timezone", location.String(),
		),
	}
	if err := trigger.Validate(); err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if t.Time == "" {
		return errors.New("schedule time is required")
	}

	if _, err := time.Parse("15:04", t.Time); err != nil {
		return fmt.Errorf("invalid schedule time %q: expected HH:MM", t.Time)
	}

	return nil
}

// Start registers the daily cron job and begins scheduling. The cron
// chain recovers panics but deliberately does not serialize runs.
func (t *Trigger) Start(ctx context.Context, callback Callback) error {
	t.logger.Info("Starting schedule trigger")
	t.callback = callback

	t.cron = cron.New(
		cron.WithLocation(t.location),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)

	entry, err := t.cron.AddFunc(t.cronExpr(), t.run)
	if err != nil {
		return fmt.Errorf("failed to add cron job for schedule %s: %w", t.Time, err)
	}

	t.entry = entry
	t.cron.Start()

	t.logger.Info("Schedule trigger started", "next_run", t.NextRun())

	return nil
}

// NextRun returns the next scheduled tick, or the zero time before Start.
func (t *Trigger) NextRun() time.Time {
	if t.cron == nil {
		return time.Time{}
	}

	return t.cron.Entry(t.entry).Next
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.logger.Info("Stopping schedule trigger")

	if t.cron != nil {
		t.cron.Stop()
	}

	return nil
}

func (t *Trigger) cronExpr() string {
	parsed, _ := time.Parse("15:04", t.Time)

	return fmt.Sprintf("%d %d * * *", parsed.Minute(), parsed.Hour())
}

func (t *Trigger) run() {
	t.logger.Info("Schedule fired")
	t.callback(context.Background())
}
