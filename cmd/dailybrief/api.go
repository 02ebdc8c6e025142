// Package main provides the dailybrief service binary.
package main

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/moogar0880/problems"
)

// reportRunner runs one report pipeline cycle.
type reportRunner interface {
	Run(ctx context.Context) error
}

// scheduleInfo exposes the next scheduled tick for the status endpoint.
type scheduleInfo interface {
	NextRun() time.Time
}

type API struct {
	logger     *slog.Logger
	runner     reportRunner
	schedule   scheduleInfo
	recipients []string
}

func NewAPI(logger *slog.Logger, runner reportRunner, schedule scheduleInfo, recipients []string) *API {
	return &API{
		logger:     logger,
		runner:     runner,
		schedule:   schedule,
		recipients: recipients,
	}
}

func (a *API) App() *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", a.getStatus)
	app.Post("/trigger", a.triggerPipeline)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}

// getStatus reports liveness, the next scheduled run and the recipient
// set. No side effects.
func (a *API) getStatus(c fiber.Ctx) error {
	var nextRun string
	if next := a.schedule.NextRun(); !next.IsZero() {
		nextRun = next.Format(time.RFC3339)
	}

	return c.JSON(fiber.Map{
		"status":     "ok",
		"next_run":   nextRun,
		"recipients": a.recipients,
	})
}

// triggerPipeline runs the full pipeline synchronously. Failures surface
// here as a 500; everywhere else they are only logged.
func (a *API) triggerPipeline(c fiber.Ctx) error {
	a.logger.Info("Manual trigger received")

	if err := a.runner.Run(c.Context()); err != nil {
		problem := problems.NewStatusProblem(500).
			WithInstance(c.Path()).
			WithType("pipeline_error").
			WithError(err)

		return c.Status(fiber.StatusInternalServerError).JSON(problem)
	}

	return c.JSON(fiber.Map{"status": "sent"})
}
