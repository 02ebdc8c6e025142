package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/dailybrief/pkg/config"
	"github.com/dukex/dailybrief/pkg/log"
	"github.com/dukex/dailybrief/pkg/notifier"
	"github.com/dukex/dailybrief/pkg/pipeline"
	"github.com/dukex/dailybrief/pkg/triggers/schedule"
	"github.com/dukex/dailybrief/pkg/workflow"
)

const (
	defaultPort         = 8080
	defaultSMTPPort     = 587
	defaultScheduleTime = "06:00"
)

func main() {
	_ = godotenv.Load()

	logger := log.WithModule("dailybrief")

	cmd := &cli.Command{
		Name:                  "dailybrief",
		Usage:                 "Run a workflow every morning and mail the report",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "workflow-endpoint",
				Usage:    "Base URL of the workflow engine API",
				Required: true,
				Sources:  cli.EnvVars("WORKFLOW_ENDPOINT"),
			},
			&cli.StringFlag{
				Name:     "workflow-api-key",
				Usage:    "Bearer token for the workflow engine",
				Required: true,
				Sources:  cli.EnvVars("WORKFLOW_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "response-mode",
				Usage:   "Workflow execution mode (blocking, streaming)",
				Value:   "blocking",
				Sources: cli.EnvVars("RESPONSE_MODE"),
			},
			&cli.StringFlag{
				Name:    "workflow-user",
				Usage:   "User identifier sent with every run request",
				Value:   "dailybrief",
				Sources: cli.EnvVars("WORKFLOW_USER"),
			},
			&cli.StringFlag{
				Name:    "workflow-inputs",
				Usage:   "JSON object passed as workflow inputs",
				Value:   "{}",
				Sources: cli.EnvVars("WORKFLOW_INPUTS"),
			},
			&cli.IntFlag{
				Name:    "poll-attempts",
				Usage:   "Maximum status polls for an asynchronous run",
				Value:   workflow.DefaultPollAttempts,
				Sources: cli.EnvVars("POLL_ATTEMPTS"),
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Usage:   "Delay between status polls",
				Value:   workflow.DefaultPollInterval,
				Sources: cli.EnvVars("POLL_INTERVAL"),
			},
			&cli.StringFlag{
				Name:     "smtp-host",
				Usage:    "SMTP relay host",
				Required: true,
				Sources:  cli.EnvVars("SMTP_HOST"),
			},
			&cli.IntFlag{
				Name:    "smtp-port",
				Usage:   "SMTP relay port",
				Value:   defaultSMTPPort,
				Sources: cli.EnvVars("SMTP_PORT"),
			},
			&cli.StringFlag{
				Name:    "smtp-username",
				Usage:   "SMTP username (plain auth when set)",
				Sources: cli.EnvVars("SMTP_USERNAME"),
			},
			&cli.StringFlag{
				Name:    "smtp-password",
				Usage:   "SMTP password",
				Sources: cli.EnvVars("SMTP_PASSWORD"),
			},
			&cli.StringFlag{
				Name:     "mail-from",
				Usage:    "Sender address for report mail",
				Required: true,
				Sources:  cli.EnvVars("MAIL_FROM"),
			},
			&cli.StringFlag{
				Name:     "recipients",
				Usage:    "Comma-separated recipient addresses",
				Required: true,
				Sources:  cli.EnvVars("RECIPIENTS"),
			},
			&cli.StringFlag{
				Name:    "schedule-time",
				Usage:   "Daily send time as HH:MM",
				Value:   defaultScheduleTime,
				Sources: cli.EnvVars("SCHEDULE_TIME"),
			},
			&cli.StringFlag{
				Name:    "timezone",
				Usage:   "IANA timezone for the schedule",
				Value:   "UTC",
				Sources: cli.EnvVars("TIMEZONE"),
			},
			&cli.BoolFlag{
				Name:    "run-on-start",
				Usage:   "Run the pipeline once at startup",
				Sources: cli.EnvVars("RUN_ON_START"),
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the status/trigger HTTP server",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			cfg, err := buildConfig(command)
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "Initializing dailybrief",
				"schedule_time", cfg.ScheduleTime,
				"timezone", cfg.Timezone,
				"recipients", len(cfg.Recipients))

			client := workflow.NewClient(
				cfg.WorkflowEndpoint,
				cfg.WorkflowAPIKey,
				cfg.ResponseMode,
				cfg.WorkflowUser,
				logger,
			).WithPollBudget(cfg.PollAttempts, cfg.PollInterval)

			sender, err := notifier.NewSMTP(
				cfg.SMTPHost,
				cfg.SMTPPort,
				cfg.SMTPUsername,
				cfg.SMTPPassword,
				cfg.MailFrom,
				cfg.Recipients,
				logger,
			)
			if err != nil {
				return err
			}

			pipe := pipeline.New(client, sender, cfg.WorkflowInputs, logger)

			trigger, err := schedule.NewTrigger(cfg.ScheduleTime, cfg.Location(), logger)
			if err != nil {
				return err
			}

			run := func(runCtx context.Context) {
				if err := pipe.Run(runCtx); err != nil {
					logger.Error("Report pipeline failed", "error", err)
				}
			}

			if err := trigger.Start(ctx, run); err != nil {
				return err
			}

			defer func() {
				if err := trigger.Stop(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to stop schedule trigger", "error", err)
				}
			}()

			if cfg.RunOnStart {
				logger.InfoContext(ctx, "Run-on-start enabled, firing pipeline")

				go run(context.Background())
			}

			api := NewAPI(logger, pipe, trigger, cfg.Recipients)

			if err := api.Start(cfg.Port); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

// buildConfig collects the configuration from flags and environment and
// validates it once, before anything starts.
func buildConfig(command *cli.Command) (*config.Config, error) {
	var inputs map[string]any
	if err := json.Unmarshal([]byte(command.String("workflow-inputs")), &inputs); err != nil {
		return nil, fmt.Errorf("invalid workflow-inputs: %w", err)
	}

	cfg := &config.Config{
		WorkflowEndpoint: command.String("workflow-endpoint"),
		WorkflowAPIKey:   command.String("workflow-api-key"),
		ResponseMode:     command.String("response-mode"),
		WorkflowUser:     command.String("workflow-user"),
		WorkflowInputs:   inputs,
		PollAttempts:     command.Int("poll-attempts"),
		PollInterval:     command.Duration("poll-interval"),
		SMTPHost:         command.String("smtp-host"),
		SMTPPort:         command.Int("smtp-port"),
		SMTPUsername:     command.String("smtp-username"),
		SMTPPassword:     command.String("smtp-password"),
		MailFrom:         command.String("mail-from"),
		Recipients:       config.ParseRecipients(command.String("recipients")),
		ScheduleTime:     command.String("schedule-time"),
		Timezone:         command.String("timezone"),
		RunOnStart:       command.Bool("run-on-start"),
		Port:             command.Int("port"),
		LogLevel:         command.String("log-level"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
