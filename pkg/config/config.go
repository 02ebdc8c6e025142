// Package config provides the startup configuration for the dailybrief
// service. All options are collected once from CLI flags and environment
// variables and validated before anything else starts.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds every recognized option. It is read-only after Validate.
type Config struct {
	// Workflow engine
	WorkflowEndpoint string `validate:"required,url"`
	WorkflowAPIKey   string `validate:"required"`
	ResponseMode     string `validate:"required,oneof=blocking streaming"`
	WorkflowUser     string `validate:"required"`
	WorkflowInputs   map[string]any

	// Polling budget for asynchronous runs
	PollAttempts int           `validate:"required,min=1"`
	PollInterval time.Duration `validate:"required,min=1s"`

	// Mail transport
	SMTPHost     string `validate:"required,hostname|ip"`
	SMTPPort     int    `validate:"required,min=1,max=65535"`
	SMTPUsername string
	SMTPPassword string
	MailFrom     string   `validate:"required,email"`
	Recipients   []string `validate:"required,min=1,dive,email"`

	// Schedule
	ScheduleTime string `validate:"required"` // HH:MM, wall clock in Timezone
	Timezone     string `validate:"required"`
	RunOnStart   bool

	// HTTP surface
	Port int `validate:"required,min=1,max=65535"`

	LogLevel string

	location *time.Location
}

// Validate checks the whole configuration and fails fast on the first
// problem. It also resolves the schedule timezone.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := time.Parse("15:04", c.ScheduleTime); err != nil {
		return fmt.Errorf("invalid schedule time %q: expected HH:MM", c.ScheduleTime)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	c.location = loc

	return nil
}

// Location returns the schedule timezone resolved by Validate.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}

	return c.location
}

// ParseRecipients splits a comma-separated address list, trimming
// whitespace and dropping empty entries. Validation happens in Validate.
func ParseRecipients(raw string) []string {
	parts := strings.Split(raw, ",")
	recipients := make([]string, 0, len(parts))

	for _, part := range parts {
		if addr := strings.TrimSpace(part); addr != "" {
			recipients = append(recipients, addr)
		}
	}

	return recipients
}
