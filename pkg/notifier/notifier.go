// Package notifier delivers rendered report documents to the configured
// recipient set over the external mail transport.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/dukex/dailybrief/pkg/report"
)

// Receipt describes a completed delivery.
type Receipt struct {
	Recipients []string
	SentAt     time.Time
}

// Notifier delivers a document to a fixed recipient set. A single call is
// a single delivery attempt; retries are the caller's responsibility.
type Notifier interface {
	Send(ctx context.Context, doc report.Document) (*Receipt, error)
}

// DeliveryError indicates the mail transport rejected the message.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return "mail delivery failed: " + e.Err.Error()
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

func IsDeliveryError(err error) bool {
	var target *DeliveryError

	return errors.As(err, &target)
}

// SMTP sends documents through an SMTP relay.
type SMTP struct {
	client     *mail.Client
	from       string
	recipients []string
	logger     *slog.Logger
}

// NewSMTP creates a notifier for the given relay. Credentials are
// optional; when a username is set, plain auth is used.
func NewSMTP(host string, port int, username, password, from string, recipients []string, logger *slog.Logger) (*SMTP, error) {
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}

	if username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(username),
			mail.WithPassword(password),
		)
	}

	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client for %s: %w", host, err)
	}

	return &SMTP{
		client:     client,
		from:       from,
		recipients: slices.Clone(recipients),
		logger:     logger.With("module", "notifier"),
	}, nil
}

// Send delivers the document in one attempt.
func (n *SMTP) Send(ctx context.Context, doc report.Document) (*Receipt, error) {
	msg, err := n.buildMessage(doc)
	if err != nil {
		return nil, &DeliveryError{Err: err}
	}

	n.logger.Info("Sending report", "subject", doc.Subject, "recipients", len(n.recipients))

	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return nil, &DeliveryError{Err: err}
	}

	receipt := &Receipt{Recipients: slices.Clone(n.recipients), SentAt: time.Now()}

	n.logger.Info("Report delivered", "recipients", len(receipt.Recipients))

	return receipt, nil
}

func (n *SMTP) buildMessage(doc report.Document) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if err := msg.From(n.from); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", n.from, err)
	}

	if err := msg.To(n.recipients...); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}

	msg.Subject(doc.Subject)
	msg.SetBodyString(mail.TypeTextHTML, doc.HTML)

	return msg, nil
}
