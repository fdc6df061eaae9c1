// Package alert sends an out-of-band notice when new jobs show up in the feed.
package alert

import (
	"context"
	"log/slog"

	"wisejobs-widget/pkg/jobs"
)

// Subject is used for every new-jobs alert.
const Subject = "There are new jobs available!"

// Provider defines the interface for delivery implementations.
type Provider interface {
	// Send sends an HTML message to a single recipient.
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Sender formats new-jobs alerts and hands them to a provider.
type Sender struct {
	provider Provider
	logger   *slog.Logger
	to       string
}

// New creates a sender delivering to the given recipient.
func New(provider Provider, to string, logger *slog.Logger) *Sender {
	return &Sender{
		provider: provider,
		logger:   logger,
		to:       to,
	}
}

// NewJobs sends one alert listing the fetched postings.
func (s *Sender) NewJobs(ctx context.Context, list []jobs.Job) error {
	body := formatBody(list)

	s.logger.Info("Sending new jobs alert",
		"to", s.to,
		"subject", Subject,
		"job_count", len(list))

	return s.provider.Send(ctx, s.to, Subject, body)
}
