package alert

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// MockProvider logs alerts instead of delivering them and keeps the last
// one for inspection. Used for local development.
type MockProvider struct {
	logger *slog.Logger
	last   Message
	mu     sync.Mutex
	sent   int
}

// Message is an alert captured by MockProvider.
type Message struct {
	To       string
	Subject  string
	Body     string
	JobCount int
}

// NewMockProvider creates a new mock provider.
func NewMockProvider(logger *slog.Logger) *MockProvider {
	return &MockProvider{logger: logger}
}

// Send records the alert and logs how many postings it lists.
func (m *MockProvider) Send(_ context.Context, to, subject, htmlBody string) error {
	msg := Message{
		To:       to,
		Subject:  subject,
		Body:     htmlBody,
		JobCount: strings.Count(htmlBody, jobRowOpen),
	}

	m.mu.Lock()
	m.last = msg
	m.sent++
	m.mu.Unlock()

	m.logger.Info("New jobs alert not delivered (mock provider)",
		"to", msg.To,
		"subject", msg.Subject,
		"job_count", msg.JobCount)
	return nil
}

// Last returns the most recent alert and how many have been sent.
func (m *MockProvider) Last() (Message, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.sent
}
