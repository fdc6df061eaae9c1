// Package feed fetches the Wise careers job search feed.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"wisejobs-widget/pkg/jobs"

	"github.com/PuerkitoBio/goquery"
)

// DefaultURL selects office 15, team 48, oldest first, page 1.
const DefaultURL = "https://www.wise.jobs/wp-json/transferwisecareers/v1/search?search=&offices[]=15&teams[]=48&orderby=date&order=ASC&q=&page=1"

// StatusError indicates the feed answered with a non-2xx status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.URL)
}

// IsStatusError checks if an error is a non-2xx feed response.
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// Fetcher loads one page of job postings.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
	url    string
}

// New creates a fetcher for the given endpoint.
func New(client *http.Client, url string, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client: client,
		logger: logger,
		url:    url,
	}
}

// Fetch performs a single GET against the feed and returns its postings in
// feed order. There is no retry: a failed fetch is reported to the caller.
func (f *Fetcher) Fetch(ctx context.Context) ([]jobs.Job, error) {
	f.logger.Info("HTTP request starting",
		"method", "GET",
		"url", f.url,
		"purpose", "fetch_job_feed")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "wisejobs-widget/1.0")

	startTime := time.Now()
	resp, err := f.client.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		return nil, fmt.Errorf("get feed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	f.logger.Info("HTTP request completed",
		"url", f.url,
		"status_code", resp.StatusCode,
		"duration_ms", duration.Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: f.url, Code: resp.StatusCode}
	}

	var body jobs.Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	posts := make([]jobs.Job, 0, len(body.Data.Posts))
	for _, p := range body.Data.Posts {
		p.Title = plainText(p.Title)
		p.Team = plainText(p.Team)
		p.Office = plainText(p.Office)
		posts = append(posts, p)
	}

	f.logger.Info("Job feed parsed",
		"code", body.Code,
		"posts", len(posts),
		"total_count", body.Data.TotalCount)

	return posts, nil
}

// plainText decodes character references in a WordPress-rendered label
// ("Ops &#8211; Payments"). A literal "<" is kept as text, never parsed as
// markup.
func plainText(s string) string {
	if !strings.Contains(s, "&") {
		return strings.TrimSpace(s)
	}
	escaped := strings.ReplaceAll(s, "<", "&lt;")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(escaped))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}
