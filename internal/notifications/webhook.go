package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/havenlist/tracker-backend/internal/httputil"
	"github.com/havenlist/tracker-backend/internal/tracker"
)

// maxFailureLines bounds how many per-record failures a report message
// carries; webhook providers reject oversized payloads.
const maxFailureLines = 10

type Sender struct {
	webhookURL string
	botName    string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewSender(webhookURL, botName string) *Sender {
	if botName == "" {
		botName = "PriceTracker"
	}
	return &Sender{
		webhookURL: webhookURL,
		botName:    botName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
		},
	}
}

// SendRunReport formats and delivers the aggregate of one tracking run.
func (s *Sender) SendRunReport(res *tracker.RunResult) {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s %s: %d found, %d success, %d failed (took %s)",
		res.ID, res.Status, res.Found, res.Success, res.Failed,
		res.FinishedAt.Sub(res.StartedAt).Round(time.Second))

	for i, f := range res.Failures {
		if i == maxFailureLines {
			fmt.Fprintf(&b, "\n... and %d more failures", len(res.Failures)-maxFailureLines)
			break
		}
		fmt.Fprintf(&b, "\n  zpid %s: %s", f.Zpid, f.Err)
	}

	s.Send(b.String())
}

func (s *Sender) Send(msg string) {
	formatted := fmt.Sprintf("[%s] %s", s.botName, msg)
	fmt.Printf("[%s] %s\n", time.Now().UTC().Format(time.RFC3339), formatted)

	if s.webhookURL == "" {
		return
	}

	payload := s.formatPayload(formatted)
	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Printf("[REPORT ERROR] marshal: %v\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		fmt.Printf("[REPORT ERROR] Failed to send report after retries: %v\n", err)
		return
	}
	resp.Body.Close()
}

func (s *Sender) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.botName,
		}
	}
	return map[string]string{
		"text":     fmt.Sprintf("`%s`", msg),
		"username": s.botName,
	}
}

func (s *Sender) Enabled() bool {
	return s.webhookURL != ""
}
