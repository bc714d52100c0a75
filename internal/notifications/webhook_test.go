package notifications

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/havenlist/tracker-backend/internal/httputil"
	"github.com/havenlist/tracker-backend/internal/tracker"
)

func TestSend_NoWebhook(t *testing.T) {
	s := NewSender("", "TestTracker")
	if s.Enabled() {
		t.Fatal("should not be enabled with empty URL")
	}
	// Should log to console without error
	s.Send("hello from test")
	t.Log("Send with no webhook: OK (console only)")
}

func TestSend_SlackFormat(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSender(srv.URL, "TestTracker")
	if !s.Enabled() {
		t.Fatal("should be enabled")
	}

	s.Send("run finished")

	if received["username"] != "TestTracker" {
		t.Fatalf("username: got %s", received["username"])
	}
	if received["text"] == "" {
		t.Fatal("text should not be empty")
	}
	t.Logf("Slack payload: %+v", received)
}

func TestSend_DiscordFormat(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// URL containing "discord" triggers Discord format
	s := NewSender(srv.URL+"/discord/webhook", "PriceTracker")
	s.Send("47 properties processed")

	if received["content"] == "" {
		t.Fatal("content should not be empty for Discord")
	}
	if received["username"] != "PriceTracker" {
		t.Fatalf("username: got %s", received["username"])
	}
	if _, hasText := received["text"]; hasText {
		t.Fatal("Discord payload should not have 'text' field")
	}
	t.Logf("Discord payload: %+v", received)
}

func TestSendRunReport(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	started := time.Date(2024, 7, 15, 2, 0, 0, 0, time.UTC)
	res := &tracker.RunResult{
		ID:         uuid.New(),
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Minute),
		Status:     tracker.RunCompleted,
		Found:      47,
		Success:    45,
		Failed:     2,
		Failures: []tracker.Failure{
			{Zpid: "123", Err: "lookup failed"},
			{Zpid: "456", Err: "update write: timeout"},
		},
	}

	s := NewSender(srv.URL, "TestTracker")
	s.SendRunReport(res)

	msg := received["text"]
	for _, want := range []string{"47 found", "45 success", "2 failed", "zpid 123", "zpid 456"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("report missing %q: %s", want, msg)
		}
	}
	t.Logf("Report: %s", msg)
}

func TestSendRunReport_TruncatesFailureList(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res := &tracker.RunResult{ID: uuid.New(), Status: tracker.RunCompleted, Found: 30, Failed: 30}
	for i := 0; i < 30; i++ {
		res.Failures = append(res.Failures, tracker.Failure{Zpid: fmt.Sprintf("%d", i), Err: "boom"})
	}

	s := NewSender(srv.URL, "TestTracker")
	s.SendRunReport(res)

	msg := received["text"]
	if got := strings.Count(msg, "zpid "); got != maxFailureLines {
		t.Fatalf("expected %d failure lines, got %d", maxFailureLines, got)
	}
	if !strings.Contains(msg, "and 20 more failures") {
		t.Fatalf("missing truncation note: %s", msg)
	}
}

func TestSend_WebhookError(t *testing.T) {
	s := NewSender("http://localhost:1/bogus", "TestTracker")
	s.retry = httputil.RetryConfig{MaxAttempts: 2, BaseDelay: 10 * time.Millisecond}
	// Should not panic, just log the error
	s.Send("this will fail gracefully")
	t.Log("Webhook error handled gracefully")
}

func TestDefaultBotName(t *testing.T) {
	s := NewSender("", "")
	if s.botName != "PriceTracker" {
		t.Fatalf("expected default bot name, got %s", s.botName)
	}
}
