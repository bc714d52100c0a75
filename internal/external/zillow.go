package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/havenlist/tracker-backend/internal/httputil"
)

// State is what the lookup service knows about a listing. Zero values mean
// the upstream response omitted the field.
type State struct {
	Price        float64
	HomeStatus   string
	TimeOnZillow string
}

// LookupError wraps the last underlying failure for one zpid after the
// retry budget is spent.
type LookupError struct {
	Zpid     string
	Attempts int
	Err      error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup failed for zpid %s after %d attempts: %v", e.Zpid, e.Attempts, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

type LookupClient struct {
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewLookupClient(baseURL string, timeout time.Duration, retry httputil.RetryConfig) *LookupClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if retry.MaxAttempts <= 0 {
		retry = httputil.DefaultRetry
	}
	return &LookupClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		// The default transport keeps connections alive across the many
		// per-zpid calls a run makes against the same host.
		httpClient: &http.Client{Timeout: timeout},
		retry:      retry,
	}
}

// Fetch probes the lookup service for a single zpid. The boolean reports
// whether the listing still exists upstream; false with a nil error means
// the service responded but no longer carries the listing.
func (c *LookupClient) Fetch(ctx context.Context, zpid string) (State, bool, error) {
	endpoint := fmt.Sprintf("%s/get-zpid?zpid=%s", c.baseURL, url.QueryEscape(zpid))

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Connection", "keep-alive")
		return req, nil
	})
	if err != nil {
		return State{}, false, &LookupError{Zpid: zpid, Attempts: c.retry.MaxAttempts, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return State{}, false, &LookupError{
			Zpid:     zpid,
			Attempts: 1,
			Err:      fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var payload struct {
		Data struct {
			Property *struct {
				Price              float64 `json:"price"`
				KeystoneHomeStatus string  `json:"keystoneHomeStatus"`
				TimeOnZillow       string  `json:"timeOnZillow"`
			} `json:"property"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return State{}, false, &LookupError{Zpid: zpid, Attempts: 1, Err: fmt.Errorf("decode: %w", err)}
	}

	// A null property is the only signal that a listing has left the
	// source inventory.
	if payload.Data.Property == nil {
		return State{}, false, nil
	}

	p := payload.Data.Property
	return State{
		Price:        p.Price,
		HomeStatus:   p.KeystoneHomeStatus,
		TimeOnZillow: p.TimeOnZillow,
	}, true, nil
}
