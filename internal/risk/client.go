// Package risk wraps the external token risk-check collaborator.
package risk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNotConfigured is returned when no risk endpoint is configured.
// Consumers fail open on it: absence of the collaborator never blocks a
// trade, only an explicit bad verdict does.
var ErrNotConfigured = errors.New("risk: checker not configured")

// Report is the collaborator's verdict for one token.
type Report struct {
	IsHoneypot      bool    `json:"isHoneypot"`
	IsBlacklisted   bool    `json:"isBlacklisted"`
	LiquidityLocked bool    `json:"liquidityLocked"`
	LockPercentage  float64 `json:"lockPercentage"`
	RiskScore       int     `json:"riskScore"`
}

// Blocking reports whether the verdict positively forbids trading.
func (r *Report) Blocking() bool {
	return r.IsHoneypot || r.IsBlacklisted
}

// Checker produces risk reports for token mints.
type Checker interface {
	Check(ctx context.Context, mint string) (*Report, error)
}

// HTTPChecker implements Checker against the risk API.
type HTTPChecker struct {
	url  string
	http *http.Client
}

// NewHTTPChecker creates a Checker. An empty URL yields a checker whose
// Check always returns ErrNotConfigured, which keeps the call site free of
// nil checks.
func NewHTTPChecker(url string, timeout time.Duration) *HTTPChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPChecker{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// Check implements Checker.
func (c *HTTPChecker) Check(ctx context.Context, mint string) (*Report, error) {
	if c.url == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/check/"+mint, nil)
	if err != nil {
		return nil, fmt.Errorf("build risk request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("risk check status %d", resp.StatusCode)
	}

	var report Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode risk report: %w", err)
	}
	return &report, nil
}
