// Package oracle holds the HTTP/WS clients for the external price, route
// and balance providers. Everything here is a thin, classified client; the
// retry and fallback policy lives in the fetch package, and the decisions
// live in route, admission and exit.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"solana-trade-sentry/internal/fetch"
	"solana-trade-sentry/internal/observability"
)

// WSOL is the wrapped-SOL mint used as the quote side of test quotes.
const WSOL = "So11111111111111111111111111111111111111112"

// TestQuoteLamports is the minimal size used for route-existence probes.
// Large enough to dodge dust filters, small enough not to move thin pools.
const TestQuoteLamports = 10_000_000 // 0.01 SOL

// Quote is a swap aggregator quote response (Jupiter v6 shape).
type Quote struct {
	InputMint      string  `json:"inputMint"`
	OutputMint     string  `json:"outputMint"`
	InAmount       string  `json:"inAmount"`
	OutAmount      string  `json:"outAmount"`
	OtherAmount    string  `json:"otherAmountThreshold"`
	SlippageBps    int     `json:"slippageBps"`
	PriceImpactPct float64 `json:"priceImpactPct"`
}

// OutAmountUint parses the quoted output amount.
func (q *Quote) OutAmountUint() (uint64, error) {
	return strconv.ParseUint(q.OutAmount, 10, 64)
}

// QuoteClient talks to one swap aggregator.
type QuoteClient struct {
	Name string // provider label for logs and audit
	base string
	http *http.Client
}

// NewQuoteClient creates a client for a Jupiter-style quote API.
// The per-request deadline comes from the caller's context (the fetch
// package applies it), so the embedded client carries no timeout.
func NewQuoteClient(name, baseURL string) *QuoteClient {
	return &QuoteClient{
		Name: name,
		base: baseURL,
		http: &http.Client{},
	}
}

// ProviderName returns the provider label.
func (c *QuoteClient) ProviderName() string { return c.Name }

// GetQuote fetches a quote. amount is in the input mint's smallest units.
func (c *QuoteClient) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*Quote, int, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.Itoa(slippageBps))
	q.Set("onlyDirectRoutes", "false")
	u := c.base + "/v6/quote?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build quote request: %w", err)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	observability.RecordQuoteLatency(time.Since(started).Seconds())
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("%s quote status %d", c.Name, resp.StatusCode)
	}

	var out Quote
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode %s quote: %w", c.Name, err)
	}
	return &out, resp.StatusCode, nil
}

// QuoteCall wraps GetQuote as a classified fetch.Call.
//
// Classification: HTTP 200 => Success; 400/404 => NoRoute (aggregators
// answer "no route for this pair/size" with a client error, which is a
// genuine verdict, not a transport failure); 429 => RateLimited; anything
// else, including transport errors, => NetworkError.
func (c *QuoteClient) QuoteCall(inputMint, outputMint string, amount uint64, slippageBps int) fetch.Call {
	return func(ctx context.Context) fetch.Outcome {
		quote, status, err := c.GetQuote(ctx, inputMint, outputMint, amount, slippageBps)
		switch {
		case err == nil:
			return fetch.Outcome{Status: fetch.StatusSuccess, Payload: quote}
		case status == http.StatusBadRequest || status == http.StatusNotFound:
			return fetch.Outcome{Status: fetch.StatusNoRoute, Err: err}
		case status == http.StatusTooManyRequests:
			return fetch.Outcome{Status: fetch.StatusRateLimited, Err: err}
		default:
			return fetch.Outcome{Status: fetch.StatusNetworkError, Err: err}
		}
	}
}
