package risk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_CleanToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/check/MintABC", r.URL.Path)
		_, _ = w.Write([]byte(`{"isHoneypot":false,"isBlacklisted":false,"liquidityLocked":true,"lockPercentage":95.5,"riskScore":12}`))
	}))
	defer srv.Close()

	checker := NewHTTPChecker(srv.URL, time.Second)
	report, err := checker.Check(context.Background(), "MintABC")
	require.NoError(t, err)

	assert.False(t, report.Blocking())
	assert.True(t, report.LiquidityLocked)
	assert.Equal(t, 95.5, report.LockPercentage)
	assert.Equal(t, 12, report.RiskScore)
}

func TestCheck_HoneypotBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"isHoneypot":true}`))
	}))
	defer srv.Close()

	checker := NewHTTPChecker(srv.URL, time.Second)
	report, err := checker.Check(context.Background(), "MintABC")
	require.NoError(t, err)
	assert.True(t, report.Blocking())
}

func TestCheck_NotConfigured(t *testing.T) {
	checker := NewHTTPChecker("", time.Second)
	_, err := checker.Check(context.Background(), "MintABC")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCheck_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	checker := NewHTTPChecker(srv.URL, time.Second)
	_, err := checker.Check(context.Background(), "MintABC")
	assert.Error(t, err)
}
