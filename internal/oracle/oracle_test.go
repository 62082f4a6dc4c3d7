package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"solana-trade-sentry/internal/fetch"
)

const testMint = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

func TestQuoteCall_Classification(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		want       fetch.Status
	}{
		{
			name:       "ok quote",
			statusCode: http.StatusOK,
			body:       `{"inputMint":"` + WSOL + `","outputMint":"` + testMint + `","outAmount":"42000"}`,
			want:       fetch.StatusSuccess,
		},
		{
			name:       "no route answered as 400",
			statusCode: http.StatusBadRequest,
			body:       `{"error":"Could not find any route"}`,
			want:       fetch.StatusNoRoute,
		},
		{
			name:       "unknown token answered as 404",
			statusCode: http.StatusNotFound,
			body:       `{}`,
			want:       fetch.StatusNoRoute,
		},
		{
			name:       "throttled",
			statusCode: http.StatusTooManyRequests,
			body:       `{}`,
			want:       fetch.StatusRateLimited,
		},
		{
			name:       "server error",
			statusCode: http.StatusBadGateway,
			body:       `{}`,
			want:       fetch.StatusNetworkError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v6/quote", r.URL.Path)
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewQuoteClient("test", srv.URL)
			out := client.QuoteCall(WSOL, testMint, TestQuoteLamports, 100)(context.Background())
			assert.Equal(t, tt.want, out.Status)
		})
	}
}

func TestQuoteCall_TransportFailure(t *testing.T) {
	client := NewQuoteClient("test", "http://127.0.0.1:1")
	out := client.QuoteCall(WSOL, testMint, TestQuoteLamports, 100)(context.Background())
	assert.Equal(t, fetch.StatusNetworkError, out.Status)
	assert.Error(t, out.Err)
}

func TestBondingCurve_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/coins/" + testMint:
			_, _ = w.Write([]byte(`{"mint":"` + testMint + `","complete":false,"virtual_sol_reserves":30,"virtual_token_reserves":1000000}`))
		case "/coins/graduated":
			_, _ = w.Write([]byte(`{"mint":"graduated","complete":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewBondingCurveClient(srv.URL, 0)

	state, err := client.Lookup(context.Background(), testMint)
	require.NoError(t, err)
	assert.True(t, state.Found)
	assert.False(t, state.Graduated)
	assert.InDelta(t, 0.00003, state.PriceSOL, 1e-9)

	state, err = client.Lookup(context.Background(), "graduated")
	require.NoError(t, err)
	assert.True(t, state.Found)
	assert.True(t, state.Graduated)

	state, err = client.Lookup(context.Background(), "unknown")
	require.NoError(t, err, "404 is a conclusive answer, not an error")
	assert.False(t, state.Found)
}

func TestBondingCurve_ServerErrorIsInconclusive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewBondingCurveClient(srv.URL, 0)
	_, err := client.Lookup(context.Background(), testMint)
	assert.Error(t, err)
}

func TestRPCClient_GetTokenBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"jsonrpc":"2.0","id":1,
			"result":{"value":[
				{"account":{"data":{"parsed":{"info":{"tokenAmount":{"uiAmount":120.5}}}}}},
				{"account":{"data":{"parsed":{"info":{"tokenAmount":{"uiAmount":4.5}}}}}}
			]}
		}`))
	}))
	defer srv.Close()

	client := NewRPCClient(srv.URL, 0)
	balance, err := client.GetTokenBalance(context.Background(), "WalletAddr", testMint)
	require.NoError(t, err)
	assert.Equal(t, 125.0, balance)
}

func TestRPCClient_EmptyAccountsMeansZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"value":[]}}`))
	}))
	defer srv.Close()

	client := NewRPCClient(srv.URL, 0)
	balance, err := client.GetTokenBalance(context.Background(), "WalletAddr", testMint)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestRPCClient_RPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"invalid params"}}`))
	}))
	defer srv.Close()

	client := NewRPCClient(srv.URL, 0)
	_, err := client.GetTokenBalance(context.Background(), "WalletAddr", testMint)
	assert.ErrorContains(t, err, "invalid params")
}

func TestFeedClient_FetchAssets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/dex/pairs/solana", r.URL.Path)
		_, _ = w.Write([]byte(`{"pairs":[
			{"chainId":"solana","baseToken":{"address":"` + testMint + `","symbol":"PEPE"},
			 "priceUsd":"0.002","liquidity":{"usd":85000},"labels":["meme"]},
			{"chainId":"solana","baseToken":{"address":"","symbol":"BROKEN"}}
		]}`))
	}))
	defer srv.Close()

	client := NewFeedClient(srv.URL, 0)
	assets, err := client.FetchAssets(context.Background())
	require.NoError(t, err)

	require.Len(t, assets, 1, "pairs without a base address are dropped")
	assert.Equal(t, testMint, assets[0].Mint)
	assert.Equal(t, "PEPE", assets[0].Symbol)
	assert.Equal(t, 85000.0, assets[0].Liquidity)
	assert.Equal(t, []string{"meme"}, assets[0].Categories)
}

// stalledServer never writes a response until the test ends. Clients are
// handed deadline-free contexts by the scheduler loops, so their own request
// timeout is the only thing keeping a hung upstream from wedging a cycle.
func stalledServer(t *testing.T) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})
	return srv
}

func TestFeedClient_StalledUpstreamTimesOut(t *testing.T) {
	srv := stalledServer(t)
	client := NewFeedClient(srv.URL, 50*time.Millisecond)

	_, err := client.FetchAssets(context.Background())
	assert.Error(t, err)

	_, err = client.FetchPrice(context.Background(), testMint)
	assert.Error(t, err)
}

func TestBondingCurve_StalledUpstreamTimesOut(t *testing.T) {
	srv := stalledServer(t)
	client := NewBondingCurveClient(srv.URL, 50*time.Millisecond)

	_, err := client.Lookup(context.Background(), testMint)
	assert.Error(t, err)
}

type stubSource struct {
	name  string
	price float64
	err   error
}

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) Price(context.Context, string) (float64, error) {
	return s.price, s.err
}

func TestPriceOracle_FirstHealthySourceWins(t *testing.T) {
	oracle := NewPriceOracle(zap.NewNop(),
		&stubSource{name: "stream", err: context.DeadlineExceeded},
		&stubSource{name: "feed", price: 1.25},
		&stubSource{name: "never-reached", price: 9.99},
	)

	price, err := oracle.CurrentPrice(context.Background(), testMint)
	require.NoError(t, err)
	assert.Equal(t, 1.25, price)
}

func TestPriceOracle_AllSourcesFail(t *testing.T) {
	oracle := NewPriceOracle(zap.NewNop(),
		&stubSource{name: "stream", err: context.DeadlineExceeded},
		&stubSource{name: "feed", err: context.DeadlineExceeded},
	)

	_, err := oracle.CurrentPrice(context.Background(), testMint)
	assert.Error(t, err)
}
