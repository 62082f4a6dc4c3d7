package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"solana-trade-sentry/internal/domain"
)

// FeedClient pulls candidate asset snapshots from the external discovery
// feed (dexscreener pairs shape). Discovery itself is out of scope; this is
// only the consumption side.
type FeedClient struct {
	base string
	http *http.Client
}

// NewFeedClient creates a discovery feed client. The feed is called from
// scheduler loops whose contexts carry no deadline, so the client enforces
// its own request timeout.
func NewFeedClient(baseURL string, timeout time.Duration) *FeedClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &FeedClient{base: baseURL, http: &http.Client{Timeout: timeout}}
}

type feedPairsResponse struct {
	Pairs []feedPair `json:"pairs"`
}

type feedPair struct {
	ChainID   string    `json:"chainId"`
	BaseToken feedToken `json:"baseToken"`
	PriceUsd  string    `json:"priceUsd"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Labels []string `json:"labels"`
}

type feedToken struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
}

// FetchAssets returns the feed's current candidate snapshots.
func (f *FeedClient) FetchAssets(ctx context.Context) ([]domain.Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.base+"/latest/dex/pairs/solana", nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed status %d", resp.StatusCode)
	}

	var out feedPairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode feed response: %w", err)
	}

	assets := make([]domain.Asset, 0, len(out.Pairs))
	for _, p := range out.Pairs {
		if p.BaseToken.Address == "" {
			continue
		}
		assets = append(assets, domain.Asset{
			Mint:       p.BaseToken.Address,
			Symbol:     p.BaseToken.Symbol,
			Chain:      p.ChainID,
			Liquidity:  p.Liquidity.USD,
			Categories: p.Labels,
			Source:     domain.SourceDexScreener,
		})
	}
	return assets, nil
}

// FetchPrice returns the feed's USD price for a mint, or an error when the
// feed has no pair for it.
func (f *FeedClient) FetchPrice(ctx context.Context, mint string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.base+"/latest/dex/tokens/"+mint, nil)
	if err != nil {
		return 0, fmt.Errorf("build price request: %w", err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("feed price status %d", resp.StatusCode)
	}

	var out feedPairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode price response: %w", err)
	}
	if len(out.Pairs) == 0 {
		return 0, fmt.Errorf("no pairs for mint %s", mint)
	}

	price, err := strconv.ParseFloat(out.Pairs[0].PriceUsd, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", out.Pairs[0].PriceUsd, err)
	}
	return price, nil
}
