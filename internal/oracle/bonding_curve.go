package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CurveState describes a token's standing on the bonding-curve market.
type CurveState struct {
	Found     bool
	Graduated bool    // bonding curve complete, trading moved to open market
	PriceSOL  float64 // current curve price, 0 when unknown
}

// BondingCurveClient queries the bonding-curve market API directly
// (pump.fun style coins endpoint).
type BondingCurveClient struct {
	base string
	http *http.Client
}

// NewBondingCurveClient creates a bonding-curve market client. Lookups run
// outside the retrying fetcher's per-call deadline, so the client enforces
// its own request timeout.
func NewBondingCurveClient(baseURL string, timeout time.Duration) *BondingCurveClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &BondingCurveClient{base: baseURL, http: &http.Client{Timeout: timeout}}
}

type curveResponse struct {
	Mint            string  `json:"mint"`
	Complete        bool    `json:"complete"`
	VirtualSolRes   float64 `json:"virtual_sol_reserves"`
	VirtualTokenRes float64 `json:"virtual_token_reserves"`
}

// Lookup fetches the curve state for a mint. A 404 is a conclusive
// "not on the curve" (Found=false, nil error); transport and server
// failures return an error so callers can distinguish inconclusive from
// negative.
func (c *BondingCurveClient) Lookup(ctx context.Context, mint string) (*CurveState, error) {
	u := c.base + "/coins/" + mint

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build curve request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &CurveState{Found: false}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bonding curve status %d", resp.StatusCode)
	}

	var out curveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode curve response: %w", err)
	}

	state := &CurveState{Found: true, Graduated: out.Complete}
	if out.VirtualTokenRes > 0 {
		state.PriceSOL = out.VirtualSolRes / out.VirtualTokenRes
	}
	return state, nil
}
