package oracle

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// PriceSource yields a current price for a mint. Implementations return
// (0, error) when they cannot answer; the oracle moves on to the next
// source.
type PriceSource interface {
	Price(ctx context.Context, mint string) (float64, error)
	Name() string
}

// PriceOracle resolves current prices across an ordered source list:
// freshest first (stream), then HTTP fallbacks. First answer wins.
type PriceOracle struct {
	sources []PriceSource
	logger  *zap.Logger
}

// NewPriceOracle creates an oracle over the given sources, tried in order.
func NewPriceOracle(logger *zap.Logger, sources ...PriceSource) *PriceOracle {
	return &PriceOracle{sources: sources, logger: logger}
}

// CurrentPrice returns the first source's answer. When every source fails
// the last error is returned; the exit engine treats that as "price
// unknown, hold" rather than a fault.
func (o *PriceOracle) CurrentPrice(ctx context.Context, mint string) (float64, error) {
	var lastErr error
	for _, src := range o.sources {
		price, err := src.Price(ctx, mint)
		if err == nil && price > 0 {
			return price, nil
		}
		if err != nil {
			lastErr = err
			o.logger.Debug("price source failed",
				zap.String("source", src.Name()),
				zap.String("mint", mint),
				zap.Error(err),
			)
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no price source answered for %s", mint)
	}
	return 0, lastErr
}

// StreamSource adapts PriceStream to PriceSource.
type StreamSource struct {
	Stream *PriceStream
}

// Name implements PriceSource.
func (s *StreamSource) Name() string { return "stream" }

// Price implements PriceSource.
func (s *StreamSource) Price(_ context.Context, mint string) (float64, error) {
	price, ok := s.Stream.LatestPrice(mint)
	if !ok {
		return 0, fmt.Errorf("no fresh streamed price for %s", mint)
	}
	return price, nil
}

// FeedSource adapts FeedClient to PriceSource.
type FeedSource struct {
	Feed *FeedClient
}

// Name implements PriceSource.
func (s *FeedSource) Name() string { return "feed" }

// Price implements PriceSource.
func (s *FeedSource) Price(ctx context.Context, mint string) (float64, error) {
	return s.Feed.FetchPrice(ctx, mint)
}
