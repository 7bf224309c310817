package paper

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/bookfeed"
	"polymarket-mm/internal/config"
	"polymarket-mm/pkg/types"
)

// Print is one trade-tape entry: a fill observed on one side of a token's
// book, used to drive MAKER_TAPE fills against resting orders.
type Print struct {
	Price decimal.Decimal
	Size  decimal.Decimal
	Side  types.Side
	Ts    time.Time
}

// Tape supplies recent trade prints for a token, most-recent-bounded by
// limit. Implementations need not return prints in any particular order;
// consumeTape sorts oldest-first itself.
type Tape interface {
	FetchPrints(ctx context.Context, token string, limit int) ([]Print, error)

	// Fallback reports whether this instance is standing in for a
	// configured source that isn't actually implemented, so callers can
	// tag the fills it produces distinctly from a genuine tape feed.
	Fallback() bool
}

// lastTradeTape synthesizes a single print per call from the book feed's
// last-trade field, for venues that don't expose a separate trade-tape
// endpoint. Size is a configured stand-in, not an observed fill size.
type lastTradeTape struct {
	feed       bookfeed.Feed
	printSize  decimal.Decimal
	seenTrades map[string]time.Time // token -> last Ts already surfaced
	fallback   bool
}

func newLastTradeTape(feed bookfeed.Feed, printSize float64, fallback bool) *lastTradeTape {
	size := decimal.NewFromFloat(printSize)
	if !size.IsPositive() {
		size = decimal.NewFromInt(50)
	}
	return &lastTradeTape{feed: feed, printSize: size, seenTrades: make(map[string]time.Time), fallback: fallback}
}

func (t *lastTradeTape) Fallback() bool { return t.fallback }

// FetchPrints returns at most one print: the book's last trade, if any, and
// only the first time it's observed for this token (subsequent calls before
// the next trade return nothing, so the same trade never double-fills).
func (t *lastTradeTape) FetchPrints(ctx context.Context, token string, limit int) ([]Print, error) {
	tob, ok := t.feed.TopOfBook(token)
	if !ok || !tob.HasLastTrade {
		return nil, nil
	}
	if last, seen := t.seenTrades[token]; seen && !tob.LastTradeAt.After(last) {
		return nil, nil
	}
	t.seenTrades[token] = tob.LastTradeAt

	side := types.BUY
	if tob.LastTradePrice.LessThanOrEqual(tob.BestBid) {
		side = types.SELL
	}
	return []Print{{
		Price: tob.LastTradePrice,
		Size:  t.printSize,
		Side:  side,
		Ts:    tob.LastTradeAt,
	}}, nil
}

// NewTape builds the configured Tape implementation. The "book_delta" and
// "external" sources have no implementation of their own and are replaced by
// a last-trade tape flagged as a fallback when FallbackSource is
// "ws_last_trade" or empty. Any other fallback, or an unknown primary source,
// returns an error.
func NewTape(cfg config.TradeTapeConfig, feed bookfeed.Feed) (Tape, error) {
	switch cfg.Source {
	case "ws_last_trade", "":
		return newLastTradeTape(feed, cfg.SyntheticPrintSize, false), nil
	case "book_delta", "external":
		if cfg.FallbackSource == "ws_last_trade" || cfg.FallbackSource == "" {
			return newLastTradeTape(feed, cfg.SyntheticPrintSize, true), nil
		}
		return nil, fmt.Errorf("paper: trade tape source %q has no usable fallback %q", cfg.Source, cfg.FallbackSource)
	default:
		return nil, fmt.Errorf("paper: unknown trade tape source %q", cfg.Source)
	}
}
