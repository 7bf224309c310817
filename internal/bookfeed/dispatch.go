package bookfeed

import (
	"context"
	"strconv"
	"time"

	"polymarket-mm/pkg/types"
)

// eventSource is satisfied by exchange.WSFeed; narrowed to the three typed
// channels the mirror needs to stay current.
type eventSource interface {
	BookEvents() <-chan types.WSBookEvent
	PriceChangeEvents() <-chan types.WSPriceChangeEvent
	TradeEvents() <-chan types.WSTradeEvent
}

// RunDispatcher drains the market WS feed's typed channels and applies each
// event to the mirror: a single feed-wide goroutine keyed by token rather
// than by fixed YES/NO slots. Blocks until ctx is cancelled.
func RunDispatcher(ctx context.Context, m *Mirror, src eventSource) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-src.BookEvents():
			m.ApplyBookSnapshot(evt.AssetID, evt.Buys, evt.Sells, parseWSTime(evt.Timestamp))
		case evt := <-src.PriceChangeEvents():
			ts := parseWSTime(evt.Timestamp)
			for _, pc := range evt.PriceChanges {
				m.ApplyPriceChange(pc.AssetID, pc.BestBid, pc.BestAsk, ts)
			}
		case evt := <-src.TradeEvents():
			m.ApplyTrade(evt.AssetID, evt.Price, parseWSTime(evt.Timestamp))
		}
	}
}

func parseWSTime(s string) time.Time {
	if s == "" {
		return time.Now()
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms > 1_000_000_000_000 {
			return time.UnixMilli(ms)
		}
		return time.Unix(ms, 0)
	}
	return time.Now()
}
