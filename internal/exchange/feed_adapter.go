package exchange

import "context"

// MarketFeedAdapter narrows WSFeed to the subscriber shape bookfeed.Mirror
// expects (no context parameter — the WS subscribe/unsubscribe messages are
// fire-and-forget writes).
type MarketFeedAdapter struct {
	feed *WSFeed
}

// NewMarketFeedAdapter wraps a market-channel WSFeed.
func NewMarketFeedAdapter(feed *WSFeed) *MarketFeedAdapter {
	return &MarketFeedAdapter{feed: feed}
}

// Subscribe adds token IDs to the market channel subscription.
func (a *MarketFeedAdapter) Subscribe(tokens []string) error {
	return a.feed.Subscribe(context.Background(), tokens)
}

// Unsubscribe removes token IDs from the market channel subscription.
func (a *MarketFeedAdapter) Unsubscribe(tokens []string) error {
	return a.feed.Unsubscribe(context.Background(), tokens)
}
