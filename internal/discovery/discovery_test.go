package discovery

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"polymarket-mm/internal/config"
	"polymarket-mm/pkg/types"
)

func testDiscoveryConfig() config.DiscoveryConfig {
	return config.DiscoveryConfig{
		PollIntervalSeconds: 10,
		Assets:              []string{"btc", "eth"},
	}
}

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIsActiveNowWithinTwoHourWindow(t *testing.T) {
	t.Parallel()
	now := time.Now()

	tests := []struct {
		name   string
		market types.Market
		want   bool
	}{
		{
			name:   "within window, 15m series, prewarm open",
			market: types.Market{EndTime: now.Add(5 * time.Minute), SeriesKey: types.SeriesBTC15m},
			want:   true,
		},
		{
			name:   "already ended",
			market: types.Market{EndTime: now.Add(-time.Minute), SeriesKey: types.SeriesBTC15m},
			want:   false,
		},
		{
			name:   "too far in the future",
			market: types.Market{EndTime: now.Add(3 * time.Hour), SeriesKey: types.SeriesBTC15m},
			want:   false,
		},
		{
			name:   "15m series, prewarm not open yet",
			market: types.Market{EndTime: now.Add(20 * time.Minute), SeriesKey: types.SeriesBTC15m},
			want:   false,
		},
		{
			name:   "1h series, prewarm open at 3 minutes before start",
			market: types.Market{EndTime: now.Add(58 * time.Minute), SeriesKey: types.SeriesETH1h},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := IsActiveNow(tt.market, now)
			if got != tt.want {
				t.Errorf("IsActiveNow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSlotBoundariesGeneratesExpectedCount(t *testing.T) {
	t.Parallel()
	now := time.Now()
	slots := slotBoundaries(now, 15*time.Minute, 2)

	if len(slots) != 5 {
		t.Fatalf("len(slots) = %d, want 5", len(slots))
	}
	for i := 1; i < len(slots); i++ {
		diff := slots[i].Sub(slots[i-1])
		if diff != 15*time.Minute {
			t.Errorf("slot gap = %v, want 15m", diff)
		}
	}
}

func TestSlugForIsDeterministic(t *testing.T) {
	t.Parallel()
	end := time.Unix(1800000000, 0)
	a := slugFor("BTC", "15m", end)
	b := slugFor("BTC", "15m", end)
	if a != b {
		t.Errorf("slugFor not deterministic: %q vs %q", a, b)
	}
	if a != "btc-15m-1800000000" {
		t.Errorf("slugFor() = %q, want btc-15m-1800000000", a)
	}
}

type fakeFetcher struct {
	bySlug map[string]types.Market
	calls  int
}

func (f *fakeFetcher) FetchMarket(ctx context.Context, slug string, seriesKey types.SeriesKey) (types.Market, bool, error) {
	f.calls++
	m, ok := f.bySlug[slug]
	return m, ok, nil
}

func TestPollMergesKnownMarketsAcrossPolls(t *testing.T) {
	t.Parallel()
	now := time.Now()

	slots := slotBoundaries(now, 15*time.Minute, slotsAround)
	targetSlug := slugFor("btc", "15m", slots[2])

	fetcher := &fakeFetcher{bySlug: map[string]types.Market{
		targetSlug: {
			Slug:      targetSlug,
			UpToken:   "up-tok",
			DownToken: "down-tok",
			EndTime:   slots[2],
			SeriesKey: types.SeriesBTC15m,
		},
	}}

	d := New(testDiscoveryConfig(), fetcher, noopLogger())
	d.poll(context.Background())

	snap := <-d.resultCh
	found := false
	for _, m := range snap.Markets {
		if m.Slug == targetSlug {
			found = true
		}
	}
	if !found && IsActiveNow(fetcher.bySlug[targetSlug], now) {
		t.Errorf("expected discovered market %q in active set", targetSlug)
	}

	// second poll with fetcher returning nothing new should still retain the
	// previously discovered market if it's still active.
	fetcher.bySlug = map[string]types.Market{}
	d.poll(context.Background())
	snap2 := <-d.resultCh
	if IsActiveNow(d.known[targetSlug], now) {
		found2 := false
		for _, m := range snap2.Markets {
			if m.Slug == targetSlug {
				found2 = true
			}
		}
		if !found2 {
			t.Errorf("expected market retained across polls despite empty fetch result")
		}
	}
}
