package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/coreerrors"
	"polymarket-mm/pkg/types"
)

func TestLiveAdapterPlaceLimitDryRun(t *testing.T) {
	t.Parallel()
	c := newDryRunClient()
	a := NewLiveAdapter(c)

	result, err := a.PlaceLimit(context.Background(), "tok1", types.BUY, decimal.NewFromFloat(0.5), decimal.NewFromFloat(10))
	if err != nil {
		t.Fatalf("PlaceLimit: %v", err)
	}
	if result.Mode != ModeLive {
		t.Errorf("Mode = %q, want LIVE", result.Mode)
	}
	if result.OrderID == "" {
		t.Errorf("expected non-empty OrderID")
	}
	if result.Status != types.StatusOpen {
		t.Errorf("Status = %q, want OPEN", result.Status)
	}
}

func TestLiveAdapterPlaceLimitRejectsInvalidPrice(t *testing.T) {
	t.Parallel()
	c := newDryRunClient()
	a := NewLiveAdapter(c)

	_, err := a.PlaceLimit(context.Background(), "tok1", types.BUY, decimal.Zero, decimal.NewFromFloat(10))
	if !coreerrors.Is(err, coreerrors.InvalidPrice) {
		t.Errorf("expected InvalidPrice error, got %v", err)
	}
}

func TestLiveAdapterPlaceLimitRejectsInvalidSize(t *testing.T) {
	t.Parallel()
	c := newDryRunClient()
	a := NewLiveAdapter(c)

	_, err := a.PlaceLimit(context.Background(), "tok1", types.BUY, decimal.NewFromFloat(0.5), decimal.Zero)
	if !coreerrors.Is(err, coreerrors.InvalidSize) {
		t.Errorf("expected InvalidSize error, got %v", err)
	}
}

func TestTickSizeCacheAvoidsRefetchWithinTTL(t *testing.T) {
	t.Parallel()
	a := &LiveAdapter{tickCache: make(map[string]cachedTick)}

	a.tickCache["tok1"] = cachedTick{value: decimal.NewFromFloat(0.01), fetched: time.Now()}

	// a.client is nil, so a refetch instead of a cache hit would panic.
	got, err := a.GetTickSize(context.Background(), "tok1")
	if err != nil {
		t.Fatalf("GetTickSize: %v", err)
	}
	if !got.Equal(decimal.NewFromFloat(0.01)) {
		t.Errorf("cached tick size = %v, want 0.01", got)
	}
}

func TestMapOrderStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want types.OrderStatus
	}{
		{"live", types.StatusOpen},
		{"LIVE", types.StatusOpen},
		{"matched", types.StatusFilled},
		{"canceled", types.StatusCanceled},
		{"rejected", types.StatusRejected},
		{"unknown", types.StatusPartial},
	}
	for _, tt := range tests {
		if got := mapOrderStatus(tt.raw); got != tt.want {
			t.Errorf("mapOrderStatus(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
