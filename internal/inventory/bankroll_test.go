package inventory

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/clock"
	"polymarket-mm/internal/config"
)

type fakeBankrollSource struct {
	usdc, equity decimal.Decimal
	err          error
}

func (f *fakeBankrollSource) GetBankroll() (decimal.Decimal, decimal.Decimal, error) {
	return f.usdc, f.equity, f.err
}

func TestBankrollFixedModeIgnoresSource(t *testing.T) {
	t.Parallel()
	cfg := config.BankrollConfig{
		BankrollMode:            "FIXED",
		BankrollUsd:             1000,
		BankrollTradingFraction: 0.5,
	}
	clk := clock.NewVirtualClock(time.Now())
	b := NewBankroll(cfg, clk, nil)

	if err := b.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	want := decimal.NewFromFloat(500)
	if !b.Effective().Equal(want) {
		t.Errorf("Effective() = %v, want %v", b.Effective(), want)
	}
}

func TestBankrollAutoCashSmoothing(t *testing.T) {
	t.Parallel()
	cfg := config.BankrollConfig{
		BankrollMode:            "AUTO_CASH",
		BankrollUsd:             100,
		BankrollTradingFraction: 1.0,
		BankrollSmoothingAlpha:  0.5,
	}
	clk := clock.NewVirtualClock(time.Now())
	src := &fakeBankrollSource{usdc: decimal.NewFromInt(1000), equity: decimal.NewFromInt(1000)}
	b := NewBankroll(cfg, clk, src)

	if err := b.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	// first observation seeds the EMA directly
	if !b.Effective().Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Effective() after first refresh = %v, want 1000", b.Effective())
	}

	src.usdc = decimal.NewFromInt(2000)
	clk.Advance(time.Second)
	if err := b.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	// EMA: 0.5*2000 + 0.5*1000 = 1500
	want := decimal.NewFromInt(1500)
	if !b.Effective().Equal(want) {
		t.Errorf("Effective() after second refresh = %v, want %v", b.Effective(), want)
	}
}

func TestBankrollFallsBackWhenStale(t *testing.T) {
	t.Parallel()
	cfg := config.BankrollConfig{
		BankrollMode:            "AUTO_CASH",
		BankrollUsd:             50,
		BankrollTradingFraction: 1.0,
		BankrollSmoothingAlpha:  1.0,
	}
	clk := clock.NewVirtualClock(time.Now())
	src := &fakeBankrollSource{usdc: decimal.NewFromInt(5000), equity: decimal.NewFromInt(5000)}
	b := NewBankroll(cfg, clk, src)

	if err := b.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if !b.Effective().Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("sanity check failed: Effective() = %v", b.Effective())
	}

	clk.Advance(2 * time.Minute)
	want := decimal.NewFromInt(50)
	if !b.Effective().Equal(want) {
		t.Errorf("Effective() after staleness = %v, want fallback %v", b.Effective(), want)
	}
}

func TestBankrollCircuitOpen(t *testing.T) {
	t.Parallel()
	cfg := config.BankrollConfig{
		BankrollMode:            "FIXED",
		BankrollUsd:             10,
		BankrollTradingFraction: 1.0,
		BankrollMinThreshold:    20,
	}
	clk := clock.NewVirtualClock(time.Now())
	b := NewBankroll(cfg, clk, nil)

	if !b.CircuitOpen() {
		t.Errorf("CircuitOpen() = false, want true when effective bankroll below threshold")
	}
}

func TestDynamicSizingMultiplierClamped(t *testing.T) {
	t.Parallel()
	cfg := config.BankrollConfig{
		BankrollMode:            "FIXED",
		BankrollUsd:             10000,
		BankrollTradingFraction: 1.0,
		DynamicSizing: config.DynamicSizingConfig{
			Enabled:       true,
			MinMultiplier: 0.5,
			MaxMultiplier: 2.0,
			ReferenceUsd:  1000,
		},
	}
	clk := clock.NewVirtualClock(time.Now())
	b := NewBankroll(cfg, clk, nil)

	// actual/reference = 10 -> clamped to max 2.0
	got := b.DynamicSizingMultiplier()
	if !got.Equal(decimal.NewFromFloat(2.0)) {
		t.Errorf("DynamicSizingMultiplier() = %v, want clamped 2.0", got)
	}
}

func TestDynamicSizingMultiplierDisabled(t *testing.T) {
	t.Parallel()
	cfg := config.BankrollConfig{
		BankrollMode:            "FIXED",
		BankrollUsd:             10000,
		BankrollTradingFraction: 1.0,
	}
	clk := clock.NewVirtualClock(time.Now())
	b := NewBankroll(cfg, clk, nil)

	got := b.DynamicSizingMultiplier()
	if !got.Equal(decimal.NewFromInt(1)) {
		t.Errorf("DynamicSizingMultiplier() = %v, want 1.0 when disabled", got)
	}
}
