package quote

import (
	"testing"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/config"
	"polymarket-mm/pkg/types"
)

func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestEntryPriceBuyNeverCrossesAsk(t *testing.T) {
	t.Parallel()
	in := Inputs{
		Side:     types.BUY,
		BestBid:  dec("0.49"),
		BestAsk:  dec("0.50"),
		TickSize: dec("0.01"),
		SkewTicks: 5, // would push price to 0.54, past the ask
	}

	price := entryPrice(in)
	if price.GreaterThanOrEqual(in.BestAsk) {
		t.Errorf("entryPrice() = %v, must stay below ask %v", price, in.BestAsk)
	}
}

func TestEntryPriceSellNeverCrossesBid(t *testing.T) {
	t.Parallel()
	in := Inputs{
		Side:     types.SELL,
		BestBid:  dec("0.49"),
		BestAsk:  dec("0.50"),
		TickSize: dec("0.01"),
		SkewTicks: 5,
	}

	price := entryPrice(in)
	if price.LessThanOrEqual(in.BestBid) {
		t.Errorf("entryPrice() = %v, must stay above bid %v", price, in.BestBid)
	}
}

func TestEntryPriceIsExactTickMultiple(t *testing.T) {
	t.Parallel()
	in := Inputs{
		Side:     types.BUY,
		BestBid:  dec("0.473"),
		BestAsk:  dec("0.52"),
		TickSize: dec("0.01"),
	}

	price := entryPrice(in)
	remainder := price.Div(in.TickSize).Sub(price.Div(in.TickSize).Floor())
	if !remainder.IsZero() {
		t.Errorf("entryPrice() = %v is not an exact multiple of tick %v", price, in.TickSize)
	}
}

func TestComputeSizeCappedByMaxOrderSize(t *testing.T) {
	t.Parallel()
	in := Inputs{
		Side:          types.BUY,
		BestBid:       dec("0.49"),
		BestAsk:       dec("0.50"),
		TickSize:      dec("0.01"),
		QuoteSizeBase: dec("1000"),
		Bankroll:      dec("100000"),
		Risk:          config.RiskConfig{MaxOrderSize: 50},
	}

	q := Compute(in)
	if q.NoQuote {
		t.Fatalf("expected a quote, got NoQuote")
	}
	if q.Size.GreaterThan(dec("50")) {
		t.Errorf("Size = %v, want capped at 50", q.Size)
	}
}

func TestComputeSizeBelowMinimumYieldsNoQuote(t *testing.T) {
	t.Parallel()
	in := Inputs{
		Side:          types.BUY,
		BestBid:       dec("0.49"),
		BestAsk:       dec("0.50"),
		TickSize:      dec("0.01"),
		QuoteSizeBase: dec("0.001"),
		Bankroll:      dec("1000"),
	}

	q := Compute(in)
	if !q.NoQuote {
		t.Errorf("expected NoQuote for sub-0.01 size, got %v", q.Size)
	}
}

func TestSkewTicksForImbalanceSignsHeavyLegNegative(t *testing.T) {
	t.Parallel()
	imbalance := dec("40") // up-heavy
	maxShares := dec("100")

	upTicks := SkewTicksForImbalance(imbalance, types.Up, maxShares, 10)
	downTicks := SkewTicksForImbalance(imbalance, types.Down, maxShares, 10)

	if upTicks >= 0 {
		t.Errorf("heavy leg (Up) skew = %d, want negative", upTicks)
	}
	if downTicks <= 0 {
		t.Errorf("light leg (Down) skew = %d, want positive", downTicks)
	}
	if -upTicks != downTicks {
		t.Errorf("skew magnitudes differ: up=%d down=%d", upTicks, downTicks)
	}
}

func TestSkewTicksCappedAtMaxSkewShares(t *testing.T) {
	t.Parallel()
	imbalance := dec("500") // far beyond maxSkewShares
	maxShares := dec("100")

	ticks := SkewTicksForImbalance(imbalance, types.Down, maxShares, 10)
	if ticks != 10 {
		t.Errorf("SkewTicksForImbalance() = %d, want capped at maxSkewTicks=10", ticks)
	}
}

func TestSkewTicksZeroWhenBalanced(t *testing.T) {
	t.Parallel()
	ticks := SkewTicksForImbalance(decimal.Zero, types.Up, dec("100"), 10)
	if ticks != 0 {
		t.Errorf("SkewTicksForImbalance() = %d, want 0 when balanced", ticks)
	}
}
