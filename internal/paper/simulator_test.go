package paper

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/bookfeed"
	"polymarket-mm/internal/clock"
	"polymarket-mm/internal/config"
	"polymarket-mm/internal/events"
	"polymarket-mm/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedRand always returns the same draw, so a test can force or suppress a
// Bernoulli trial deterministically.
type fixedRand struct{ v float64 }

func (f fixedRand) Float64() float64 { return f.v }

func testSimulatorConfig() config.SimulatorConfig {
	return config.SimulatorConfig{
		Enabled:                      true,
		FillPollMillis:               100,
		MakerFillMinAgeMillis:        1000,
		TobMaxAgeMillis:              60000,
		LeadLagMinMillis:             500,
		MakerFillProbability:         0.5,
		MakerFillMultiplierPerTick:   1.5,
		MakerFillMaxProbability:      1.0,
		MakerFillFractionOfRemaining: 1.0,
		MakerQueueFactorMin:          1.0,
		MakerQueueFactorMax:          1.0,
	}
}

func newTestSimulator(t *testing.T, rs randSource) (*Simulator, *bookfeed.Mirror, *events.InMemory) {
	t.Helper()
	mirror := bookfeed.NewMirror()
	pub := events.NewInMemory()
	sim := NewSimulator(testSimulatorConfig(), config.TradeTapeConfig{}, mirror, pub, clock.NewVirtualClock(time.Unix(1000, 0)), nil, testLogger())
	if rs != nil {
		sim.rand = rs
	}
	return sim, mirror, pub
}

func drainTrades(sub <-chan events.Event) []events.UserTrade {
	var out []events.UserTrade
	for {
		select {
		case evt := <-sub:
			if evt.Kind == events.KindUserTrade {
				out = append(out, evt.Data.(events.UserTrade))
			}
		default:
			return out
		}
	}
}

func TestPlaceLimitImmediateCrossFill(t *testing.T) {
	sim, mirror, pub := newTestSimulator(t, nil)
	sub := pub.Subscribe(16)
	mirror.ApplyPriceChange("tok-up", "0.40", "0.42", time.Unix(1000, 0))

	// A BUY at 0.42 crosses the 0.42 ask immediately.
	result, err := sim.PlaceLimit(context.Background(), "tok-up", types.BUY, decimal.NewFromFloat(0.42), decimal.NewFromFloat(10))
	if err != nil {
		t.Fatalf("PlaceLimit: %v", err)
	}
	if result.Status != types.StatusFilled {
		t.Fatalf("expected FILLED, got %s", result.Status)
	}

	trades := drainTrades(sub)
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].SimKind != events.SimTaker {
		t.Fatalf("expected SimTaker, got %s", trades[0].SimKind)
	}
	if !trades[0].Price.Equal(decimal.NewFromFloat(0.42)) {
		t.Fatalf("expected fill at ask 0.42, got %s", trades[0].Price)
	}
}

func TestPlaceLimitRestsWhenNotCrossing(t *testing.T) {
	sim, mirror, _ := newTestSimulator(t, nil)
	mirror.ApplyPriceChange("tok-up", "0.40", "0.45", time.Unix(1000, 0))

	result, err := sim.PlaceLimit(context.Background(), "tok-up", types.BUY, decimal.NewFromFloat(0.41), decimal.NewFromFloat(10))
	if err != nil {
		t.Fatalf("PlaceLimit: %v", err)
	}
	if result.Status != types.StatusOpen {
		t.Fatalf("expected OPEN, got %s", result.Status)
	}
}

func TestPollMakerCrossFillsAfterBookMoves(t *testing.T) {
	sim, mirror, pub := newTestSimulator(t, nil)
	sub := pub.Subscribe(16)
	mirror.ApplyPriceChange("tok-up", "0.40", "0.45", time.Unix(1000, 0))

	result, err := sim.PlaceLimit(context.Background(), "tok-up", types.BUY, decimal.NewFromFloat(0.41), decimal.NewFromFloat(10))
	if err != nil {
		t.Fatalf("PlaceLimit: %v", err)
	}
	if result.Status != types.StatusOpen {
		t.Fatalf("expected OPEN at placement, got %s", result.Status)
	}

	// The ask drops below the resting bid: the book has crossed the order.
	mirror.ApplyPriceChange("tok-up", "0.40", "0.41", time.Unix(1001, 0))
	sim.Poll(context.Background())

	trades := drainTrades(sub)
	if len(trades) != 1 || trades[0].SimKind != events.SimMakerCross {
		t.Fatalf("expected one MAKER_CROSS trade, got %+v", trades)
	}
}

func TestPollProbabilisticMakerFillRespectsAgeFloor(t *testing.T) {
	clk := clock.NewVirtualClock(time.Unix(1000, 0))
	mirror := bookfeed.NewMirror()
	pub := events.NewInMemory()
	sub := pub.Subscribe(16)
	cfg := testSimulatorConfig()
	sim := NewSimulator(cfg, config.TradeTapeConfig{}, mirror, pub, clk, nil, testLogger())
	sim.rand = fixedRand{v: 0} // forces any eligible Bernoulli draw to succeed

	mirror.ApplyBookSnapshot("tok-up",
		[]types.PriceLevel{{Price: "0.40", Size: "20"}},
		[]types.PriceLevel{{Price: "0.45", Size: "20"}},
		time.Unix(1000, 0))
	result, err := sim.PlaceLimit(context.Background(), "tok-up", types.BUY, decimal.NewFromFloat(0.41), decimal.NewFromFloat(10))
	if err != nil {
		t.Fatalf("PlaceLimit: %v", err)
	}
	if result.Status != types.StatusOpen {
		t.Fatalf("expected OPEN, got %s", result.Status)
	}

	// Still within MakerFillMinAgeMillis (1000ms): must not fill yet.
	clk.Advance(500 * time.Millisecond)
	sim.Poll(context.Background())
	if len(drainTrades(sub)) != 0 {
		t.Fatalf("expected no fill before age floor elapses")
	}

	// Past the age floor: the forced Bernoulli draw now fills it.
	clk.Advance(600 * time.Millisecond)
	sim.Poll(context.Background())
	trades := drainTrades(sub)
	if len(trades) != 1 || trades[0].SimKind != events.SimMaker {
		t.Fatalf("expected one MAKER trade after age floor, got %+v", trades)
	}
}

func TestLeadLagFloorSuppressesOppositeLegFill(t *testing.T) {
	sim, mirror, pub := newTestSimulator(t, nil)
	sub := pub.Subscribe(16)
	sim.RegisterMarket(types.Market{Slug: "mkt-1", UpToken: "tok-up", DownToken: "tok-down"})

	now := time.Unix(1000, 0)
	sim.pairLastFill["mkt-1"] = pairState{leg: types.Up, ts: now}

	mirror.ApplyPriceChange("tok-down", "0.40", "0.42", now)
	result, err := sim.PlaceLimit(context.Background(), "tok-down", types.BUY, decimal.NewFromFloat(0.42), decimal.NewFromFloat(10))
	if err != nil {
		t.Fatalf("PlaceLimit: %v", err)
	}
	// The opposite leg (Up) filled just now, within LeadLagMinMillis (500ms):
	// the crossing Down order must be suppressed, not filled.
	if result.Status != types.StatusOpen {
		t.Fatalf("expected fill suppressed by lead-lag floor, got %s", result.Status)
	}
	if len(drainTrades(sub)) != 0 {
		t.Fatalf("expected no trade while lead-lag floor holds")
	}
}

func TestCancelMarksCanceledAndFreesSlot(t *testing.T) {
	sim, mirror, _ := newTestSimulator(t, nil)
	mirror.ApplyPriceChange("tok-up", "0.40", "0.45", time.Unix(1000, 0))

	result, err := sim.PlaceLimit(context.Background(), "tok-up", types.BUY, decimal.NewFromFloat(0.41), decimal.NewFromFloat(10))
	if err != nil {
		t.Fatalf("PlaceLimit: %v", err)
	}

	ok, err := sim.Cancel(context.Background(), result.OrderID)
	if err != nil || !ok {
		t.Fatalf("Cancel: ok=%v err=%v", ok, err)
	}

	got, err := sim.GetOrder(context.Background(), result.OrderID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Status != types.StatusCanceled {
		t.Fatalf("expected CANCELED, got %s", got.Status)
	}

	// A new order can now be placed on the same token.
	_, err = sim.PlaceLimit(context.Background(), "tok-up", types.BUY, decimal.NewFromFloat(0.39), decimal.NewFromFloat(5))
	if err != nil {
		t.Fatalf("PlaceLimit after cancel: %v", err)
	}
}

func TestConsumeTapeFillsAfterQueueAheadExhausted(t *testing.T) {
	clk := clock.NewVirtualClock(time.Unix(1000, 0))
	mirror := bookfeed.NewMirror()
	pub := events.NewInMemory()
	sub := pub.Subscribe(16)
	cfg := testSimulatorConfig()
	tapeCfg := config.TradeTapeConfig{Enabled: true, Limit: 50}
	tape := &fakeTape{}
	sim := NewSimulator(cfg, tapeCfg, mirror, pub, clk, tape, testLogger())
	sim.rand = fixedRand{v: 1} // suppress the probabilistic maker-fill branch so only the tape path fires

	mirror.ApplyBookSnapshot("tok-up",
		[]types.PriceLevel{{Price: "0.40", Size: "6"}},
		[]types.PriceLevel{{Price: "0.45", Size: "6"}},
		time.Unix(1000, 0))
	result, err := sim.PlaceLimit(context.Background(), "tok-up", types.BUY, decimal.NewFromFloat(0.40), decimal.NewFromFloat(10))
	if err != nil {
		t.Fatalf("PlaceLimit: %v", err)
	}
	if result.Status != types.StatusOpen {
		t.Fatalf("expected OPEN, got %s", result.Status)
	}

	clk.Advance(1100 * time.Millisecond)

	s := sim.openOrders()
	if len(s) != 1 {
		t.Fatalf("expected one open order, got %d", len(s))
	}
	queueAhead := s[0].QueueAheadShares

	// Supply opposing (SELL) prints totaling queueAhead + 4: the first
	// queueAhead shares are consumed by the queue, leaving 4 to fill.
	tape.prints = []Print{
		{Price: decimal.NewFromFloat(0.40), Size: queueAhead.Add(decimal.NewFromFloat(4)), Side: types.SELL, Ts: clk.Now()},
	}

	sim.Poll(context.Background())

	trades := drainTrades(sub)
	var tapeTrade *events.UserTrade
	for i := range trades {
		if trades[i].SimKind == events.SimMakerTape {
			tapeTrade = &trades[i]
		}
	}
	if tapeTrade == nil {
		t.Fatalf("expected a MAKER_TAPE trade, got %+v", trades)
	}
	if !tapeTrade.Size.Equal(decimal.NewFromFloat(4)) {
		t.Fatalf("expected tape fill size 4, got %s", tapeTrade.Size)
	}
}

type fakeTape struct {
	prints []Print
}

func (f *fakeTape) FetchPrints(ctx context.Context, token string, limit int) ([]Print, error) {
	return f.prints, nil
}

func (f *fakeTape) Fallback() bool { return false }
