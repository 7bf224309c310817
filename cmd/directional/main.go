// Directional Market Maker — an automated market-making bot for short-duration
// Up/Down binary prediction markets on Polymarket.
//
// Architecture:
//
//	main.go                    — entry point: loads config, wires components, waits for SIGINT/SIGTERM
//	directional/engine.go      — per-market, per-tick quoting state machine (maker quotes, taker top-ups, hedge delay)
//	discovery/discovery.go     — deterministic 15m/1h Up/Down slug enumeration and detail lookup
//	bookfeed/feed.go           — local order book mirror fed by WebSocket snapshots + price changes
//	inventory/inventory.go     — tracks Up/Down share inventory, cost basis, fill timestamps
//	inventory/bankroll.go      — EMA-smoothed capital service used for order sizing
//	orders/manager.go          — tracks resting orders, polls fill status, emits status/trade events
//	exchange/client.go         — REST client for the Polymarket CLOB API
//	exchange/ws.go             — WebSocket feeds (market data + user fills/orders) with auto-reconnect
//	paper/simulator.go         — paper-mode exchange.Adapter, used when simulator.enabled is set
//	risk/manager.go            — portfolio-level exposure caps, daily-loss and price-shock kill switches
//	snapshot/snapshot.go       — best-effort JSON persistence of inventory across restarts
//
// How it makes money:
//
//	The bot quotes both legs of a paired Up/Down market inside the spread,
//	skewing size and price by current inventory so it's rewarded for trading
//	back toward a flat book. Near market close it tops up whichever leg is
//	short of a complete set, converting one-sided inventory into the
//	risk-free $1 redemption.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/bookfeed"
	"polymarket-mm/internal/clock"
	"polymarket-mm/internal/config"
	"polymarket-mm/internal/directional"
	"polymarket-mm/internal/discovery"
	"polymarket-mm/internal/events"
	"polymarket-mm/internal/exchange"
	"polymarket-mm/internal/inventory"
	"polymarket-mm/internal/orders"
	"polymarket-mm/internal/paper"
	"polymarket-mm/internal/risk"
	"polymarket-mm/internal/snapshot"
	"polymarket-mm/pkg/types"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("QUOTER_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE — no real orders will be placed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.RealClock{}
	publisher := events.NewInMemory()
	feed := bookfeed.NewMirror()

	adapter, cleanup, err := buildAdapter(*cfg, feed, publisher, clk, logger)
	if err != nil {
		logger.Error("failed to build exchange adapter", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	bankroll := inventory.NewBankroll(cfg.Bankroll, clk, bankrollSource{adapter: adapter, ctx: ctx})
	if err := bankroll.Refresh(); err != nil {
		logger.Warn("initial bankroll refresh failed", "error", err)
	}

	ledger := inventory.NewLedger()
	orderMgr := orders.New(adapter, publisher, logger)
	eng := directional.New(cfg.Engine, cfg.Risk, cfg.Bankroll, feed, ledger, bankroll, orderMgr, adapter, clk, logger)

	fetcher := discovery.NewGammaFetcher(cfg.API.GammaBaseURL)
	discoverer := discovery.New(cfg.Discovery, fetcher, logger)

	var snapStore *snapshot.Store
	if dir := os.Getenv("QUOTER_SNAPSHOT_DIR"); dir != "" {
		snapStore, err = snapshot.Open(dir)
		if err != nil {
			logger.Warn("snapshot store disabled", "error", err)
		}
	}

	riskMgr := risk.NewManager(cfg.Risk, logger)

	go discoverer.Run(ctx)
	go riskMgr.Run(ctx)
	go eng.RunLoop(ctx)
	go bankrollRefreshLoop(ctx, bankroll, logger)
	go riskReportLoop(ctx, eng, clk, riskMgr, snapStore, logger)
	go riskKillLoop(ctx, eng, riskMgr, logger)

	if sim, ok := adapter.(*paper.Simulator); ok {
		go paperPollLoop(ctx, sim, cfg.Simulator, logger)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-discoverer.Results():
				logger.Info("discovery snapshot", "markets", len(snap.Markets), "scanned_at", snap.ScannedAt)
				publisher.Publish(events.Event{
					Kind:      events.KindDiscoveredMarkets,
					Timestamp: snap.ScannedAt,
					Data:      events.DiscoveredMarkets{Markets: snap.Markets, ScannedAt: snap.ScannedAt},
				})
				eng.UpdateMarkets(ctx, snap.Markets)
				if sim, ok := adapter.(*paper.Simulator); ok {
					for _, mkt := range snap.Markets {
						sim.RegisterMarket(mkt)
					}
				}
			}
		}
	}()

	logger.Info("directional market maker started",
		"markets_max", cfg.Risk.MaxMarketsActive,
		"quote_size", cfg.Bankroll.QuoteSize,
		"max_exposure", cfg.Risk.MaxGlobalExposure,
		"dry_run", cfg.DryRun,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	cancel()
	time.Sleep(200 * time.Millisecond) // let in-flight goroutines observe cancellation
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildAdapter returns the paper simulator when simulator.enabled is set,
// otherwise the live CLOB adapter (whose client fakes order calls when
// dry_run is set). Both modes attach the WS market feed to the mirror.
// cleanup stops any background connection the adapter opened.
func buildAdapter(cfg config.Config, feed *bookfeed.Mirror, publisher events.Publisher, clk clock.Clock, logger *slog.Logger) (exchange.Adapter, func(), error) {
	if cfg.Simulator.Enabled {
		tape, err := paper.NewTape(cfg.TradeTape, feed)
		if err != nil {
			return nil, nil, fmt.Errorf("build trade tape: %w", err)
		}
		marketFeed := exchange.NewMarketFeed(cfg.API.WSMarketURL, logger)
		feed.AttachTransport(exchange.NewMarketFeedAdapter(marketFeed))
		feedCtx, feedCancel := context.WithCancel(context.Background())
		go func() {
			if err := marketFeed.Run(feedCtx); err != nil {
				logger.Error("market feed stopped", "error", err)
			}
		}()
		go bookfeed.RunDispatcher(feedCtx, feed, marketFeed)
		sim := paper.NewSimulator(cfg.Simulator, cfg.TradeTape, feed, publisher, clk, tape, logger)
		return sim, func() {
			feedCancel()
			_ = marketFeed.Close()
		}, nil
	}

	auth, err := exchange.NewAuth(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("build auth: %w", err)
	}
	client := exchange.NewClient(cfg, auth, logger)
	marketFeed := exchange.NewMarketFeed(cfg.API.WSMarketURL, logger)
	feed.AttachTransport(exchange.NewMarketFeedAdapter(marketFeed))

	feedCtx, feedCancel := context.WithCancel(context.Background())
	go func() {
		if err := marketFeed.Run(feedCtx); err != nil {
			logger.Error("market feed stopped", "error", err)
		}
	}()
	go bookfeed.RunDispatcher(feedCtx, feed, marketFeed)

	adapter := exchange.NewLiveAdapter(client)
	cleanup := func() {
		feedCancel()
		_ = marketFeed.Close()
	}
	return adapter, cleanup, nil
}

// bankrollSource adapts exchange.Adapter's ctx-taking GetBankroll to the
// inventory package's narrower BankrollSource contract.
type bankrollSource struct {
	adapter exchange.Adapter
	ctx     context.Context
}

func (b bankrollSource) GetBankroll() (usdc, equity decimal.Decimal, err error) {
	return b.adapter.GetBankroll(b.ctx)
}

func bankrollRefreshLoop(ctx context.Context, bankroll *inventory.Bankroll, logger *slog.Logger) {
	interval := bankroll.RefreshInterval()
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := bankroll.Refresh(); err != nil {
				logger.Warn("bankroll refresh failed", "error", err)
			}
		}
	}
}

func paperPollLoop(ctx context.Context, sim *paper.Simulator, cfg config.SimulatorConfig, logger *slog.Logger) {
	interval := time.Duration(cfg.FillPollMillis) * time.Millisecond
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sim.Poll(ctx)
		}
	}
}

// riskReportLoop builds one PositionReport per active market every 2 seconds
// from the engine's inventory ledger (no book data is read), feeds it to the
// risk guard, and best-effort persists the inventory snapshot.
func riskReportLoop(ctx context.Context, eng *directional.Engine, clk clock.Clock, riskMgr *risk.Manager, snapStore *snapshot.Store, logger *slog.Logger) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, mkt := range eng.Markets() {
				inv := eng.InventorySnapshot(mkt.Slug)
				report := buildPositionReport(mkt, inv, clk.Now())
				riskMgr.Report(report)

				if snapStore != nil {
					if err := snapStore.SaveInventory(inv); err != nil {
						logger.Warn("snapshot save failed", "market", mkt.Slug, "error", err)
					}
				}
			}
		}
	}
}

// buildPositionReport derives exposure from cost basis and marks both legs
// from the last Up fill price (the Down leg at one minus that price), which
// also fills MidPrice; no book mid is read.
func buildPositionReport(mkt types.Market, inv types.MarketInventory, now time.Time) risk.PositionReport {
	upShares, _ := inv.UpShares.Float64()
	downShares, _ := inv.DownShares.Float64()
	upCost, _ := inv.UpCostBasis.Float64()
	downCost, _ := inv.DownCostBasis.Float64()
	lastUp, _ := inv.LastUpFillPrice.Float64()
	realized, _ := inv.RealizedPnL.Float64()

	exposure := upCost + downCost
	markValue := upShares*lastUp + downShares*(1-lastUp)

	return risk.PositionReport{
		MarketSlug:    mkt.Slug,
		UpShares:      upShares,
		DownShares:    downShares,
		MidPrice:      lastUp,
		ExposureUSD:   exposure,
		UnrealizedPnL: markValue - exposure,
		RealizedPnL:   realized,
		Timestamp:     now,
	}
}

// riskKillLoop cancels orders on a kill signal: the named market only for a
// per-market or price-shock breach, every active market for a global or
// daily-loss breach.
func riskKillLoop(ctx context.Context, eng *directional.Engine, riskMgr *risk.Manager, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-riskMgr.KillCh():
			logger.Error("risk kill signal received", "market", sig.MarketSlug, "reason", sig.Reason)
			if sig.MarketSlug == "" {
				eng.CancelAll(ctx, "RISK_KILL: "+sig.Reason)
			} else {
				eng.CancelMarket(ctx, sig.MarketSlug, "RISK_KILL: "+sig.Reason)
			}
		}
	}
}
