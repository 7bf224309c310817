// Package discovery implements Market Discovery (C4): deterministic
// generation of candidate 15-minute and 1-hour Up/Down market slugs per
// supported asset, detail lookup, and merge-with-previous-set recovery so a
// transient lookup failure never collapses coverage.
//
// Uses a resty-backed HTTP client and poll-loop shape, generalized from
// keyword/liquidity filtering of an open market list into deterministic slot
// enumeration plus per-slug detail fetch, since this market set is known in
// advance from wall-clock time rather than discovered by scanning.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"polymarket-mm/internal/config"
	"polymarket-mm/pkg/types"
)

func unmarshalTokenIDs(s string, out *[]string) error {
	return json.Unmarshal([]byte(s), out)
}

// interval names the two supported slot durations.
type interval struct {
	label    string
	duration time.Duration
	prewarm  time.Duration
}

var intervals = []interval{
	{label: "15m", duration: 15 * time.Minute, prewarm: 90 * time.Second},
	{label: "1h", duration: time.Hour, prewarm: 3 * time.Minute},
}

// slotsAround number of slot boundaries to candidate on either side of now.
const slotsAround = 2

// Fetcher looks up a single market's live detail (tokens, end time) by slug.
// The live implementation calls the Gamma API; tests supply a fake.
type Fetcher interface {
	FetchMarket(ctx context.Context, slug string, seriesKey types.SeriesKey) (types.Market, bool, error)
}

// GammaFetcher is the live Fetcher, backed by resty against the Gamma API.
type GammaFetcher struct {
	http *resty.Client
}

// NewGammaFetcher builds a Fetcher pointed at the Gamma API base URL.
func NewGammaFetcher(baseURL string) *GammaFetcher {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)
	return &GammaFetcher{http: client}
}

type gammaMarketDetail struct {
	Slug            string `json:"slug"`
	Active          bool   `json:"active"`
	Closed          bool   `json:"closed"`
	AcceptingOrders bool   `json:"acceptingOrders"`
	EndDate         string `json:"endDate"`
	ClobTokenIds    string `json:"clobTokenIds"`
}

// FetchMarket looks up one market by slug. Returns (zero, false, nil) when
// the slug does not (yet) correspond to a tradable market — a normal outcome
// for candidate slugs whose slot hasn't opened yet, not an error.
func (g *GammaFetcher) FetchMarket(ctx context.Context, slug string, seriesKey types.SeriesKey) (types.Market, bool, error) {
	var page []gammaMarketDetail
	resp, err := g.http.R().
		SetContext(ctx).
		SetQueryParam("slug", slug).
		SetResult(&page).
		Get("/markets")
	if err != nil {
		return types.Market{}, false, fmt.Errorf("fetch market %s: %w", slug, err)
	}
	if resp.StatusCode() != 200 {
		return types.Market{}, false, fmt.Errorf("fetch market %s: status %d", slug, resp.StatusCode())
	}
	if len(page) == 0 {
		return types.Market{}, false, nil
	}

	gm := page[0]
	if !gm.Active || gm.Closed || !gm.AcceptingOrders || gm.ClobTokenIds == "" {
		return types.Market{}, false, nil
	}

	var tokenIDs []string
	if err := unmarshalTokenIDs(gm.ClobTokenIds, &tokenIDs); err != nil || len(tokenIDs) < 2 {
		return types.Market{}, false, nil
	}

	endTime, err := time.Parse(time.RFC3339, gm.EndDate)
	if err != nil {
		return types.Market{}, false, nil
	}

	return types.Market{
		Slug:      gm.Slug,
		UpToken:   tokenIDs[0],
		DownToken: tokenIDs[1],
		EndTime:   endTime,
		SeriesKey: seriesKey,
	}, true, nil
}

// Discoverer runs the C4 polling loop and owns the active market set.
type Discoverer struct {
	cfg     config.DiscoveryConfig
	fetcher Fetcher
	logger  *slog.Logger

	resultCh chan Snapshot

	known map[string]types.Market // slug -> market, merged across polls
}

// Snapshot is one discovery pass's result: the full active market set.
type Snapshot struct {
	Markets   []types.Market
	ScannedAt time.Time
}

// New creates a Discoverer.
func New(cfg config.DiscoveryConfig, fetcher Fetcher, logger *slog.Logger) *Discoverer {
	return &Discoverer{
		cfg:      cfg,
		fetcher:  fetcher,
		logger:   logger.With("component", "discovery"),
		resultCh: make(chan Snapshot, 1),
		known:    make(map[string]types.Market),
	}
}

// Results returns the channel the engine reads the active market set from.
func (d *Discoverer) Results() <-chan Snapshot {
	return d.resultCh
}

// Run starts the polling loop, scanning immediately then every
// PollIntervalSeconds (floored at 10s). Blocks until ctx is cancelled.
func (d *Discoverer) Run(ctx context.Context) {
	d.poll(ctx)

	pollEvery := time.Duration(d.cfg.PollIntervalSeconds) * time.Second
	if pollEvery < 10*time.Second {
		pollEvery = 10 * time.Second
	}
	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.poll(ctx)
		}
	}
}

func (d *Discoverer) poll(ctx context.Context) {
	now := time.Now()
	candidates := d.candidateSlugs(now)

	excluded := make(map[string]bool, len(d.cfg.ExcludeSlugs))
	for _, s := range d.cfg.ExcludeSlugs {
		excluded[strings.ToLower(strings.TrimSpace(s))] = true
	}

	fetched := 0
	for _, c := range candidates {
		if excluded[strings.ToLower(c.slug)] {
			continue
		}
		mkt, ok, err := d.fetcher.FetchMarket(ctx, c.slug, c.seriesKey)
		if err != nil {
			d.logger.Warn("fetch market failed", "slug", c.slug, "error", err)
			continue
		}
		if !ok {
			continue
		}
		fetched++
		d.known[mkt.Slug] = mkt
	}

	active := make([]types.Market, 0, len(d.known))
	for slug, mkt := range d.known {
		if !IsActiveNow(mkt, now) {
			delete(d.known, slug)
			continue
		}
		active = append(active, mkt)
	}

	d.logger.Info("discovery poll complete", "candidates", len(candidates), "fetched", fetched, "active", len(active))

	snapshot := Snapshot{Markets: active, ScannedAt: now}
	select {
	case d.resultCh <- snapshot:
	default:
		select {
		case <-d.resultCh:
		default:
		}
		d.resultCh <- snapshot
	}
}

// IsActiveNow reports whether a market is currently active: endTime must fall within
// the next two hours, and the prewarm window for the market's duration must
// already have opened.
func IsActiveNow(m types.Market, now time.Time) bool {
	if !m.EndTime.After(now) || m.EndTime.After(now.Add(2*time.Hour)) {
		return false
	}

	dur, prewarm := durationAndPrewarmFor(m.SeriesKey)
	tradableFrom := m.EndTime.Add(-dur).Add(-prewarm)
	return !now.Before(tradableFrom)
}

func durationAndPrewarmFor(key types.SeriesKey) (time.Duration, time.Duration) {
	switch key {
	case types.SeriesBTC1h, types.SeriesETH1h:
		return intervals[1].duration, intervals[1].prewarm
	default:
		return intervals[0].duration, intervals[0].prewarm
	}
}

type candidateSlot struct {
	slug      string
	seriesKey types.SeriesKey
}

// candidateSlugs deterministically generates slugs for the next and previous
// two slot boundaries, for each interval (15m, 1h), for each configured asset.
func (d *Discoverer) candidateSlugs(now time.Time) []candidateSlot {
	var out []candidateSlot
	for _, asset := range d.cfg.Assets {
		for _, iv := range intervals {
			for _, end := range slotBoundaries(now, iv.duration, slotsAround) {
				out = append(out, candidateSlot{
					slug:      slugFor(asset, iv.label, end),
					seriesKey: seriesKeyFor(asset, iv.label),
				})
			}
		}
	}
	return out
}

// slotBoundaries returns the 2*around+1 slot end-times closest to now: the
// current slot's end plus `around` slots before and after it.
func slotBoundaries(now time.Time, step time.Duration, around int) []time.Time {
	stepSecs := int64(step.Seconds())
	nowSecs := now.Unix()
	currentBoundary := ((nowSecs / stepSecs) + 1) * stepSecs

	out := make([]time.Time, 0, 2*around+1)
	for i := -around; i <= around; i++ {
		out = append(out, time.Unix(currentBoundary+int64(i)*stepSecs, 0).UTC())
	}
	return out
}

func slugFor(asset, intervalLabel string, end time.Time) string {
	return fmt.Sprintf("%s-%s-%d", strings.ToLower(asset), intervalLabel, end.Unix())
}

func seriesKeyFor(asset, intervalLabel string) types.SeriesKey {
	asset = strings.ToLower(asset)
	switch {
	case asset == "btc" && intervalLabel == "15m":
		return types.SeriesBTC15m
	case asset == "eth" && intervalLabel == "15m":
		return types.SeriesETH15m
	case asset == "btc" && intervalLabel == "1h":
		return types.SeriesBTC1h
	case asset == "eth" && intervalLabel == "1h":
		return types.SeriesETH1h
	default:
		return types.SeriesOther
	}
}
