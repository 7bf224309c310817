// Package config defines all configuration for the directional market-making
// engine. Config is loaded from a YAML file (default: configs/config.yaml)
// with sensitive fields overridable via QUOTER_* environment variables,
// using a viper-based loader.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML structure.
type Config struct {
	DryRun    bool            `mapstructure:"dry_run"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	API       APIConfig       `mapstructure:"api"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Bankroll  BankrollConfig  `mapstructure:"bankroll"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	TradeTape TradeTapeConfig `mapstructure:"trade_tape"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// WalletConfig holds the Ethereum wallet used for signing live orders.
type WalletConfig struct {
	PrivateKey    string `mapstructure:"private_key"`
	SignatureType int    `mapstructure:"signature_type"`
	FunderAddress string `mapstructure:"funder_address"`
	ChainID       int    `mapstructure:"chain_id"`
}

// APIConfig holds exchange API endpoints and optional pre-derived L2 credentials.
type APIConfig struct {
	CLOBBaseURL  string `mapstructure:"clob_base_url"`
	GammaBaseURL string `mapstructure:"gamma_base_url"`
	WSMarketURL  string `mapstructure:"ws_market_url"`
	WSUserURL    string `mapstructure:"ws_user_url"`
	ApiKey       string `mapstructure:"api_key"`
	Secret       string `mapstructure:"secret"`
	Passphrase   string `mapstructure:"passphrase"`
}

// EngineConfig tunes the per-market quoting state machine.
type EngineConfig struct {
	Enabled            bool    `mapstructure:"enabled"`
	RefreshMillis      int     `mapstructure:"refresh_millis"`
	MinReplaceMillis   int     `mapstructure:"min_replace_millis"`
	ForceReplaceMillis int     `mapstructure:"force_replace_millis"`
	MinPriceDelta      float64 `mapstructure:"min_price_delta"`
	MinSizeDelta       float64 `mapstructure:"min_size_delta"`

	CompleteSetMinEdge      float64 `mapstructure:"complete_set_min_edge"`
	CompleteSetCancelEdge   float64 `mapstructure:"complete_set_cancel_edge"`
	CompleteSetMaxSkewTicks int     `mapstructure:"complete_set_max_skew_ticks"`
	CompleteSetMaxSkewShares float64 `mapstructure:"complete_set_max_skew_shares"`

	CompleteSetTopUpEnabled       bool    `mapstructure:"complete_set_top_up_enabled"`
	CompleteSetTopUpSecondsToEnd int     `mapstructure:"complete_set_top_up_seconds_to_end"`
	CompleteSetTopUpMinShares    float64 `mapstructure:"complete_set_top_up_min_shares"`

	CompleteSetFastTopUpEnabled             bool    `mapstructure:"complete_set_fast_top_up_enabled"`
	CompleteSetFastTopUpFraction            float64 `mapstructure:"complete_set_fast_top_up_fraction"`
	CompleteSetFastTopUpMinEdge             float64 `mapstructure:"complete_set_fast_top_up_min_edge"`
	CompleteSetFastTopUpCooldownMillis      int     `mapstructure:"complete_set_fast_top_up_cooldown_millis"`
	CompleteSetFastTopUpMinSecondsAfterFill int     `mapstructure:"complete_set_fast_top_up_min_seconds_after_fill"`
	CompleteSetFastTopUpMaxSecondsAfterFill int     `mapstructure:"complete_set_fast_top_up_max_seconds_after_fill"`
	CompleteSetFastTopUpProbability         float64 `mapstructure:"complete_set_fast_top_up_probability"`
	FastTopUpMinShares                      float64 `mapstructure:"fast_top_up_min_shares"`
	TakerMaxSpread                          float64 `mapstructure:"taker_max_spread"`

	CompleteSetHedgeDelayEnabled bool `mapstructure:"complete_set_hedge_delay_enabled"`
	HedgeDelayMinSeconds         int  `mapstructure:"hedge_delay_min_seconds"`
	HedgeDelayMaxSeconds         int  `mapstructure:"hedge_delay_max_seconds"`

	TakerModeEnabled     bool    `mapstructure:"taker_mode_enabled"`
	TakerModeMaxEdge     float64 `mapstructure:"taker_mode_max_edge"`
	TakerModeMaxSpread   float64 `mapstructure:"taker_mode_max_spread"`
	TakerModeProbability float64 `mapstructure:"taker_mode_probability"`

	MinSecondsToEnd int `mapstructure:"min_seconds_to_end"`
	MaxSecondsToEnd int `mapstructure:"max_seconds_to_end"`
}

// BankrollConfig configures the EMA-smoothed capital service (C3).
type BankrollConfig struct {
	QuoteSize               float64             `mapstructure:"quote_size"`
	BankrollUsd             float64             `mapstructure:"bankroll_usd"`
	BankrollMode            string              `mapstructure:"bankroll_mode"`
	BankrollTradingFraction float64             `mapstructure:"bankroll_trading_fraction"`
	BankrollSmoothingAlpha  float64             `mapstructure:"bankroll_smoothing_alpha"`
	BankrollMinThreshold    float64             `mapstructure:"bankroll_min_threshold"`
	BankrollRefreshMillis   int                 `mapstructure:"bankroll_refresh_millis"`
	DynamicSizing           DynamicSizingConfig `mapstructure:"dynamic_sizing"`
}

// DynamicSizingConfig scales quote size by actual/reference bankroll ratio.
type DynamicSizingConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	MinMultiplier float64 `mapstructure:"min_multiplier"`
	MaxMultiplier float64 `mapstructure:"max_multiplier"`
	ReferenceUsd  float64 `mapstructure:"reference_usd"`
}

// RiskConfig sets per-order caps used by the Quote Calculator plus the
// portfolio-level caps and kill-switch thresholds enforced by the Risk Guard.
type RiskConfig struct {
	MaxOrderBankrollFraction float64       `mapstructure:"max_order_bankroll_fraction"`
	MaxTotalBankrollFraction float64       `mapstructure:"max_total_bankroll_fraction"`
	MaxOrderNotionalUsd      float64       `mapstructure:"max_order_notional_usd"`
	MaxOrderSize             float64       `mapstructure:"max_order_size"` // shares, per Open Question resolution
	MaxPositionPerMarket     float64       `mapstructure:"max_position_per_market"`
	MaxUnhedgedShares        float64       `mapstructure:"max_unhedged_shares"` // per-market |UpShares-DownShares| kill threshold; 0 disables
	MaxGlobalExposure        float64       `mapstructure:"max_global_exposure"`
	MaxMarketsActive         int           `mapstructure:"max_markets_active"`
	MaxDailyLoss             float64       `mapstructure:"max_daily_loss"`
	KillSwitchDropPct        float64       `mapstructure:"kill_switch_drop_pct"`
	KillSwitchWindowSec      int           `mapstructure:"kill_switch_window_sec"`
	CooldownAfterKill        time.Duration `mapstructure:"cooldown_after_kill"`
}

// SimulatorConfig tunes the paper fill simulator.
type SimulatorConfig struct {
	Enabled                      bool    `mapstructure:"enabled"`
	FillPollMillis               int     `mapstructure:"fill_poll_millis"`
	MakerFillMinAgeMillis        int     `mapstructure:"maker_fill_min_age_millis"`
	TobMaxAgeMillis              int     `mapstructure:"tob_max_age_millis"`
	LeadLagMinMillis             int     `mapstructure:"lead_lag_min_millis"`
	MakerFillProbability         float64 `mapstructure:"maker_fill_probability"`
	MakerFillMultiplierPerTick   float64 `mapstructure:"maker_fill_multiplier_per_tick"`
	MakerFillMaxProbability      float64 `mapstructure:"maker_fill_max_probability"`
	MakerFillFractionOfRemaining float64 `mapstructure:"maker_fill_fraction_of_remaining"`
	MakerQueueFactorMin          float64 `mapstructure:"maker_queue_factor_min"`
	MakerQueueFactorMax          float64 `mapstructure:"maker_queue_factor_max"`
}

// TradeTapeConfig configures the simulator's optional trade-tape consumption.
type TradeTapeConfig struct {
	Enabled            bool    `mapstructure:"enabled"`
	Source             string  `mapstructure:"source"` // "ws_last_trade" | "book_delta" | "external"
	PollMillis         int     `mapstructure:"poll_millis"`
	Limit              int     `mapstructure:"limit"`
	UseTradeTimestamp  bool    `mapstructure:"use_trade_timestamp"`
	FallbackSource     string  `mapstructure:"fallback_source"`
	BidDeltaThreshold  float64 `mapstructure:"bid_delta_threshold"`
	SyntheticPrintSize float64 `mapstructure:"synthetic_print_size"`
}

// DiscoveryConfig controls market discovery cadence (C4).
type DiscoveryConfig struct {
	PollIntervalSeconds int      `mapstructure:"poll_interval_seconds"`
	Assets              []string `mapstructure:"assets"`
	ExcludeSlugs        []string `mapstructure:"exclude_slugs"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: QUOTER_PRIVATE_KEY, QUOTER_API_KEY,
// QUOTER_API_SECRET, QUOTER_PASSPHRASE, QUOTER_DRY_RUN.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("QUOTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("QUOTER_PRIVATE_KEY"); key != "" {
		cfg.Wallet.PrivateKey = key
	}
	if key := os.Getenv("QUOTER_API_KEY"); key != "" {
		cfg.API.ApiKey = key
	}
	if secret := os.Getenv("QUOTER_API_SECRET"); secret != "" {
		cfg.API.Secret = secret
	}
	if pass := os.Getenv("QUOTER_PASSPHRASE"); pass != "" {
		cfg.API.Passphrase = pass
	}
	if os.Getenv("QUOTER_DRY_RUN") == "true" || os.Getenv("QUOTER_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults fills in safety clamps and floors regardless of what the
// YAML supplied (e.g. refreshMillis must never go below 100ms).
func applyDefaults(cfg *Config) {
	if cfg.Engine.RefreshMillis < 100 {
		cfg.Engine.RefreshMillis = 100
	}
	if cfg.Bankroll.BankrollSmoothingAlpha < 0.01 {
		cfg.Bankroll.BankrollSmoothingAlpha = 0.01
	}
	if cfg.Bankroll.BankrollSmoothingAlpha > 1.0 {
		cfg.Bankroll.BankrollSmoothingAlpha = 1.0
	}
	if cfg.Discovery.PollIntervalSeconds <= 0 {
		cfg.Discovery.PollIntervalSeconds = 10
	}
	if cfg.Simulator.FillPollMillis < 100 {
		cfg.Simulator.FillPollMillis = 100
	}
	if cfg.Simulator.MakerFillMaxProbability <= 0 {
		cfg.Simulator.MakerFillMaxProbability = 1.0
	}
	if cfg.Simulator.MakerQueueFactorMax <= 0 {
		cfg.Simulator.MakerQueueFactorMin = 0.5
		cfg.Simulator.MakerQueueFactorMax = 1.0
	}
	if cfg.TradeTape.SyntheticPrintSize <= 0 {
		cfg.TradeTape.SyntheticPrintSize = 50
	}
	if cfg.Risk.MaxGlobalExposure <= 0 {
		cfg.Risk.MaxGlobalExposure = cfg.Risk.MaxPositionPerMarket * 10
	}
	if cfg.Risk.MaxDailyLoss <= 0 {
		cfg.Risk.MaxDailyLoss = cfg.Risk.MaxGlobalExposure
	}
	if cfg.Risk.MaxMarketsActive <= 0 {
		cfg.Risk.MaxMarketsActive = 10
	}
	if cfg.Risk.KillSwitchWindowSec <= 0 {
		cfg.Risk.KillSwitchWindowSec = 60
	}
	if cfg.Risk.KillSwitchDropPct <= 0 {
		cfg.Risk.KillSwitchDropPct = 0.15
	}
	if cfg.Risk.CooldownAfterKill <= 0 {
		cfg.Risk.CooldownAfterKill = 5 * time.Minute
	}
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if !c.DryRun {
		if c.Wallet.PrivateKey == "" {
			return fmt.Errorf("wallet.private_key is required (set QUOTER_PRIVATE_KEY)")
		}
		if c.Wallet.ChainID == 0 {
			return fmt.Errorf("wallet.chain_id is required (137 for mainnet)")
		}
		switch c.Wallet.SignatureType {
		case 0, 1, 2:
		default:
			return fmt.Errorf("wallet.signature_type must be one of: 0 (EOA), 1 (PROXY), 2 (GNOSIS_SAFE)")
		}
		if c.API.CLOBBaseURL == "" {
			return fmt.Errorf("api.clob_base_url is required")
		}
	}
	if c.Bankroll.QuoteSize <= 0 {
		return fmt.Errorf("bankroll.quote_size must be > 0")
	}
	switch c.Bankroll.BankrollMode {
	case "FIXED", "AUTO_CASH", "AUTO_EQUITY", "":
	default:
		return fmt.Errorf("bankroll.bankroll_mode must be one of FIXED, AUTO_CASH, AUTO_EQUITY")
	}
	if c.Risk.MaxOrderSize <= 0 {
		return fmt.Errorf("risk.max_order_size must be > 0")
	}
	if c.Engine.MinSecondsToEnd > c.Engine.MaxSecondsToEnd && c.Engine.MaxSecondsToEnd != 0 {
		return fmt.Errorf("engine.min_seconds_to_end must be <= engine.max_seconds_to_end")
	}
	return nil
}

// RefreshInterval returns the engine tick period as a time.Duration.
func (e EngineConfig) RefreshInterval() time.Duration {
	return time.Duration(e.RefreshMillis) * time.Millisecond
}
