// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the engine — market metadata,
// order book snapshots, order/inventory records, and the wire payloads
// exchanged with the live exchange adapter. It has no dependencies on
// internal packages, so it can be imported by any layer.
package types

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Side represents the direction of an order: BUY or SELL.
type Side string

const (
	BUY  Side = "BUY"
	SELL Side = "SELL"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == BUY {
		return SELL
	}
	return BUY
}

// OrderType enumerates the supported order lifecycles.
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC" // Good-Til-Cancelled: stays on book until filled or cancelled
)

// SignatureType identifies the signing scheme for the CTF exchange contract.
type SignatureType int

const (
	SigEOA        SignatureType = 0 // externally-owned account (standard wallet)
	SigProxy      SignatureType = 1 // proxy / Magic wallet
	SigGnosisSafe SignatureType = 2 // Gnosis Safe multisig
)

// TickSize represents the price granularity for a market/token.
type TickSize string

const (
	Tick01    TickSize = "0.1"    // 1 decimal  — coarse markets
	Tick001   TickSize = "0.01"   // 2 decimals — standard markets (most common)
	Tick0001  TickSize = "0.001"  // 3 decimals — fine-grained markets
	Tick00001 TickSize = "0.0001" // 4 decimals — ultra-precise markets
)

// Decimals returns the number of decimal places for a tick size.
func (t TickSize) Decimals() int {
	switch t {
	case Tick01:
		return 1
	case Tick001:
		return 2
	case Tick0001:
		return 3
	case Tick00001:
		return 4
	default:
		return 2
	}
}

// AmountDecimals returns the rounding precision for USDC amounts.
func (t TickSize) AmountDecimals() int {
	switch t {
	case Tick01:
		return 3
	case Tick001:
		return 4
	case Tick0001:
		return 5
	case Tick00001:
		return 6
	default:
		return 4
	}
}

// Decimal returns the tick size as a decimal.Decimal for arithmetic.
func (t TickSize) Decimal() decimal.Decimal {
	d, err := decimal.NewFromString(string(t))
	if err != nil {
		return decimal.New(1, -2) // 0.01 fallback
	}
	return d
}

// Leg identifies one outcome of a paired binary market.
type Leg string

const (
	Up   Leg = "UP"
	Down Leg = "DOWN"
)

// Opposite returns the other leg of the pair.
func (l Leg) Opposite() Leg {
	if l == Up {
		return Down
	}
	return Up
}

// SeriesKey categorizes a market family; conditions probabilistic heuristics
// (maker-improvement ticks, taker probability) in the Directional Engine.
type SeriesKey string

const (
	SeriesBTC15m SeriesKey = "btc-15m"
	SeriesETH15m SeriesKey = "eth-15m"
	SeriesBTC1h  SeriesKey = "btc-1h"
	SeriesETH1h  SeriesKey = "eth-1h"
	SeriesOther  SeriesKey = "other"
)

// OrderStatus mirrors the lifecycle states an order can occupy.
type OrderStatus string

const (
	StatusOpen     OrderStatus = "OPEN"
	StatusPartial  OrderStatus = "PARTIAL"
	StatusFilled   OrderStatus = "FILLED"
	StatusCanceled OrderStatus = "CANCELED"
	StatusRejected OrderStatus = "REJECTED"
)

// IsTerminal reports whether the status represents a finished order.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusRejected:
		return true
	default:
		return false
	}
}

// ————————————————————————————————————————————————————————————————————————
// Domain model — paired binary markets
// ————————————————————————————————————————————————————————————————————————

// Market describes one paired Up/Down binary market.
type Market struct {
	Slug      string
	UpToken   string
	DownToken string
	EndTime   time.Time
	SeriesKey SeriesKey
}

// TokenFor returns the token id for the given leg.
func (m Market) TokenFor(leg Leg) string {
	if leg == Up {
		return m.UpToken
	}
	return m.DownToken
}

// TopOfBook is the best bid/ask state for a single token.
type TopOfBook struct {
	Token          string
	BestBid        decimal.Decimal
	BestAsk        decimal.Decimal
	BestBidSize    decimal.Decimal
	BestAskSize    decimal.Decimal
	UpdatedAt      time.Time
	LastTradePrice decimal.Decimal
	LastTradeAt    time.Time
	HasLastTrade   bool
}

// StaleAfter is the maximum age before a TopOfBook is considered stale.
const StaleAfter = 15 * time.Second

// IsStale reports whether the book observation is too old to act on.
func (t TopOfBook) IsStale(now time.Time) bool {
	if t.UpdatedAt.IsZero() {
		return true
	}
	return now.Sub(t.UpdatedAt) > StaleAfter
}

// Spread returns BestAsk - BestBid.
func (t TopOfBook) Spread() decimal.Decimal {
	return t.BestAsk.Sub(t.BestBid)
}

// Order is the engine's local record of a live or terminal order.
type Order struct {
	OrderID          string
	TokenID          string
	Side             Side
	LimitPrice       decimal.Decimal
	RequestedSize    decimal.Decimal
	CreatedAt        time.Time
	Status           OrderStatus
	Matched          decimal.Decimal
	Remaining        decimal.Decimal
	MakerAtPlacement bool
	QueueFactor      decimal.Decimal // uniform draw in [min,max] at placement (simulator)
	QueueAheadShares decimal.Decimal
}

// Age returns how long the order has been live as of now.
func (o Order) Age(now time.Time) time.Duration {
	return now.Sub(o.CreatedAt)
}

// MarketInventory is the per-market signed share ledger.
type MarketInventory struct {
	MarketSlug    string
	UpShares      decimal.Decimal
	DownShares    decimal.Decimal
	UpCostBasis   decimal.Decimal
	DownCostBasis decimal.Decimal
	LastUpFillAt  time.Time
	LastDownFillAt time.Time
	LastUpFillPrice   decimal.Decimal
	LastDownFillPrice decimal.Decimal
	LastTopUpAt   time.Time
	RealizedPnL   decimal.Decimal // accumulated (fill price − avg cost) × reduced shares, across both legs
}

// SharesFor returns the signed share count for a leg.
func (m MarketInventory) SharesFor(leg Leg) decimal.Decimal {
	if leg == Up {
		return m.UpShares
	}
	return m.DownShares
}

// LastFillAt returns the last fill time for a leg.
func (m MarketInventory) LastFillAt(leg Leg) time.Time {
	if leg == Up {
		return m.LastUpFillAt
	}
	return m.LastDownFillAt
}

// LastFillPrice returns the last fill price for a leg.
func (m MarketInventory) LastFillPrice(leg Leg) decimal.Decimal {
	if leg == Up {
		return m.LastUpFillPrice
	}
	return m.LastDownFillPrice
}

// Imbalance returns shares(up) - shares(down): positive means UP-heavy.
func (m MarketInventory) Imbalance() decimal.Decimal {
	return m.UpShares.Sub(m.DownShares)
}

// BankrollMode selects which capital source the Bankroll service exposes.
type BankrollMode string

const (
	BankrollFixed      BankrollMode = "FIXED"
	BankrollAutoCash   BankrollMode = "AUTO_CASH"
	BankrollAutoEquity BankrollMode = "AUTO_EQUITY"
)

// BankrollSnapshot is a point-in-time capital observation with EMA smoothing.
type BankrollSnapshot struct {
	FetchedAt      time.Time
	USDC           decimal.Decimal
	Equity         decimal.Decimal
	SmoothedUSDC   decimal.Decimal
	SmoothedEquity decimal.Decimal
}

// MaxBankrollAge is how old a snapshot may be before it's considered unusable.
const MaxBankrollAge = 60 * time.Second

// Position is an exchange-reported holding, used to reconcile local inventory.
type Position struct {
	Token    string
	Shares   decimal.Decimal
	AvgPrice decimal.Decimal
}

// ————————————————————————————————————————————————————————————————————————
// Exchange wire types (live mode)
// ————————————————————————————————————————————————————————————————————————

// UserOrder is the high-level order representation the live adapter converts
// to a SignedOrder for the CLOB API.
type UserOrder struct {
	TokenID    string
	Price      float64
	Size       float64
	Side       Side
	OrderType  OrderType
	TickSize   TickSize
	Expiration int64
	FeeRateBps int
}

// SignedOrder is the on-chain order format the CLOB API expects.
// MakerAmount and TakerAmount are in 6-decimal USDC units (1e6 = $1).
type SignedOrder struct {
	Salt          string        `json:"salt"`
	Maker         string        `json:"maker"`
	Signer        string        `json:"signer"`
	Taker         string        `json:"taker"`
	TokenID       string        `json:"tokenId"`
	MakerAmount   *big.Int      `json:"makerAmount"`
	TakerAmount   *big.Int      `json:"takerAmount"`
	Side          Side          `json:"side"`
	Expiration    string        `json:"expiration"`
	Nonce         string        `json:"nonce"`
	FeeRateBps    string        `json:"feeRateBps"`
	SignatureType SignatureType `json:"signatureType"`
	Signature     string        `json:"signature"`
}

// OrderPayload is the REST API request body for POST /orders (batch).
type OrderPayload struct {
	Order     SignedOrder `json:"order"`
	Owner     string      `json:"owner"`
	OrderType OrderType   `json:"orderType"`
	PostOnly  bool        `json:"postOnly,omitempty"`
}

// OrderResponse is the REST API response for each order in a batch POST.
type OrderResponse struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg"`
	OrderID  string `json:"orderID"`
	Status   string `json:"status"`
}

// OpenOrder represents a live resting order as reported by the exchange.
type OpenOrder struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Market       string `json:"market"`
	AssetID      string `json:"asset_id"`
	Side         string `json:"side"`
	OriginalSize string `json:"original_size"`
	SizeMatched  string `json:"size_matched"`
	Price        string `json:"price"`
}

// CancelResponse is returned by DELETE /orders, /cancel-all.
type CancelResponse struct {
	Canceled []string `json:"canceled"`
}

// PriceLevel is a single bid or ask level in the order book.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// BookResponse is the REST response from GET /book for a single token.
type BookResponse struct {
	Market       string       `json:"market"`
	AssetID      string       `json:"asset_id"`
	Bids         []PriceLevel `json:"bids"`
	Asks         []PriceLevel `json:"asks"`
	Hash         string       `json:"hash"`
	Timestamp    string       `json:"timestamp"`
	MinOrderSize string       `json:"min_order_size"`
	TickSize     string       `json:"tick_size"`
	NegRisk      bool         `json:"neg_risk"`
}

// WSBookEvent is a full order book snapshot from the market WS channel.
type WSBookEvent struct {
	EventType string       `json:"event_type"`
	AssetID   string       `json:"asset_id"`
	Market    string       `json:"market"`
	Timestamp string       `json:"timestamp"`
	Hash      string       `json:"hash"`
	Buys      []PriceLevel `json:"buys"`
	Sells     []PriceLevel `json:"sells"`
}

// WSPriceChange is a single price level update within a price_change event.
type WSPriceChange struct {
	AssetID string `json:"asset_id"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	Side    string `json:"side"`
	Hash    string `json:"hash"`
	BestBid string `json:"best_bid"`
	BestAsk string `json:"best_ask"`
}

// WSPriceChangeEvent is an incremental order book update from the market WS.
type WSPriceChangeEvent struct {
	EventType    string          `json:"event_type"`
	Market       string          `json:"market"`
	Timestamp    string          `json:"timestamp"`
	PriceChanges []WSPriceChange `json:"price_changes"`
}

// WSTradeEvent is a fill notification from the user WS channel.
type WSTradeEvent struct {
	EventType string `json:"event_type"`
	ID        string `json:"id"`
	Market    string `json:"market"`
	AssetID   string `json:"asset_id"`
	Side      string `json:"side"`
	Size      string `json:"size"`
	Price     string `json:"price"`
	Outcome   string `json:"outcome"`
	Timestamp string `json:"timestamp"`
}

// WSOrderEvent is an order lifecycle notification from the user WS channel.
type WSOrderEvent struct {
	EventType       string   `json:"event_type"`
	ID              string   `json:"id"`
	Market          string   `json:"market"`
	AssetID         string   `json:"asset_id"`
	Side            string   `json:"side"`
	Price           string   `json:"price"`
	OriginalSize    string   `json:"original_size"`
	SizeMatched     string   `json:"size_matched"`
	Outcome         string   `json:"outcome"`
	Owner           string   `json:"owner"`
	Timestamp       string   `json:"timestamp"`
	Type            string   `json:"type"`
	AssociateTrades []string `json:"associate_trades"`
}

// WSSubscribeMsg is the initial subscription message sent when connecting
// to a WebSocket channel. For user channels, Auth must be provided.
type WSSubscribeMsg struct {
	Auth     *WSAuth  `json:"auth,omitempty"`
	Type     string   `json:"type"`
	Markets  []string `json:"markets,omitempty"`
	AssetIDs []string `json:"assets_ids,omitempty"`
}

// WSAuth contains the L2 API credentials for authenticating the user WS channel.
type WSAuth struct {
	ApiKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// WSUpdateMsg dynamically subscribes or unsubscribes from channels after
// the initial connection is established.
type WSUpdateMsg struct {
	AssetIDs  []string `json:"assets_ids,omitempty"`
	Markets   []string `json:"markets,omitempty"`
	Operation string   `json:"operation"`
}
