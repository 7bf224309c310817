// Package events implements a best-effort event publisher for the external
// event types: ExecutorOrderStatus, UserTrade, and DiscoveredMarkets.
// Emission never blocks the core engine — a full subscriber channel
// silently drops the newest event.
//
// The event payload shapes are generalized from a fixed YES/NO dashboard
// model to the tagged-Leg directional domain; no HTTP/WS transport is
// included here, see DESIGN.md.
package events

import (
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/pkg/types"
)

// Kind tags the payload carried by an Event.
type Kind string

const (
	KindExecutorOrderStatus Kind = "ExecutorOrderStatus"
	KindUserTrade           Kind = "UserTrade"
	KindDiscoveredMarkets   Kind = "DiscoveredMarkets"
)

// Event is the envelope every publisher emits.
type Event struct {
	Kind      Kind
	Timestamp time.Time
	Data      any
}

// ExecutorOrderStatus mirrors the Order Manager / Paper Simulator status
// event contract: emitted only on a change to status, matched, or
// remaining versus the last emission for that order.
type ExecutorOrderStatus struct {
	OrderID        string
	Token          string
	Side           types.Side
	RequestedPrice decimal.Decimal
	RequestedSize  decimal.Decimal
	Status         types.OrderStatus
	Matched        decimal.Decimal
	Remaining      decimal.Decimal
	Error          string
}

// SimKind tags how a UserTrade was generated in paper mode.
type SimKind string

const (
	SimTaker             SimKind = "TAKER"
	SimMaker             SimKind = "MAKER"
	SimMakerCross        SimKind = "MAKER_CROSS"
	SimMakerTape         SimKind = "MAKER_TAPE"
	SimMakerTapeFallback SimKind = "MAKER_TAPE_FALLBACK"
)

// UserTrade is a real (live) or synthetic (paper) fill record.
type UserTrade struct {
	Market  string
	Token   string
	Side    types.Side
	Price   decimal.Decimal
	Size    decimal.Decimal
	Ts      time.Time
	SimKind SimKind // empty in live mode
}

// DiscoveredMarkets is the periodic heartbeat naming the current active
// market set, published by cmd/directional for each discovery snapshot it
// receives.
type DiscoveredMarkets struct {
	Markets   []types.Market
	ScannedAt time.Time
}

// Publisher is a best-effort, non-blocking event sink.
type Publisher interface {
	Publish(evt Event)
}

// InMemory is a bounded fan-out publisher: one buffered channel per
// subscriber, supporting an arbitrary subscriber count.
type InMemory struct {
	subs []chan Event
}

// NewInMemory creates an empty in-memory publisher.
func NewInMemory() *InMemory {
	return &InMemory{}
}

// Subscribe registers a new subscriber and returns its receive channel.
func (p *InMemory) Subscribe(buffer int) <-chan Event {
	ch := make(chan Event, buffer)
	p.subs = append(p.subs, ch)
	return ch
}

// Publish fans the event out to every subscriber, non-blocking: a
// subscriber that can't keep up silently drops the event rather than
// stalling the caller.
func (p *InMemory) Publish(evt Event) {
	for _, ch := range p.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
