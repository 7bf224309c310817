package exchange

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/coreerrors"
	"polymarket-mm/pkg/types"
)

// Mode identifies whether a result came from the live adapter or the paper
// simulator, carried on every OrderResult.
type Mode string

const (
	ModeLive  Mode = "LIVE"
	ModePaper Mode = "PAPER"
)

// OrderResult is the uniform result envelope returned by every Adapter
// operation: a mode tag, optional typed error kind, and the raw payload.
type OrderResult struct {
	Mode    Mode
	Kind    coreerrors.Kind // empty on success
	Raw     any
	OrderID string
	Status  types.OrderStatus
}

// Adapter is the exchange-facing contract the Order Manager drives,
// satisfied identically by the live client and the paper simulator.
type Adapter interface {
	PlaceLimit(ctx context.Context, tokenID string, side types.Side, price, size decimal.Decimal) (OrderResult, error)
	Cancel(ctx context.Context, orderID string) (bool, error)
	GetOrder(ctx context.Context, orderID string) (OrderResult, error)
	GetTickSize(ctx context.Context, tokenID string) (decimal.Decimal, error)
	GetBankroll(ctx context.Context) (usdc, equity decimal.Decimal, err error)
	GetPositions(ctx context.Context) ([]types.Position, error)
}

// LiveAdapter implements Adapter against the real Polymarket CLOB, wrapping
// Client with a 10-minute tick-size cache and the typed-error mapping
// requires (Rejected, Transient, InvalidPrice, InvalidSize, AuthFailure,
// Unavailable).
type LiveAdapter struct {
	client *Client

	tickMu    sync.RWMutex
	tickCache map[string]cachedTick
}

type cachedTick struct {
	value   decimal.Decimal
	fetched time.Time
}

const tickCacheTTL = 10 * time.Minute

// NewLiveAdapter wraps a Client as an Adapter.
func NewLiveAdapter(client *Client) *LiveAdapter {
	return &LiveAdapter{client: client, tickCache: make(map[string]cachedTick)}
}

func (a *LiveAdapter) PlaceLimit(ctx context.Context, tokenID string, side types.Side, price, size decimal.Decimal) (OrderResult, error) {
	if !price.IsPositive() {
		return OrderResult{Mode: ModeLive, Kind: coreerrors.InvalidPrice}, coreerrors.New(coreerrors.InvalidPrice, "placeLimit", nil)
	}
	if !size.IsPositive() {
		return OrderResult{Mode: ModeLive, Kind: coreerrors.InvalidSize}, coreerrors.New(coreerrors.InvalidSize, "placeLimit", nil)
	}

	priceF, _ := price.Float64()
	sizeF, _ := size.Float64()
	order := types.UserOrder{
		TokenID: tokenID,
		Side:    side,
		Price:   priceF,
		Size:    sizeF,
	}

	results, err := a.client.PostOrders(ctx, []types.UserOrder{order}, false)
	if err != nil {
		kind := classifyHTTPError(err)
		return OrderResult{Mode: ModeLive, Kind: kind, Raw: err}, coreerrors.New(kind, "placeLimit", err)
	}
	if len(results) == 0 {
		return OrderResult{Mode: ModeLive, Kind: coreerrors.Unavailable}, coreerrors.New(coreerrors.Unavailable, "placeLimit", nil)
	}

	r := results[0]
	if !r.Success {
		return OrderResult{Mode: ModeLive, Kind: coreerrors.Rejected, Raw: r}, coreerrors.New(coreerrors.Rejected, "placeLimit", nil)
	}
	return OrderResult{
		Mode:    ModeLive,
		Raw:     r,
		OrderID: r.OrderID,
		Status:  mapOrderStatus(r.Status),
	}, nil
}

func (a *LiveAdapter) Cancel(ctx context.Context, orderID string) (bool, error) {
	result, err := a.client.CancelOrders(ctx, []string{orderID})
	if err != nil {
		return false, coreerrors.New(classifyHTTPError(err), "cancel", err)
	}
	for _, id := range result.Canceled {
		if id == orderID {
			return true, nil
		}
	}
	// cancel on an unknown/already-terminal order is a no-op success.
	return true, nil
}

func (a *LiveAdapter) GetOrder(ctx context.Context, orderID string) (OrderResult, error) {
	open, err := a.client.GetOrder(ctx, orderID)
	if err != nil {
		kind := classifyHTTPError(err)
		return OrderResult{Mode: ModeLive, Kind: kind}, coreerrors.New(kind, "getOrder", err)
	}
	return OrderResult{
		Mode:    ModeLive,
		Raw:     open,
		OrderID: open.ID,
		Status:  mapOrderStatus(open.Status),
	}, nil
}

func (a *LiveAdapter) GetTickSize(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	a.tickMu.RLock()
	cached, ok := a.tickCache[tokenID]
	a.tickMu.RUnlock()
	if ok && time.Since(cached.fetched) < tickCacheTTL {
		return cached.value, nil
	}

	ts, err := a.client.GetTickSize(ctx, tokenID)
	if err != nil {
		return decimal.Decimal{}, coreerrors.New(classifyHTTPError(err), "getTickSize", err)
	}

	a.tickMu.Lock()
	a.tickCache[tokenID] = cachedTick{value: ts, fetched: time.Now()}
	a.tickMu.Unlock()
	return ts, nil
}

func (a *LiveAdapter) GetBankroll(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	usdc, err := a.client.GetBalance(ctx)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, coreerrors.New(classifyHTTPError(err), "getBankroll", err)
	}
	positions, err := a.client.GetPositions(ctx)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, coreerrors.New(classifyHTTPError(err), "getBankroll", err)
	}

	equity := usdc
	for _, p := range positions {
		equity = equity.Add(p.Shares.Mul(p.AvgPrice))
	}
	return usdc, equity, nil
}

func (a *LiveAdapter) GetPositions(ctx context.Context) ([]types.Position, error) {
	positions, err := a.client.GetPositions(ctx)
	if err != nil {
		return nil, coreerrors.New(classifyHTTPError(err), "getPositions", err)
	}
	return positions, nil
}

func mapOrderStatus(raw string) types.OrderStatus {
	switch raw {
	case "live", "LIVE", "open", "OPEN":
		return types.StatusOpen
	case "matched", "MATCHED", "filled", "FILLED":
		return types.StatusFilled
	case "canceled", "CANCELED", "cancelled":
		return types.StatusCanceled
	case "rejected", "REJECTED":
		return types.StatusRejected
	default:
		return types.StatusPartial
	}
}

// classifyHTTPError maps a REST error into a coreerrors.Kind using the
// status code Client embeds in a StatusError: 401/403 is an AuthFailure
// (expired/invalid API key, not worth retrying), 5xx and network-level
// errors (no status code at all) are Transient, and any other 4xx is a
// Rejected request.
func classifyHTTPError(err error) coreerrors.Kind {
	if err == nil {
		return ""
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden:
			return coreerrors.AuthFailure
		case statusErr.StatusCode >= 500:
			return coreerrors.Transient
		case statusErr.StatusCode >= 400:
			return coreerrors.Rejected
		}
	}
	return coreerrors.Transient
}
