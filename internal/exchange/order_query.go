package exchange

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"polymarket-mm/pkg/types"
)

// GetOrder fetches the current status of a single order by ID.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*types.OpenOrder, error) {
	if c.dryRun {
		return &types.OpenOrder{ID: orderID, Status: "CANCELED"}, nil
	}
	if err := c.rl.Book.Wait(ctx); err != nil {
		return nil, err
	}

	headers, err := c.auth.L2Headers("GET", "/order/"+orderID, "")
	if err != nil {
		return nil, fmt.Errorf("l2 headers: %w", err)
	}

	var result types.OpenOrder
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetResult(&result).
		Get("/order/" + orderID)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return &types.OpenOrder{ID: orderID, Status: "CANCELED"}, nil
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{Op: fmt.Sprintf("get order %s", orderID), StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return &result, nil
}

// tickSizeResponse is the CLOB tick-size endpoint's JSON shape.
type tickSizeResponse struct {
	MinimumTickSize string `json:"minimum_tick_size"`
}

// GetTickSize fetches the minimum tick size for a token. Callers should
// cache the result (cacheable 10 min) since this rarely changes.
func (c *Client) GetTickSize(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	if err := c.rl.Book.Wait(ctx); err != nil {
		return decimal.Decimal{}, err
	}

	var result tickSizeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("token_id", tokenID).
		SetResult(&result).
		Get("/tick-size")
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("get tick size: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return decimal.Decimal{}, &StatusError{Op: "get tick size", StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	ts, err := decimal.NewFromString(result.MinimumTickSize)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse tick size: %w", err)
	}
	return ts, nil
}
