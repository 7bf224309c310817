package exchange

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"polymarket-mm/pkg/types"
)

// balanceResponse is the CLOB balance-allowance endpoint's JSON shape.
type balanceResponse struct {
	Balance string `json:"balance"`
}

// positionResponse is one entry of the data-api positions response.
type positionResponse struct {
	Asset    string `json:"asset"`
	Size     string `json:"size"`
	AvgPrice string `json:"avgPrice"`
}

// GetBalance fetches the collateral (USDC) balance for the signing wallet.
func (c *Client) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	if c.dryRun {
		return decimal.Zero, nil
	}
	if err := c.rl.Book.Wait(ctx); err != nil {
		return decimal.Decimal{}, err
	}

	headers, err := c.auth.L2Headers("GET", "/balance-allowance", "")
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("l2 headers: %w", err)
	}

	var result balanceResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetQueryParam("asset_type", "COLLATERAL").
		SetResult(&result).
		Get("/balance-allowance")
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("get balance: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return decimal.Decimal{}, &StatusError{Op: "get balance", StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	bal, err := decimal.NewFromString(result.Balance)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse balance: %w", err)
	}
	return bal.Div(decimal.New(1, 6)), nil // balance is in 6-decimal USDC base units
}

// GetPositions fetches all open positions for the signing wallet.
func (c *Client) GetPositions(ctx context.Context) ([]types.Position, error) {
	if c.dryRun {
		return nil, nil
	}
	if err := c.rl.Book.Wait(ctx); err != nil {
		return nil, err
	}

	headers, err := c.auth.L2Headers("GET", "/positions", "")
	if err != nil {
		return nil, fmt.Errorf("l2 headers: %w", err)
	}

	var rows []positionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetResult(&rows).
		Get("/positions")
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{Op: "get positions", StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	positions := make([]types.Position, 0, len(rows))
	for _, row := range rows {
		size, err := decimal.NewFromString(row.Size)
		if err != nil {
			continue
		}
		avgPrice, err := decimal.NewFromString(row.AvgPrice)
		if err != nil {
			continue
		}
		positions = append(positions, types.Position{Token: row.Asset, Shares: size, AvgPrice: avgPrice})
	}
	return positions, nil
}
