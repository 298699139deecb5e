package iss

import (
	"context"
	"net/url"

	"github.com/moexapi/moexapi-go/history"
)

// GetDividends returns the dividends of secid by registry close date.
func (c *Client) GetDividends(ctx context.Context, secid string) ([]history.RawDividend, error) {
	rows, err := c.getRows(ctx, "/securities/"+url.PathEscape(secid)+"/dividends.json", nil, "dividends")
	if err != nil {
		return nil, err
	}
	var divs []history.RawDividend
	for _, row := range rows {
		date, ok := row.Date("registryclosedate")
		if !ok {
			continue
		}
		value, ok := row.Decimal("value")
		if !ok || value.IsNegative() {
			continue
		}
		divs = append(divs, history.RawDividend{
			Secid:    secid,
			Date:     date,
			Value:    value.InexactFloat64(),
			Currency: row.String("currencyid"),
		})
	}
	return divs, nil
}
