package iss

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/moexapi/moexapi-go/history"
)

// knownSplits are missing from the exchange statistics.
var knownSplits = []history.Split{
	{Date: civil.Date{Year: 2014, Month: 12, Day: 30}, Secid: "IRAO", Multiplier: 0.01},
}

// GetSplits returns every split of the stock engine. The multiplier is the
// number of shares after the split per share before it.
func (c *Client) GetSplits(ctx context.Context) ([]history.Split, error) {
	rows, err := c.getRows(ctx, "/statistics/engines/stock/splits.json", nil, "splits")
	if err != nil {
		return nil, err
	}
	splits := append([]history.Split(nil), knownSplits...)
	for _, row := range rows {
		date, ok := row.Date("tradedate")
		if !ok {
			continue
		}
		before, ok := row.Decimal("before")
		if !ok || !before.IsPositive() {
			continue
		}
		after, ok := row.Decimal("after")
		if !ok || !after.IsPositive() {
			continue
		}
		mult, _ := after.Div(before).Float64()
		splits = append(splits, history.Split{Date: date, Secid: row.String("secid"), Multiplier: mult})
	}
	return splits, nil
}
