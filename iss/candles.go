package iss

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/moexapi/moexapi-go/history"
)

// Moscow is the time zone of exchange timestamps.
var Moscow = time.FixedZone("MSK", 3*60*60)

const issTimeLayout = "2006-01-02 15:04:05"

func candlesPath(m Market, board, secid string) string {
	return fmt.Sprintf("%s/boards/%s/securities/%s/candles.json", m.Path(), url.PathEscape(board), url.PathEscape(secid))
}

// decodeCandle reads a candle row. The exchange reports the last second of
// the candle as its end; the returned candle ends one second later so that
// consecutive candles are half-open and adjacent.
func decodeCandle(row Row) (history.Candle, bool) {
	begin, err := time.ParseInLocation(issTimeLayout, row.String("begin"), Moscow)
	if err != nil {
		return history.Candle{}, false
	}
	end, err := time.ParseInLocation(issTimeLayout, row.String("end"), Moscow)
	if err != nil {
		return history.Candle{}, false
	}
	end = end.Add(time.Second)
	if !end.After(begin) {
		return history.Candle{}, false
	}
	lo, hi, op, cl := row.Float("low"), row.Float("high"), row.Float("open"), row.Float("close")
	for _, f := range []float64{lo.Float64, hi.Float64, op.Float64, cl.Float64} {
		if f == 0 {
			return history.Candle{}, false
		}
	}
	return history.Candle{
		Begin:  begin,
		End:    end,
		Low:    lo.Float64,
		High:   hi.Float64,
		Open:   op.Float64,
		Close:  cl.Float64,
		Volume: row.Int("volume"),
		Value:  row.Float("value"),
	}, true
}

// FetchCandles returns the next page of candles of secid on board beginning
// between from and till. Zero times leave the window open.
func (c *Client) FetchCandles(ctx context.Context, m Market, secid, board string, interval history.Interval, from, till time.Time) ([]history.Candle, error) {
	q := url.Values{}
	q.Set("interval", strconv.Itoa(int(interval)))
	if !from.IsZero() {
		q.Set("from", from.In(Moscow).Format(issTimeLayout))
	}
	if !till.IsZero() {
		q.Set("till", till.In(Moscow).Format(issTimeLayout))
	}
	t, err := c.getTable(ctx, candlesPath(m, board, secid), q, "candles")
	if err != nil {
		return nil, err
	}
	var candles []history.Candle
	for _, row := range t.Rows() {
		if cd, ok := decodeCandle(row); ok {
			candles = append(candles, cd)
		}
	}
	return candles, nil
}
