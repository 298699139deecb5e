package iss

import (
	"context"
	"fmt"
	"net/url"

	"cloud.google.com/go/civil"

	"github.com/moexapi/moexapi-go/history"
)

func historyPath(m Market, board, secid string) string {
	return fmt.Sprintf("/history%s/boards/%s/securities/%s.json", m.Path(), url.PathEscape(board), url.PathEscape(secid))
}

func dateQuery(from, till civil.Date) url.Values {
	q := url.Values{}
	if from != (civil.Date{}) {
		q.Set("from", from.String())
	}
	if till != (civil.Date{}) {
		q.Set("till", till.String())
	}
	return q
}

// decodePoint reads a daily row. Rows missing a price, or with a zero one,
// are reported as not ok: the board did not trade that day.
func decodePoint(m Market, row Row) (history.Point, bool) {
	date, ok := row.Date("TRADEDATE")
	if !ok {
		return history.Point{}, false
	}
	lo, hi, op, cl := row.Float("LOW"), row.Float("HIGH"), row.Float("OPEN"), row.Float("CLOSE")
	for _, f := range []float64{lo.Float64, hi.Float64, op.Float64, cl.Float64} {
		if f == 0 {
			return history.Point{}, false
		}
	}
	value := row.Float("VALUE")
	if m.Engine == Currency.Engine {
		// VALUE of currency pairs is in the base currency
		value = row.Float("VOLRUR")
	}
	return history.Point{
		Date:      date,
		Low:       lo.Float64,
		High:      hi.Float64,
		Open:      op.Float64,
		Close:     cl.Float64,
		MidPrice:  row.Float("WAPRICE"),
		NumTrades: row.Int("NUMTRADES"),
		Volume:    row.Int("VOLUME"),
		Value:     value,
	}, true
}

// FetchHistory returns the next page of the daily history of secid on board
// starting at from. Days the board did not trade are dropped; the page is
// empty only once no rows remain.
func (c *Client) FetchHistory(ctx context.Context, m Market, secid, board string, from, till civil.Date) ([]history.Point, error) {
	return skipIdle(from, till, func(from civil.Date) ([]history.Point, civil.Date, error) {
		return c.HistoryPage(ctx, m, secid, board, from, till)
	})
}

// HistoryPage returns one raw page of daily history and the date of its last
// row, traded or not. last is zero when the page is empty.
func (c *Client) HistoryPage(ctx context.Context, m Market, secid, board string, from, till civil.Date) (points []history.Point, last civil.Date, err error) {
	t, err := c.getTable(ctx, historyPath(m, board, secid), dateQuery(from, till), "history")
	if err != nil {
		return nil, civil.Date{}, err
	}
	for _, row := range t.Rows() {
		if d, ok := row.Date("TRADEDATE"); ok {
			last = d
		}
		if p, ok := decodePoint(m, row); ok {
			points = append(points, p)
		}
	}
	return points, last, nil
}

// skipIdle requests pages until one holds a traded day or the rows run out,
// so that an empty result reliably ends pagination.
func skipIdle[T any](from, till civil.Date, page func(from civil.Date) ([]T, civil.Date, error)) ([]T, error) {
	for {
		records, last, err := page(from)
		if err != nil || len(records) > 0 || last == (civil.Date{}) {
			return records, err
		}
		if from != (civil.Date{}) && last.Before(from) {
			return nil, fmt.Errorf("%w: page ends on %s, requested from %s", history.ErrNoProgress, last, from)
		}
		from = last.AddDays(1)
		if till != (civil.Date{}) && from.After(till) {
			return nil, nil
		}
	}
}

// GetBondHistory returns the daily history of a bond across boards with the
// accrued interest of every day. Bonds do not split, the series is returned
// as traded.
func (c *Client) GetBondHistory(ctx context.Context, secid string, boards []string, from, till civil.Date) ([]history.BondPoint, error) {
	if len(boards) == 0 {
		boards = Bonds.HistoryBoards
	}
	seqs := make([][]history.BondPoint, 0, len(boards))
	for _, board := range boards {
		cur := &history.DateCursor[history.BondPoint]{From: from, Till: till}
		seq, err := history.Paginate[history.BondPoint](ctx, cur, func(ctx context.Context) ([]history.BondPoint, error) {
			return c.bondPage(ctx, secid, board, cur.From, cur.Till)
		})
		if err != nil {
			return nil, fmt.Errorf("bond history of %s on %s: %w", secid, board, err)
		}
		seqs = append(seqs, seq)
	}
	return history.Fold(seqs)
}

func (c *Client) bondPage(ctx context.Context, secid, board string, from, till civil.Date) ([]history.BondPoint, error) {
	return skipIdle(from, till, func(from civil.Date) (page []history.BondPoint, last civil.Date, err error) {
		t, err := c.getTable(ctx, historyPath(Bonds, board, secid), dateQuery(from, till), "history")
		if err != nil {
			return nil, civil.Date{}, err
		}
		for _, row := range t.Rows() {
			if d, ok := row.Date("TRADEDATE"); ok {
				last = d
			}
			if p, ok := decodePoint(Bonds, row); ok {
				page = append(page, history.BondPoint{Point: p, AccruedInterest: row.Float("ACCINT")})
			}
		}
		return page, last, nil
	})
}
