package history

import (
	"sort"

	"cloud.google.com/go/civil"
)

// DefaultLookahead is the number of days after an ex-date searched for a
// trading price.
const DefaultLookahead = 5

// Fractions relates every dividend paid by today to the first close of
// series on or within lookahead days after its ex-date. series must be
// ascending. Dividends dated after today are not confirmed and are dropped.
//
// A dividend without any price in its window is an error: the fraction
// cannot be guessed.
func Fractions(raw []RawDividend, series []Point, today civil.Date, lookahead int) ([]Dividend, error) {
	if lookahead < 0 {
		lookahead = DefaultLookahead
	}
	result := make([]Dividend, 0, len(raw))
	for _, d := range raw {
		if d.Date.After(today) {
			continue
		}
		last := d.Date.AddDays(lookahead)
		i := sort.Search(len(series), func(i int) bool { return !series[i].Date.Before(d.Date) })
		if i == len(series) || series[i].Date.After(last) {
			return nil, &MissingPriceError{Secid: d.Secid, Date: d.Date, Lookahead: lookahead}
		}
		result = append(result, Dividend{
			Secid:    d.Secid,
			Date:     d.Date,
			Value:    d.Value,
			Currency: d.Currency,
			Fraction: d.Value / series[i].Close,
		})
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}
