package history

import (
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/guregu/null/v6"
)

// Point is one reconciled daily observation of an instrument.
type Point struct {
	Date      civil.Date `json:"date"`
	Low       float64    `json:"low"`
	High      float64    `json:"high"`
	Open      float64    `json:"open"`
	Close     float64    `json:"close"`
	MidPrice  null.Float `json:"mid_price"`
	NumTrades null.Int   `json:"num_trades"`
	Volume    null.Int   `json:"volume"`
	Value     null.Float `json:"value"`
}

// Candle is one reconciled observation over the half-open interval [Begin, End).
type Candle struct {
	Begin     time.Time  `json:"begin"`
	End       time.Time  `json:"end"`
	Low       float64    `json:"low"`
	High      float64    `json:"high"`
	Open      float64    `json:"open"`
	Close     float64    `json:"close"`
	MidPrice  null.Float `json:"mid_price"`
	NumTrades null.Int   `json:"num_trades"`
	Volume    null.Int   `json:"volume"`
	Value     null.Float `json:"value"`
}

// BondPoint is a daily observation of a debt instrument. Accrued interest is
// not a price and is never rescaled by splits.
type BondPoint struct {
	Point
	AccruedInterest null.Float `json:"accrued_interest"`
}

// Split is a change of the nominal share count of Secid effective on Date.
// Multiplier is sharesAfter / sharesBefore.
type Split struct {
	Date       civil.Date `json:"date"`
	Secid      string     `json:"secid"`
	Multiplier float64    `json:"multiplier"`
}

// RawDividend is a dividend as announced, before it is related to prices.
type RawDividend struct {
	Secid    string     `json:"secid"`
	Date     civil.Date `json:"date"`
	Value    float64    `json:"value"`
	Currency string     `json:"currency,omitempty"`
}

// Dividend is a dividend with its yield relative to the adjusted close
// shortly after the ex-date.
type Dividend struct {
	Secid    string     `json:"secid"`
	Date     civil.Date `json:"date"`
	Value    float64    `json:"value"`
	Currency string     `json:"currency,omitempty"`
	Fraction float64    `json:"fraction"`
}

// Interval is the aggregation period of candles, using the exchange codes.
type Interval int

const (
	OneMinute  Interval = 1
	TenMinutes Interval = 10
	OneHour    Interval = 60
	OneDay     Interval = 24
	OneWeek    Interval = 7
	OneMonth   Interval = 31
	OneQuarter Interval = 4
)

func (iv Interval) String() string {
	switch iv {
	case OneMinute:
		return "1Min"
	case TenMinutes:
		return "10Min"
	case OneHour:
		return "1Hour"
	case OneDay:
		return "1Day"
	case OneWeek:
		return "1Week"
	case OneMonth:
		return "1Month"
	case OneQuarter:
		return "1Quarter"
	}
	return "Interval(" + strconv.Itoa(int(iv)) + ")"
}
