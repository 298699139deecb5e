package history

import (
	"github.com/guregu/null/v6"
)

// Record is a point of a sequence that can be merged with points of another
// sequence describing the same instrument.
type Record[T any] interface {
	// Before reports whether the record lies entirely before x, i.e. the two
	// neither collide nor is x before the record.
	Before(x T) bool
	// Reduce combines two colliding records into one.
	Reduce(x T) (T, error)
}

var (
	_ Record[Point]     = Point{}
	_ Record[Candle]    = Candle{}
	_ Record[BondPoint] = BondPoint{}
)

func collide[T Record[T]](a, b T) bool { return !a.Before(b) && !b.Before(a) }

// Before reports whether p is on an earlier day than x.
func (p Point) Before(x Point) bool { return p.Date.Before(x.Date) }

// Reduce combines two observations of the same day made on different venues.
// Both venues traded the same day, so open and close are averaged.
func (p Point) Reduce(x Point) (Point, error) {
	if p.Date != x.Date {
		return Point{}, collisionf("cannot reduce points of %s and %s", p.Date, x.Date)
	}
	return Point{
		Date:      p.Date,
		Low:       min(p.Low, x.Low),
		High:      max(p.High, x.High),
		Open:      (p.Open + x.Open) / 2,
		Close:     (p.Close + x.Close) / 2,
		MidPrice:  meanFloat(p.MidPrice, x.MidPrice),
		NumTrades: sumInt(p.NumTrades, x.NumTrades),
		Volume:    sumInt(p.Volume, x.Volume),
		Value:     sumFloat(p.Value, x.Value),
	}, nil
}

// Before reports whether c ends no later than x begins.
func (c Candle) Before(x Candle) bool { return !c.End.After(x.Begin) }

func (c Candle) overlaps(x Candle) bool { return c.Begin.Before(x.End) && x.Begin.Before(c.End) }

// Reduce combines two overlapping candles. Open comes from the candle that
// began first and close from the one that ended last; they are averaged only
// when both candles start (or end) at the same instant.
func (c Candle) Reduce(x Candle) (Candle, error) {
	if !c.overlaps(x) {
		return Candle{}, collisionf("cannot reduce candles [%s,%s) and [%s,%s)", c.Begin, c.End, x.Begin, x.End)
	}
	r := Candle{
		Begin:     c.Begin,
		End:       c.End,
		Low:       min(c.Low, x.Low),
		High:      max(c.High, x.High),
		MidPrice:  meanFloat(c.MidPrice, x.MidPrice),
		NumTrades: sumInt(c.NumTrades, x.NumTrades),
		Volume:    sumInt(c.Volume, x.Volume),
		Value:     sumFloat(c.Value, x.Value),
	}
	switch {
	case c.Begin.Before(x.Begin):
		r.Open = c.Open
	case x.Begin.Before(c.Begin):
		r.Begin, r.Open = x.Begin, x.Open
	default:
		r.Open = (c.Open + x.Open) / 2
	}
	switch {
	case c.End.After(x.End):
		r.Close = c.Close
	case x.End.After(c.End):
		r.End, r.Close = x.End, x.Close
	default:
		r.Close = (c.Close + x.Close) / 2
	}
	return r, nil
}

// Before reports whether b is on an earlier day than x.
func (b BondPoint) Before(x BondPoint) bool { return b.Point.Before(x.Point) }

// Reduce combines two observations of a bond on the same day. Accrued
// interest does not depend on the venue, so it is averaged like a price.
func (b BondPoint) Reduce(x BondPoint) (BondPoint, error) {
	p, err := b.Point.Reduce(x.Point)
	if err != nil {
		return BondPoint{}, err
	}
	return BondPoint{Point: p, AccruedInterest: meanFloat(b.AccruedInterest, x.AccruedInterest)}, nil
}

func meanFloat(a, b null.Float) null.Float {
	switch {
	case a.Valid && b.Valid:
		return null.FloatFrom((a.Float64 + b.Float64) / 2)
	case a.Valid:
		return a
	default:
		return b
	}
}

// sumFloat adds a and b treating null as zero, unless both are null.
func sumFloat(a, b null.Float) null.Float {
	if !a.Valid && !b.Valid {
		return null.Float{}
	}
	return null.FloatFrom(a.ValueOrZero() + b.ValueOrZero())
}

// sumInt adds a and b treating null as zero, unless both are null.
func sumInt(a, b null.Int) null.Int {
	if !a.Valid && !b.Valid {
		return null.Int{}
	}
	return null.IntFrom(a.ValueOrZero() + b.ValueOrZero())
}
