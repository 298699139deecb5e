package history

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// Adjustable is a record whose prices can be rescaled for splits. It is
// implemented by Point and Candle only; BondPoint deliberately is not.
type Adjustable[T any] interface {
	// Day returns the calendar day the record is attributed to.
	Day() civil.Date
	scaled(divisor float64) T
}

var (
	_ Adjustable[Point]  = Point{}
	_ Adjustable[Candle] = Candle{}
)

func (p Point) Day() civil.Date { return p.Date }

func (p Point) scaled(d float64) Point {
	p.Low /= d
	p.High /= d
	p.Open /= d
	p.Close /= d
	if p.MidPrice.Valid {
		p.MidPrice.Float64 /= d
	}
	if p.Value.Valid {
		p.Value.Float64 /= d
	}
	return p
}

// Day returns the day the candle begins on, in the candle's own location.
func (c Candle) Day() civil.Date { return civil.DateOf(c.Begin) }

func (c Candle) scaled(d float64) Candle {
	c.Low /= d
	c.High /= d
	c.Open /= d
	c.Close /= d
	if c.MidPrice.Valid {
		c.MidPrice.Float64 /= d
	}
	if c.Value.Valid {
		c.Value.Float64 /= d
	}
	return c
}

// Adjust returns a copy of series where the prices of every record dated
// strictly before a split are divided by that split's multiplier. A record
// preceding several splits is divided by all of them.
func Adjust[T Adjustable[T]](series []T, splits []Split) ([]T, error) {
	for _, s := range splits {
		if !(s.Multiplier > 0) {
			return nil, fmt.Errorf("%w: %s on %s has multiplier %v", ErrInvalidSplit, s.Secid, s.Date, s.Multiplier)
		}
	}
	result := make([]T, len(series))
	for i, p := range series {
		divisor := 1.0
		day := p.Day()
		for _, s := range splits {
			if day.Before(s.Date) {
				divisor *= s.Multiplier
			}
		}
		if divisor == 1 {
			result[i] = p
			continue
		}
		result[i] = p.scaled(divisor)
	}
	return result, nil
}
