package history

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Cursor tracks the window of a paginated fetch.
type Cursor[T any] interface {
	// Advance consumes a page. It returns the records of the page that fall
	// in the current window, moves the window past the last record and
	// reports whether another page should be requested.
	Advance(page []T) (kept []T, more bool, err error)
}

// Dated is a record attributed to a calendar day.
type Dated interface {
	Day() civil.Date
}

// DateCursor pages through a daily series. From and Till are inclusive and
// a zero value leaves that side open.
type DateCursor[T Dated] struct {
	From civil.Date
	Till civil.Date
}

func (c *DateCursor[T]) Advance(page []T) ([]T, bool, error) {
	if len(page) == 0 {
		return nil, false, nil
	}
	last := page[len(page)-1].Day()
	if !isZero(c.From) && last.Before(c.From) {
		return nil, false, fmt.Errorf("%w: page ends on %s, window starts on %s", ErrNoProgress, last, c.From)
	}
	kept := make([]T, 0, len(page))
	for _, r := range page {
		day := r.Day()
		if !isZero(c.From) && day.Before(c.From) {
			continue
		}
		if !isZero(c.Till) && day.After(c.Till) {
			continue
		}
		kept = append(kept, r)
	}
	c.From = last.AddDays(1)
	return kept, isZero(c.Till) || !c.From.After(c.Till), nil
}

// TimeCursor pages through a candle series. A candle is in the window when
// it begins between From and Till, both inclusive; zero leaves a side open.
type TimeCursor struct {
	From time.Time
	Till time.Time
}

func (c *TimeCursor) Advance(page []Candle) ([]Candle, bool, error) {
	if len(page) == 0 {
		return nil, false, nil
	}
	last := page[len(page)-1].End
	if !c.From.IsZero() && !last.After(c.From) {
		return nil, false, fmt.Errorf("%w: page ends at %s, window starts at %s", ErrNoProgress, last, c.From)
	}
	kept := make([]Candle, 0, len(page))
	for _, r := range page {
		if !c.From.IsZero() && r.Begin.Before(c.From) {
			continue
		}
		if !c.Till.IsZero() && r.Begin.After(c.Till) {
			continue
		}
		kept = append(kept, r)
	}
	c.From = last
	return kept, c.Till.IsZero() || !c.From.After(c.Till), nil
}

// Paginate calls fetch until the cursor reports the window is exhausted and
// returns the concatenation of the kept records. fetch reads the current
// window from the cursor it closes over.
func Paginate[T any](ctx context.Context, c Cursor[T], fetch func(ctx context.Context) ([]T, error)) ([]T, error) {
	var all []T
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		kept, more, err := c.Advance(page)
		if err != nil {
			return nil, err
		}
		all = append(all, kept...)
		if !more {
			return all, nil
		}
	}
}
