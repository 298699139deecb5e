package history

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func ohlc(date string, o, h, l, c float64) Point {
	return Point{Date: day(date), Open: o, High: h, Low: l, Close: c}
}

func TestReducePoint(t *testing.T) {
	x := ohlc("2023-01-02", 100, 101, 99, 100)
	x.MidPrice = null.FloatFrom(100.5)
	x.NumTrades = null.IntFrom(10)
	x.Value = null.FloatFrom(1000)
	y := ohlc("2023-01-02", 102, 103, 101, 102)
	y.MidPrice = null.FloatFrom(101.5)
	y.Volume = null.IntFrom(7)
	y.Value = null.FloatFrom(500)

	got, err := x.Reduce(y)
	require.NoError(t, err)
	assert.Equal(t, Point{
		Date:      day("2023-01-02"),
		Open:      101,
		High:      103,
		Low:       99,
		Close:     101,
		MidPrice:  null.FloatFrom(101),
		NumTrades: null.IntFrom(10),
		Volume:    null.IntFrom(7),
		Value:     null.FloatFrom(1500),
	}, got)

	t.Run("both null stay null", func(t *testing.T) {
		got, err := ohlc("2023-01-02", 1, 1, 1, 1).Reduce(ohlc("2023-01-02", 1, 1, 1, 1))
		require.NoError(t, err)
		assert.False(t, got.MidPrice.Valid)
		assert.False(t, got.NumTrades.Valid)
		assert.False(t, got.Volume.Valid)
		assert.False(t, got.Value.Valid)
	})

	t.Run("different days", func(t *testing.T) {
		_, err := x.Reduce(ohlc("2023-01-03", 1, 1, 1, 1))
		assert.ErrorIs(t, err, ErrCollision)
	})
}

var msk = time.FixedZone("MSK", 3*60*60)

func candle(begin, end string, o, h, l, c float64) Candle {
	const layout = "2006-01-02 15:04"
	b, err := time.ParseInLocation(layout, begin, msk)
	if err != nil {
		panic(err)
	}
	e, err := time.ParseInLocation(layout, end, msk)
	if err != nil {
		panic(err)
	}
	return Candle{Begin: b, End: e, Open: o, High: h, Low: l, Close: c}
}

func TestReduceCandle(t *testing.T) {
	a := candle("2023-01-03 10:00", "2023-01-03 11:00", 10, 12, 9, 11)
	b := candle("2023-01-03 10:30", "2023-01-03 11:30", 20, 21, 19, 20)

	got, err := a.Reduce(b)
	require.NoError(t, err)
	assert.Equal(t, candle("2023-01-03 10:00", "2023-01-03 11:30", 10, 21, 9, 20), got)

	// order of the operands does not matter
	rev, err := b.Reduce(a)
	require.NoError(t, err)
	assert.Equal(t, got, rev)

	t.Run("same bounds are averaged", func(t *testing.T) {
		c := candle("2023-01-03 10:00", "2023-01-03 11:00", 12, 13, 10, 13)
		got, err := a.Reduce(c)
		require.NoError(t, err)
		assert.Equal(t, 11.0, got.Open)
		assert.Equal(t, 12.0, got.Close)
	})

	t.Run("adjacent intervals do not collide", func(t *testing.T) {
		c := candle("2023-01-03 11:00", "2023-01-03 12:00", 1, 1, 1, 1)
		_, err := a.Reduce(c)
		assert.ErrorIs(t, err, ErrCollision)
		assert.True(t, a.Before(c))
	})
}

func TestReduceBondPoint(t *testing.T) {
	a := BondPoint{Point: ohlc("2023-01-02", 99, 100, 98, 99), AccruedInterest: null.FloatFrom(10)}
	b := BondPoint{Point: ohlc("2023-01-02", 101, 102, 100, 101)}
	got, err := a.Reduce(b)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Open)
	assert.Equal(t, null.FloatFrom(10), got.AccruedInterest)
}

func TestFoldScenario(t *testing.T) {
	x := []Point{ohlc("2023-01-02", 100, 101, 99, 100)}
	y := []Point{ohlc("2023-01-02", 102, 103, 101, 102)}

	got, err := Fold([][]Point{x, y})
	require.NoError(t, err)
	assert.Equal(t, []Point{ohlc("2023-01-02", 101, 103, 99, 101)}, got)
}

func TestMerge(t *testing.T) {
	a := []Point{
		ohlc("2023-01-02", 1, 1, 1, 1),
		ohlc("2023-01-04", 3, 3, 3, 3),
		ohlc("2023-01-06", 5, 5, 5, 5),
	}
	b := []Point{
		ohlc("2023-01-03", 2, 2, 2, 2),
		ohlc("2023-01-04", 5, 5, 1, 5),
		ohlc("2023-01-09", 9, 9, 9, 9),
	}
	got, err := Merge(a, b)
	require.NoError(t, err)
	assert.Equal(t, []Point{
		ohlc("2023-01-02", 1, 1, 1, 1),
		ohlc("2023-01-03", 2, 2, 2, 2),
		ohlc("2023-01-04", 4, 5, 1, 4),
		ohlc("2023-01-06", 5, 5, 5, 5),
		ohlc("2023-01-09", 9, 9, 9, 9),
	}, got)

	t.Run("inputs are untouched", func(t *testing.T) {
		assert.Equal(t, ohlc("2023-01-04", 3, 3, 3, 3), a[1])
		assert.Equal(t, ohlc("2023-01-04", 5, 5, 1, 5), b[1])
	})

	t.Run("empty", func(t *testing.T) {
		got, err := Merge(a, nil)
		require.NoError(t, err)
		assert.Equal(t, a, got)

		got, err = Merge([]Point{}, a)
		require.NoError(t, err)
		assert.Equal(t, a, got)
	})

	t.Run("unsorted input", func(t *testing.T) {
		_, err := Merge([]Point{a[1], a[0]}, b)
		assert.ErrorIs(t, err, ErrCollision)
	})

	t.Run("duplicate day in one input", func(t *testing.T) {
		_, err := Merge(a, []Point{b[0], b[0]})
		assert.ErrorIs(t, err, ErrCollision)
	})
}

func TestFoldOrderIndependent(t *testing.T) {
	a := []Point{ohlc("2023-01-02", 10, 11, 9, 10), ohlc("2023-01-05", 12, 13, 11, 12)}
	b := []Point{ohlc("2023-01-03", 20, 21, 19, 20), ohlc("2023-01-05", 14, 16, 10, 14)}
	c := []Point{ohlc("2023-01-04", 30, 31, 29, 30), ohlc("2023-01-06", 32, 33, 31, 32)}
	c[0].Volume = null.IntFrom(3)
	b[1].Volume = null.IntFrom(4)

	forward, err := Fold([][]Point{a, b, c})
	require.NoError(t, err)
	backward, err := Fold([][]Point{c, b, a})
	require.NoError(t, err)
	shuffled, err := Fold([][]Point{b, c, a})
	require.NoError(t, err)

	assert.Equal(t, forward, backward)
	assert.Equal(t, forward, shuffled)
	assert.Len(t, forward, 5)
}

func TestFoldCandlesOrderIndependent(t *testing.T) {
	// a[1] only reaches b[0] through the candle a[0] and b[0] reduce into
	a := []Candle{
		candle("2023-01-03 10:00", "2023-01-03 11:00", 10, 12, 9, 11),
		candle("2023-01-03 11:15", "2023-01-03 12:00", 20, 22, 19, 21),
	}
	b := []Candle{
		candle("2023-01-03 10:30", "2023-01-03 11:30", 30, 33, 29, 31),
		candle("2023-01-03 13:00", "2023-01-03 14:00", 50, 51, 49, 50),
	}
	c := []Candle{
		candle("2023-01-03 11:45", "2023-01-03 12:30", 40, 44, 38, 41),
	}
	a[0].Volume, a[1].Volume = null.IntFrom(1), null.IntFrom(2)
	b[0].Volume, b[1].Volume = null.IntFrom(4), null.IntFrom(16)
	c[0].Volume = null.IntFrom(8)

	forward, err := Fold([][]Candle{a, b, c})
	require.NoError(t, err)
	backward, err := Fold([][]Candle{c, b, a})
	require.NoError(t, err)
	shuffled, err := Fold([][]Candle{b, c, a})
	require.NoError(t, err)

	assert.Equal(t, forward, backward)
	assert.Equal(t, forward, shuffled)

	merged := candle("2023-01-03 10:00", "2023-01-03 12:30", 10, 44, 9, 41)
	merged.Volume = null.IntFrom(15)
	assert.Equal(t, []Candle{merged, b[1]}, forward)
}

func TestFoldEmpty(t *testing.T) {
	_, err := Fold[Point](nil)
	assert.ErrorIs(t, err, ErrNoSequences)

	got, err := Fold([][]Point{{}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMergeCandles(t *testing.T) {
	a := []Candle{
		candle("2023-01-03 10:00", "2023-01-03 11:00", 10, 12, 9, 11),
		candle("2023-01-03 11:00", "2023-01-03 12:00", 11, 13, 10, 12),
	}
	b := []Candle{
		candle("2023-01-03 09:00", "2023-01-03 10:00", 8, 9, 7, 9),
		candle("2023-01-03 10:30", "2023-01-03 11:30", 20, 21, 19, 20),
	}

	got, err := Merge(a, b)
	require.NoError(t, err)
	// the reduced 10:00-11:30 candle overlaps 11:00-12:00 and absorbs it
	assert.Equal(t, []Candle{
		candle("2023-01-03 09:00", "2023-01-03 10:00", 8, 9, 7, 9),
		candle("2023-01-03 10:00", "2023-01-03 12:00", 10, 21, 9, 12),
	}, got)

	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].Before(got[i]))
	}

	t.Run("overlapping input", func(t *testing.T) {
		_, err := Merge([]Candle{a[0], b[1]}, nil)
		assert.ErrorIs(t, err, ErrCollision)
	})
}
