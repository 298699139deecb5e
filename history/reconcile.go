package history

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"golang.org/x/sync/errgroup"
)

// Fetcher returns raw pages of data of one identity on one venue.
// It must be idempotent. An empty page means there is no more data.
type Fetcher interface {
	// Venues lists the venues (boards) an identity traded on. It returns
	// ErrUnresolvedIdentity, possibly wrapped, when the identity is unknown.
	Venues(ctx context.Context, id Identity) ([]string, error)
	FetchHistory(ctx context.Context, secid, venue string, from, till civil.Date) ([]Point, error)
	FetchCandles(ctx context.Context, secid, venue string, interval Interval, from, till time.Time) ([]Candle, error)
}

// Resolver turns a reference to an instrument into its identity chain.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (Chain, error)
}

// SplitProvider returns every known split of the given codes.
type SplitProvider interface {
	Splits(ctx context.Context, secids []string) ([]Split, error)
}

// DividendProvider returns every known dividend of the given codes.
type DividendProvider interface {
	Dividends(ctx context.Context, secids []string) ([]RawDividend, error)
}

// ReconcilerOpts contains the collaborators and settings of a Reconciler.
type ReconcilerOpts struct {
	Fetcher   Fetcher
	Resolver  Resolver
	Splits    SplitProvider
	Dividends DividendProvider

	Logger Logger
	// Lookahead is the number of days after an ex-date searched for a price.
	// Zero or negative means DefaultLookahead.
	Lookahead int
	// MaxChainLength bounds the identity chain returned by the Resolver.
	MaxChainLength int
	// Parallelism is the number of venues of one identity fetched at once.
	// Results are always folded in venue order.
	Parallelism int
	// Today returns the current date, dividends after it are ignored.
	Today func() civil.Date
}

// Reconciler assembles continuous, split-adjusted series of instruments
// that may have been renamed and traded on several venues.
type Reconciler struct {
	opts ReconcilerOpts
}

// Series is a reconciled series of one instrument.
type Series[T any] struct {
	Ref    string
	Chain  Chain
	Points []T
	// Gaps lists identities of Chain that were skipped for lack of data.
	Gaps []Gap
}

// NewReconciler creates a Reconciler, defaulting unset options.
func NewReconciler(opts ReconcilerOpts) *Reconciler {
	if opts.Logger == nil {
		opts.Logger = DefaultLogger()
	}
	if opts.Lookahead <= 0 {
		opts.Lookahead = DefaultLookahead
	}
	if opts.MaxChainLength == 0 {
		opts.MaxChainLength = DefaultMaxChainLength
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	if opts.Today == nil {
		opts.Today = func() civil.Date { return civil.DateOf(time.Now()) }
	}
	return &Reconciler{opts: opts}
}

func (r *Reconciler) resolve(ctx context.Context, ref string) (Chain, error) {
	chain, err := r.opts.Resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ref, err)
	}
	if err := chain.Validate(r.opts.MaxChainLength); err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ref, err)
	}
	return chain, nil
}

func (r *Reconciler) splits(ctx context.Context, chain Chain) ([]Split, error) {
	if r.opts.Splits == nil {
		return nil, nil
	}
	splits, err := r.opts.Splits.Splits(ctx, chain.Secids())
	if err != nil {
		return nil, fmt.Errorf("splits of %s: %w", chain.Current().Secid, err)
	}
	return splits, nil
}

// fetchVenues runs fetch for every venue of id and returns the sequences in
// venue order, whatever order the fetches complete in.
func fetchVenues[T any](ctx context.Context, r *Reconciler, id Identity, fetch func(ctx context.Context, venue string) ([]T, error)) ([][]T, error) {
	venues, err := r.opts.Fetcher.Venues(ctx, id)
	if err != nil {
		return nil, err
	}
	seqs := make([][]T, len(venues))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Parallelism)
	for i, venue := range venues {
		g.Go(func() error {
			seq, err := fetch(gctx, venue)
			if err != nil {
				return fmt.Errorf("venue %s: %w", venue, err)
			}
			seqs[i] = seq
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return seqs, nil
}

func (r *Reconciler) logGaps(ref string, gaps []Gap) {
	for _, g := range gaps {
		r.opts.Logger.Warnf("%s: skipped identity %v", ref, g)
	}
}

// ReconcileHistory returns the daily series of ref between from and till,
// inclusive, across every identity and venue, adjusted for splits. Zero
// dates leave the window open.
func (r *Reconciler) ReconcileHistory(ctx context.Context, ref string, from, till civil.Date) (*Series[Point], error) {
	chain, err := r.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return r.reconcileHistory(ctx, ref, chain, from, till)
}

func (r *Reconciler) reconcileHistory(ctx context.Context, ref string, chain Chain, from, till civil.Date) (*Series[Point], error) {
	spliced, err := Splice(ctx, chain.Within(from, till), func(ctx context.Context, id Identity) ([][]Point, error) {
		lo, hi, _ := id.Clip(from, till)
		return fetchVenues(ctx, r, id, func(ctx context.Context, venue string) ([]Point, error) {
			cur := &DateCursor[Point]{From: lo, Till: hi}
			return Paginate[Point](ctx, cur, func(ctx context.Context) ([]Point, error) {
				return r.opts.Fetcher.FetchHistory(ctx, id.Secid, venue, cur.From, cur.Till)
			})
		})
	})
	if err != nil {
		return nil, fmt.Errorf("history of %s: %w", ref, err)
	}
	r.logGaps(ref, spliced.Gaps)

	splits, err := r.splits(ctx, chain)
	if err != nil {
		return nil, err
	}
	points, err := Adjust(spliced.Points, splits)
	if err != nil {
		return nil, fmt.Errorf("history of %s: %w", ref, err)
	}
	r.opts.Logger.Infof("%s: %d points from %d identities, %d splits", ref, len(points), len(chain), len(splits))
	return &Series[Point]{Ref: ref, Chain: chain, Points: points, Gaps: spliced.Gaps}, nil
}

// ReconcileCandles returns the candles of ref beginning between from and
// till across every identity and venue, adjusted for splits.
func (r *Reconciler) ReconcileCandles(ctx context.Context, ref string, interval Interval, from, till time.Time) (*Series[Candle], error) {
	chain, err := r.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	var fromDay, tillDay civil.Date
	if !from.IsZero() {
		fromDay = civil.DateOf(from)
	}
	if !till.IsZero() {
		tillDay = civil.DateOf(till)
	}
	spliced, err := Splice(ctx, chain.Within(fromDay, tillDay), func(ctx context.Context, id Identity) ([][]Candle, error) {
		lo, hi := clipTime(id, from, till)
		return fetchVenues(ctx, r, id, func(ctx context.Context, venue string) ([]Candle, error) {
			cur := &TimeCursor{From: lo, Till: hi}
			return Paginate[Candle](ctx, cur, func(ctx context.Context) ([]Candle, error) {
				return r.opts.Fetcher.FetchCandles(ctx, id.Secid, venue, interval, cur.From, cur.Till)
			})
		})
	})
	if err != nil {
		return nil, fmt.Errorf("candles of %s: %w", ref, err)
	}
	r.logGaps(ref, spliced.Gaps)

	splits, err := r.splits(ctx, chain)
	if err != nil {
		return nil, err
	}
	candles, err := Adjust(spliced.Points, splits)
	if err != nil {
		return nil, fmt.Errorf("candles of %s: %w", ref, err)
	}
	return &Series[Candle]{Ref: ref, Chain: chain, Points: candles, Gaps: spliced.Gaps}, nil
}

// clipTime narrows [from, till] to the validity of id. Identity bounds are
// whole days in the location of from (or till, or UTC).
func clipTime(id Identity, from, till time.Time) (time.Time, time.Time) {
	loc := time.UTC
	switch {
	case !from.IsZero():
		loc = from.Location()
	case !till.IsZero():
		loc = till.Location()
	}
	if !isZero(id.From) {
		if start := id.From.In(loc); from.IsZero() || from.Before(start) {
			from = start
		}
	}
	if !isZero(id.Till) {
		if end := id.Till.AddDays(1).In(loc).Add(-time.Second); till.IsZero() || till.After(end) {
			till = end
		}
	}
	return from, till
}

// ReconcileDividends returns the dividends paid on ref under any of its
// identities, each related to the split-adjusted close following its ex-date.
func (r *Reconciler) ReconcileDividends(ctx context.Context, ref string) ([]Dividend, error) {
	chain, err := r.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if r.opts.Dividends == nil {
		return nil, nil
	}
	raw, err := r.opts.Dividends.Dividends(ctx, chain.Secids())
	if err != nil {
		return nil, fmt.Errorf("dividends of %s: %w", ref, err)
	}
	today := r.opts.Today()
	var from, till civil.Date
	confirmed := raw[:0:0]
	for _, d := range raw {
		if d.Date.After(today) {
			continue
		}
		confirmed = append(confirmed, d)
		if isZero(from) || d.Date.Before(from) {
			from = d.Date
		}
		if d.Date.After(till) {
			till = d.Date
		}
	}
	if len(confirmed) == 0 {
		return []Dividend{}, nil
	}
	series, err := r.reconcileHistory(ctx, ref, chain, from, till.AddDays(r.opts.Lookahead))
	if err != nil {
		return nil, err
	}
	divs, err := Fractions(confirmed, series.Points, today, r.opts.Lookahead)
	if err != nil {
		return nil, fmt.Errorf("dividends of %s: %w", ref, err)
	}
	return divs, nil
}
