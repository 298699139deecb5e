package iss

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/moexapi/moexapi-go/history"
)

// SourceOpts selects what a Source reads.
type SourceOpts struct {
	// Market defaults to Shares.
	Market Market
	// MainBoardOnly restricts every identity to its main board instead of
	// merging all the boards it traded on.
	MainBoardOnly bool
	// MaxChainLength bounds the renames followed by Resolve.
	MaxChainLength int
}

// Source serves the collaborators of history.Reconciler from the exchange.
type Source struct {
	client *Client
	opts   SourceOpts
}

var (
	_ history.Fetcher          = (*Source)(nil)
	_ history.Resolver         = (*Source)(nil)
	_ history.SplitProvider    = (*Source)(nil)
	_ history.DividendProvider = (*Source)(nil)
)

// NewSource creates a Source reading through client.
func NewSource(client *Client, opts SourceOpts) *Source {
	if opts.Market.Name == "" {
		opts.Market = Shares
	}
	if opts.MaxChainLength == 0 {
		opts.MaxChainLength = history.DefaultMaxChainLength
	}
	return &Source{client: client, opts: opts}
}

// NewReconciler wires a history.Reconciler to the source. Collaborators
// already set in opts are kept.
func (s *Source) NewReconciler(opts history.ReconcilerOpts) *history.Reconciler {
	if opts.Fetcher == nil {
		opts.Fetcher = s
	}
	if opts.Resolver == nil {
		opts.Resolver = s
	}
	if opts.Splits == nil {
		opts.Splits = s
	}
	if opts.Dividends == nil {
		opts.Dividends = s
	}
	if opts.Logger == nil {
		opts.Logger = s.client.opts.Logger
	}
	if opts.MaxChainLength == 0 {
		opts.MaxChainLength = s.opts.MaxChainLength
	}
	return history.NewReconciler(opts)
}

// Resolve maps ref, an old or current code, to the identities of the
// instrument in the market of the source.
func (s *Source) Resolve(ctx context.Context, ref string) (history.Chain, error) {
	changeovers, err := s.client.GetChangeovers(ctx, s.opts.Market)
	if err != nil {
		return nil, err
	}
	current := CurrentName(changeovers, ref)
	if current != ref {
		s.client.opts.Logger.Infof("iss: %s trades as %s", ref, current)
	}
	if _, err := s.client.GetSecurity(ctx, current); err != nil {
		return nil, err
	}
	return BuildChain(changeovers, current, s.opts.MaxChainLength)
}

// Venues returns the boards an identity is fetched from: the history boards
// of the market, or the boards the security is listed on when the market
// has none. With MainBoardOnly only the main one of the listed boards.
func (s *Source) Venues(ctx context.Context, id history.Identity) ([]string, error) {
	m := s.opts.Market
	if !s.opts.MainBoardOnly && len(m.HistoryBoards) > 0 {
		return m.HistoryBoards, nil
	}
	sec, err := s.client.GetSecurity(ctx, id.Secid)
	if err != nil {
		return nil, err
	}
	var boards []string
	for _, b := range sec.Boards {
		if b.Engine != m.Engine || b.Market != m.Market || !overlaps(b, id) {
			continue
		}
		boards = append(boards, b.ID)
	}
	if len(boards) == 0 {
		return nil, fmt.Errorf("iss: %s has no boards in %s: %w", id.Secid, m, history.ErrUnresolvedIdentity)
	}
	if !s.opts.MainBoardOnly {
		return boards, nil
	}
	board, err := MainBoard(boards)
	if err != nil {
		return nil, fmt.Errorf("iss: %s: %w", id.Secid, err)
	}
	return []string{board}, nil
}

// overlaps reports whether the board has history within the validity of id.
// Boards that do not report their history dates are kept.
func overlaps(b Board, id history.Identity) bool {
	zero := civil.Date{}
	if b.HistoryTill != zero && id.From != zero && b.HistoryTill.Before(id.From) {
		return false
	}
	if b.HistoryFrom != zero && id.Till != zero && b.HistoryFrom.After(id.Till) {
		return false
	}
	return true
}

// FetchHistory implements history.Fetcher.
func (s *Source) FetchHistory(ctx context.Context, secid, venue string, from, till civil.Date) ([]history.Point, error) {
	return s.client.FetchHistory(ctx, s.opts.Market, secid, venue, from, till)
}

// FetchCandles implements history.Fetcher.
func (s *Source) FetchCandles(ctx context.Context, secid, venue string, interval history.Interval, from, till time.Time) ([]history.Candle, error) {
	return s.client.FetchCandles(ctx, s.opts.Market, secid, venue, interval, from, till)
}

// Splits returns the splits of any of secids.
func (s *Source) Splits(ctx context.Context, secids []string) ([]history.Split, error) {
	all, err := s.client.GetSplits(ctx)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(secids))
	for _, id := range secids {
		want[id] = true
	}
	var splits []history.Split
	for _, sp := range all {
		if want[sp.Secid] {
			splits = append(splits, sp)
		}
	}
	return splits, nil
}

// Dividends returns the dividends paid under any of secids.
func (s *Source) Dividends(ctx context.Context, secids []string) ([]history.RawDividend, error) {
	var divs []history.RawDividend
	for _, id := range secids {
		d, err := s.client.GetDividends(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("dividends of %s: %w", id, err)
		}
		divs = append(divs, d...)
	}
	return divs, nil
}
