package history

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
)

var (
	// ErrCollision is returned when records that should not collide do, or
	// when a sequence handed to the merger is not strictly ascending.
	// It always indicates a defect upstream and must not be ignored.
	ErrCollision = errors.New("records collide")

	// ErrUnresolvedIdentity is returned by a Fetcher when an identity of the
	// chain has no data. The splicer records it as a gap and continues.
	ErrUnresolvedIdentity = errors.New("unresolved identity")

	// ErrNoSequences is returned when folding an empty list of sequences.
	ErrNoSequences = errors.New("no sequences to fold")

	// ErrNoProgress is returned when a page does not move the fetch window forward.
	ErrNoProgress = errors.New("pagination made no progress")

	// ErrInvalidSplit is returned for a split with a non-positive multiplier.
	ErrInvalidSplit = errors.New("invalid split")

	ErrEmptyChain   = errors.New("identity chain is empty")
	ErrChainTooLong = errors.New("identity chain is too long")
	ErrChainCycle   = errors.New("identity chain has a cycle")
	ErrBrokenChain  = errors.New("identity chain windows are not contiguous")
)

// MissingPriceError reports a dividend whose ex-date is not followed by any
// trading day within the lookahead window.
type MissingPriceError struct {
	Secid     string
	Date      civil.Date
	Lookahead int
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("no price for %s within %d days after ex-date %s", e.Secid, e.Lookahead, e.Date)
}

func collisionf(format string, v ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCollision, fmt.Sprintf(format, v...))
}
