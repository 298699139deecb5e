package history

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// DefaultMaxChainLength bounds the number of renames followed for one instrument.
const DefaultMaxChainLength = 32

// Identity is one historical code of an instrument together with the dates
// it was valid. Both bounds are inclusive and a zero date leaves that side
// unbounded.
type Identity struct {
	Secid string     `json:"secid"`
	From  civil.Date `json:"from"`
	Till  civil.Date `json:"till"`
}

func (id Identity) String() string {
	return fmt.Sprintf("%s[%s..%s]", id.Secid, dateOrDots(id.From), dateOrDots(id.Till))
}

func dateOrDots(d civil.Date) string {
	if isZero(d) {
		return ""
	}
	return d.String()
}

func isZero(d civil.Date) bool { return d == civil.Date{} }

// Clip intersects the validity of id with [from, till], zero meaning
// unbounded on either side. ok is false when the two do not intersect.
func (id Identity) Clip(from, till civil.Date) (lo, hi civil.Date, ok bool) {
	lo, hi = id.From, id.Till
	if !isZero(from) && (isZero(lo) || lo.Before(from)) {
		lo = from
	}
	if !isZero(till) && (isZero(hi) || hi.After(till)) {
		hi = till
	}
	if !isZero(lo) && !isZero(hi) && lo.After(hi) {
		return lo, hi, false
	}
	return lo, hi, true
}

// Chain is the list of identities of one instrument, oldest first.
type Chain []Identity

// Secids returns the codes of every identity in the chain.
func (c Chain) Secids() []string {
	ids := make([]string, len(c))
	for i, id := range c {
		ids[i] = id.Secid
	}
	return ids
}

// Current returns the newest identity of the chain.
func (c Chain) Current() Identity { return c[len(c)-1] }

// Validate checks the chain is non-empty, bounded, free of repeated codes and
// that consecutive windows meet: the next identity starts on the last day of
// the previous one or the day after.
func (c Chain) Validate(maxLen int) error {
	if len(c) == 0 {
		return ErrEmptyChain
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxChainLength
	}
	if len(c) > maxLen {
		return fmt.Errorf("%w: %d identities, limit %d", ErrChainTooLong, len(c), maxLen)
	}
	seen := make(map[string]bool, len(c))
	for i, id := range c {
		if seen[id.Secid] {
			return fmt.Errorf("%w: %s appears twice", ErrChainCycle, id.Secid)
		}
		seen[id.Secid] = true
		if !isZero(id.From) && !isZero(id.Till) && id.From.After(id.Till) {
			return fmt.Errorf("%w: %s ends before it starts", ErrBrokenChain, id)
		}
		if i == 0 {
			continue
		}
		prev := c[i-1]
		if isZero(prev.Till) || isZero(id.From) {
			return fmt.Errorf("%w: %s and %s are unbounded at their junction", ErrBrokenChain, prev, id)
		}
		if id.From.Before(prev.Till) || id.From.After(prev.Till.AddDays(1)) {
			return fmt.Errorf("%w: %s does not follow %s", ErrBrokenChain, id, prev)
		}
	}
	return nil
}

// Within returns the identities whose validity intersects [from, till].
func (c Chain) Within(from, till civil.Date) Chain {
	var r Chain
	for _, id := range c {
		if _, _, ok := id.Clip(from, till); ok {
			r = append(r, id)
		}
	}
	return r
}
