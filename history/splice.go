package history

import (
	"context"
	"errors"
	"fmt"
)

// SpliceFetch returns the sequences of one identity, one per venue.
type SpliceFetch[T any] func(ctx context.Context, id Identity) ([][]T, error)

// Gap is an identity of a chain that contributed no data.
type Gap struct {
	Identity Identity
	Err      error
}

func (g Gap) String() string { return fmt.Sprintf("%s: %v", g.Identity, g.Err) }

// Spliced is the concatenation of the series of every identity of a chain.
type Spliced[T any] struct {
	Points []T
	Gaps   []Gap
}

// Splice fetches and folds the venues of every identity of chain, oldest
// first, and merges the results. Only the boundary day shared by two
// consecutive identities may collide, which Merge handles like any other
// collision.
//
// An identity that is unresolved or has no data is recorded in Gaps and
// skipped. Any other fetch error aborts the splice.
func Splice[T Record[T]](ctx context.Context, chain Chain, fetch SpliceFetch[T]) (*Spliced[T], error) {
	res := &Spliced[T]{}
	for _, id := range chain {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seqs, err := fetch(ctx, id)
		switch {
		case errors.Is(err, ErrUnresolvedIdentity):
			res.Gaps = append(res.Gaps, Gap{Identity: id, Err: err})
			continue
		case err != nil:
			return nil, fmt.Errorf("fetch %s: %w", id.Secid, err)
		case len(seqs) == 0:
			res.Gaps = append(res.Gaps, Gap{Identity: id, Err: fmt.Errorf("%w: %s has no venues", ErrUnresolvedIdentity, id.Secid)})
			continue
		}
		folded, err := Fold(seqs)
		if err != nil {
			return nil, fmt.Errorf("fold %s: %w", id.Secid, err)
		}
		if len(folded) == 0 {
			res.Gaps = append(res.Gaps, Gap{Identity: id, Err: fmt.Errorf("%w: %s has no data", ErrUnresolvedIdentity, id.Secid)})
			continue
		}
		if res.Points, err = Merge(res.Points, folded); err != nil {
			return nil, fmt.Errorf("splice %s: %w", id.Secid, err)
		}
	}
	return res, nil
}
