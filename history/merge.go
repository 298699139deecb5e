package history

import "slices"

// Merge merges two ascending, collision-free sequences into one. Records of
// first and second that collide are combined with Reduce. Neither input is
// modified.
func Merge[T Record[T]](first, second []T) ([]T, error) {
	if err := checkAscending(first); err != nil {
		return nil, err
	}
	if err := checkAscending(second); err != nil {
		return nil, err
	}

	result := make([]T, 0, len(first)+len(second))
	// push appends x, folding it into the last record when they collide.
	// That only happens for intervals, where a reduced record may have grown
	// over the next head of either input.
	push := func(x T) error {
		last := len(result) - 1
		if last >= 0 && collide(result[last], x) {
			r, err := result[last].Reduce(x)
			if err != nil {
				return err
			}
			result[last] = r
			return nil
		}
		result = append(result, x)
		return nil
	}

	i, j := 0, 0
	for i < len(first) && j < len(second) {
		a, b := first[i], second[j]
		var err error
		switch {
		case a.Before(b):
			err = push(a)
			i++
		case b.Before(a):
			err = push(b)
			j++
		default:
			var r T
			if r, err = a.Reduce(b); err == nil {
				err = push(r)
			}
			i++
			j++
		}
		if err != nil {
			return nil, err
		}
	}
	for ; i < len(first); i++ {
		if err := push(first[i]); err != nil {
			return nil, err
		}
	}
	for ; j < len(second); j++ {
		if err := push(second[j]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Fold merges every sequence into one, left to right.
func Fold[T Record[T]](seqs [][]T) ([]T, error) {
	if len(seqs) == 0 {
		return nil, ErrNoSequences
	}
	result := slices.Clone(seqs[0])
	if err := checkAscending(result); err != nil {
		return nil, err
	}
	for _, s := range seqs[1:] {
		var err error
		if result, err = Merge(result, s); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func checkAscending[T Record[T]](seq []T) error {
	for i := 1; i < len(seq); i++ {
		if !seq[i-1].Before(seq[i]) {
			return collisionf("sequence is not strictly ascending at index %d", i)
		}
	}
	return nil
}
