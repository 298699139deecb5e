package iss

import (
	"errors"
	"fmt"
)

// ErrNoMainBoard is returned when no board of a security can be preferred.
var ErrNoMainBoard = errors.New("iss: cannot choose a main board")

// boardTiers lists the boards in order of preference. Boards of one tier are
// not comparable with each other.
var boardTiers = [][]string{
	{"TQCB", "TQBR", "TQTF", "CETS", "TQIF"},
	{"TQOB", "TQIR", "TQRD", "TQPI", "CNGD", "FIXS"},
}

// MainBoard picks the board a security mainly trades on. A single board is
// always the main one; otherwise the first tier holding exactly one of the
// boards decides.
func MainBoard(boards []string) (string, error) {
	if len(boards) == 1 {
		return boards[0], nil
	}
	for _, tier := range boardTiers {
		var found []string
		for _, b := range boards {
			for _, name := range tier {
				if b == name {
					found = append(found, b)
				}
			}
		}
		switch len(found) {
		case 0:
			continue
		case 1:
			return found[0], nil
		default:
			return "", fmt.Errorf("%w: %v are in the same tier", ErrNoMainBoard, found)
		}
	}
	return "", fmt.Errorf("%w: none of %v is known", ErrNoMainBoard, boards)
}
