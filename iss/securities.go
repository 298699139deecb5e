package iss

import (
	"context"
	"fmt"
	"net/url"

	"cloud.google.com/go/civil"

	"github.com/moexapi/moexapi-go/history"
)

// Board is a listing of a security on one board.
type Board struct {
	ID          string     `json:"boardid"`
	Title       string     `json:"title"`
	Engine      string     `json:"engine"`
	Market      string     `json:"market"`
	Traded      bool       `json:"is_traded"`
	Primary     bool       `json:"is_primary"`
	HistoryFrom civil.Date `json:"history_from"`
	HistoryTill civil.Date `json:"history_till"`
}

// Security describes an instrument and the boards it is listed on.
type Security struct {
	Secid     string
	Name      string
	ShortName string
	ISIN      string
	Type      string
	Boards    []Board
}

// BoardsOf returns the boards of the security in market m, primary first.
func (s *Security) BoardsOf(m Market) []string {
	var ids []string
	for _, b := range s.Boards {
		if b.Engine != m.Engine || b.Market != m.Market {
			continue
		}
		if b.Primary {
			ids = append([]string{b.ID}, ids...)
		} else {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

// PrimaryBoard returns the board flagged primary by the exchange.
func (s *Security) PrimaryBoard() (Board, bool) {
	for _, b := range s.Boards {
		if b.Primary {
			return b, true
		}
	}
	return Board{}, false
}

// GetSecurity returns the description and listings of secid. An unknown
// code yields an error wrapping history.ErrUnresolvedIdentity.
func (c *Client) GetSecurity(ctx context.Context, secid string) (*Security, error) {
	r, err := c.getResponse(ctx, "/securities/"+url.PathEscape(secid)+".json", nil)
	if err != nil {
		return nil, err
	}
	boards, err := r.Table("boards")
	if err != nil {
		return nil, err
	}
	s := &Security{Secid: secid}
	for _, row := range boards.Rows() {
		b := Board{
			ID:      row.String("boardid"),
			Title:   row.String("title"),
			Engine:  row.String("engine"),
			Market:  row.String("market"),
			Traded:  row.Bool("is_traded"),
			Primary: row.Bool("is_primary"),
		}
		b.HistoryFrom, _ = row.Date("history_from")
		b.HistoryTill, _ = row.Date("history_till")
		s.Boards = append(s.Boards, b)
	}
	if len(s.Boards) == 0 {
		return nil, fmt.Errorf("iss: security %s: %w", secid, history.ErrUnresolvedIdentity)
	}
	if desc, err := r.Table("description"); err == nil {
		for _, row := range desc.Rows() {
			v := row.String("value")
			switch row.String("name") {
			case "NAME":
				s.Name = v
			case "SHORTNAME":
				s.ShortName = v
			case "ISIN":
				s.ISIN = v
			case "TYPE":
				s.Type = v
			}
		}
	}
	return s, nil
}
