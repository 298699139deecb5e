package iss

import (
	"fmt"
	"strings"
)

// Market is a section of the exchange: an engine, a market within it and the
// boards whose history is merged by default.
type Market struct {
	Name   string
	Engine string
	Market string
	// Board is the primary board of the market, empty for indices.
	Board string
	// HistoryBoards are the boards fetched for every instrument of the
	// market. When empty the boards listed for the security are used.
	HistoryBoards []string
}

var (
	Shares   = Market{Name: "shares", Engine: "stock", Market: "shares", Board: "TQBR", HistoryBoards: []string{"TQBR", "EQBR"}}
	Bonds    = Market{Name: "bonds", Engine: "stock", Market: "bonds", Board: "TQCB", HistoryBoards: []string{"TQCB"}}
	ETF      = Market{Name: "etf", Engine: "stock", Market: "shares", Board: "TQTF", HistoryBoards: []string{"TQTF"}}
	Index    = Market{Name: "index", Engine: "stock", Market: "index"}
	Currency = Market{Name: "currency", Engine: "currency", Market: "selt", Board: "CETS", HistoryBoards: []string{"CETS"}}
)

// Markets returns every known market.
func Markets() []Market {
	return []Market{Shares, Bonds, ETF, Index, Currency}
}

// MarketByName looks a market up by its name, case-insensitively.
func MarketByName(name string) (Market, error) {
	for _, m := range Markets() {
		if strings.EqualFold(m.Name, name) {
			return m, nil
		}
	}
	return Market{}, fmt.Errorf("iss: unknown market %q", name)
}

// Path is the ISS path of the market, e.g. /engines/stock/markets/shares.
func (m Market) Path() string {
	return "/engines/" + m.Engine + "/markets/" + m.Market
}

func (m Market) String() string { return m.Name }
