package iss

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/civil"

	"github.com/moexapi/moexapi-go/history"
)

// Changeover is a change of the trading code of an instrument, effective on
// Date.
type Changeover struct {
	Date     civil.Date `json:"action_date"`
	OldSecid string     `json:"old_secid"`
	NewSecid string     `json:"new_secid"`
}

// aliases maps codes the changeover table leaves dangling to the code the
// instrument trades under today.
var aliases = map[string]string{
	"RSTI":  "FEES",
	"RSTIP": "FEES",
	"SFTL":  "SOFL",
}

// GetChangeovers returns the code changes recorded for market m.
func (c *Client) GetChangeovers(ctx context.Context, m Market) ([]Changeover, error) {
	rows, err := c.getRows(ctx, "/history"+m.Path()+"/securities/changeover.json", nil, "changeover")
	if err != nil {
		return nil, err
	}
	result := make([]Changeover, 0, len(rows))
	for _, row := range rows {
		date, ok := row.Date("action_date")
		if !ok {
			continue
		}
		co := Changeover{Date: date, OldSecid: row.String("old_secid"), NewSecid: row.String("new_secid")}
		if co.OldSecid == "" || co.NewSecid == "" || co.OldSecid == co.NewSecid {
			continue
		}
		result = append(result, co)
	}
	return result, nil
}

// CurrentName follows the changes of secid forward in time and returns the
// code it trades under now.
func CurrentName(changeovers []Changeover, secid string) string {
	sorted := append([]Changeover(nil), changeovers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	for _, co := range sorted {
		if co.OldSecid == secid {
			secid = co.NewSecid
		}
	}
	if alias, ok := aliases[secid]; ok {
		return alias
	}
	return secid
}

// BuildChain follows the changes of secid back in time and returns its
// identities, oldest first. Two consecutive identities share the day of the
// change. A code seen twice, or more than maxLen identities, is an error.
func BuildChain(changeovers []Changeover, secid string, maxLen int) (history.Chain, error) {
	if maxLen <= 0 {
		maxLen = history.DefaultMaxChainLength
	}
	sorted := append([]Changeover(nil), changeovers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.After(sorted[j].Date) })

	// newest first while scanning
	chain := history.Chain{{Secid: secid}}
	seen := map[string]bool{secid: true}
	for _, co := range sorted {
		oldest := &chain[len(chain)-1]
		if co.NewSecid != oldest.Secid {
			continue
		}
		if seen[co.OldSecid] {
			return nil, fmt.Errorf("%w: %s was renamed back from %s on %s", history.ErrChainCycle, co.OldSecid, co.NewSecid, co.Date)
		}
		if len(chain) == maxLen {
			return nil, fmt.Errorf("%w: %s has more than %d identities", history.ErrChainTooLong, secid, maxLen)
		}
		seen[co.OldSecid] = true
		oldest.From = co.Date
		chain = append(chain, history.Identity{Secid: co.OldSecid, Till: co.Date})
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
