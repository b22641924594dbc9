package progress

import (
	"fmt"

	"wayfarer.game/internal/sim/feature/contracts/core"
	"wayfarer.game/internal/sim/kernel/model"
)

type CategoryReport struct {
	Completed []string `json:"completed,omitempty"`
	Remaining []string `json:"remaining,omitempty"`
}

type Report struct {
	ContractID      string         `json:"contract_id"`
	Destinations    CategoryReport `json:"destinations"`
	Transactions    CategoryReport `json:"transactions"`
	Conversations   CategoryReport `json:"conversations"`
	LocationActions CategoryReport `json:"location_actions"`
	Percent         int            `json:"percent"`
}

// BuildReport lists done and outstanding requirements per category. Each
// required id or transaction counts as one unit toward Percent.
func BuildReport(c *model.Contract) Report {
	r := Report{ContractID: c.ID}
	r.Destinations = splitIDs(c.Requirements.Destinations, c.Progress.Destinations)
	r.Conversations = splitIDs(c.Requirements.Conversations, c.Progress.Conversations)
	r.LocationActions = splitIDs(c.Requirements.LocationActions, c.Progress.LocationActions)
	for _, req := range c.Requirements.Transactions {
		have := core.TradedQuantity(req, c.Progress.Transactions)
		label := fmt.Sprintf("%s %s@%s %d/%d", req.Kind, req.ItemID, req.LocationID, min(have, req.MinQuantity), req.MinQuantity)
		if have >= req.MinQuantity {
			r.Transactions.Completed = append(r.Transactions.Completed, label)
		} else {
			r.Transactions.Remaining = append(r.Transactions.Remaining, label)
		}
	}

	done, total := 0, 0
	for _, cat := range []CategoryReport{r.Destinations, r.Transactions, r.Conversations, r.LocationActions} {
		done += len(cat.Completed)
		total += len(cat.Completed) + len(cat.Remaining)
	}
	switch {
	case c.Completed:
		r.Percent = 100
	case total > 0:
		r.Percent = done * 100 / total
	}
	return r
}

func splitIDs(required, done []string) CategoryReport {
	var out CategoryReport
	for _, id := range required {
		if model.Contains(done, id) {
			out.Completed = append(out.Completed, id)
		} else {
			out.Remaining = append(out.Remaining, id)
		}
	}
	return out
}
