package progress

import (
	"strings"

	"wayfarer.game/internal/sim/feature/contracts/core"
	"wayfarer.game/internal/sim/kernel/model"
)

// LocationIndex is the read-only location collaborator.
type LocationIndex interface {
	HasLocation(id string) bool
}

// Trade is one completed buy or sell observed by the market.
type Trade struct {
	ItemID     string
	LocationID string
	Kind       model.TransactionKind
	Quantity   int
	UnitPrice  int
}

// Tracker matches completion actions against the requirements of active
// contracts. It holds no per-contract state: all progress lives on the
// contracts it is handed.
//
// Only the recorded requirements are consulted. How the player got somewhere,
// or what they carry, never gates completion.
type Tracker struct {
	// Locations rejects arrivals at unknown places. Nil accepts all.
	Locations LocationIndex
}

// OnArrival records locationID for every contract that requires it.
func (t Tracker) OnArrival(active []*model.Contract, locationID string) []*model.Contract {
	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return nil
	}
	if t.Locations != nil && !t.Locations.HasLocation(locationID) {
		return nil
	}
	return t.apply(active, func(c *model.Contract) bool {
		return markID(&c.Progress.Destinations, c.Requirements.Destinations, locationID)
	})
}

// OnConversation records npcID for every contract that requires it.
func (t Tracker) OnConversation(active []*model.Contract, npcID string) []*model.Contract {
	npcID = strings.TrimSpace(npcID)
	if npcID == "" {
		return nil
	}
	return t.apply(active, func(c *model.Contract) bool {
		return markID(&c.Progress.Conversations, c.Requirements.Conversations, npcID)
	})
}

// OnLocationAction records actionID for every contract that requires it.
func (t Tracker) OnLocationAction(active []*model.Contract, actionID string) []*model.Contract {
	actionID = strings.TrimSpace(actionID)
	if actionID == "" {
		return nil
	}
	return t.apply(active, func(c *model.Contract) bool {
		return markID(&c.Progress.LocationActions, c.Requirements.LocationActions, actionID)
	})
}

// OnTransaction credits tr to every unmet requirement with the same item,
// location and kind whose price window admits it. Partial trades accumulate
// toward MinQuantity.
func (t Tracker) OnTransaction(active []*model.Contract, tr Trade) []*model.Contract {
	kind := model.NormalizeTransactionKind(string(tr.Kind))
	if kind == "" || tr.Quantity <= 0 || tr.ItemID == "" || tr.LocationID == "" {
		return nil
	}
	rec := model.TransactionRecord{
		ItemID:     tr.ItemID,
		LocationID: tr.LocationID,
		Kind:       kind,
		Quantity:   tr.Quantity,
		UnitPrice:  tr.UnitPrice,
	}
	return t.apply(active, func(c *model.Contract) bool {
		for _, req := range c.Requirements.Transactions {
			if req.Key() != rec.Key() || !core.PriceAllowed(req, rec.UnitPrice) {
				continue
			}
			if core.TransactionMet(req, c.Progress.Transactions) {
				return false
			}
			c.Progress.Transactions = append(c.Progress.Transactions, rec)
			return true
		}
		return false
	})
}

// Reevaluate marks c completed when every requirement category is satisfied.
// It never clears a completion.
func (t Tracker) Reevaluate(c *model.Contract) bool {
	if c == nil {
		return false
	}
	if c.Completed || c.Failed {
		return c.Completed
	}
	if core.IsFullyCompleted(c) {
		c.Completed = true
	}
	return c.Completed
}

func (t Tracker) apply(active []*model.Contract, mark func(c *model.Contract) bool) []*model.Contract {
	var done []*model.Contract
	for _, c := range active {
		if c == nil || c.Terminal() {
			continue
		}
		if !mark(c) {
			continue
		}
		if t.Reevaluate(c) {
			done = append(done, c)
		}
	}
	return done
}

func markID(done *[]string, required []string, id string) bool {
	if !model.Contains(required, id) || model.Contains(*done, id) {
		return false
	}
	*done = append(*done, id)
	return true
}
