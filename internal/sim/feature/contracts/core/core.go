package core

import (
	"fmt"
	"sort"
	"strings"

	"wayfarer.game/internal/sim/clock"
	"wayfarer.game/internal/sim/feature/contracts/reputation"
	"wayfarer.game/internal/sim/kernel/model"
)

const (
	CodeMalformed  = "E_MALFORMED"
	CodeBadRequest = "E_BAD_REQUEST"
)

// Validate rejects contract definitions that can never be completed or that
// carry inconsistent temporal/economic fields.
func Validate(c *model.Contract) (ok bool, code string, msg string) {
	if c == nil {
		return false, CodeBadRequest, "missing contract"
	}
	if strings.TrimSpace(c.ID) == "" {
		return false, CodeBadRequest, "missing contract id"
	}
	if c.Requirements.Categories() == 0 {
		return false, CodeMalformed, "no requirement categories"
	}
	if c.Payment <= 0 {
		return false, CodeBadRequest, "payment must be positive"
	}
	if c.StartDay < 1 {
		return false, CodeBadRequest, "start_day must be at least 1"
	}
	if c.DueDay < c.StartDay {
		return false, CodeBadRequest, "due_day before start_day"
	}
	for _, b := range c.AvailableBlocks {
		if !b.Valid() {
			return false, CodeBadRequest, fmt.Sprintf("unknown time block %q", b)
		}
	}
	if ok, msg := uniqueIDs("destination", c.Requirements.Destinations); !ok {
		return false, CodeMalformed, msg
	}
	if ok, msg := uniqueIDs("conversation", c.Requirements.Conversations); !ok {
		return false, CodeMalformed, msg
	}
	if ok, msg := uniqueIDs("location action", c.Requirements.LocationActions); !ok {
		return false, CodeMalformed, msg
	}
	seen := map[model.TransactionKey]bool{}
	for i, tr := range c.Requirements.Transactions {
		if tr.ItemID == "" || tr.LocationID == "" {
			return false, CodeMalformed, fmt.Sprintf("transaction %d: missing item or location", i)
		}
		if model.NormalizeTransactionKind(string(tr.Kind)) != tr.Kind || tr.Kind == "" {
			return false, CodeMalformed, fmt.Sprintf("transaction %d: bad kind %q", i, tr.Kind)
		}
		if tr.MinQuantity < 1 {
			return false, CodeMalformed, fmt.Sprintf("transaction %d: min_quantity must be at least 1", i)
		}
		if tr.MaxPrice > 0 && tr.MinPrice > tr.MaxPrice {
			return false, CodeMalformed, fmt.Sprintf("transaction %d: min_price above max_price", i)
		}
		if seen[tr.Key()] {
			return false, CodeMalformed, fmt.Sprintf("transaction %d: duplicate requirement", i)
		}
		seen[tr.Key()] = true
	}
	return true, "", ""
}

func uniqueIDs(what string, ids []string) (bool, string) {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return false, "empty " + what + " id"
		}
		if seen[id] {
			return false, "duplicate " + what + " " + id
		}
		seen[id] = true
	}
	return true, ""
}

// PriceAllowed reports whether a trade at unitPrice can count toward req.
func PriceAllowed(req model.TransactionRequirement, unitPrice int) bool {
	if req.MinPrice > 0 && unitPrice < req.MinPrice {
		return false
	}
	if req.MaxPrice > 0 && unitPrice > req.MaxPrice {
		return false
	}
	return true
}

// TradedQuantity sums the recorded trades credited to req.
func TradedQuantity(req model.TransactionRequirement, records []model.TransactionRecord) int {
	key := req.Key()
	total := 0
	for _, r := range records {
		if r.Key() == key {
			total += r.Quantity
		}
	}
	return total
}

func TransactionMet(req model.TransactionRequirement, records []model.TransactionRecord) bool {
	return TradedQuantity(req, records) >= req.MinQuantity
}

func containsAll(done []string, required []string) bool {
	for _, id := range required {
		if !model.Contains(done, id) {
			return false
		}
	}
	return true
}

// IsFullyCompleted holds iff every non-empty requirement category is covered
// by its progress. Empty categories are vacuously satisfied.
func IsFullyCompleted(c *model.Contract) bool {
	if c == nil || c.Requirements.Categories() == 0 {
		return false
	}
	if !containsAll(c.Progress.Destinations, c.Requirements.Destinations) {
		return false
	}
	for _, tr := range c.Requirements.Transactions {
		if !TransactionMet(tr, c.Progress.Transactions) {
			return false
		}
	}
	if !containsAll(c.Progress.Conversations, c.Requirements.Conversations) {
		return false
	}
	return containsAll(c.Progress.LocationActions, c.Requirements.LocationActions)
}

// IsAvailable reports whether the contract may be interacted with on day during block.
func IsAvailable(c *model.Contract, day int, block clock.TimeBlock) bool {
	if c == nil || c.Completed || c.Failed {
		return false
	}
	if day < c.StartDay || day > c.DueDay {
		return false
	}
	if len(c.AvailableBlocks) == 0 {
		return true
	}
	for _, b := range c.AvailableBlocks {
		if b == block {
			return true
		}
	}
	return false
}

type State string

const (
	StateProposed  State = "PROPOSED"
	StateActive    State = "ACTIVE"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
	StateSettled   State = "SETTLED"
)

// StateOf derives the lifecycle state; active reports membership in the
// player's active collection.
func StateOf(c *model.Contract, active bool) State {
	switch {
	case c.Failed:
		return StateFailed
	case c.Settled:
		return StateSettled
	case c.Completed:
		return StateCompleted
	case active:
		return StateActive
	default:
		return StateProposed
	}
}

type SweepDecision string

const (
	SweepNoop            SweepDecision = "NOOP"
	SweepFailOverdue     SweepDecision = "FAIL_OVERDUE"
	SweepImmuneCompleted SweepDecision = "IMMUNE_COMPLETED"
)

type SweepInput struct {
	Completed  bool
	Failed     bool
	DueDay     int
	CurrentDay int
}

func DecideSweep(in SweepInput) SweepDecision {
	if in.Failed {
		return SweepNoop
	}
	if in.DueDay >= in.CurrentDay {
		return SweepNoop
	}
	if in.Completed {
		return SweepImmuneCompleted
	}
	return SweepFailOverdue
}

type SettleInput struct {
	Payment           int
	DueDay            int
	SettleDay         int
	OnTimeBonus       int
	LatePenaltyPerDay int
}

type SettlementPlan struct {
	Payment         int
	ReputationDelta int
	DaysLate        int
}

// PlanSettlement pays in full regardless of lateness; only reputation varies.
func PlanSettlement(in SettleInput) SettlementPlan {
	p := SettlementPlan{Payment: in.Payment}
	p.ReputationDelta = reputation.SettlementDelta(in.SettleDay, in.DueDay, reputation.Rules{
		OnTimeBonus:       in.OnTimeBonus,
		LatePenaltyPerDay: in.LatePenaltyPerDay,
	})
	if in.SettleDay > in.DueDay {
		p.DaysLate = in.SettleDay - in.DueDay
	}
	return p
}

type SummaryInput struct {
	ContractID  string
	Description string
	State       State
	DueDay      int
	Payment     int
	Percent     int
}

func BuildSummaries(in []SummaryInput) []map[string]interface{} {
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool {
		return in[i].ContractID < in[j].ContractID
	})
	out := make([]map[string]interface{}, 0, len(in))
	for _, c := range in {
		out = append(out, map[string]interface{}{
			"contract_id": c.ContractID,
			"description": c.Description,
			"state":       string(c.State),
			"due_day":     c.DueDay,
			"payment":     c.Payment,
			"progress":    c.Percent,
		})
	}
	return out
}
