package model

import (
	"strings"

	"wayfarer.game/internal/sim/clock"
)

type TransactionKind string

const (
	TransactionBuy  TransactionKind = "BUY"
	TransactionSell TransactionKind = "SELL"
)

func NormalizeTransactionKind(k string) TransactionKind {
	switch kind := TransactionKind(strings.TrimSpace(strings.ToUpper(k))); kind {
	case TransactionBuy, TransactionSell:
		return kind
	default:
		return ""
	}
}

// TransactionRequirement asks for at least MinQuantity units of ItemID to be
// bought or sold at LocationID. A non-zero price bound restricts which trades
// count toward it.
type TransactionRequirement struct {
	ItemID      string          `json:"item_id"`
	LocationID  string          `json:"location_id"`
	Kind        TransactionKind `json:"kind"`
	MinQuantity int             `json:"min_quantity"`
	MinPrice    int             `json:"min_price,omitempty"`
	MaxPrice    int             `json:"max_price,omitempty"`
}

// Key identifies the requirement a trade can count toward.
func (r TransactionRequirement) Key() TransactionKey {
	return TransactionKey{ItemID: r.ItemID, LocationID: r.LocationID, Kind: r.Kind}
}

type TransactionKey struct {
	ItemID     string
	LocationID string
	Kind       TransactionKind
}

// TransactionRecord is one observed trade credited to a requirement.
type TransactionRecord struct {
	ItemID     string          `json:"item_id"`
	LocationID string          `json:"location_id"`
	Kind       TransactionKind `json:"kind"`
	Quantity   int             `json:"quantity"`
	UnitPrice  int             `json:"unit_price"`
}

func (r TransactionRecord) Key() TransactionKey {
	return TransactionKey{ItemID: r.ItemID, LocationID: r.LocationID, Kind: r.Kind}
}

type Requirements struct {
	Destinations    []string                 `json:"destinations,omitempty"`
	Transactions    []TransactionRequirement `json:"transactions,omitempty"`
	Conversations   []string                 `json:"conversations,omitempty"`
	LocationActions []string                 `json:"location_actions,omitempty"`
}

// Categories counts the non-empty requirement categories.
func (r Requirements) Categories() int {
	n := 0
	if len(r.Destinations) > 0 {
		n++
	}
	if len(r.Transactions) > 0 {
		n++
	}
	if len(r.Conversations) > 0 {
		n++
	}
	if len(r.LocationActions) > 0 {
		n++
	}
	return n
}

type InformationRequirement struct {
	Type         string `json:"type"`
	MinQuality   int    `json:"min_quality"`
	MinFreshness int    `json:"min_freshness"`
}

// Eligibility gates who may accept a contract. It plays no part in completion.
type Eligibility struct {
	EquipmentCategories []string                 `json:"equipment_categories,omitempty"`
	ToolCategories      []string                 `json:"tool_categories,omitempty"`
	MinSocialStanding   int                      `json:"min_social_standing,omitempty"`
	PhysicalDemand      int                      `json:"physical_demand,omitempty"`
	MinKnowledge        int                      `json:"min_knowledge,omitempty"`
	Information         []InformationRequirement `json:"information,omitempty"`
}

// Progress holds what the player has done toward the requirements. Only the
// progression tracker writes to it.
type Progress struct {
	Destinations    []string            `json:"destinations,omitempty"`
	Transactions    []TransactionRecord `json:"transactions,omitempty"`
	Conversations   []string            `json:"conversations,omitempty"`
	LocationActions []string            `json:"location_actions,omitempty"`
}

type Contract struct {
	ID          string `json:"id"`
	Description string `json:"description"`

	Requirements Requirements `json:"requirements"`
	Eligibility  Eligibility  `json:"eligibility"`

	StartDay        int               `json:"start_day"`
	DueDay          int               `json:"due_day"`
	AvailableBlocks []clock.TimeBlock `json:"available_blocks,omitempty"`

	Payment        int    `json:"payment"`
	FailurePenalty string `json:"failure_penalty,omitempty"`

	// Follow-on effects applied when the contract is settled.
	UnlocksContractIDs []string `json:"unlocks,omitempty"`
	LocksContractIDs   []string `json:"locks,omitempty"`

	Progress Progress `json:"-"`

	Completed    bool `json:"-"`
	Failed       bool `json:"-"`
	Settled      bool `json:"-"`
	AcceptedDay  int  `json:"-"`
	CompletedDay int  `json:"-"`
}

// Terminal reports whether the contract can no longer make progress.
func (c *Contract) Terminal() bool { return c.Completed || c.Failed }

// Clone returns a deep copy so catalog definitions stay untouched by play.
func (c *Contract) Clone() *Contract {
	if c == nil {
		return nil
	}
	out := *c
	out.Requirements = Requirements{
		Destinations:    cloneStrings(c.Requirements.Destinations),
		Transactions:    append([]TransactionRequirement(nil), c.Requirements.Transactions...),
		Conversations:   cloneStrings(c.Requirements.Conversations),
		LocationActions: cloneStrings(c.Requirements.LocationActions),
	}
	out.Eligibility.EquipmentCategories = cloneStrings(c.Eligibility.EquipmentCategories)
	out.Eligibility.ToolCategories = cloneStrings(c.Eligibility.ToolCategories)
	out.Eligibility.Information = append([]InformationRequirement(nil), c.Eligibility.Information...)
	out.AvailableBlocks = append([]clock.TimeBlock(nil), c.AvailableBlocks...)
	out.UnlocksContractIDs = cloneStrings(c.UnlocksContractIDs)
	out.LocksContractIDs = cloneStrings(c.LocksContractIDs)
	out.Progress = Progress{
		Destinations:    cloneStrings(c.Progress.Destinations),
		Transactions:    append([]TransactionRecord(nil), c.Progress.Transactions...),
		Conversations:   cloneStrings(c.Progress.Conversations),
		LocationActions: cloneStrings(c.Progress.LocationActions),
	}
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

// Contains is a linear membership test; requirement lists are short.
func Contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
