package lifecycle

import (
	"fmt"
	"strings"

	"wayfarer.game/internal/sim/clock"
	"wayfarer.game/internal/sim/feature/contracts/core"
	"wayfarer.game/internal/sim/feature/contracts/eligibility"
	"wayfarer.game/internal/sim/feature/contracts/reputation"
	"wayfarer.game/internal/sim/kernel/model"
)

const (
	CodeNoBudget      = "E_NO_BUDGET"
	CodeNotAvailable  = "E_NOT_AVAILABLE"
	CodeIneligible    = "E_INELIGIBLE"
	CodeNotCompleted  = "E_NOT_COMPLETED"
	CodeTerminal      = "E_TERMINAL"
	CodeNotActive     = "E_NOT_ACTIVE"
	CodeAlreadyActive = "E_ALREADY_ACTIVE"
	CodeInvalidTarget = "E_INVALID_TARGET"
)

const CategorySystem = "SYSTEM"

// Clock is the part of the game clock the manager drives.
type Clock interface {
	clock.Display
	CanAct() bool
	AdvanceBlocks(n int) error
}

// Bank is the player resource collaborator. It is only touched by Settle and
// SweepDeadlines.
type Bank interface {
	AddCoins(n int)
	AdjustReputation(delta int)
}

type Message struct {
	Day      int    `json:"day"`
	Category string `json:"category"`
	Text     string `json:"text"`
}

type Messages interface {
	Post(m Message)
}

// Decision is the outcome of Accept or Settle. Denials carry a code and leave
// every collaborator untouched.
type Decision struct {
	OK              bool   `json:"ok"`
	Code            string `json:"code,omitempty"`
	Reason          string `json:"reason,omitempty"`
	Message         string `json:"message,omitempty"`
	ReputationDelta int    `json:"reputation_delta,omitempty"`
	Payment         int    `json:"payment,omitempty"`
	DaysLate        int    `json:"days_late,omitempty"`
}

func deny(code, reason string) Decision {
	return Decision{Code: code, Reason: reason}
}

type Outcome struct {
	Contract *model.Contract
	Decision Decision
	Day      int
}

type Hooks struct {
	OnAccepted func(Outcome)
	OnSettled  func(Outcome)
	OnFailed   func(Outcome)
}

type Manager struct {
	Clock    Clock
	Active   Collection
	Bank     Bank
	Messages Messages
	Rules    reputation.Rules
	// Player is consulted on Accept when set.
	Player *eligibility.Player
	Hooks  Hooks
}

func (m *Manager) IsAvailable(c *model.Contract) bool {
	return core.IsAvailable(c, m.Clock.CurrentDay(), m.Clock.CurrentTimeBlock())
}

// Accept moves a proposed contract into the active collection, spending one
// block. The returned error is non-nil only when the clock rejects the block.
func (m *Manager) Accept(c *model.Contract) (Decision, error) {
	if c == nil {
		return deny(CodeInvalidTarget, "contract not found"), nil
	}
	if c.Terminal() || c.Settled {
		return deny(CodeTerminal, "contract already closed"), nil
	}
	if m.Active.Get(c.ID) != nil {
		return deny(CodeAlreadyActive, "contract already accepted"), nil
	}
	if !m.IsAvailable(c) {
		return deny(CodeNotAvailable, availabilityReason(c, m.Clock)), nil
	}
	if m.Player != nil {
		if ok, _, msg := eligibility.Check(c, *m.Player); !ok {
			return deny(CodeIneligible, msg), nil
		}
	}
	if !m.Clock.CanAct() {
		return deny(CodeNoBudget, "no time left today"), nil
	}

	day := m.Clock.CurrentDay()
	if err := m.Clock.AdvanceBlocks(1); err != nil {
		return deny(CodeNoBudget, "no time left today"), fmt.Errorf("accept %s: %w", c.ID, err)
	}
	c.AcceptedDay = day
	m.Active.Add(c)

	d := Decision{OK: true, Message: fmt.Sprintf("Accepted '%s'. Due by day %d.", c.Description, c.DueDay)}
	if m.Hooks.OnAccepted != nil {
		m.Hooks.OnAccepted(Outcome{Contract: c, Decision: d, Day: day})
	}
	return d, nil
}

// Settle pays out a completed contract and applies the reputation effect of
// its timing. Payment never depends on lateness.
func (m *Manager) Settle(c *model.Contract) (Decision, error) {
	if c == nil {
		return deny(CodeInvalidTarget, "contract not found"), nil
	}
	if c.Failed || c.Settled {
		return deny(CodeTerminal, "contract already closed"), nil
	}
	if m.Active.Get(c.ID) == nil {
		return deny(CodeNotActive, "contract not accepted"), nil
	}
	if !c.Completed {
		return deny(CodeNotCompleted, "requirements not met"), nil
	}
	if !m.Clock.CanAct() {
		return deny(CodeNoBudget, "no time left today"), nil
	}

	day := m.Clock.CurrentDay()
	if err := m.Clock.AdvanceBlocks(1); err != nil {
		return deny(CodeNoBudget, "no time left today"), fmt.Errorf("settle %s: %w", c.ID, err)
	}
	plan := core.PlanSettlement(core.SettleInput{
		Payment:           c.Payment,
		DueDay:            c.DueDay,
		SettleDay:         day,
		OnTimeBonus:       m.Rules.OnTimeBonus,
		LatePenaltyPerDay: m.Rules.LatePenaltyPerDay,
	})
	m.Bank.AddCoins(plan.Payment)
	m.Bank.AdjustReputation(plan.ReputationDelta)
	c.Settled = true
	m.Active.Remove(c.ID)

	d := Decision{
		OK:              true,
		Message:         settlementMessage(c, plan),
		ReputationDelta: plan.ReputationDelta,
		Payment:         plan.Payment,
		DaysLate:        plan.DaysLate,
	}
	m.post(day, d.Message)
	if m.Hooks.OnSettled != nil {
		m.Hooks.OnSettled(Outcome{Contract: c, Decision: d, Day: day})
	}
	return d, nil
}

// SweepDeadlines fails every active, incomplete contract whose due day is
// before day. Completed contracts stay active until settled.
func (m *Manager) SweepDeadlines(day int) []*model.Contract {
	var failed []*model.Contract
	for _, c := range m.Active.List() {
		switch core.DecideSweep(core.SweepInput{
			Completed:  c.Completed,
			Failed:     c.Failed,
			DueDay:     c.DueDay,
			CurrentDay: day,
		}) {
		case core.SweepFailOverdue:
			c.Failed = true
			delta := reputation.FailureDelta(m.Rules)
			m.Bank.AdjustReputation(delta)
			m.Active.Remove(c.ID)
			msg := FailureMessage(c)
			m.post(day, msg)
			failed = append(failed, c)
			if m.Hooks.OnFailed != nil {
				m.Hooks.OnFailed(Outcome{
					Contract: c,
					Decision: Decision{Code: "DEADLINE", Reason: "deadline passed", Message: msg, ReputationDelta: delta},
					Day:      day,
				})
			}
		}
	}
	return failed
}

func FailureMessage(c *model.Contract) string {
	penalty := strings.TrimSpace(c.FailurePenalty)
	if penalty == "" {
		penalty = "reputation loss"
	}
	return fmt.Sprintf("Contract '%s' failed: deadline day %d passed. Penalty: %s", c.Description, c.DueDay, penalty)
}

func settlementMessage(c *model.Contract, p core.SettlementPlan) string {
	if p.DaysLate > 0 {
		return fmt.Sprintf("Contract '%s' settled %d day(s) late: +%d coins, reputation %d", c.Description, p.DaysLate, p.Payment, p.ReputationDelta)
	}
	return fmt.Sprintf("Contract '%s' settled: +%d coins, reputation %+d", c.Description, p.Payment, p.ReputationDelta)
}

func availabilityReason(c *model.Contract, d clock.Display) string {
	day := d.CurrentDay()
	switch {
	case day < c.StartDay:
		return fmt.Sprintf("not offered until day %d", c.StartDay)
	case day > c.DueDay:
		return "deadline passed"
	default:
		return fmt.Sprintf("not offered during %s", strings.ToLower(string(d.CurrentTimeBlock())))
	}
}

func (m *Manager) post(day int, text string) {
	if m.Messages == nil {
		return
	}
	m.Messages.Post(Message{Day: day, Category: CategorySystem, Text: text})
}
