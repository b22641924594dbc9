package session

import (
	"wayfarer.game/internal/sim/clock"
	"wayfarer.game/internal/sim/feature/contracts/core"
	"wayfarer.game/internal/sim/feature/contracts/lifecycle"
	"wayfarer.game/internal/sim/feature/contracts/progress"
	"wayfarer.game/internal/sim/feature/contracts/reputation"
	"wayfarer.game/internal/sim/kernel/model"
)

// Offer is a proposed contract as the player sees it.
type Offer struct {
	ContractID  string            `json:"contract_id"`
	Description string            `json:"description"`
	StartDay    int               `json:"start_day"`
	DueDay      int               `json:"due_day"`
	Payment     int               `json:"payment"`
	TimeBlocks  []clock.TimeBlock `json:"time_blocks,omitempty"`
	Available   bool              `json:"available"`
}

// ContractView is an accepted contract with its progress.
type ContractView struct {
	ContractID  string          `json:"contract_id"`
	Description string          `json:"description"`
	State       core.State      `json:"state"`
	DueDay      int             `json:"due_day"`
	Payment     int             `json:"payment"`
	Progress    progress.Report `json:"progress"`
}

// View is the presentation-safe snapshot of a session. It carries the clock
// time but never the daily action budget.
type View struct {
	SessionID  string                   `json:"session_id"`
	Player     string                   `json:"player,omitempty"`
	Clock      clock.State              `json:"clock"`
	Location   string                   `json:"location,omitempty"`
	Coins      int                      `json:"coins"`
	Reputation int                      `json:"reputation"`
	Standing   string                   `json:"standing"`
	Offers     []Offer                  `json:"offers,omitempty"`
	Active     []ContractView           `json:"active,omitempty"`
	Contracts  []map[string]interface{} `json:"contracts,omitempty"`
	Messages   []lifecycle.Message      `json:"messages,omitempty"`
}

// Offers lists proposals whose deadline has not passed.
func (s *Session) Offers() []Offer {
	day := s.clock.CurrentDay()
	var out []Offer
	for _, c := range s.offers {
		if c.DueDay < day {
			continue
		}
		out = append(out, Offer{
			ContractID:  c.ID,
			Description: c.Description,
			StartDay:    c.StartDay,
			DueDay:      c.DueDay,
			Payment:     c.Payment,
			TimeBlocks:  append([]clock.TimeBlock(nil), c.AvailableBlocks...),
			Available:   s.manager.IsAvailable(c),
		})
	}
	return out
}

func (s *Session) Active() []ContractView {
	var out []ContractView
	for _, c := range s.active.List() {
		out = append(out, contractView(c, true))
	}
	return out
}

func contractView(c *model.Contract, active bool) ContractView {
	return ContractView{
		ContractID:  c.ID,
		Description: c.Description,
		State:       core.StateOf(c, active),
		DueDay:      c.DueDay,
		Payment:     c.Payment,
		Progress:    progress.BuildReport(c),
	}
}

func (s *Session) View() View {
	v := View{
		SessionID:  s.id,
		Player:     s.playerName,
		Clock:      clock.SnapshotOf(s.Clock()),
		Location:   s.location,
		Coins:      s.wallet.Coins,
		Reputation: s.wallet.Reputation,
		Standing:   reputation.Standing(s.wallet.Reputation),
		Offers:     s.Offers(),
		Active:     s.Active(),
		Messages:   s.messages.Peek(),
	}
	var rows []core.SummaryInput
	for _, c := range s.active.List() {
		rows = append(rows, summaryRow(c, true))
	}
	for _, c := range s.history {
		rows = append(rows, summaryRow(c, false))
	}
	v.Contracts = core.BuildSummaries(rows)
	return v
}

func summaryRow(c *model.Contract, active bool) core.SummaryInput {
	return core.SummaryInput{
		ContractID:  c.ID,
		Description: c.Description,
		State:       core.StateOf(c, active),
		DueDay:      c.DueDay,
		Payment:     c.Payment,
		Percent:     progress.BuildReport(c).Percent,
	}
}
