package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"wayfarer.game/internal/sim/catalogs"
	"wayfarer.game/internal/sim/clock"
	"wayfarer.game/internal/sim/feature/contracts/audit"
	"wayfarer.game/internal/sim/feature/contracts/core"
	"wayfarer.game/internal/sim/feature/contracts/eligibility"
	"wayfarer.game/internal/sim/feature/contracts/lifecycle"
	"wayfarer.game/internal/sim/feature/contracts/progress"
	"wayfarer.game/internal/sim/kernel/model"
	"wayfarer.game/internal/sim/tuning"
)

var ErrNoCatalogs = errors.New("session: catalogs required")

type Config struct {
	ID         string
	PlayerName string

	Tuning   tuning.Tuning
	Catalogs *catalogs.Catalogs

	StartingItems map[string]int
	Information   []Information

	Audit AuditSink
	Days  DaySink
}

// Result reports the effect of a progression action or time spend.
type Result struct {
	OK        bool     `json:"ok"`
	Code      string   `json:"code,omitempty"`
	Message   string   `json:"message,omitempty"`
	Completed []string `json:"completed,omitempty"`
	Failed    []string `json:"failed,omitempty"`
}

// Session is one player's game: it owns the clock, the wallet and the active
// contract collection. It has a single writer and no locking.
type Session struct {
	id         string
	playerName string

	cats    *catalogs.Catalogs
	clock   *clock.Clock
	wallet  *Wallet
	pack    Pack
	active  *lifecycle.ActiveSet
	offers  []*model.Contract
	history []*model.Contract
	locked  map[string]bool

	tracker  progress.Tracker
	manager  *lifecycle.Manager
	messages *MessageLog

	location string

	audit AuditSink
	days  DaySink
	seq   uint64

	failedToday  int
	settledToday int
}

func New(cfg Config) (*Session, error) {
	if cfg.Catalogs == nil {
		return nil, ErrNoCatalogs
	}
	t := cfg.Tuning
	if t == (tuning.Tuning{}) {
		t = tuning.Defaults()
	}
	if t.StartDay <= 0 {
		t.StartDay = tuning.Defaults().StartDay
	}
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	s := &Session{
		id:         id,
		playerName: cfg.PlayerName,
		cats:       cfg.Catalogs,
		clock:      clock.New(t.StartDay, t.StartHour),
		wallet:     &Wallet{Coins: t.StartingCoins, Reputation: t.StartingReputation},
		pack:       Pack{},
		active:     &lifecycle.ActiveSet{},
		locked:     map[string]bool{},
		tracker:    progress.Tracker{Locations: cfg.Catalogs},
		messages:   NewMessageLog(t.MessageBacklog),
		audit:      cfg.Audit,
		days:       cfg.Days,
	}
	for item, n := range cfg.StartingItems {
		s.pack.apply(item, n)
	}

	player := &eligibility.Player{
		Inventory:  s.pack,
		Categories: cfg.Catalogs,
		Profile: &profile{
			baseStanding: t.Player.SocialStanding,
			stamina:      t.Player.Stamina,
			knowledge:    t.Player.Knowledge,
			wallet:       s.wallet,
			info:         append([]Information(nil), cfg.Information...),
		},
	}
	s.manager = &lifecycle.Manager{
		Clock:    s.clock,
		Active:   s.active,
		Bank:     s.wallet,
		Messages: s.messages,
		Rules:    t.Reputation,
		Player:   player,
		Hooks: lifecycle.Hooks{
			OnAccepted: s.onAccepted,
			OnSettled:  s.onSettled,
			OnFailed:   s.onFailed,
		},
	}

	gated := map[string]bool{}
	for _, id := range cfg.Catalogs.Contracts.Order {
		for _, u := range cfg.Catalogs.Contracts.ByID[id].UnlocksContractIDs {
			gated[u] = true
		}
	}
	for _, c := range cfg.Catalogs.Proposals() {
		if !gated[c.ID] {
			s.offers = append(s.offers, c)
		}
	}
	return s, nil
}

func (s *Session) ID() string { return s.id }

// Clock exposes only the presentation-safe clock view.
func (s *Session) Clock() clock.Display { return s.clock }

func (s *Session) Location() string { return s.location }

// Accept takes the offer with the given id.
func (s *Session) Accept(contractID string) (lifecycle.Decision, error) {
	c := s.lookup(contractID)
	day := s.clock.CurrentDay()
	d, err := s.manager.Accept(c)
	if d.OK {
		s.offers = removeContract(s.offers, c.ID)
	}
	s.afterTimeMoved(day)
	return d, err
}

// TurnIn settles an active, completed contract by id.
func (s *Session) TurnIn(contractID string) (lifecycle.Decision, error) {
	c := s.lookup(contractID)
	day := s.clock.CurrentDay()
	d, err := s.manager.Settle(c)
	if d.OK {
		s.history = append(s.history, c)
		s.applyFollowOns(c)
	}
	s.afterTimeMoved(day)
	return d, err
}

func (s *Session) Arrive(locationID string) Result {
	locationID = strings.TrimSpace(locationID)
	if locationID == "" || !s.cats.HasLocation(locationID) {
		return Result{Code: "E_INVALID_TARGET", Message: fmt.Sprintf("unknown location %q", locationID)}
	}
	s.location = locationID
	return s.progressed("ARRIVE", s.tracker.OnArrival(s.active.List(), locationID))
}

// Trade records a completed market trade. An empty location means the
// player's current location.
func (s *Session) Trade(tr progress.Trade) Result {
	if tr.LocationID == "" {
		tr.LocationID = s.location
	}
	tr.Kind = model.NormalizeTransactionKind(string(tr.Kind))
	switch {
	case tr.Kind == "":
		return Result{Code: "E_BAD_REQUEST", Message: "bad trade kind"}
	case tr.ItemID == "" || tr.Quantity <= 0:
		return Result{Code: "E_BAD_REQUEST", Message: "bad trade"}
	case tr.LocationID == "" || !s.cats.HasLocation(tr.LocationID):
		return Result{Code: "E_INVALID_TARGET", Message: fmt.Sprintf("unknown market %q", tr.LocationID)}
	}
	if tr.Kind == model.TransactionBuy {
		s.pack.apply(tr.ItemID, tr.Quantity)
	} else {
		s.pack.apply(tr.ItemID, -tr.Quantity)
	}
	return s.progressed("TRADE", s.tracker.OnTransaction(s.active.List(), tr))
}

func (s *Session) Converse(npcID string) Result {
	if strings.TrimSpace(npcID) == "" {
		return Result{Code: "E_BAD_REQUEST", Message: "missing npc_id"}
	}
	return s.progressed("CONVERSE", s.tracker.OnConversation(s.active.List(), npcID))
}

func (s *Session) PerformAction(actionID string) Result {
	if strings.TrimSpace(actionID) == "" {
		return Result{Code: "E_BAD_REQUEST", Message: "missing action_id"}
	}
	return s.progressed("LOCATION_ACTION", s.tracker.OnLocationAction(s.active.List(), actionID))
}

// Spend consumes n blocks on behalf of another system (travel, work). Asking
// for more than remains is a caller error and leaves the clock unchanged.
func (s *Session) Spend(n int) (Result, error) {
	day := s.clock.CurrentDay()
	if err := s.clock.AdvanceBlocks(n); err != nil {
		return Result{}, fmt.Errorf("spend %d blocks: %w", n, err)
	}
	s.record(audit.ActorPlayer, "SPEND_BLOCKS", "", "", map[string]any{"blocks": n})
	failed := s.afterTimeMoved(day)
	return Result{OK: true, Failed: failed}, nil
}

// Rest ends the day.
func (s *Session) Rest() Result {
	day := s.clock.CurrentDay()
	s.clock.Sleep()
	s.record(audit.ActorPlayer, "REST", "", "", nil)
	failed := s.afterTimeMoved(day)
	return Result{OK: true, Message: fmt.Sprintf("Day %d begins.", s.clock.CurrentDay()), Failed: failed}
}

// CanAct reports whether a block-consuming action is possible today. It is
// for game logic; views never carry it.
func (s *Session) CanAct() bool { return s.clock.CanAct() }

func (s *Session) Progress(contractID string) (progress.Report, bool) {
	c := s.lookup(contractID)
	if c == nil {
		return progress.Report{}, false
	}
	return progress.BuildReport(c), true
}

func (s *Session) DrainMessages() []lifecycle.Message { return s.messages.Drain() }

func (s *Session) Wallet() Wallet { return *s.wallet }

func (s *Session) HasItem(id string) bool { return s.pack.HasItem(id) }

func (s *Session) lookup(id string) *model.Contract {
	if c := s.active.Get(id); c != nil {
		return c
	}
	for _, c := range s.offers {
		if c.ID == id {
			return c
		}
	}
	for _, c := range s.history {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *Session) progressed(trigger string, done []*model.Contract) Result {
	r := Result{OK: true}
	day := s.clock.CurrentDay()
	for _, c := range done {
		c.CompletedDay = day
		r.Completed = append(r.Completed, c.ID)
		s.messages.Post(lifecycle.Message{
			Day:      day,
			Category: lifecycle.CategorySystem,
			Text:     fmt.Sprintf("Contract '%s' is ready to turn in.", c.Description),
		})
		s.record(audit.ActorPlayer, audit.EventComplete, c.ID, trigger, audit.BuildCompleteAuditFields(c.ID, day, c.DueDay, trigger))
	}
	return r
}

// afterTimeMoved runs the deadline sweep once when the calendar moved past
// prevDay. Progression for the action has already been applied.
func (s *Session) afterTimeMoved(prevDay int) []string {
	day := s.clock.CurrentDay()
	if day == prevDay {
		return nil
	}
	s.recordDay(prevDay)
	var ids []string
	for _, c := range s.manager.SweepDeadlines(day) {
		s.history = append(s.history, c)
		ids = append(ids, c.ID)
	}
	return ids
}

func (s *Session) recordDay(day int) {
	summary := DaySummary{
		SessionID:  s.id,
		Day:        day,
		Active:     s.active.Len(),
		Failed:     s.failedToday,
		Settled:    s.settledToday,
		Coins:      s.wallet.Coins,
		Reputation: s.wallet.Reputation,
	}
	s.failedToday, s.settledToday = 0, 0
	if s.days != nil {
		_ = s.days.RecordDay(summary)
	}
}

func (s *Session) applyFollowOns(c *model.Contract) {
	for _, id := range c.LocksContractIDs {
		s.locked[id] = true
		s.offers = removeContract(s.offers, id)
	}
	for _, id := range c.UnlocksContractIDs {
		if s.locked[id] || s.lookup(id) != nil {
			continue
		}
		def, ok := s.cats.Contracts.ByID[id]
		if !ok {
			continue
		}
		s.offers = append(s.offers, def.Clone())
		s.messages.Post(lifecycle.Message{
			Day:      s.clock.CurrentDay(),
			Category: lifecycle.CategorySystem,
			Text:     fmt.Sprintf("New contract offered: '%s'.", def.Description),
		})
	}
}

func (s *Session) onAccepted(o lifecycle.Outcome) {
	s.recordAt(o.Day, audit.ActorPlayer, audit.EventAccept, o.Contract.ID, "",
		audit.BuildAcceptAuditFields(o.Contract.ID, o.Day, o.Contract.DueDay, o.Contract.Payment))
}

func (s *Session) onSettled(o lifecycle.Outcome) {
	s.settledToday++
	s.recordAt(o.Day, audit.ActorPlayer, audit.EventSettle, o.Contract.ID, "",
		audit.BuildSettleAuditFields(o.Contract.ID, o.Day, o.Contract.DueDay, o.Decision.Payment, o.Decision.ReputationDelta, o.Decision.DaysLate))
}

func (s *Session) onFailed(o lifecycle.Outcome) {
	s.failedToday++
	out := audit.BuildSweepAudit(audit.SweepAuditInput{
		Decision:        core.SweepFailOverdue,
		ContractID:      o.Contract.ID,
		Description:     o.Contract.Description,
		DueDay:          o.Contract.DueDay,
		Day:             o.Day,
		ReputationDelta: o.Decision.ReputationDelta,
		Penalty:         o.Contract.FailurePenalty,
	})
	if out.ShouldAudit {
		s.recordAt(o.Day, out.Actor, out.EventType, o.Contract.ID, out.Reason, out.Fields)
	}
}

func (s *Session) record(actor, action, contractID, reason string, details map[string]any) {
	s.recordAt(s.clock.CurrentDay(), actor, action, contractID, reason, details)
}

func (s *Session) recordAt(day int, actor, action, contractID, reason string, details map[string]any) {
	if s.audit == nil {
		return
	}
	s.seq++
	_ = s.audit.WriteAudit(AuditEntry{
		ID:         uuid.NewString(),
		SessionID:  s.id,
		Seq:        s.seq,
		Day:        day,
		Hour:       s.clock.CurrentHour(),
		Actor:      actor,
		Action:     action,
		ContractID: contractID,
		Reason:     reason,
		Details:    details,
	})
}

func removeContract(list []*model.Contract, id string) []*model.Contract {
	out := list[:0]
	for _, c := range list {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}
