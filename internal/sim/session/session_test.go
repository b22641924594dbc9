package session

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"wayfarer.game/internal/sim/catalogs"
	"wayfarer.game/internal/sim/clock"
	"wayfarer.game/internal/sim/feature/contracts/lifecycle"
	"wayfarer.game/internal/sim/feature/contracts/progress"
	"wayfarer.game/internal/sim/kernel/model"
	"wayfarer.game/internal/sim/tuning"
)

type memorySink struct {
	entries []AuditEntry
	days    []DaySummary
}

func (m *memorySink) WriteAudit(e AuditEntry) error { m.entries = append(m.entries, e); return nil }
func (m *memorySink) RecordDay(d DaySummary) error  { m.days = append(m.days, d); return nil }

func (m *memorySink) actions() []string {
	var out []string
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

func testCatalogs() *catalogs.Catalogs {
	contracts := []*model.Contract{
		{
			ID:                 "c_ironhold",
			Description:        "Scout Ironhold",
			Requirements:       model.Requirements{Destinations: []string{"ironhold"}},
			StartDay:           1,
			DueDay:             5,
			Payment:            15,
			UnlocksContractIDs: []string{"c_escort"},
			LocksContractIDs:   []string{"c_rival"},
		},
		{
			ID:          "c_herbs",
			Description: "Sell herbs at the town square",
			Requirements: model.Requirements{
				Destinations: []string{"town_square"},
				Transactions: []model.TransactionRequirement{
					{ItemID: "herbs", LocationID: "town_square", Kind: model.TransactionSell, MinQuantity: 3},
				},
			},
			StartDay:       1,
			DueDay:         2,
			Payment:        20,
			FailurePenalty: "The herbalist will not trade with you again",
		},
		{
			ID:           "c_rival",
			Description:  "Spy for the rival guild",
			Requirements: model.Requirements{Conversations: []string{"marco"}},
			StartDay:     1,
			DueDay:       9,
			Payment:      50,
		},
		{
			ID:           "c_escort",
			Description:  "Escort the caravan",
			Requirements: model.Requirements{LocationActions: []string{"escort"}},
			Eligibility:  model.Eligibility{EquipmentCategories: []string{"weapon"}},
			StartDay:     1,
			DueDay:       9,
			Payment:      60,
		},
	}
	c := &catalogs.Catalogs{}
	c.Contracts.ByID = map[string]*model.Contract{}
	for _, k := range contracts {
		c.Contracts.ByID[k.ID] = k
		c.Contracts.Order = append(c.Contracts.Order, k.ID)
	}
	c.Locations.Defs = map[string]catalogs.LocationDef{
		"millbrook":   {ID: "millbrook"},
		"ironhold":    {ID: "ironhold"},
		"town_square": {ID: "town_square"},
	}
	c.Items.Defs = map[string]catalogs.ItemDef{"sword": {ID: "sword", Categories: []string{"weapon"}}}
	c.Items.ByCategory = map[string][]string{"weapon": {"sword"}}
	return c
}

func newTestSession(t *testing.T) (*Session, *memorySink) {
	t.Helper()
	sink := &memorySink{}
	s, err := New(Config{
		ID:       "s1",
		Tuning:   tuning.Defaults(),
		Catalogs: testCatalogs(),
		Audit:    sink,
		Days:     sink,
	})
	require.NoError(t, err)
	return s, sink
}

func offerIDs(s *Session) []string {
	var ids []string
	for _, o := range s.Offers() {
		ids = append(ids, o.ContractID)
	}
	return ids
}

func TestNewRequiresCatalogs(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, ErrNoCatalogs)
}

func TestNewKeepsTuningWithoutStartDay(t *testing.T) {
	tun := tuning.Defaults()
	tun.StartDay = 0
	tun.StartHour = 0
	tun.StartingCoins = 77
	s, err := New(Config{Tuning: tun, Catalogs: testCatalogs()})
	require.NoError(t, err)
	require.Equal(t, 1, s.Clock().CurrentDay())
	require.Equal(t, 0, s.Clock().CurrentHour())
	require.Equal(t, 77, s.Wallet().Coins)
}

func TestUnlockedContractsStartHidden(t *testing.T) {
	s, _ := newTestSession(t)
	require.Equal(t, []string{"c_ironhold", "c_herbs", "c_rival"}, offerIDs(s))
}

func TestScoutIronholdEndToEnd(t *testing.T) {
	s, sink := newTestSession(t)

	d, err := s.Accept("c_ironhold")
	require.NoError(t, err)
	require.True(t, d.OK, d.Reason)
	require.NotContains(t, offerIDs(s), "c_ironhold")

	res := s.Arrive("ironhold")
	require.True(t, res.OK)
	require.Equal(t, []string{"c_ironhold"}, res.Completed)

	d, err = s.TurnIn("c_ironhold")
	require.NoError(t, err)
	require.True(t, d.OK, d.Reason)
	require.Equal(t, 15, d.Payment)
	require.Equal(t, 1, d.ReputationDelta)

	w := s.Wallet()
	require.Equal(t, tuning.Defaults().StartingCoins+15, w.Coins)
	require.Equal(t, 1, w.Reputation)

	// Follow-ons: the escort is offered, the rival job is withdrawn.
	require.Contains(t, offerIDs(s), "c_escort")
	require.NotContains(t, offerIDs(s), "c_rival")

	require.Equal(t, []string{"CONTRACT_ACCEPT", "CONTRACT_COMPLETE", "CONTRACT_SETTLE"}, sink.actions())
	for i, e := range sink.entries {
		require.Equal(t, uint64(i+1), e.Seq)
		require.Equal(t, "s1", e.SessionID)
		require.NotEmpty(t, e.ID)
	}

	d, err = s.TurnIn("c_ironhold")
	require.NoError(t, err)
	require.Equal(t, lifecycle.CodeTerminal, d.Code)
}

func TestEscortNeedsWeapon(t *testing.T) {
	s, _ := newTestSession(t)
	_, _ = s.Accept("c_ironhold")
	s.Arrive("ironhold")
	_, _ = s.TurnIn("c_ironhold")

	d, err := s.Accept("c_escort")
	require.NoError(t, err)
	require.Equal(t, lifecycle.CodeIneligible, d.Code)

	require.True(t, s.Trade(progress.Trade{ItemID: "sword", LocationID: "ironhold", Kind: "buy", Quantity: 1, UnitPrice: 30}).OK)
	require.True(t, s.HasItem("sword"))
	d, err = s.Accept("c_escort")
	require.NoError(t, err)
	require.True(t, d.OK, d.Reason)
}

func TestLockedContractCannotBeAccepted(t *testing.T) {
	s, _ := newTestSession(t)
	_, _ = s.Accept("c_ironhold")
	s.Arrive("ironhold")
	_, _ = s.TurnIn("c_ironhold")
	d, err := s.Accept("c_rival")
	require.NoError(t, err)
	require.False(t, d.OK)
	require.Equal(t, lifecycle.CodeInvalidTarget, d.Code)
}

func TestMissedDeadlineFailsOnNextDay(t *testing.T) {
	s, sink := newTestSession(t)
	d, _ := s.Accept("c_herbs")
	require.True(t, d.OK)

	s.Arrive("town_square")
	s.Trade(progress.Trade{ItemID: "herbs", Kind: model.TransactionSell, Quantity: 1, UnitPrice: 4})

	require.Empty(t, s.Rest().Failed, "day 2 is the due day")
	res := s.Rest()
	require.Equal(t, []string{"c_herbs"}, res.Failed)
	require.Equal(t, -2, s.Wallet().Reputation)
	require.Empty(t, s.Active())

	msgs := s.DrainMessages()
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1].Text
	require.Contains(t, last, "Sell herbs at the town square")
	require.Contains(t, last, "failed")
	require.Contains(t, last, "The herbalist will not trade with you again")
	require.Empty(t, s.DrainMessages())

	require.Contains(t, sink.actions(), "CONTRACT_FAIL")
	require.Len(t, sink.days, 2)
	require.Equal(t, 2, sink.days[1].Day)
	require.Equal(t, 0, sink.days[1].Failed)

	d, _ = s.TurnIn("c_herbs")
	require.Equal(t, lifecycle.CodeTerminal, d.Code)
}

func TestSameDayCompletionBeatsSweep(t *testing.T) {
	s, _ := newTestSession(t)
	_, _ = s.Accept("c_herbs")
	require.Empty(t, s.Rest().Failed)

	// Day 2: the herbs sell and the player arrives before the block that
	// crosses midnight.
	s.Trade(progress.Trade{ItemID: "herbs", LocationID: "town_square", Kind: model.TransactionSell, Quantity: 3})
	require.True(t, s.CanAct())
	res, err := s.Spend(4)
	require.NoError(t, err)
	require.Empty(t, res.Failed)
	done := s.Arrive("town_square")
	require.Equal(t, []string{"c_herbs"}, done.Completed)

	res, err = s.Spend(1)
	require.NoError(t, err)
	require.Equal(t, 3, s.Clock().CurrentDay())
	require.Empty(t, res.Failed, "completed contracts are immune")

	// Settling late still pays in full.
	s.Rest()
	d, err := s.TurnIn("c_herbs")
	require.NoError(t, err)
	require.True(t, d.OK, d.Reason)
	require.Equal(t, 20, d.Payment)
	require.Equal(t, -1, d.ReputationDelta)
}

func TestSpendOverBudgetIsAnError(t *testing.T) {
	s, _ := newTestSession(t)
	_, err := s.Spend(3)
	require.NoError(t, err)
	before := s.View().Clock
	_, err = s.Spend(3)
	require.ErrorIs(t, err, clock.ErrBudgetExceeded)
	require.Equal(t, before, s.View().Clock)

	_, err = s.Spend(0)
	require.True(t, errors.Is(err, clock.ErrInvalidBlocks))
}

func TestAcceptWithoutBudget(t *testing.T) {
	s, _ := newTestSession(t)
	_, err := s.Spend(clock.MaxDailyBlocks)
	require.NoError(t, err)
	d, err := s.Accept("c_rival")
	require.NoError(t, err)
	require.Equal(t, lifecycle.CodeNoBudget, d.Code)
	require.Contains(t, offerIDs(s), "c_rival")
}

func TestArriveUnknownLocation(t *testing.T) {
	s, _ := newTestSession(t)
	res := s.Arrive("atlantis")
	require.False(t, res.OK)
	require.Equal(t, "E_INVALID_TARGET", res.Code)
	require.Empty(t, s.Location())
}

func TestProgressReport(t *testing.T) {
	s, _ := newTestSession(t)
	_, _ = s.Accept("c_herbs")
	s.Arrive("town_square")
	r, ok := s.Progress("c_herbs")
	require.True(t, ok)
	require.Equal(t, 50, r.Percent)
	_, ok = s.Progress("missing")
	require.False(t, ok)
}

func TestViewCarriesNoBudget(t *testing.T) {
	for _, typ := range []reflect.Type{
		reflect.TypeOf(View{}),
		reflect.TypeOf(Offer{}),
		reflect.TypeOf(ContractView{}),
		reflect.TypeOf(clock.State{}),
	} {
		for i := 0; i < typ.NumField(); i++ {
			name := strings.ToLower(typ.Field(i).Name)
			for _, banned := range []string{"remaining", "used", "budget", "canact"} {
				require.NotContains(t, name, banned, "%s.%s", typ.Name(), typ.Field(i).Name)
			}
		}
	}

	s, _ := newTestSession(t)
	v := s.View()
	require.Equal(t, 1, v.Clock.Day)
	require.Equal(t, clock.Dawn, v.Clock.Block)
	require.Equal(t, "NEUTRAL", v.Standing)
	for _, row := range v.Contracts {
		for k := range row {
			require.NotContains(t, k, "remaining")
		}
	}
}

func TestMessageLogCap(t *testing.T) {
	l := NewMessageLog(2)
	for i := 0; i < 5; i++ {
		l.Post(lifecycle.Message{Day: i})
	}
	got := l.Drain()
	require.Len(t, got, 2)
	require.Equal(t, 3, got[0].Day)
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	a := &memorySink{}
	err := MultiSink{a, failingSink{boom}, nil}.WriteAudit(AuditEntry{Action: "X"})
	require.ErrorIs(t, err, boom)
	require.Len(t, a.entries, 1)
}

type failingSink struct{ err error }

func (f failingSink) WriteAudit(AuditEntry) error { return f.err }
