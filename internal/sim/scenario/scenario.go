package scenario

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"wayfarer.game/internal/protocol"
	"wayfarer.game/internal/sim/clock"
	"wayfarer.game/internal/sim/feature/contracts/lifecycle"
	"wayfarer.game/internal/sim/feature/contracts/progress"
	"wayfarer.game/internal/sim/kernel/model"
	"wayfarer.game/internal/sim/session"
)

// Script is a scripted play-through: a list of player actions, each with
// optional expectations about its outcome.
type Script struct {
	Name          string                `yaml:"name"`
	Player        string                `yaml:"player"`
	StartingItems map[string]int        `yaml:"starting_items"`
	Information   []session.Information `yaml:"information"`
	Steps         []Step                `yaml:"steps"`
}

type Step struct {
	Accept   string     `yaml:"accept,omitempty"`
	TurnIn   string     `yaml:"turn_in,omitempty"`
	Arrive   string     `yaml:"arrive,omitempty"`
	Trade    *TradeStep `yaml:"trade,omitempty"`
	Converse string     `yaml:"converse,omitempty"`
	Action   string     `yaml:"action,omitempty"`
	Spend    int        `yaml:"spend,omitempty"`
	Rest     bool       `yaml:"rest,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

type TradeStep struct {
	Item     string `yaml:"item"`
	Location string `yaml:"location"`
	Kind     string `yaml:"kind"`
	Quantity int    `yaml:"quantity"`
	Price    int    `yaml:"price"`
}

type Expect struct {
	OK              *bool    `yaml:"ok,omitempty"`
	Code            string   `yaml:"code,omitempty"`
	Completed       []string `yaml:"completed,omitempty"`
	Failed          []string `yaml:"failed,omitempty"`
	Coins           *int     `yaml:"coins,omitempty"`
	Reputation      *int     `yaml:"reputation,omitempty"`
	Day             *int     `yaml:"day,omitempty"`
	Block           string   `yaml:"block,omitempty"`
	MessageContains string   `yaml:"message_contains,omitempty"`
}

type StepResult struct {
	Index      int                 `json:"index"`
	Action     string              `json:"action"`
	OK         bool                `json:"ok"`
	Code       string              `json:"code,omitempty"`
	Message    string              `json:"message,omitempty"`
	Completed  []string            `json:"completed,omitempty"`
	Failed     []string            `json:"failed,omitempty"`
	Messages   []lifecycle.Message `json:"messages,omitempty"`
	Mismatches []string            `json:"mismatches,omitempty"`
}

var ErrBadStep = errors.New("scenario: step must name exactly one action")

func Load(path string) (Script, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Script{}, fmt.Errorf("scenario: %w", err)
	}
	for i, st := range s.Steps {
		if st.actions() != 1 {
			return Script{}, fmt.Errorf("step %d: %w", i, ErrBadStep)
		}
	}
	return s, nil
}

func (st Step) actions() int {
	n := 0
	for _, set := range []bool{st.Accept != "", st.TurnIn != "", st.Arrive != "", st.Trade != nil, st.Converse != "", st.Action != "", st.Spend != 0, st.Rest} {
		if set {
			n++
		}
	}
	return n
}

// Run plays every step against s in order. It stops only on a malformed
// step; expectation mismatches are reported per step.
func Run(s *session.Session, script Script) ([]StepResult, error) {
	out := make([]StepResult, 0, len(script.Steps))
	for i, st := range script.Steps {
		if st.actions() != 1 {
			return out, fmt.Errorf("step %d: %w", i, ErrBadStep)
		}
		r := apply(s, st)
		r.Index = i
		r.Messages = s.DrainMessages()
		if st.Expect != nil {
			r.Mismatches = check(s, r, *st.Expect)
		}
		out = append(out, r)
	}
	return out, nil
}

// Passed reports whether no step had a mismatch.
func Passed(results []StepResult) bool {
	for _, r := range results {
		if len(r.Mismatches) > 0 {
			return false
		}
	}
	return true
}

func apply(s *session.Session, st Step) StepResult {
	switch {
	case st.Accept != "":
		d, err := s.Accept(st.Accept)
		return fromDecision("ACCEPT "+st.Accept, d, err)
	case st.TurnIn != "":
		d, err := s.TurnIn(st.TurnIn)
		return fromDecision("TURN_IN "+st.TurnIn, d, err)
	case st.Arrive != "":
		return fromResult("ARRIVE "+st.Arrive, s.Arrive(st.Arrive))
	case st.Trade != nil:
		tr := progress.Trade{
			ItemID:     st.Trade.Item,
			LocationID: st.Trade.Location,
			Kind:       model.TransactionKind(st.Trade.Kind),
			Quantity:   st.Trade.Quantity,
			UnitPrice:  st.Trade.Price,
		}
		return fromResult(fmt.Sprintf("TRADE %s %dx%s", strings.ToUpper(st.Trade.Kind), st.Trade.Quantity, st.Trade.Item), s.Trade(tr))
	case st.Converse != "":
		return fromResult("CONVERSE "+st.Converse, s.Converse(st.Converse))
	case st.Action != "":
		return fromResult("LOCATION_ACTION "+st.Action, s.PerformAction(st.Action))
	case st.Spend != 0:
		res, err := s.Spend(st.Spend)
		r := fromResult(fmt.Sprintf("SPEND %d", st.Spend), res)
		if err != nil {
			r.Code, r.Message = session.SpendFailure(err)
		}
		return r
	default:
		return fromResult("REST", s.Rest())
	}
}

func fromDecision(action string, d lifecycle.Decision, err error) StepResult {
	r := StepResult{Action: action, OK: d.OK, Code: d.Code, Message: d.Message}
	if !d.OK && d.Reason != "" {
		r.Message = d.Reason
	}
	if err != nil && r.Message == "" {
		r.Message = "internal error"
	}
	return r
}

func fromResult(action string, res session.Result) StepResult {
	return StepResult{
		Action:    action,
		OK:        res.OK,
		Code:      res.Code,
		Message:   res.Message,
		Completed: res.Completed,
		Failed:    res.Failed,
	}
}

func check(s *session.Session, r StepResult, e Expect) []string {
	var bad []string
	if e.OK != nil && *e.OK != r.OK {
		bad = append(bad, fmt.Sprintf("ok: want %v got %v", *e.OK, r.OK))
	}
	if e.Code != "" && e.Code != r.Code {
		bad = append(bad, fmt.Sprintf("code: want %s got %s", e.Code, r.Code))
	}
	if e.Completed != nil && !sameIDs(e.Completed, r.Completed) {
		bad = append(bad, fmt.Sprintf("completed: want %v got %v", e.Completed, r.Completed))
	}
	if e.Failed != nil && !sameIDs(e.Failed, r.Failed) {
		bad = append(bad, fmt.Sprintf("failed: want %v got %v", e.Failed, r.Failed))
	}
	w := s.Wallet()
	if e.Coins != nil && *e.Coins != w.Coins {
		bad = append(bad, fmt.Sprintf("coins: want %d got %d", *e.Coins, w.Coins))
	}
	if e.Reputation != nil && *e.Reputation != w.Reputation {
		bad = append(bad, fmt.Sprintf("reputation: want %d got %d", *e.Reputation, w.Reputation))
	}
	if e.Day != nil && *e.Day != s.Clock().CurrentDay() {
		bad = append(bad, fmt.Sprintf("day: want %d got %d", *e.Day, s.Clock().CurrentDay()))
	}
	if e.Block != "" {
		want := clock.ParseTimeBlock(e.Block)
		if got := s.Clock().CurrentTimeBlock(); want != got {
			bad = append(bad, fmt.Sprintf("block: want %s got %s", e.Block, got))
		}
	}
	if e.MessageContains != "" && !messagesContain(r, e.MessageContains) {
		bad = append(bad, fmt.Sprintf("message: nothing contains %q", e.MessageContains))
	}
	return bad
}

func messagesContain(r StepResult, needle string) bool {
	if strings.Contains(r.Message, needle) {
		return true
	}
	for _, m := range r.Messages {
		if strings.Contains(m.Text, needle) {
			return true
		}
	}
	return false
}

func sameIDs(want, got []string) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != got[i] {
			return false
		}
	}
	return true
}

// Act renders the step as a wire action with the given id.
func (st Step) Act(id string) protocol.ActMsg {
	act := protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, ID: id}
	switch {
	case st.Accept != "":
		act.Action, act.ContractID = protocol.ActAccept, st.Accept
	case st.TurnIn != "":
		act.Action, act.ContractID = protocol.ActTurnIn, st.TurnIn
	case st.Arrive != "":
		act.Action, act.LocationID = protocol.ActArrive, st.Arrive
	case st.Trade != nil:
		act.Action = protocol.ActTrade
		act.ItemID = st.Trade.Item
		act.LocationID = st.Trade.Location
		act.Kind = st.Trade.Kind
		act.Quantity = st.Trade.Quantity
		act.UnitPrice = st.Trade.Price
	case st.Converse != "":
		act.Action, act.NPCID = protocol.ActConverse, st.Converse
	case st.Action != "":
		act.Action, act.ActionID = protocol.ActLocationAction, st.Action
	case st.Spend != 0:
		act.Action, act.Blocks = protocol.ActSpend, st.Spend
	default:
		act.Action = protocol.ActRest
	}
	return act
}

// Configure copies the script's player setup into a session config.
func (sc Script) Configure(cfg session.Config) session.Config {
	cfg.PlayerName = sc.Player
	cfg.StartingItems = sc.StartingItems
	cfg.Information = sc.Information
	return cfg
}
