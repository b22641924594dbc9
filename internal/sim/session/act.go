package session

import (
	"errors"
	"fmt"

	"wayfarer.game/internal/protocol"
	"wayfarer.game/internal/sim/clock"
	"wayfarer.game/internal/sim/feature/contracts/lifecycle"
	"wayfarer.game/internal/sim/feature/contracts/progress"
	"wayfarer.game/internal/sim/kernel/model"
)

// Client-facing texts for clock failures. Block counts stay server side.
const (
	msgNoTimeLeft    = "no time left today"
	msgInvalidBlocks = "block count must be positive"
)

// Act applies one client action and reports its outcome. Rule failures come
// back as codes. The returned error carries the underlying cause for server
// logs only; its text never reaches the result message.
func (s *Session) Act(act protocol.ActMsg) (protocol.ActionResultMsg, error) {
	switch act.Action {
	case protocol.ActAccept:
		d, err := s.Accept(act.ContractID)
		return decisionResult(act.ID, d, err), err
	case protocol.ActTurnIn:
		d, err := s.TurnIn(act.ContractID)
		return decisionResult(act.ID, d, err), err
	case protocol.ActArrive:
		return resultMsg(act.ID, s.Arrive(act.LocationID)), nil
	case protocol.ActTrade:
		return resultMsg(act.ID, s.Trade(progress.Trade{
			ItemID:     act.ItemID,
			LocationID: act.LocationID,
			Kind:       model.TransactionKind(act.Kind),
			Quantity:   act.Quantity,
			UnitPrice:  act.UnitPrice,
		})), nil
	case protocol.ActConverse:
		return resultMsg(act.ID, s.Converse(act.NPCID)), nil
	case protocol.ActLocationAction:
		return resultMsg(act.ID, s.PerformAction(act.ActionID)), nil
	case protocol.ActSpend:
		res, err := s.Spend(act.Blocks)
		if err != nil {
			code, msg := SpendFailure(err)
			return protocol.NewActionResult(act.ID, false, code, msg), err
		}
		return resultMsg(act.ID, res), nil
	case protocol.ActRest:
		return resultMsg(act.ID, s.Rest()), nil
	default:
		return protocol.NewActionResult(act.ID, false, protocol.ErrBadRequest, fmt.Sprintf("unknown action %q", act.Action)), nil
	}
}

// SpendFailure maps a Spend error to the code and text a player sees.
func SpendFailure(err error) (code, msg string) {
	if errors.Is(err, clock.ErrInvalidBlocks) {
		return protocol.ErrBadRequest, msgInvalidBlocks
	}
	return protocol.ErrNoBudget, msgNoTimeLeft
}

func decisionResult(ref string, d lifecycle.Decision, err error) protocol.ActionResultMsg {
	if err != nil {
		code, msg := d.Code, d.Reason
		if code == "" {
			code = protocol.ErrInternal
		}
		if msg == "" {
			msg = "internal error"
		}
		return protocol.NewActionResult(ref, false, code, msg)
	}
	msg := d.Message
	if !d.OK && d.Reason != "" {
		msg = d.Reason
	}
	return protocol.NewActionResult(ref, d.OK, d.Code, msg)
}

func resultMsg(ref string, res Result) protocol.ActionResultMsg {
	out := protocol.NewActionResult(ref, res.OK, res.Code, res.Message)
	out.Completed = res.Completed
	out.Failed = res.Failed
	return out
}
