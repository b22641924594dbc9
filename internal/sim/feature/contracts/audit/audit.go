package audit

import "wayfarer.game/internal/sim/feature/contracts/core"

const (
	EventAccept   = "CONTRACT_ACCEPT"
	EventComplete = "CONTRACT_COMPLETE"
	EventSettle   = "CONTRACT_SETTLE"
	EventFail     = "CONTRACT_FAIL"

	ActorPlayer = "PLAYER"
	ActorWorld  = "WORLD"
)

type SweepAuditInput struct {
	Decision        core.SweepDecision
	ContractID      string
	Description     string
	DueDay          int
	Day             int
	ReputationDelta int
	Penalty         string
}

type SweepAuditOutput struct {
	ShouldAudit bool
	EventType   string
	Actor       string
	Reason      string
	Fields      map[string]any
}

func BuildAcceptAuditFields(contractID string, acceptedDay, dueDay, payment int) map[string]any {
	return map[string]any{
		"contract_id":  contractID,
		"accepted_day": acceptedDay,
		"due_day":      dueDay,
		"payment":      payment,
	}
}

func BuildCompleteAuditFields(contractID string, completedDay, dueDay int, trigger string) map[string]any {
	return map[string]any{
		"contract_id":   contractID,
		"completed_day": completedDay,
		"due_day":       dueDay,
		"trigger":       trigger,
	}
}

func BuildSettleAuditFields(contractID string, settleDay, dueDay, payment, reputationDelta, daysLate int) map[string]any {
	return map[string]any{
		"contract_id":      contractID,
		"settle_day":       settleDay,
		"due_day":          dueDay,
		"payment":          payment,
		"reputation_delta": reputationDelta,
		"days_late":        daysLate,
	}
}

// BuildSweepAudit maps a sweep decision to its audit record. Only overdue
// failures are audited.
func BuildSweepAudit(in SweepAuditInput) SweepAuditOutput {
	switch in.Decision {
	case core.SweepFailOverdue:
		return SweepAuditOutput{
			ShouldAudit: true,
			EventType:   EventFail,
			Actor:       ActorWorld,
			Reason:      "DEADLINE",
			Fields: map[string]any{
				"contract_id":      in.ContractID,
				"description":      in.Description,
				"due_day":          in.DueDay,
				"day":              in.Day,
				"reputation_delta": in.ReputationDelta,
				"penalty":          in.Penalty,
			},
		}
	default:
		return SweepAuditOutput{}
	}
}
