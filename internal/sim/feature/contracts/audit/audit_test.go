package audit

import (
	"testing"

	corepkg "wayfarer.game/internal/sim/feature/contracts/core"
)

func TestBuildAcceptAuditFields(t *testing.T) {
	fields := BuildAcceptAuditFields("c_salt", 2, 5, 40)
	if fields["contract_id"] != "c_salt" || fields["due_day"] != 5 {
		t.Fatalf("unexpected accept audit fields: %#v", fields)
	}
}

func TestBuildSettleAuditFields(t *testing.T) {
	fields := BuildSettleAuditFields("c_salt", 6, 5, 40, -1, 1)
	if fields["reputation_delta"] != -1 || fields["days_late"] != 1 {
		t.Fatalf("unexpected settle audit fields: %#v", fields)
	}
}

func TestBuildCompleteAuditFields(t *testing.T) {
	fields := BuildCompleteAuditFields("c_salt", 3, 5, "ARRIVE")
	if fields["trigger"] != "ARRIVE" || fields["completed_day"] != 3 {
		t.Fatalf("unexpected complete audit fields: %#v", fields)
	}
}

func TestBuildSweepAudit(t *testing.T) {
	out := BuildSweepAudit(SweepAuditInput{
		Decision:        corepkg.SweepFailOverdue,
		ContractID:      "c_salt",
		DueDay:          5,
		Day:             6,
		ReputationDelta: -2,
	})
	if !out.ShouldAudit || out.EventType != EventFail || out.Actor != ActorWorld {
		t.Fatalf("unexpected fail audit: %+v", out)
	}
	if out.Fields["day"] != 6 {
		t.Fatalf("unexpected fields: %#v", out.Fields)
	}
	if out := BuildSweepAudit(SweepAuditInput{Decision: corepkg.SweepImmuneCompleted}); out.ShouldAudit {
		t.Fatalf("immune contracts are not audited")
	}
}
