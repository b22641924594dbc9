package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTuning(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	p := writeTuning(t, "starting_coins: 25\nreputation:\n  failure_penalty: 4\n")
	got, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.StartingCoins != 25 || got.Reputation.FailurePenalty != 4 {
		t.Fatalf("unexpected overrides: %+v", got)
	}
	if got.StartDay != 1 || got.StartHour != 6 || got.Reputation.OnTimeBonus != 1 || got.MessageBacklog != 64 {
		t.Fatalf("defaults not applied: %+v", got)
	}
}

func TestLoadNegativeDisablesRule(t *testing.T) {
	p := writeTuning(t, "reputation:\n  late_penalty_per_day: -1\n")
	got, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Reputation.LatePenaltyPerDay != 0 {
		t.Fatalf("expected disabled late penalty, got %d", got.Reputation.LatePenaltyPerDay)
	}
}

func TestLoadMidnightStart(t *testing.T) {
	p := writeTuning(t, "start_hour: 0\n")
	got, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.StartHour != 0 {
		t.Fatalf("expected midnight start, got %d", got.StartHour)
	}
}

func TestLoadRejectsBadHour(t *testing.T) {
	p := writeTuning(t, "start_hour: 30\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected out-of-range hour to fail")
	}
}

func TestLoadEmptyPath(t *testing.T) {
	got, err := Load("")
	if err != nil || got != Defaults() {
		t.Fatalf("expected defaults, got %+v err=%v", got, err)
	}
}

func TestLoadMalformed(t *testing.T) {
	p := writeTuning(t, "start_day: [1, 2\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected yaml error")
	}
}
