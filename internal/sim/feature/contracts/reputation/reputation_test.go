package reputation

import "testing"

func TestSettlementDelta(t *testing.T) {
	r := DefaultRules()
	if got := SettlementDelta(3, 5, r); got != 1 {
		t.Fatalf("early settle: expected +1, got %d", got)
	}
	if got := SettlementDelta(5, 5, r); got != 1 {
		t.Fatalf("on-time settle: expected +1, got %d", got)
	}
	if got := SettlementDelta(6, 5, r); got != -1 {
		t.Fatalf("one day late: expected -1, got %d", got)
	}
	if got := SettlementDelta(8, 5, r); got != -3 {
		t.Fatalf("three days late: expected -3, got %d", got)
	}
}

func TestFailureDelta(t *testing.T) {
	if got := FailureDelta(DefaultRules()); got >= 0 {
		t.Fatalf("failure must cost reputation, got %d", got)
	}
	if got := FailureDelta(Rules{FailurePenalty: 5}); got != -5 {
		t.Fatalf("expected -5, got %d", got)
	}
}

func TestStanding(t *testing.T) {
	cases := map[int]string{-5: "DISTRUSTED", 0: "NEUTRAL", 3: "RESPECTED", 12: "TRUSTED"}
	for score, want := range cases {
		if got := Standing(score); got != want {
			t.Fatalf("score %d: expected %s, got %s", score, want, got)
		}
	}
}
