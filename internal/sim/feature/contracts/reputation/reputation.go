package reputation

// Rules sets the reputation effects of settling or failing a contract.
type Rules struct {
	OnTimeBonus       int `yaml:"on_time_bonus" json:"on_time_bonus"`
	LatePenaltyPerDay int `yaml:"late_penalty_per_day" json:"late_penalty_per_day"`
	FailurePenalty    int `yaml:"failure_penalty" json:"failure_penalty"`
}

func DefaultRules() Rules {
	return Rules{OnTimeBonus: 1, LatePenaltyPerDay: 1, FailurePenalty: 2}
}

func SettlementDelta(settleDay, dueDay int, r Rules) int {
	if settleDay <= dueDay {
		return r.OnTimeBonus
	}
	return -r.LatePenaltyPerDay * (settleDay - dueDay)
}

func FailureDelta(r Rules) int {
	return -r.FailurePenalty
}

// Standing buckets a reputation score for display.
func Standing(score int) string {
	switch {
	case score >= 10:
		return "TRUSTED"
	case score >= 3:
		return "RESPECTED"
	case score > -3:
		return "NEUTRAL"
	default:
		return "DISTRUSTED"
	}
}
