package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"wayfarer.game/internal/sim/feature/contracts/reputation"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	StartDay  int `yaml:"start_day"`
	StartHour int `yaml:"start_hour"`

	StartingCoins      int `yaml:"starting_coins"`
	StartingReputation int `yaml:"starting_reputation"`

	Reputation reputation.Rules `yaml:"reputation"`
	Player     PlayerProfile    `yaml:"player"`

	// MessageBacklog caps undrained system messages held by a session.
	MessageBacklog int `yaml:"message_backlog"`
}

type PlayerProfile struct {
	SocialStanding int `yaml:"social_standing"`
	Stamina        int `yaml:"stamina"`
	Knowledge      int `yaml:"knowledge"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		StartDay:        1,
		StartHour:       6,
		StartingCoins:   10,
		Reputation:      reputation.DefaultRules(),
		Player:          PlayerProfile{Stamina: 10},
		MessageBacklog:  64,
	}
}

// applyDefaults fills zero fields left after decoding over Defaults. A zero
// reputation rule cannot be expressed in the file; use a negative value to
// disable it. start_hour is not touched here so midnight stays expressible.
func (t *Tuning) applyDefaults() {
	d := Defaults()
	if t.ProtocolVersion == "" {
		t.ProtocolVersion = d.ProtocolVersion
	}
	if t.StartDay <= 0 {
		t.StartDay = d.StartDay
	}
	if t.Reputation.OnTimeBonus == 0 {
		t.Reputation.OnTimeBonus = d.Reputation.OnTimeBonus
	}
	if t.Reputation.LatePenaltyPerDay == 0 {
		t.Reputation.LatePenaltyPerDay = d.Reputation.LatePenaltyPerDay
	}
	if t.Reputation.FailurePenalty == 0 {
		t.Reputation.FailurePenalty = d.Reputation.FailurePenalty
	}
	t.Reputation.OnTimeBonus = max(t.Reputation.OnTimeBonus, 0)
	t.Reputation.LatePenaltyPerDay = max(t.Reputation.LatePenaltyPerDay, 0)
	t.Reputation.FailurePenalty = max(t.Reputation.FailurePenalty, 0)
	if t.MessageBacklog <= 0 {
		t.MessageBacklog = d.MessageBacklog
	}
}

func (t Tuning) Validate() error {
	if t.StartHour < 0 || t.StartHour > 23 {
		return fmt.Errorf("tuning.yaml: start_hour %d out of range", t.StartHour)
	}
	if t.StartingCoins < 0 {
		return fmt.Errorf("tuning.yaml: starting_coins must not be negative")
	}
	return nil
}

// Load reads a tuning file. An empty path yields Defaults.
func Load(path string) (Tuning, error) {
	if path == "" {
		return Defaults(), nil
	}
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.applyDefaults()
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}
