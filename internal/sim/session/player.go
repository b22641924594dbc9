package session

import "wayfarer.game/internal/sim/feature/contracts/lifecycle"

// Wallet holds the player's coins and reputation.
type Wallet struct {
	Coins      int
	Reputation int
}

func (w *Wallet) AddCoins(n int)             { w.Coins += n }
func (w *Wallet) AdjustReputation(delta int) { w.Reputation += delta }

// Pack is a minimal item count used for eligibility checks. Market and
// crafting rules live elsewhere; trades only move counts.
type Pack map[string]int

func (p Pack) HasItem(id string) bool { return p[id] > 0 }

func (p Pack) apply(item string, delta int) {
	n := p[item] + delta
	if n <= 0 {
		delete(p, item)
		return
	}
	p[item] = n
}

type Information struct {
	Type      string `yaml:"type" json:"type"`
	Quality   int    `yaml:"quality" json:"quality"`
	Freshness int    `yaml:"freshness" json:"freshness"`
}

// profile derives social standing from the base value plus earned reputation.
type profile struct {
	baseStanding int
	stamina      int
	knowledge    int
	wallet       *Wallet
	info         []Information
}

func (p *profile) SocialStanding() int { return p.baseStanding + p.wallet.Reputation }
func (p *profile) Stamina() int        { return p.stamina }
func (p *profile) KnowledgeLevel() int { return p.knowledge }

func (p *profile) HasInformation(kind string, minQuality, minFreshness int) bool {
	for _, i := range p.info {
		if i.Type == kind && i.Quality >= minQuality && i.Freshness >= minFreshness {
			return true
		}
	}
	return false
}

// MessageLog buffers system messages until the presentation layer drains
// them. The oldest messages are dropped past the cap.
type MessageLog struct {
	cap  int
	msgs []lifecycle.Message
}

func NewMessageLog(capacity int) *MessageLog {
	if capacity <= 0 {
		capacity = 64
	}
	return &MessageLog{cap: capacity}
}

func (l *MessageLog) Post(m lifecycle.Message) {
	l.msgs = append(l.msgs, m)
	if over := len(l.msgs) - l.cap; over > 0 {
		l.msgs = append([]lifecycle.Message(nil), l.msgs[over:]...)
	}
}

func (l *MessageLog) Peek() []lifecycle.Message {
	return append([]lifecycle.Message(nil), l.msgs...)
}

func (l *MessageLog) Drain() []lifecycle.Message {
	out := l.msgs
	l.msgs = nil
	return out
}
