package clock

import "strings"

type TimeBlock string

const (
	Dawn      TimeBlock = "DAWN"
	Morning   TimeBlock = "MORNING"
	Afternoon TimeBlock = "AFTERNOON"
	Evening   TimeBlock = "EVENING"
	Night     TimeBlock = "NIGHT"
)

// Blocks lists the five periods in day order, starting at Dawn.
var Blocks = [...]TimeBlock{Dawn, Morning, Afternoon, Evening, Night}

const HoursPerDay = 24

// BlockForHour is the only mapping from clock hour to period. Hours outside
// [0,24) are normalized first.
func BlockForHour(hour int) TimeBlock {
	switch h := normalizeHour(hour); {
	case h >= 6 && h < 9:
		return Dawn
	case h >= 9 && h < 12:
		return Morning
	case h >= 12 && h < 16:
		return Afternoon
	case h >= 16 && h < 20:
		return Evening
	default:
		return Night
	}
}

// StartHour returns the first hour of b, or -1 for an unknown block.
func StartHour(b TimeBlock) int {
	switch b {
	case Dawn:
		return 6
	case Morning:
		return 9
	case Afternoon:
		return 12
	case Evening:
		return 16
	case Night:
		return 20
	default:
		return -1
	}
}

func (b TimeBlock) Next() TimeBlock {
	switch b {
	case Dawn:
		return Morning
	case Morning:
		return Afternoon
	case Afternoon:
		return Evening
	case Evening:
		return Night
	default:
		return Dawn
	}
}

func (b TimeBlock) Valid() bool { return StartHour(b) >= 0 }

func (b TimeBlock) String() string { return string(b) }

// ParseTimeBlock normalizes case and whitespace; unknown names return "".
func ParseTimeBlock(s string) TimeBlock {
	b := TimeBlock(strings.TrimSpace(strings.ToUpper(s)))
	if !b.Valid() {
		return ""
	}
	return b
}

func normalizeHour(h int) int {
	h %= HoursPerDay
	if h < 0 {
		h += HoursPerDay
	}
	return h
}
