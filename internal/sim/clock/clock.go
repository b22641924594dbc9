package clock

import (
	"errors"
	"fmt"
)

// MaxDailyBlocks is the number of block-consuming actions available per day.
const MaxDailyBlocks = 5

var (
	ErrBudgetExceeded = errors.New("clock: daily block budget exceeded")
	ErrInvalidBlocks  = errors.New("clock: block count must be positive")
)

// BudgetError reports an AdvanceBlocks call that asked for more blocks than
// remain. Callers are expected to check CanAct/RemainingBlocks first, so this
// is a programming error rather than a gameplay outcome.
type BudgetError struct {
	Requested int
	Used      int
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("%v: requested %d with %d of %d used", ErrBudgetExceeded, e.Requested, e.Used, MaxDailyBlocks)
}

func (e *BudgetError) Unwrap() error { return ErrBudgetExceeded }

// Display is the presentation-safe view of the clock. It deliberately has no
// access to the block budget.
type Display interface {
	CurrentDay() int
	CurrentHour() int
	CurrentTimeBlock() TimeBlock
}

// State is a point-in-time copy of the displayable clock fields.
type State struct {
	Day   int       `json:"day"`
	Hour  int       `json:"hour"`
	Block TimeBlock `json:"time_block"`
}

// Clock owns the day/hour and the daily block budget. The time block is never
// stored; it is recomputed from the hour on every read.
//
// A Clock has a single writer (the session's game loop) and no locking.
type Clock struct {
	day  int
	hour int
	used int

	// budgetDay is the day the current budget was opened on. Block consumption
	// can carry the calendar past midnight before the player sleeps.
	budgetDay int
}

func New(day, hour int) *Clock {
	if day < 1 {
		day = 1
	}
	return &Clock{day: day, hour: normalizeHour(hour), budgetDay: day}
}

func (c *Clock) CurrentDay() int  { return c.day }
func (c *Clock) CurrentHour() int { return c.hour }

func (c *Clock) CurrentTimeBlock() TimeBlock { return BlockForHour(c.hour) }

func (c *Clock) RemainingBlocks() int { return MaxDailyBlocks - c.used }

func (c *Clock) CanAct() bool { return c.RemainingBlocks() > 0 }

// SetHour moves the hour without touching the day or budget. Used for seeding
// scenarios; normal play advances through AdvanceBlocks.
func (c *Clock) SetHour(h int) { c.hour = normalizeHour(h) }

// AdvanceBlocks consumes n blocks of the daily budget. Each block moves the
// hour to the start of the next period, rolling the day over when the hour
// wraps. Nothing changes when the budget cannot cover n.
func (c *Clock) AdvanceBlocks(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidBlocks, n)
	}
	if c.used+n > MaxDailyBlocks {
		return &BudgetError{Requested: n, Used: c.used}
	}
	c.used += n
	for i := 0; i < n; i++ {
		next := StartHour(BlockForHour(c.hour).Next())
		if next <= c.hour {
			c.day++
		}
		c.hour = next
	}
	return nil
}

// StartNewDay moves to Dawn of the following day with a fresh budget.
func (c *Clock) StartNewDay() {
	c.day++
	c.hour = StartHour(Dawn)
	c.used = 0
	c.budgetDay = c.day
}

// Sleep ends the player's day. If spending blocks already rolled the calendar
// over, the player wakes at Dawn of the current day instead of skipping one.
func (c *Clock) Sleep() {
	if c.day > c.budgetDay {
		c.hour = StartHour(Dawn)
		c.used = 0
		c.budgetDay = c.day
		return
	}
	c.StartNewDay()
}

func (c *Clock) Snapshot() State {
	return State{Day: c.day, Hour: c.hour, Block: c.CurrentTimeBlock()}
}

// SnapshotOf copies the fields of any Display.
func SnapshotOf(d Display) State {
	return State{Day: d.CurrentDay(), Hour: d.CurrentHour(), Block: d.CurrentTimeBlock()}
}
