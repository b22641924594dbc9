package clock

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestBlockForHourIsTotalAndPure(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("every hour maps to exactly one block inside its range", prop.ForAll(
		func(h int) bool {
			b := BlockForHour(h)
			if !b.Valid() || BlockForHour(h) != b {
				return false
			}
			start := StartHour(b)
			end := StartHour(b.Next())
			if end <= start {
				return h >= start || h < end
			}
			return h >= start && h < end
		},
		gen.IntRange(0, HoursPerDay-1),
	))

	properties.TestingRun(t)
}

func TestAdvanceBlocksSequences(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("used blocks equal the sum and time only moves forward", prop.ForAll(
		func(steps []int) bool {
			c := New(1, StartHour(Dawn))
			sum := 0
			last := c.CurrentDay()*HoursPerDay + c.CurrentHour()
			for _, n := range steps {
				if sum+n > MaxDailyBlocks {
					break
				}
				if err := c.AdvanceBlocks(n); err != nil {
					return false
				}
				sum += n
				now := c.CurrentDay()*HoursPerDay + c.CurrentHour()
				if now <= last {
					return false
				}
				last = now
			}
			if MaxDailyBlocks-c.RemainingBlocks() != sum {
				return false
			}
			wantDay := 1
			if sum == MaxDailyBlocks {
				wantDay = 2
			}
			return c.CurrentDay() == wantDay
		},
		gen.SliceOf(gen.IntRange(1, MaxDailyBlocks)),
	))

	properties.Property("over-budget advances fail without partial consumption", prop.ForAll(
		func(used, n, hour int) bool {
			c := New(1, hour)
			if used > 0 {
				if err := c.AdvanceBlocks(used); err != nil {
					return false
				}
			}
			if used+n <= MaxDailyBlocks {
				return true
			}
			before := *c
			if err := c.AdvanceBlocks(n); err == nil {
				return false
			}
			return *c == before
		},
		gen.IntRange(0, MaxDailyBlocks),
		gen.IntRange(1, 2*MaxDailyBlocks),
		gen.IntRange(0, HoursPerDay-1),
	))

	properties.Property("StartNewDay always resets to dawn with a full budget", prop.ForAll(
		func(day, hour, used int) bool {
			c := New(day, hour)
			if used > 0 {
				_ = c.AdvanceBlocks(used)
			}
			prevDay := c.CurrentDay()
			c.StartNewDay()
			return c.CurrentDay() == prevDay+1 &&
				c.CurrentHour() == StartHour(Dawn) &&
				c.RemainingBlocks() == MaxDailyBlocks
		},
		gen.IntRange(1, 365),
		gen.IntRange(0, HoursPerDay-1),
		gen.IntRange(0, MaxDailyBlocks),
	))

	properties.TestingRun(t)
}
