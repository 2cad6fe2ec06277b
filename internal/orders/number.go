package orders

import (
	"context"
	"fmt"
	"time"
)

// OrderCounter is the slice of the store the number generator needs.
type OrderCounter interface {
	CountOrdersCreatedBetween(ctx context.Context, from, to time.Time) (int, error)
}

// NumberGenerator derives daily-sequential order numbers (YYYYMMDD-NNN) from
// the count of orders already created in the service timezone's current day.
// The count is not atomic with the subsequent insert; the unique constraint on
// orders.number plus the engine's retry-on-conflict closes the race.
type NumberGenerator struct {
	Counter OrderCounter
	Loc     *time.Location
	Now     func() time.Time // overridable in tests
}

func (g *NumberGenerator) Next(ctx context.Context) (string, error) {
	now := time.Now()
	if g.Now != nil {
		now = g.Now()
	}
	from, to := DayBounds(now, g.Loc)
	n, err := g.Counter.CountOrdersCreatedBetween(ctx, from, to)
	if err != nil {
		return "", fmt.Errorf("count today's orders: %w", err)
	}
	return FormatOrderNumber(from, n+1), nil
}

// DayBounds returns the midnight-to-midnight window containing now in loc.
func DayBounds(now time.Time, loc *time.Location) (from, to time.Time) {
	if loc == nil {
		loc = time.Local
	}
	t := now.In(loc)
	from = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 0, 1)
}

// FormatOrderNumber renders the day and the 1-based sequence, zero-padded to
// width 3 (widens past 999).
func FormatOrderNumber(day time.Time, seq int) string {
	return fmt.Sprintf("%s-%03d", day.Format("20060102"), seq)
}
