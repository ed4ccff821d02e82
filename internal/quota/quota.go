package quota

import (
	"context"
	"time"
)

// Guard authorizes one unit of extraction work against the monthly ceiling.
type Guard interface {
	// TryConsume atomically increments the current period's counter if it is
	// below the ceiling. Denied consumption leaves the counter unchanged.
	TryConsume(ctx context.Context) (allowed bool, err error)
}

// PeriodKey returns the usage-counter key for the month containing t.
func PeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
