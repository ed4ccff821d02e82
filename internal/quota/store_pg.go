package quota

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGGuard implements Guard with a single check-and-increment statement, so
// concurrent worker invocations contend at the storage layer rather than in
// a read-then-write pair here.
type PGGuard struct {
	DB      *sql.DB
	Ceiling int
	Now     func() time.Time
}

// NewPGGuard constructs a Postgres-backed guard with the configured ceiling.
func NewPGGuard(db *sql.DB, ceiling int) *PGGuard {
	return &PGGuard{DB: db, Ceiling: ceiling, Now: time.Now}
}

// TryConsume performs the atomic increment-with-ceiling. The conditional
// ON CONFLICT update returns no row when the ceiling is reached, which maps
// to a denial without mutation.
func (g *PGGuard) TryConsume(ctx context.Context) (bool, error) {
	const query = `
INSERT INTO usage_counters (period, used, ceiling, updated_at)
VALUES ($1, 1, $2, now())
ON CONFLICT (period) DO UPDATE
SET used = usage_counters.used + 1, updated_at = now()
WHERE usage_counters.used < usage_counters.ceiling
RETURNING used`

	var used int
	err := g.DB.QueryRowContext(ctx, query, PeriodKey(g.now()), g.Ceiling).Scan(&used)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (g *PGGuard) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

var _ Guard = (*PGGuard)(nil)
