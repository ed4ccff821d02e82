package settings

import (
	"context"
	"database/sql"
	"strings"
)

// PGStore reads flags from the app_settings table. Missing keys fall back
// to extraction enabled, debug logging off.
type PGStore struct {
	DB *sql.DB
}

// Flags loads the current feature switches.
func (s *PGStore) Flags(ctx context.Context) (Flags, error) {
	const query = `
SELECT key, value FROM app_settings WHERE key IN ('extraction_enabled', 'debug_logging')`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return Flags{}, err
	}
	defer rows.Close()

	flags := Flags{ExtractionEnabled: true}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Flags{}, err
		}
		enabled := strings.EqualFold(strings.TrimSpace(value), "true")
		switch key {
		case "extraction_enabled":
			flags.ExtractionEnabled = enabled
		case "debug_logging":
			flags.DebugLogging = enabled
		}
	}
	return flags, rows.Err()
}

var _ Store = (*PGStore)(nil)
