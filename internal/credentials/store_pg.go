package credentials

import (
	"context"
	"database/sql"
	"errors"
)

// PGStore reads credentials from Postgres.
type PGStore struct {
	DB *sql.DB
}

// Active returns the most recently created active credentials row.
func (s *PGStore) Active(ctx context.Context) (Credentials, error) {
	const query = `
SELECT client_id, client_secret, org_id
FROM api_credentials
WHERE active
ORDER BY created_at DESC
LIMIT 1`
	var c Credentials
	err := s.DB.QueryRowContext(ctx, query).Scan(&c.ClientID, &c.ClientSecret, &c.OrgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Credentials{}, ErrNotConfigured
		}
		return Credentials{}, err
	}
	return c, nil
}

var _ Store = (*PGStore)(nil)
