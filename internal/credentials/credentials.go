package credentials

import (
	"context"
	"errors"
)

// ErrNotConfigured indicates no active API credentials exist.
var ErrNotConfigured = errors.New("extraction api credentials not configured")

// Credentials is the API identity for the external extraction service.
// Rotated externally; read-only here.
type Credentials struct {
	ClientID     string
	ClientSecret string
	OrgID        string
}

// Store reads the active extraction-service credentials.
type Store interface {
	Active(ctx context.Context) (Credentials, error)
}
