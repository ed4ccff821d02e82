package settings

import "context"

// Flags are the feature switches the worker consults per invocation.
type Flags struct {
	ExtractionEnabled bool
	DebugLogging      bool
}

// Store reads feature flags.
type Store interface {
	Flags(ctx context.Context) (Flags, error)
}
