package config

import "context"

// Loader reads settings from a file in a specific format.
type Loader interface {
	// Load returns the defaults overridden by whatever the file at path sets.
	// An empty path yields the defaults.
	Load(ctx context.Context, path string) (*Settings, error)
}
