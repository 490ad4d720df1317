package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrInvalidConfig  = goerr.New("invalid configuration")
	ErrInvalidBackend = goerr.New("invalid repository backend")
	ErrMissingFlag    = goerr.New("required flag is not set")
)

// Context keys for error values
const (
	FlagKey     = "flag"
	BackendKey  = "backend"
	DatasetKey  = "dataset"
	PathKey     = "path"
	SeedItemKey = "seed_item"
)
