package model

import "time"

// Shared defaults used by both the CLI and the reference collaborator.
const (
	DefaultBaseURL        = "http://127.0.0.1:8080"
	DefaultRequestTimeout = 30 * time.Second
	DefaultLookupSize     = 256
	DefaultLookupTTL      = 10 * time.Minute
)
