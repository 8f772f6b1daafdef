package db

import "time"

// Database connection constants
const (
	// ConnectionRetrySleep is the sleep duration between connection retries
	ConnectionRetrySleep = 2 * time.Second
	// defaultConnectionRetries is the number of retries for initial connection
	defaultConnectionRetries = 10
)

// Database pool default constants
const (
	defaultMaxConns          int32         = 5
	defaultMinConns          int32         = 1
	defaultMaxConnIdleTime   time.Duration = 5 * time.Minute
	defaultMaxConnLifetime   time.Duration = 30 * time.Minute
	defaultHealthCheckPeriod time.Duration = time.Minute
)

// Advisory lock identifiers.
const (
	migrationLockID int64 = 1000
	// RunLockID guards a curation run against concurrent replicas.
	RunLockID int64 = 1001
)

const itemsTable = "items"

// Log field names.
const (
	logFieldChannel = "channel"
	logFieldItemID  = "item_id"
)
