package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 2
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 30 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// Rate limit budgets
const (
	PairingIssueLimit    = 5
	PairingIssueWindow   = time.Minute
	PairingConnectLimit  = 10
	PairingConnectWindow = time.Minute
	PairingStatusLimit   = 60
	PairingStatusWindow  = time.Minute
	PairingCodeLimit     = 5
	PairingCodeWindow    = 10 * time.Minute
	UnlinkLimit          = 5
	UnlinkWindow         = time.Minute
)

// Energy window
const EnergyWindowDays = 7
