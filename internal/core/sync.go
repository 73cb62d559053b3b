package core

import "time"

// SyncState tracks backlog ingestion progress so a restart resumes where the
// last run stopped instead of re-parsing everything.
type SyncState struct {
	LastSMSTimestamp  time.Time
	LastSMSID         string
	TotalTransactions int
	LastFullSync      time.Time
	Status            string
}

// Sync status values.
const (
	SyncStatusIdle      = "idle"
	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusCancelled = "cancelled"
	SyncStatusFailed    = "failed"
)
