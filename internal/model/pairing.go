package model

import "time"

// PairingStatus is what the device that issued a code sees while polling.
type PairingStatus string

const (
	PairingStatusPending PairingStatus = "pending"
	PairingStatusMatched PairingStatus = "matched"
	PairingStatusGone    PairingStatus = "gone"
)

type PairingCode struct {
	Code         string `json:"code"`
	ExpiresInSec int    `json:"expiresInSec"`
}

type PairingLookup struct {
	Status PairingStatus
	PairID string
}

// LedgerEvent names a durable pair lifecycle record.
type LedgerEvent string

const (
	LedgerEventIssued   LedgerEvent = "issued"
	LedgerEventPaired   LedgerEvent = "paired"
	LedgerEventUnlinked LedgerEvent = "unlinked"
)

type LedgerEntry struct {
	ID        int64       `db:"id" json:"id"`
	PairID    string      `db:"pair_id" json:"pairId"`
	Event     LedgerEvent `db:"event" json:"event"`
	Detail    string      `db:"detail" json:"detail"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}
