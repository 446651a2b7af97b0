// Package models defines the rows stored by the storage layer.
package models

import "time"

// LedgerSet is the persisted ledger of one set.
// Payload is a JSON object of card number to quantity.
type LedgerSet struct {
	SetKey    string
	Payload   []byte
	UpdatedAt time.Time
}

// LedgerChange records one card's quantity change.
// Changes written by the same ledger operation share a BatchID.
type LedgerChange struct {
	ID            int64     `json:"id"`
	SetKey        string    `json:"setKey"`
	CardNumber    int       `json:"cardNumber"`
	QuantityDelta int       `json:"quantityDelta"`
	QuantityAfter int       `json:"quantityAfter"`
	Source        string    `json:"source"`
	BatchID       string    `json:"batchId"`
	CreatedAt     time.Time `json:"createdAt"`
}

// BackupRun records one snapshot backup attempt.
type BackupRun struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	Sets      int       `json:"sets"`
	Cards     int       `json:"cards"`
	Error     *string   `json:"error,omitempty"` // Nullable
	CreatedAt time.Time `json:"createdAt"`
}
