package events

import "time"

// Event types.
const (
	LedgerUpdated  = "ledger:updated"
	LedgerImported = "ledger:imported"
	LedgerReset    = "ledger:reset"
	CatalogLoaded  = "catalog:loaded"
	CatalogFailed  = "catalog:failed"
)

// LedgerUpdatedEvent is the payload for ledger:updated events.
// Quantities lists the new quantity of every base number that changed (0 = removed).
type LedgerUpdatedEvent struct {
	SetKey     string      `json:"setKey"`
	Source     string      `json:"source"`
	Quantities map[int]int `json:"quantities"`
}

// LedgerImportedEvent is the payload for ledger:imported events.
type LedgerImportedEvent struct {
	Mode    string   `json:"mode"`
	Sets    []string `json:"sets"`
	Applied int      `json:"applied"`
	Skipped int      `json:"skipped"`
}

// LedgerResetEvent is the payload for ledger:reset events.
type LedgerResetEvent struct {
	SetKey string `json:"setKey"`
}

// CatalogLoadedEvent is the payload for catalog:loaded events.
type CatalogLoadedEvent struct {
	SetKey    string `json:"setKey"`
	Printings int           `json:"printings"`
	BaseCards int           `json:"baseCards"`
	Elapsed   time.Duration `json:"elapsed"`
}

// CatalogFailedEvent is the payload for catalog:failed events.
type CatalogFailedEvent struct {
	SetKey string `json:"setKey"`
	Error  string `json:"error"`
}
