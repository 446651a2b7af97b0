package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/swu-binder/internal/api/response"
	"github.com/ramonehamilton/swu-binder/internal/export"
	"github.com/ramonehamilton/swu-binder/internal/ledger"
	"github.com/ramonehamilton/swu-binder/internal/session"
	"github.com/ramonehamilton/swu-binder/internal/storage/models"
)

// HistoryStore lists persisted ledger changes.
type HistoryStore interface {
	RecentChanges(ctx context.Context, setKey string, limit int) ([]*models.LedgerChange, error)
	CardHistory(ctx context.Context, setKey string, cardNumber int) ([]*models.LedgerChange, error)
}

const defaultHistoryLimit = 50

// LedgerHandler serves ownership reads and mutations.
type LedgerHandler struct {
	sess    *session.Session
	history HistoryStore
}

// NewLedgerHandler creates a new LedgerHandler. history may be nil when the
// ledger is not backed by the database.
func NewLedgerHandler(sess *session.Session, history HistoryStore) *LedgerHandler {
	return &LedgerHandler{sess: sess, history: history}
}

// QuantityChange is the response to an increment or decrement.
type QuantityChange struct {
	SetKey     string `json:"setKey"`
	Number     int    `json:"number"`
	BaseNumber int    `json:"baseNumber"`
	Quantity   int    `json:"quantity"`
}

// BulkRequest is the body of a bulk operation.
type BulkRequest struct {
	Action   string `json:"action"`
	Target   string `json:"target"`
	Quantity int    `json:"quantity"`
}

// GetCounts returns the set's ledger keyed by base number.
func (h *LedgerHandler) GetCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.sess.Ledger.Quantities(r.Context(), chi.URLParam(r, "set"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, counts)
}

// Increment adds one copy of the printing's base card.
func (h *LedgerHandler) Increment(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.sess.IncrementPrinting)
}

// Decrement removes one copy of the printing's base card.
func (h *LedgerHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.sess.DecrementPrinting)
}

func (h *LedgerHandler) step(w http.ResponseWriter, r *http.Request, fn func(context.Context, string, int) (int, int, error)) {
	number, ok := intParam(w, r, "number")
	if !ok {
		return
	}
	cat, err := h.sess.Catalog(r.Context(), chi.URLParam(r, "set"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	base, qty, err := fn(r.Context(), cat.SetKey, number)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, QuantityChange{
		SetKey:     cat.SetKey,
		Number:     number,
		BaseNumber: base,
		Quantity:   qty,
	})
}

// Bulk applies one bulk action to a target group.
func (h *LedgerHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	action, err := ledger.ParseAction(req.Action)
	if err != nil {
		response.BadRequest(w, err)
		return
	}
	if strings.TrimSpace(req.Target) == "" {
		req.Target = ledger.TargetAll
	}

	res, err := h.sess.Ledger.BulkApply(r.Context(), chi.URLParam(r, "set"), action, req.Target, req.Quantity)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, res)
}

// Reset clears the set's ledger.
func (h *LedgerHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.sess.Ledger.Reset(r.Context(), chi.URLParam(r, "set")); err != nil {
		response.FromError(w, err)
		return
	}
	response.NoContent(w)
}

// Stats returns completion stats with optional rarity, type and aspect filters.
func (h *LedgerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sess.Ledger.CompletionStats(r.Context(), chi.URLParam(r, "set"), filterFrom(r))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, stats)
}

// Missing returns the missing list. ?format=tcg returns the plain-text
// purchase list and ?format=csv a CSV table; JSON is the default.
func (h *LedgerHandler) Missing(w http.ResponseWriter, r *http.Request) {
	report, err := h.sess.Ledger.MissingList(r.Context(), chi.URLParam(r, "set"), filterFrom(r))
	if err != nil {
		response.FromError(w, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", string(export.FormatJSON):
		response.Success(w, report)
	case string(export.FormatTCG):
		response.Text(w, func(out io.Writer) error { return export.WriteTCGList(out, report) })
	case string(export.FormatCSV):
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		if err := export.Write(w, export.FormatCSV, report.Rows, false); err != nil {
			response.InternalError(w, err)
		}
	default:
		response.BadRequest(w, fmt.Errorf("unsupported format %q", format))
	}
}

// History lists recent persisted changes for the set, or for one card with ?number=.
func (h *LedgerHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		response.ServiceUnavailable(w, fmt.Errorf("change history requires database storage"))
		return
	}
	cat, err := h.sess.Catalog(r.Context(), chi.URLParam(r, "set"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	setKey := cat.SetKey
	q := r.URL.Query()

	var changes []*models.LedgerChange
	if raw := q.Get("number"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil {
			response.BadRequest(w, fmt.Errorf("invalid number %q", raw))
			return
		}
		changes, err = h.history.CardHistory(r.Context(), setKey, n)
	} else {
		limit := defaultHistoryLimit
		if l, convErr := strconv.Atoi(q.Get("limit")); convErr == nil && l > 0 {
			limit = l
		}
		changes, err = h.history.RecentChanges(r.Context(), setKey, limit)
	}
	if err != nil {
		response.InternalError(w, err)
		return
	}
	if changes == nil {
		changes = []*models.LedgerChange{}
	}
	response.Success(w, changes)
}
