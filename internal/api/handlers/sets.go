// Package handlers implements the binder's REST endpoints on top of a session.
package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/swu-binder/internal/api/response"
	"github.com/ramonehamilton/swu-binder/internal/cards"
	"github.com/ramonehamilton/swu-binder/internal/charts"
	"github.com/ramonehamilton/swu-binder/internal/ledger"
	"github.com/ramonehamilton/swu-binder/internal/session"
)

// SetHandler serves set catalogs and binder geometry.
type SetHandler struct {
	sess *session.Session
}

// NewSetHandler creates a new SetHandler.
func NewSetHandler(sess *session.Session) *SetHandler {
	return &SetHandler{sess: sess}
}

// SetInfo is one manifest entry with its catalog summary once loaded.
type SetInfo struct {
	Key     string         `json:"key"`
	Label   string         `json:"label"`
	Loaded  bool           `json:"loaded"`
	Summary *cards.Summary `json:"summary,omitempty"`
}

// ListSets returns the manifest. Sets still building report loaded=false.
func (h *SetHandler) ListSets(w http.ResponseWriter, r *http.Request) {
	entries, err := h.sess.Sets(r.Context())
	if err != nil {
		response.ServiceUnavailable(w, err)
		return
	}

	out := make([]SetInfo, 0, len(entries))
	for _, e := range entries {
		info := SetInfo{Key: e.Key, Label: e.Label}
		if cat, ok := h.sess.Catalogs.Peek(e.Key); ok {
			sum := cat.Summary()
			info.Loaded, info.Summary = true, &sum
		}
		out = append(out, info)
	}
	response.Success(w, out)
}

// GetSet returns one set's summary, building its catalog if needed.
func (h *SetHandler) GetSet(w http.ResponseWriter, r *http.Request) {
	cat, err := h.sess.Catalog(r.Context(), chi.URLParam(r, "set"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, cat.Summary())
}

// ListCards returns a set's printings, or only base cards with ?base=true.
func (h *SetHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	cat, err := h.sess.Catalog(r.Context(), chi.URLParam(r, "set"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	if b, _ := strconv.ParseBool(r.URL.Query().Get("base")); b {
		response.Success(w, cat.BaseCards)
		return
	}
	response.Success(w, cat.AllCards)
}

// GetCard returns a printing with its binder cursor, printings group and quantity.
func (h *SetHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	number, ok := intParam(w, r, "number")
	if !ok {
		return
	}
	loc, err := h.sess.Locate(r.Context(), chi.URLParam(r, "set"), number)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, loc)
}

// GetSpread returns the slots of one spread with owned quantities.
// Out-of-range spreads are clamped.
func (h *SetHandler) GetSpread(w http.ResponseWriter, r *http.Request) {
	spread, ok := intParam(w, r, "spread")
	if !ok {
		return
	}
	view, err := h.sess.SpreadView(r.Context(), chi.URLParam(r, "set"), spread)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, view)
}

// CompletionChart renders an HTML bar chart of every loaded set's completion.
func (h *SetHandler) CompletionChart(w http.ResponseWriter, r *http.Request) {
	loaded := h.sess.Catalogs.Loaded()
	stats := make([]ledger.Stats, 0, len(loaded))
	for _, cat := range loaded {
		s, err := h.sess.Ledger.CompletionStats(r.Context(), cat.SetKey, ledger.Filter{})
		if err != nil {
			response.FromError(w, err)
			return
		}
		stats = append(stats, s)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := charts.RenderCompletion(w, stats, charts.DefaultChartConfig()); err != nil {
		response.InternalError(w, err)
	}
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := chi.URLParam(r, name)
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		response.BadRequest(w, fmt.Errorf("invalid %s %q", name, raw))
		return 0, false
	}
	return n, true
}

func filterFrom(r *http.Request) ledger.Filter {
	q := r.URL.Query()
	return ledger.Filter{
		Rarity: q.Get("rarity"),
		Type:   q.Get("type"),
		Aspect: q.Get("aspect"),
	}
}
