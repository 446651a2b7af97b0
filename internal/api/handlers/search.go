package handlers

import (
	"net/http"

	"github.com/ramonehamilton/swu-binder/internal/api/response"
	"github.com/ramonehamilton/swu-binder/internal/session"
)

// SearchHandler serves typeahead suggestions.
type SearchHandler struct {
	sess *session.Session
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(sess *session.Session) *SearchHandler {
	return &SearchHandler{sess: sess}
}

// Search resolves ?q= across loaded sets, ranking ?set= first.
// An empty query returns an empty list.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	response.Success(w, h.sess.Search(r.Context(), q.Get("q"), q.Get("set")))
}
