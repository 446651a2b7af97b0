package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ramonehamilton/swu-binder/internal/api/response"
	"github.com/ramonehamilton/swu-binder/internal/export"
	"github.com/ramonehamilton/swu-binder/internal/importer"
	"github.com/ramonehamilton/swu-binder/internal/ledger"
	"github.com/ramonehamilton/swu-binder/internal/session"
)

// maxImportSize bounds uploaded inventory files. Larger uploads are rejected
// whole rather than truncated.
const maxImportSize = 16 << 20

// TransferHandler serves ledger export and import.
type TransferHandler struct {
	sess *session.Session
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(sess *session.Session) *TransferHandler {
	return &TransferHandler{sess: sess}
}

// ImportResponse combines what was parsed with what was applied.
type ImportResponse struct {
	Format      importer.Format     `json:"format"`
	Rows        int                 `json:"rows"`
	SkippedRows int                 `json:"skippedRows"`
	Result      ledger.ImportResult `json:"result"`
}

// Export downloads the snapshot of every set with a ledger.
func (h *TransferHandler) Export(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sess.Ledger.Export(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	data, err := ledger.MarshalSnapshot(snap)
	if err != nil {
		response.InternalError(w, err)
		return
	}

	name := export.GenerateFilename("ledger", export.FormatJSON, time.Now())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Import applies an uploaded snapshot or third-party CSV. The body is the
// file itself; ?mode=replace|merge selects the import mode (default merge).
func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	mode := ledger.ModeMerge
	if raw := r.URL.Query().Get("mode"); raw != "" {
		m, err := ledger.ParseImportMode(raw)
		if err != nil {
			response.BadRequest(w, err)
			return
		}
		mode = m
	}

	parsed, err := importer.ParseReader(http.MaxBytesReader(w, r.Body, maxImportSize))
	if err != nil {
		response.FromError(w, err)
		return
	}

	res, err := h.sess.Ledger.Import(r.Context(), parsed.Data, mode)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, ImportResponse{
		Format:      parsed.Format,
		Rows:        parsed.Rows,
		SkippedRows: parsed.Skipped,
		Result:      res,
	})
}
