package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/ramonehamilton/swu-binder/internal/api/response"
	"github.com/ramonehamilton/swu-binder/internal/backup"
	"github.com/ramonehamilton/swu-binder/internal/metrics"
	"github.com/ramonehamilton/swu-binder/internal/session"
	"github.com/ramonehamilton/swu-binder/internal/storage/models"
	"github.com/ramonehamilton/swu-binder/internal/version"
)

// Backups is the part of the backup scheduler the API drives.
type Backups interface {
	Trigger() (backup.Result, error)
	Status() backup.Status
}

// BackupLog lists recorded backup runs.
type BackupLog interface {
	RecentBackups(ctx context.Context, limit int) ([]*models.BackupRun, error)
}

// SystemDeps are the optional services behind the system endpoints.
type SystemDeps struct {
	Backups   Backups
	BackupLog BackupLog
	Metrics   *metrics.Collector
	// Clients reports connected WebSocket clients.
	Clients func() int
}

// SystemHandler serves status and maintenance endpoints.
type SystemHandler struct {
	sess    *session.Session
	backups Backups
	log     BackupLog
	metrics *metrics.Collector
	clients func() int
}

// NewSystemHandler creates a new SystemHandler. Every dependency may be nil.
func NewSystemHandler(sess *session.Session, deps SystemDeps) *SystemHandler {
	if deps.Clients == nil {
		deps.Clients = func() int { return 0 }
	}
	return &SystemHandler{
		sess:    sess,
		backups: deps.Backups,
		log:     deps.BackupLog,
		metrics: deps.Metrics,
		clients: deps.Clients,
	}
}

// Status describes the running service.
type Status struct {
	Version          string         `json:"version"`
	LoadedSets       []string       `json:"loadedSets"`
	WebSocketClients int            `json:"webSocketClients"`
	Backup           *backup.Status `json:"backup,omitempty"`
	Uptime           string         `json:"uptime,omitempty"`
}

// GetStatus returns the service status.
func (h *SystemHandler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	st := Status{
		Version:          version.String(),
		LoadedSets:       []string{},
		WebSocketClients: h.clients(),
	}
	for _, cat := range h.sess.Catalogs.Loaded() {
		st.LoadedSets = append(st.LoadedSets, cat.SetKey)
	}
	if h.backups != nil {
		b := h.backups.Status()
		st.Backup = &b
	}
	if h.metrics != nil {
		st.Uptime = h.metrics.Stats().Uptime
	}
	response.Success(w, st)
}

// GetMetrics returns catalog, ledger and request metrics.
func (h *SystemHandler) GetMetrics(w http.ResponseWriter, _ *http.Request) {
	if h.metrics == nil {
		response.ServiceUnavailable(w, errors.New("metrics are disabled"))
		return
	}
	response.Success(w, h.metrics.Stats())
}

// TriggerBackup writes a snapshot backup now.
func (h *SystemHandler) TriggerBackup(w http.ResponseWriter, _ *http.Request) {
	if h.backups == nil {
		response.ServiceUnavailable(w, errors.New("backups are disabled"))
		return
	}
	res, err := h.backups.Trigger()
	if err != nil {
		response.InternalError(w, err)
		return
	}
	response.Success(w, res)
}

// ListBackups returns recorded backup runs, newest first.
func (h *SystemHandler) ListBackups(w http.ResponseWriter, r *http.Request) {
	if h.log == nil {
		response.ServiceUnavailable(w, errors.New("backup log requires database storage"))
		return
	}
	runs, err := h.log.RecentBackups(r.Context(), 20)
	if err != nil {
		response.InternalError(w, err)
		return
	}
	if runs == nil {
		runs = []*models.BackupRun{}
	}
	response.Success(w, runs)
}
