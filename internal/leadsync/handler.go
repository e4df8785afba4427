package leadsync

import (
	"net/http"

	"github.com/wolfman30/leadcenter/internal/api/respond"
	"github.com/wolfman30/leadcenter/pkg/logging"
)

// Handler exposes the manual sync trigger and the health probe.
type Handler struct {
	syncer *Syncer
	logger *logging.Logger
}

// NewHandler creates the sync HTTP handler.
func NewHandler(syncer *Syncer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{syncer: syncer, logger: logger}
}

// FetchNow handles POST /fetch-now. The run happens out of band; the job id
// is returned immediately.
func (h *Handler) FetchNow(w http.ResponseWriter, r *http.Request) {
	jobID := h.syncer.TriggerNow()
	h.logger.Info("manual sync requested", "job_id", jobID)
	respond.Data(w, http.StatusAccepted, map[string]any{
		"job_id":  jobID,
		"started": true,
	})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respond.Data(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"scheduler_active": h.syncer.Active(),
	})
}
