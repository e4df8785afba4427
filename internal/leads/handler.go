package leads

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/leadcenter/internal/api/respond"
	"github.com/wolfman30/leadcenter/internal/apperrors"
	"github.com/wolfman30/leadcenter/internal/auth"
	"github.com/wolfman30/leadcenter/pkg/logging"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 200
)

// Handler serves the lead listing, status-change, stats and transition-log
// endpoints.
type Handler struct {
	repo   *Repository
	ledger *Ledger
	stats  *StatsRepository
	logger *logging.Logger
}

// NewHandler creates the leads HTTP handler.
func NewHandler(repo *Repository, ledger *Ledger, stats *StatsRepository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, ledger: ledger, stats: stats, logger: logger}
}

// List handles GET /leads with page/limit/search/status query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{
		Search: q.Get("search"),
		Status: q.Get("status"),
	}
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		f.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		f.PageSize = v
	}

	items, total, err := h.repo.List(r.Context(), f)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	f.clamp()

	respond.Data(w, http.StatusOK, map[string]any{
		"items":       items,
		"total_count": total,
		"page":        f.Page,
		"limit":       f.PageSize,
	})
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

// ChangeStatus handles PUT /leads/{id}/status.
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	leadID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, h.logger, r, apperrors.New(apperrors.KindValidation, "invalid lead id"))
		return
	}

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.logger, r, apperrors.New(apperrors.KindValidation, "invalid request body"))
		return
	}

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, h.logger, r, apperrors.New(apperrors.KindAuth, "authentication required"))
		return
	}

	tr, err := h.ledger.ChangeStatus(r.Context(), leadID, req.Status, claims.UserID)
	if err != nil {
		respond.Error(w, h.logger, r, mapLeadError(err))
		return
	}

	respond.Data(w, http.StatusOK, tr)
}

// Stats handles GET /stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	snap, err := h.stats.Snapshot(r.Context())
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.Data(w, http.StatusOK, snap)
}

// StatusLogs handles GET /status-logs?limit.
func (h *Handler) StatusLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	entries, err := h.repo.RecentTransitions(r.Context(), limit)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.Data(w, http.StatusOK, map[string]any{"logs": entries})
}

func mapLeadError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidStatus):
		return apperrors.Wrap(apperrors.KindValidation, "unknown status value", err)
	case errors.Is(err, ErrLeadNotFound):
		return apperrors.Wrap(apperrors.KindNotFound, "lead not found", err)
	default:
		return err
	}
}
