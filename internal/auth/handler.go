package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/leadcenter/internal/api/respond"
	"github.com/wolfman30/leadcenter/internal/apperrors"
	"github.com/wolfman30/leadcenter/pkg/logging"
)

// Handler exposes login and user administration over HTTP.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates the auth HTTP handler.
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Login handles POST /login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.logger, r, apperrors.New(apperrors.KindValidation, "invalid request body"))
		return
	}
	if req.Username == "" || req.Password == "" {
		respond.Error(w, h.logger, r, apperrors.New(apperrors.KindValidation, "username and password are required"))
		return
	}

	token, user, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respond.Error(w, h.logger, r, mapAuthError(err))
		return
	}

	respond.Data(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  userResponse{ID: user.ID, Username: user.Username, Role: user.Role},
	})
}

// ListUsers handles GET /admin/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{ID: u.ID, Username: u.Username, Role: u.Role})
	}
	respond.Data(w, http.StatusOK, map[string]any{"users": out})
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// CreateUser handles POST /admin/users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.logger, r, apperrors.New(apperrors.KindValidation, "invalid request body"))
		return
	}
	if req.Username == "" {
		respond.Error(w, h.logger, r, apperrors.New(apperrors.KindValidation, "username is required"))
		return
	}

	user, err := h.svc.Register(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		respond.Error(w, h.logger, r, mapAuthError(err))
		return
	}

	h.logger.Info("user created", "username", user.Username, "role", user.Role)
	respond.Data(w, http.StatusCreated, userResponse{ID: user.ID, Username: user.Username, Role: user.Role})
}

// DeleteUser handles DELETE /admin/users/{id}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, h.logger, r, apperrors.New(apperrors.KindValidation, "invalid user id"))
		return
	}

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, h.logger, r, apperrors.New(apperrors.KindAuth, "authentication required"))
		return
	}

	if err := h.svc.DeleteUser(r.Context(), id, claims.UserID); err != nil {
		respond.Error(w, h.logger, r, mapAuthError(err))
		return
	}

	h.logger.Info("user deleted", "user_id", id, "actor_id", claims.UserID)
	respond.Data(w, http.StatusOK, map[string]any{"deleted": id})
}

// Reject writes auth middleware failures through the shared envelope.
func Reject(logger *logging.Logger) RejectFunc {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		respond.Error(w, logger, r, mapAuthError(err))
	}
}

// mapAuthError attaches the response kind to auth domain errors.
func mapAuthError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return apperrors.Wrap(apperrors.KindAuth, "invalid username or password", err)
	case errors.Is(err, ErrPasswordTooShort):
		return apperrors.Wrap(apperrors.KindValidation, "password must be at least 6 characters", err)
	case errors.Is(err, ErrInvalidRole):
		return apperrors.Wrap(apperrors.KindValidation, "role must be admin or operator", err)
	case errors.Is(err, ErrUsernameTaken):
		return apperrors.Wrap(apperrors.KindConflict, "username is already taken", err)
	case errors.Is(err, ErrUserNotFound):
		return apperrors.Wrap(apperrors.KindNotFound, "user not found", err)
	case errors.Is(err, ErrProtectedUser):
		return apperrors.Wrap(apperrors.KindValidation, "this account cannot be deleted", err)
	case errors.Is(err, ErrForbidden):
		return apperrors.Wrap(apperrors.KindForbidden, "admin access required", err)
	default:
		return err
	}
}
