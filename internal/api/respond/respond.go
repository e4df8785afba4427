package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/wolfman30/leadcenter/internal/apperrors"
	"github.com/wolfman30/leadcenter/pkg/logging"
)

// envelope is the uniform response shape for every endpoint.
type envelope struct {
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	ErrorKind  string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// Data writes a success envelope.
func Data(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

// Error writes a failure envelope. Typed errors keep their kind and
// message; anything else becomes a generic internal error with the detail
// going to the server log only.
func Error(w http.ResponseWriter, logger *logging.Logger, r *http.Request, err error) {
	kind := apperrors.KindOf(err)
	message := "internal server error"

	var ae *apperrors.Error
	if errors.As(err, &ae) && kind != apperrors.KindInternal && kind != apperrors.KindUpstream {
		message = ae.Message
	}

	status := apperrors.HTTPStatus(kind)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}

	resp := envelope{Success: false, ErrorKind: string(kind), Message: message}
	if ae != nil && ae.RetryAfter > 0 {
		secs := int(ae.RetryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		resp.RetryAfter = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
