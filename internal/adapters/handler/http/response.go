package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
)

type errorResponse struct {
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  []domain.FieldError `json:"fields,omitempty"`
	Detail  string              `json:"detail,omitempty"`
}

// Responder writes JSON bodies and turns service errors into HTTP errors.
// With Debug set, storage failures carry the underlying error text.
type Responder struct {
	logger *slog.Logger
	debug  bool
}

func NewResponder(logger *slog.Logger, debug bool) *Responder {
	return &Responder{logger: logger, debug: debug}
}

func (rs *Responder) JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		rs.logger.Error("failed to encode response", "error", err)
	}
}

func (rs *Responder) Fail(w http.ResponseWriter, status int, code, message string) {
	rs.JSON(w, status, errorResponse{
		Error:   http.StatusText(status),
		Code:    code,
		Message: message,
	})
}

// Error maps err onto the error contract of the API.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		rs.JSON(w, http.StatusBadRequest, errorResponse{
			Error:   http.StatusText(http.StatusBadRequest),
			Code:    "VALIDATION_ERROR",
			Message: domain.ErrValidation.Error(),
			Fields:  verr.Fields,
		})
	case errors.Is(err, domain.ErrInvalidPollID):
		rs.Fail(w, http.StatusBadRequest, "INVALID_POLL_ID", domain.ErrInvalidPollID.Error())
	case errors.Is(err, domain.ErrPollNotFound):
		rs.Fail(w, http.StatusNotFound, "POLL_NOT_FOUND", domain.ErrPollNotFound.Error())
	case errors.Is(err, domain.ErrInvalidOption):
		rs.Fail(w, http.StatusBadRequest, "INVALID_OPTION", domain.ErrInvalidOption.Error())
	case errors.Is(err, domain.ErrAlreadyVoted):
		rs.Fail(w, http.StatusBadRequest, "DUPLICATE_VOTE", domain.ErrAlreadyVoted.Error())
	case errors.Is(err, domain.ErrDidNotVote):
		rs.Fail(w, http.StatusBadRequest, "NO_VOTE", domain.ErrDidNotVote.Error())
	case errors.Is(err, domain.ErrDuplicateOption):
		rs.Fail(w, http.StatusBadRequest, "DUPLICATE_OPTION", domain.ErrDuplicateOption.Error())
	case errors.Is(err, domain.ErrAuthRequired):
		rs.Fail(w, http.StatusUnauthorized, "AUTH_REQUIRED", domain.ErrAuthRequired.Error())
	case errors.Is(err, domain.ErrForbidden):
		rs.Fail(w, http.StatusForbidden, "FORBIDDEN", domain.ErrForbidden.Error())
	default:
		rs.logger.Error("storage failure",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		body := errorResponse{
			Error:   http.StatusText(http.StatusServiceUnavailable),
			Code:    "STORAGE_UNAVAILABLE",
			Message: "the service is temporarily unavailable",
		}
		if rs.debug {
			body.Detail = err.Error()
		}
		rs.JSON(w, http.StatusServiceUnavailable, body)
	}
}

func (rs *Responder) BadBody(w http.ResponseWriter) {
	rs.Fail(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
}
