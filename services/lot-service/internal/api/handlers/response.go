package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	perrors "github.com/athebyme/funpay-bridge/pkg/errors"
	"github.com/athebyme/funpay-bridge/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// errorResponse представляет структуру ответа с ошибкой
type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// statusFor сопоставляет ошибку сервиса с HTTP статусом
// Все, кроме "не найдено", отдается клиенту как 400
func statusFor(err error) (int, string) {
	var verr *perrors.ValidationError
	switch {
	case errors.Is(err, perrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &verr):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, perrors.ErrUnauthorized), errors.Is(err, perrors.ErrSessionExpired):
		return http.StatusBadRequest, "unauthorized"
	case errors.Is(err, perrors.ErrCopyInProgress):
		return http.StatusBadRequest, "copy_in_progress"
	case errors.Is(err, perrors.ErrInvalidInput):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadRequest, "canceled"
	default:
		return http.StatusBadRequest, "marketplace_error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger interfaces.LoggerPort, msg string, err error) {
	status, code := statusFor(err)

	logger.ErrorWithContext(r.Context(), msg,
		interfaces.LogField{Key: "path", Value: r.URL.Path},
		interfaces.LogField{Key: "status", Value: status},
		interfaces.LogField{Key: "error", Value: err.Error()},
	)

	render.Status(r, status)
	render.JSON(w, r, errorResponse{
		Error:   code,
		Code:    status,
		Message: msg,
		Detail:  err.Error(),
	})
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, errorResponse{
		Error:   "bad_request",
		Code:    http.StatusBadRequest,
		Message: msg,
		Detail:  msg,
	})
}

// int64Param читает целое из параметра пути chi
func int64Param(r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return v, err == nil
}

func int64Query(r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get(name)), 10, 64)
	return v, err == nil
}

// goldenKey берет golden_key из query string
func goldenKey(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("golden_key"))
}
