package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	errx "github.com/tripgenie/agent-server/internal/core/error"
)

type ResponseHandler interface {
	WriteJSON(w http.ResponseWriter, r *http.Request, status int, data any)
	HandleError(w http.ResponseWriter, r *http.Request, err error)
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type responseHandler struct{}

func NewResponseHandler() ResponseHandler {
	return &responseHandler{}
}

func (h *responseHandler) WriteJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("failed to encode response")
	}
}

// HandleError maps err to its status and kind. Messages of 5xx errors that
// are not AppErrors never reach the client.
func (h *responseHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	log := zerolog.Ctx(r.Context())
	status := errx.StatusOf(err)
	kind := errx.KindOf(err)

	message := errx.SystemErrorMessage
	if kind != errx.KindInternal {
		message = safeMessage(err)
	} else if status == http.StatusGatewayTimeout {
		message = "request timed out"
	}

	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Int("status", status).Str("kind", string(kind)).Msg("request failed")

	h.WriteJSON(w, r, status, ErrorResponse{Error: message, Code: string(kind)})
}

// safeMessage returns the AppError message without the wrapped cause, which
// may carry provider bodies or URLs with API keys.
func safeMessage(err error) string {
	var appErr *errx.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return errx.SystemErrorMessage
}
