package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"communityBoard/internal/feed"
	"communityBoard/internal/repository"
	"communityBoard/internal/service"
)

// ErrorResponse - стандартный ответ с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError - универсальная функция для отправки ошибок
func WriteError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// writeSuccess - функция для успешных ответов
func writeSuccess(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// StatusFor maps domain errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, feed.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, feed.ErrPostNotFound),
		errors.Is(err, feed.ErrIntentNotFound),
		errors.Is(err, feed.ErrUserNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, feed.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	WriteError(w, err.Error(), status)
}
