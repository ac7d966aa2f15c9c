package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/themeshop/pkg/api"
)

// sendJSON отправляет JSON ответ
func sendJSON(logger *slog.Logger, w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil && logger != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// SendError отправляет JSON ответ с ошибкой в формате {error, code, message}.
// Используется также middleware.
func SendError(w http.ResponseWriter, statusCode int, code, message string) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    code,
		Message: message,
	}
	sendJSON(nil, w, resp, statusCode)
}
