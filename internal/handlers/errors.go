package handlers

import (
	"errors"
	"net/http"

	"taskReminder/internal/logger"
	"taskReminder/internal/service"

	"go.uber.org/zap"
)

// handleError writes a business error with its mapped status, anything else as 500.
func handleError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	var businessErr *service.BusinessError
	if errors.As(err, &businessErr) {
		statusCode := mapBusinessErrorToHTTP(businessErr.Code)

		logger.Warn("HTTP: business error",
			zap.String("operation", operation),
			zap.String("error_code", businessErr.Code),
			zap.Int("http_status", statusCode),
			zap.String("client_ip", r.RemoteAddr))

		responseWithJSON(w, statusCode,
			toPayload("error", businessErr.Code),
			toPayload("message", businessErr.Message),
			toPayload("details", businessErr.Details),
		)
		return
	}

	logger.Error("HTTP: service error", err,
		zap.String("operation", operation),
		zap.String("client_ip", r.RemoteAddr))
	responseWithError(w, http.StatusInternalServerError, "internal server error")
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeInvalidPin:
		return http.StatusForbidden
	case service.CodeEmailFailed:
		return http.StatusBadGateway
	case service.CodeValidation, service.CodeInvalidToken:
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}
