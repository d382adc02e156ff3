// Package respond writes JSON bodies and maps service errors to HTTP responses.
package respond

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/apperr"
)

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"message": msg})
}

// Error answers with the status of err's kind. Server-side failures are logged with
// their details and answered with fallback.
func Error(w http.ResponseWriter, logger *zap.SugaredLogger, err error, fallback string) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		logger.Errorw(fallback, "err", err)
	} else {
		logger.Debugw("request rejected", "status", status, "err", err)
	}
	ErrorStatus(w, status, apperr.Message(err, fallback))
}

func ErrorStatus(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}
