package handlers

import (
	"net/http"
	"time"

	"github.com/diewo77/go-fieldops/httpx"
	"github.com/diewo77/go-fieldops/i18n"
)

type healthResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Health returns the liveness handler of a service. messageCode is the
// catalog key of its greeting.
func Health(messageCode string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, healthResponse{
			Success:   true,
			Message:   i18n.T(i18n.LangFrom(r.Context()), messageCode),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}
