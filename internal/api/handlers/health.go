package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// HealthHandler answers liveness probes with the service identity and
// its uptime
type HealthHandler struct {
	started time.Time
	logger  *logrus.Logger
}

// NewHealthHandler creates a health handler anchored at startup time
func NewHealthHandler(logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{started: time.Now(), logger: logger}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "kandarr",
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	}); err != nil {
		h.logger.WithError(err).Error("Failed to write health response")
	}
}
