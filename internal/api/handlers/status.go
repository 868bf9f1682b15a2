package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"kandarr/internal/coordinator"
	"kandarr/internal/scheduler"
)

// StatusHandler handles status requests
type StatusHandler struct {
	coord  *coordinator.Coordinator
	sched  *scheduler.Scheduler
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(coord *coordinator.Coordinator, sched *scheduler.Scheduler, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		coord:  coord,
		sched:  sched,
		logger: logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	QueuePending    map[string]int           `json:"queue_pending"`
	QueueProcessing int                      `json:"queue_processing"`
	QueueCompleted  int                      `json:"queue_completed"`
	QueueFailed     int                      `json:"queue_failed"`
	ActiveWorkers   int                      `json:"active_workers"`
	IdleWorkers     int                      `json:"idle_workers"`
	JobsCompleted   int                      `json:"jobs_completed"`
	RateLimits      map[string]RateLimitView `json:"rate_limits"`
	NewContent      []NewContentView         `json:"new_content"`
}

// RateLimitView is one provider's budget in the status response
type RateLimitView struct {
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
	Available         float64 `json:"available"`
}

// NewContentView is one flagged card in the status response
type NewContentView struct {
	CardID string `json:"card_id"`
	Title  string `json:"title"`
	Found  string `json:"found"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := h.coord.GetStats()

	response := StatusResponse{
		QueuePending:    make(map[string]int),
		QueueProcessing: stats.Queue.Processing,
		QueueCompleted:  stats.Queue.Completed,
		QueueFailed:     stats.Queue.Failed,
		ActiveWorkers:   stats.Pool.ActiveWorkers,
		IdleWorkers:     stats.Pool.IdleWorkers,
		JobsCompleted:   stats.Pool.JobsCompleted,
		RateLimits:      make(map[string]RateLimitView),
		NewContent:      []NewContentView{},
	}

	for priority, count := range stats.Queue.PendingByPriority {
		response.QueuePending[string(priority)] = count
	}
	for provider, status := range stats.RateLimits {
		response.RateLimits[provider] = RateLimitView{
			RequestsPerSecond: status.RequestsPerSecond,
			Burst:             status.Burst,
			Available:         status.Available,
		}
	}
	for _, finding := range h.sched.LatestFindings() {
		view := NewContentView{
			CardID: finding.CardID,
			Title:  finding.Title,
			Status: finding.Detection.Status,
		}
		if finding.Detection.Upcoming != nil {
			view.Found = finding.Detection.Upcoming.Title
			view.Kind = finding.Detection.Upcoming.Kind
		}
		response.NewContent = append(response.NewContent, view)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
