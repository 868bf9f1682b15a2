package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"kandarr/internal/coordinator"
	"kandarr/internal/models"
	"kandarr/internal/queue"
)

// TasksHandler handles task submission and per-card task operations
type TasksHandler struct {
	coord  *coordinator.Coordinator
	logger *logrus.Logger
}

// NewTasksHandler creates a new tasks handler
func NewTasksHandler(coord *coordinator.Coordinator, logger *logrus.Logger) *TasksHandler {
	return &TasksHandler{
		coord:  coord,
		logger: logger,
	}
}

// SubmitRequest is the payload for POST /api/tasks
type SubmitRequest struct {
	CardID         string   `json:"card_id"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	ListContext    string   `json:"list_context,omitempty"`
	URLs           []string `json:"urls,omitempty"`
	ChecklistNames []string `json:"checklist_names,omitempty"`
	ContentType    string   `json:"content_type,omitempty"` // set to skip detection
	Year           int      `json:"year,omitempty"`
	Priority       string   `json:"priority,omitempty"`
}

// TaskResponse is the per-card task view
type TaskResponse struct {
	TaskID      string `json:"task_id"`
	CardID      string `json:"card_id"`
	Title       string `json:"title"`
	ContentType string `json:"content_type"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	Attempts    int    `json:"attempts"`
	LastError   string `json:"last_error,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func taskResponse(task models.EnrichmentTask) TaskResponse {
	return TaskResponse{
		TaskID:      task.ID,
		CardID:      task.CardID,
		Title:       task.Title,
		ContentType: string(task.ContentType),
		Priority:    string(task.Priority),
		Status:      string(task.Status),
		Attempts:    task.Attempts,
		LastError:   task.LastError,
		CreatedAt:   task.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   task.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Submit handles POST /api/tasks
func (h *TasksHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WithError(err).Error("Failed to decode submit payload")
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}
	if req.CardID == "" || req.Title == "" {
		http.Error(w, "card_id and title are required", http.StatusBadRequest)
		return
	}

	priority := models.PriorityNormal
	if req.Priority != "" {
		p := models.Priority(req.Priority)
		if p != models.PriorityHigh && p != models.PriorityNormal && p != models.PriorityLow {
			http.Error(w, "Unknown priority", http.StatusBadRequest)
			return
		}
		priority = p
	}

	bundle := models.TextBundle{
		Title:          req.Title,
		Description:    req.Description,
		ListContext:    req.ListContext,
		URLs:           req.URLs,
		ChecklistNames: req.ChecklistNames,
	}

	var taskID string
	var err error
	if req.ContentType != "" {
		taskID, err = h.coord.SubmitWithKnownType(req.CardID, bundle, models.ContentType(req.ContentType), req.Year, priority)
	} else {
		taskID, err = h.coord.Submit(req.CardID, bundle, priority)
	}
	if errors.Is(err, queue.ErrQueueFull) {
		http.Error(w, "Queue is full", http.StatusTooManyRequests)
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to submit task")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"task_id": taskID,
		"card_id": req.CardID,
	})
}

// ByCard routes GET, DELETE and PATCH on /api/tasks/{card}
func (h *TasksHandler) ByCard(w http.ResponseWriter, r *http.Request) {
	cardID := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	if cardID == "" || strings.Contains(cardID, "/") {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, cardID)
	case http.MethodDelete:
		h.cancel(w, cardID)
	case http.MethodPatch:
		h.updatePriority(w, r, cardID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *TasksHandler) get(w http.ResponseWriter, cardID string) {
	task, ok := h.coord.GetTask(cardID)
	if !ok {
		http.Error(w, "No task for card", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(taskResponse(task))
}

func (h *TasksHandler) cancel(w http.ResponseWriter, cardID string) {
	if !h.coord.Cancel(cardID) {
		http.Error(w, "No cancellable task for card", http.StatusConflict)
		return
	}

	h.logger.WithField("card_id", cardID).Info("Task cancelled")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "cancelled"})
}

func (h *TasksHandler) updatePriority(w http.ResponseWriter, r *http.Request, cardID string) {
	var req struct {
		Priority string `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	priority := models.Priority(req.Priority)
	if priority != models.PriorityHigh && priority != models.PriorityNormal && priority != models.PriorityLow {
		http.Error(w, "Unknown priority", http.StatusBadRequest)
		return
	}

	if !h.coord.UpdatePriority(cardID, priority) {
		http.Error(w, "No active task for card", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
