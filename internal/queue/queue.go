// Package queue holds the deduplicated, priority-ordered queue of
// enrichment tasks keyed by the originating board card.
package queue

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"kandarr/internal/models"
)

var (
	// ErrQueueFull is returned when the bounded queue cannot be cleaned
	// further to admit a new task
	ErrQueueFull = errors.New("task queue is full")
	// ErrNotFound is returned for unknown task ids
	ErrNotFound = errors.New("task not found")
	// ErrBadTransition is returned for an illegal status transition
	ErrBadTransition = errors.New("illegal task status transition")
)

// Config bounds the queue
type Config struct {
	MaxSize     int           // total tasks held, including terminal history
	Retention   time.Duration // how long terminal tasks are kept before cleanup
	MaxAttempts int           // per-task retry budget
}

// DefaultConfig returns the shipped queue bounds
func DefaultConfig() Config {
	return Config{
		MaxSize:     500,
		Retention:   30 * time.Minute,
		MaxAttempts: 3,
	}
}

// Stats is a point-in-time queue census
type Stats struct {
	PendingByPriority map[models.Priority]int
	Processing        int
	Completed         int
	Failed            int
}

// Queue is safe for concurrent use. Mutation happens only through its
// methods; returned tasks are copies.
type Queue struct {
	mu     sync.Mutex
	tasks  map[string]*models.EnrichmentTask // by task id
	byCard map[string]string                 // card id -> non-terminal task id
	cfg    Config
	logger *logrus.Logger
}

// New creates an empty task queue
func New(cfg Config, logger *logrus.Logger) *Queue {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultConfig().MaxSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultConfig().Retention
	}
	return &Queue{
		tasks:  make(map[string]*models.EnrichmentTask),
		byCard: make(map[string]string),
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTask enqueues an enrichment request for a card. If the card
// already has a non-terminal task, no duplicate is created: the
// existing task is returned with its priority raised to the stronger
// of the two. The bool reports whether a new task was created.
func (q *Queue) CreateTask(cardID, title string, bundle models.TextBundle, contentType models.ContentType, year int, priority models.Priority) (models.EnrichmentTask, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if existingID, ok := q.byCard[cardID]; ok {
		existing := q.tasks[existingID]
		raised := existing.Priority.Stronger(priority)
		if raised != existing.Priority {
			q.logger.WithFields(logrus.Fields{
				"task_id":  existing.ID,
				"card_id":  cardID,
				"priority": raised,
			}).Debug("Duplicate submission raised task priority")
			existing.Priority = raised
			existing.UpdatedAt = time.Now()
		}
		return *existing, false, nil
	}

	if len(q.tasks) >= q.cfg.MaxSize {
		q.cleanupLocked()
		if len(q.tasks) >= q.cfg.MaxSize {
			return models.EnrichmentTask{}, false, ErrQueueFull
		}
	}

	now := time.Now()
	task := &models.EnrichmentTask{
		ID:          uuid.NewString(),
		CardID:      cardID,
		Title:       title,
		ContentType: contentType,
		Year:        year,
		Bundle:      bundle,
		Priority:    priority,
		Status:      models.TaskStatusPending,
		MaxAttempts: q.cfg.MaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	q.tasks[task.ID] = task
	q.byCard[cardID] = task.ID

	q.logger.WithFields(logrus.Fields{
		"task_id":  task.ID,
		"card_id":  cardID,
		"priority": priority,
	}).Debug("Task enqueued")
	return *task, true, nil
}

// NextPending returns the next task to run: strongest priority first,
// FIFO within a priority. The bool reports whether one was found.
func (q *Queue) NextPending() (models.EnrichmentTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var best *models.EnrichmentTask
	for _, task := range q.tasks {
		if task.Status != models.TaskStatusPending {
			continue
		}
		if best == nil || before(task, best) {
			best = task
		}
	}
	if best == nil {
		return models.EnrichmentTask{}, false
	}
	return *best, true
}

// PendingTasks returns every pending task in processing order
func (q *Queue) PendingTasks() []models.EnrichmentTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	var pending []models.EnrichmentTask
	for _, task := range q.tasks {
		if task.Status == models.TaskStatusPending {
			pending = append(pending, *task)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return before(&pending[i], &pending[j])
	})
	return pending
}

// before orders tasks by priority weight then creation time
func before(a, b *models.EnrichmentTask) bool {
	if a.Priority.Weight() != b.Priority.Weight() {
		return a.Priority.Weight() < b.Priority.Weight()
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// MarkProcessing transitions a pending task to processing on a worker
// and charges one attempt
func (q *Queue) MarkProcessing(taskID, workerID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	if task.Status != models.TaskStatusPending {
		return ErrBadTransition
	}

	now := time.Now()
	task.Status = models.TaskStatusProcessing
	task.WorkerID = workerID
	task.Attempts++
	task.StartedAt = &now
	task.UpdatedAt = now
	return nil
}

// Release returns an unstarted processing task to pending and refunds
// its attempt. Used when no worker could take the task after all.
func (q *Queue) Release(taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	if task.Status != models.TaskStatusProcessing {
		return ErrBadTransition
	}

	task.Status = models.TaskStatusPending
	task.WorkerID = ""
	task.Attempts--
	task.StartedAt = nil
	task.UpdatedAt = time.Now()
	return nil
}

// AssignWorker records which worker picked up a processing task. A
// task that already left processing is left alone.
func (q *Queue) AssignWorker(taskID, workerID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if task, ok := q.tasks[taskID]; ok && task.Status == models.TaskStatusProcessing {
		task.WorkerID = workerID
	}
}

// MarkCompleted transitions a processing task to its terminal
// completed state
func (q *Queue) MarkCompleted(taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	if task.Status != models.TaskStatusProcessing {
		return ErrBadTransition
	}

	now := time.Now()
	task.Status = models.TaskStatusCompleted
	task.CompletedAt = &now
	task.UpdatedAt = now
	delete(q.byCard, task.CardID)
	return nil
}

// MarkFailed records a failure: the task cycles back to pending while
// attempts remain, otherwise it fails terminally with the error kept
func (q *Queue) MarkFailed(taskID, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	if task.Status != models.TaskStatusProcessing {
		return ErrBadTransition
	}

	now := time.Now()
	task.LastError = reason
	task.WorkerID = ""
	task.UpdatedAt = now

	if task.Attempts < task.MaxAttempts {
		task.Status = models.TaskStatusPending
		q.logger.WithFields(logrus.Fields{
			"task_id":  task.ID,
			"attempts": task.Attempts,
			"max":      task.MaxAttempts,
		}).Debug("Task requeued for retry")
		return nil
	}

	task.Status = models.TaskStatusFailed
	task.CompletedAt = &now
	delete(q.byCard, task.CardID)
	q.logger.WithFields(logrus.Fields{
		"task_id": task.ID,
		"reason":  reason,
	}).Warn("Task failed terminally")
	return nil
}

// Cancel fails a card's task immediately if it has not started yet and
// returns the cancelled task. Tasks already on a worker run to
// completion.
func (q *Queue) Cancel(cardID string) (models.EnrichmentTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	taskID, ok := q.byCard[cardID]
	if !ok {
		return models.EnrichmentTask{}, false
	}
	task := q.tasks[taskID]
	if task.Status != models.TaskStatusPending {
		return models.EnrichmentTask{}, false
	}

	now := time.Now()
	task.Status = models.TaskStatusFailed
	task.LastError = "cancelled"
	task.CompletedAt = &now
	task.UpdatedAt = now
	delete(q.byCard, cardID)
	return *task, true
}

// UpdatePriority changes the priority of a card's non-terminal task
func (q *Queue) UpdatePriority(cardID string, priority models.Priority) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	taskID, ok := q.byCard[cardID]
	if !ok {
		return false
	}
	task := q.tasks[taskID]
	task.Priority = priority
	task.UpdatedAt = time.Now()
	return true
}

// Get returns a task by id
func (q *Queue) Get(taskID string) (models.EnrichmentTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return models.EnrichmentTask{}, false
	}
	return *task, true
}

// GetByCard returns a card's non-terminal task
func (q *Queue) GetByCard(cardID string) (models.EnrichmentTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	taskID, ok := q.byCard[cardID]
	if !ok {
		return models.EnrichmentTask{}, false
	}
	return *q.tasks[taskID], true
}

// Stats takes a census of the queue
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := Stats{PendingByPriority: map[models.Priority]int{}}
	for _, task := range q.tasks {
		switch task.Status {
		case models.TaskStatusPending:
			stats.PendingByPriority[task.Priority]++
		case models.TaskStatusProcessing:
			stats.Processing++
		case models.TaskStatusCompleted:
			stats.Completed++
		case models.TaskStatusFailed:
			stats.Failed++
		}
	}
	return stats
}

// cleanupLocked drops terminal tasks older than the retention window.
// Caller holds the mutex.
func (q *Queue) cleanupLocked() {
	cutoff := time.Now().Add(-q.cfg.Retention)
	removed := 0
	for id, task := range q.tasks {
		if !task.Status.Terminal() {
			continue
		}
		if task.UpdatedAt.After(cutoff) {
			continue
		}
		delete(q.tasks, id)
		removed++
	}
	if removed > 0 {
		q.logger.WithField("removed", removed).Debug("Cleaned up terminal tasks")
	}
}
