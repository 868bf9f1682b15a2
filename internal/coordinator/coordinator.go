// Package coordinator is the façade tying the task queue, the worker
// pool and the enrichment service together behind a small submit,
// subscribe and wait surface.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"kandarr/internal/enrich"
	"kandarr/internal/models"
	"kandarr/internal/pool"
	"kandarr/internal/queue"
	"kandarr/internal/ratelimit"
)

// DefaultWaitTimeout bounds WaitFor when the caller's context has no
// deadline of its own
const DefaultWaitTimeout = 60 * time.Second

// LookupWindow is how long a persisted enrichment snapshot may answer a
// resubmitted card before the pipeline runs again from scratch
const LookupWindow = time.Hour

// resultRetention bounds how long a terminal result stays available to
// late WaitFor callers before the sweep drops it
const resultRetention = 30 * time.Minute

// recordedResult is a terminal result plus when it was recorded, so
// the retention sweep can age it out
type recordedResult struct {
	result     models.TaskResult
	recordedAt time.Time
}

// ErrNoTask is returned by WaitFor for a card with no active task and
// no recorded result
var ErrNoTask = errors.New("no task for card")

// Subscription is the callback set invoked as a card's task moves
// through its lifecycle. Any field may be nil.
type Subscription struct {
	OnComplete func(models.TaskResult)
	OnError    func(models.TaskResult)
	OnProgress func(models.TaskStatus)
}

// Stats aggregates the queue, pool and rate limiter snapshots
type Stats struct {
	Queue      queue.Stats
	Pool       pool.Stats
	RateLimits map[string]ratelimit.ProviderStatus
}

// Coordinator is safe for concurrent use. A single dispatch loop owns
// the pending-to-processing transition, so tasks are never double
// assigned.
type Coordinator struct {
	queue       *queue.Queue
	pool        *pool.Pool
	service     *enrich.Service
	db          *models.Database
	limiter     *ratelimit.Limiter
	logger      *logrus.Logger
	waitTimeout time.Duration

	mu      sync.Mutex
	subs    map[string]map[int]Subscription
	nextSub int
	waiters map[string][]chan models.TaskResult
	results map[string]recordedResult

	kick   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a coordinator. The database may be nil, in which case no
// task history or scan snapshots are persisted.
func New(q *queue.Queue, p *pool.Pool, service *enrich.Service, db *models.Database, limiter *ratelimit.Limiter, waitTimeout time.Duration, logger *logrus.Logger) *Coordinator {
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		queue:       q,
		pool:        p,
		service:     service,
		db:          db,
		limiter:     limiter,
		logger:      logger,
		waitTimeout: waitTimeout,
		subs:        make(map[string]map[int]Subscription),
		waiters:     make(map[string][]chan models.TaskResult),
		results:     make(map[string]recordedResult),
		kick:        make(chan struct{}, 1),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the worker pool and the dispatch loop
func (c *Coordinator) Start() {
	c.pool.Start()
	c.wg.Add(1)
	go c.dispatchLoop()
	c.logger.Info("Coordinator started")
}

// Shutdown stops dispatching and drains the pool
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.cancel()
	c.wg.Wait()
	return c.pool.Shutdown(ctx)
}

// Submit enqueues a card for detection and enrichment and returns the
// task id. Resubmitting a card with an active task returns that task's
// id, with its priority raised if the new submission is stronger.
func (c *Coordinator) Submit(cardID string, bundle models.TextBundle, priority models.Priority) (string, error) {
	return c.submit(cardID, bundle, models.ContentTypeUnknown, 0, priority)
}

// SubmitWithKnownType enqueues a card whose content type the user has
// already chosen, skipping detection entirely
func (c *Coordinator) SubmitWithKnownType(cardID string, bundle models.TextBundle, contentType models.ContentType, year int, priority models.Priority) (string, error) {
	return c.submit(cardID, bundle, contentType, year, priority)
}

func (c *Coordinator) submit(cardID string, bundle models.TextBundle, contentType models.ContentType, year int, priority models.Priority) (string, error) {
	task, created, err := c.queue.CreateTask(cardID, bundle.Title, bundle, contentType, year, priority)
	if err != nil {
		return "", err
	}
	if created {
		c.notifyProgress(cardID, models.TaskStatusPending)
		c.signal()
	}
	return task.ID, nil
}

// Subscribe registers lifecycle callbacks for a card and returns an
// unsubscribe function
func (c *Coordinator) Subscribe(cardID string, sub Subscription) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subs[cardID] == nil {
		c.subs[cardID] = make(map[int]Subscription)
	}
	id := c.nextSub
	c.nextSub++
	c.subs[cardID][id] = sub

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs[cardID], id)
		if len(c.subs[cardID]) == 0 {
			delete(c.subs, cardID)
		}
	}
}

// WaitFor blocks until the card's task reaches a terminal state. When
// the card has no active task, the last recorded result is returned at
// once, or ErrNoTask when there is none.
func (c *Coordinator) WaitFor(ctx context.Context, cardID string) (models.TaskResult, error) {
	// terminal transitions record their result under c.mu before the
	// card leaves the queue, so this read is consistent
	c.mu.Lock()
	if _, active := c.queue.GetByCard(cardID); !active {
		recorded, ok := c.results[cardID]
		c.mu.Unlock()
		if !ok {
			return models.TaskResult{}, ErrNoTask
		}
		return recorded.result, nil
	}
	ch := make(chan models.TaskResult, 1)
	c.waiters[cardID] = append(c.waiters[cardID], ch)
	c.mu.Unlock()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.waitTimeout)
		defer cancel()
	}

	select {
	case result := <-ch:
		return result, nil
	case <-ctx.Done():
		return models.TaskResult{}, ctx.Err()
	}
}

// Cancel aborts a card's task if it has not started running yet
func (c *Coordinator) Cancel(cardID string) bool {
	c.mu.Lock()
	task, ok := c.queue.Cancel(cardID)
	if !ok {
		c.mu.Unlock()
		return false
	}
	result := models.TaskResult{Err: "cancelled"}
	waiting, subs := c.recordLocked(cardID, result)
	c.mu.Unlock()

	c.persistTask(task.ID)
	c.fanOut(result, waiting, subs)
	return true
}

// UpdatePriority changes the priority of a card's queued task
func (c *Coordinator) UpdatePriority(cardID string, priority models.Priority) bool {
	if !c.queue.UpdatePriority(cardID, priority) {
		return false
	}
	c.signal()
	return true
}

// GetTask returns the card's active task, or its most recent one from
// history when none is active
func (c *Coordinator) GetTask(cardID string) (models.EnrichmentTask, bool) {
	if task, ok := c.queue.GetByCard(cardID); ok {
		return task, true
	}
	if c.db == nil {
		return models.EnrichmentTask{}, false
	}
	tasks, err := c.db.GetTasksByCardID(cardID)
	if err != nil || len(tasks) == 0 {
		return models.EnrichmentTask{}, false
	}
	latest := tasks[0]
	for _, task := range tasks[1:] {
		if task.UpdatedAt.After(latest.UpdatedAt) {
			latest = task
		}
	}
	return *latest, true
}

// GetStats snapshots the queue, the pool and the rate limiter
func (c *Coordinator) GetStats() Stats {
	return Stats{
		Queue:      c.queue.Stats(),
		Pool:       c.pool.Stats(),
		RateLimits: c.limiter.Status(),
	}
}

// signal nudges the dispatch loop without blocking
func (c *Coordinator) signal() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *Coordinator) dispatchLoop() {
	defer c.wg.Done()

	// periodic sweep in case a notification was coalesced away
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.kick:
		case <-c.pool.Available():
		case <-ticker.C:
			c.pruneResults()
		}
		c.dispatch()
	}
}

// dispatch assigns pending tasks to idle workers until one side runs
// out. The task moves to processing before a worker can observe it, so
// a fast completion never races the transition.
func (c *Coordinator) dispatch() {
	for {
		task, ok := c.queue.NextPending()
		if !ok {
			return
		}
		if err := c.queue.MarkProcessing(task.ID, ""); err != nil {
			// another path moved the task already, look for the next one
			continue
		}
		job := func(ctx context.Context) {
			c.runTask(ctx, task.ID)
		}
		workerID, assigned, err := c.pool.TrySubmit(job)
		if err != nil || !assigned {
			if relErr := c.queue.Release(task.ID); relErr != nil {
				c.logger.WithError(relErr).WithField("task_id", task.ID).Error("Failed to release unassigned task")
			}
			return
		}
		c.queue.AssignWorker(task.ID, workerID)
		c.notifyProgress(task.CardID, models.TaskStatusProcessing)
	}
}

// runTask executes one attempt of a task on a pool worker
func (c *Coordinator) runTask(ctx context.Context, taskID string) {
	task, ok := c.queue.Get(taskID)
	if !ok {
		return
	}

	// A panicking attempt fails the task through the normal retry
	// path before the pool replaces the worker.
	defer func() {
		if r := recover(); r != nil {
			c.handleFailure(task, fmt.Errorf("task panicked: %v", r))
			panic(r)
		}
	}()

	if result, ok := c.cachedResult(task); ok {
		c.complete(task, result)
		c.logger.WithFields(logrus.Fields{
			"task_id": task.ID,
			"card_id": task.CardID,
		}).Info("Task served from snapshot")
		return
	}

	result, err := c.execute(ctx, task)
	if err != nil {
		c.handleFailure(task, err)
		return
	}

	c.snapshot(task, result)
	c.complete(task, result)

	c.logger.WithFields(logrus.Fields{
		"task_id": task.ID,
		"card_id": task.CardID,
		"matched": result.Data != nil,
	}).Info("Task completed")
}

// cachedResult answers a task from the card's persisted snapshot when
// it is still inside the lookup window. A known-type submission only
// reuses a snapshot of the same type.
func (c *Coordinator) cachedResult(task models.EnrichmentTask) (models.TaskResult, bool) {
	if c.db == nil {
		return models.TaskResult{}, false
	}
	cached, err := c.db.GetCachedEnrichment(task.CardID)
	if err != nil || cached == nil || !cached.Fresh(LookupWindow) {
		return models.TaskResult{}, false
	}
	if task.ContentType != "" && task.ContentType != models.ContentTypeUnknown && task.ContentType != cached.Data.Type {
		return models.TaskResult{}, false
	}
	data := cached.Data
	detection := models.DetectionResult{
		ContentType: data.Type,
		Category:    models.CategoryFor(data.Type),
		Confidence:  100,
		Method:      "cached",
	}
	return models.TaskResult{Success: true, Detection: &detection, Data: &data}, true
}

// execute performs the detection and enrichment work for one task
func (c *Coordinator) execute(ctx context.Context, task models.EnrichmentTask) (models.TaskResult, error) {
	if task.ContentType != "" && task.ContentType != models.ContentTypeUnknown {
		// user already chose the type, skip detection
		detection := models.DetectionResult{
			ContentType: task.ContentType,
			Category:    models.CategoryFor(task.ContentType),
			Confidence:  100,
			Method:      "user_specified",
		}
		data, report, err := c.service.Enrich(ctx, task.Title, task.ContentType, task.Year)
		if err != nil {
			return models.TaskResult{}, err
		}
		return buildResult(detection, data, report), nil
	}

	outcome, err := c.service.Process(ctx, task.Bundle)
	if err != nil {
		return models.TaskResult{}, err
	}
	return buildResult(outcome.Detection, outcome.Data, outcome.Report), nil
}

func buildResult(detection models.DetectionResult, data *models.EnrichedData, report *models.ValidationReport) models.TaskResult {
	result := models.TaskResult{
		Success:   true,
		Detection: &detection,
		Data:      data,
	}
	if report != nil {
		result.Issues = report.Issues
	}
	return result
}

func (c *Coordinator) handleFailure(task models.EnrichmentTask, err error) {
	c.mu.Lock()
	if markErr := c.queue.MarkFailed(task.ID, err.Error()); markErr != nil {
		c.mu.Unlock()
		c.logger.WithError(markErr).WithField("task_id", task.ID).Error("Failed to mark task failed")
		return
	}

	updated, ok := c.queue.Get(task.ID)
	if ok && updated.Status == models.TaskStatusPending {
		c.mu.Unlock()
		c.logger.WithError(err).WithFields(logrus.Fields{
			"task_id":  task.ID,
			"attempts": updated.Attempts,
		}).Warn("Task attempt failed, requeued")
		c.notifyProgress(task.CardID, models.TaskStatusPending)
		c.signal()
		return
	}

	result := models.TaskResult{Err: err.Error()}
	waiting, subs := c.recordLocked(task.CardID, result)
	c.mu.Unlock()

	c.persistTask(task.ID)
	c.fanOut(result, waiting, subs)
}

// persistTask records a finished task into history
func (c *Coordinator) persistTask(taskID string) {
	if c.db == nil {
		return
	}
	task, ok := c.queue.Get(taskID)
	if !ok {
		return
	}
	if err := c.db.SaveTask(&task); err != nil {
		c.logger.WithError(err).WithField("task_id", task.ID).Error("Failed to persist task history")
	}
}

// snapshot stores the enriched data for the scheduler's new-content
// scans
func (c *Coordinator) snapshot(task models.EnrichmentTask, result models.TaskResult) {
	if c.db == nil || result.Data == nil {
		return
	}
	cached := &models.CachedEnrichment{
		CardID:     task.CardID,
		Data:       *result.Data,
		Checklists: task.Bundle.ChecklistNames,
		FetchedAt:  time.Now(),
	}
	if err := c.db.SaveCachedEnrichment(cached); err != nil {
		c.logger.WithError(err).WithField("card_id", task.CardID).Error("Failed to persist enrichment snapshot")
	}
}

// recordLocked stores the result and detaches the card's waiters and
// subscribers. Callers hold c.mu.
func (c *Coordinator) recordLocked(cardID string, result models.TaskResult) ([]chan models.TaskResult, []Subscription) {
	c.results[cardID] = recordedResult{result: result, recordedAt: time.Now()}
	waiting := c.waiters[cardID]
	delete(c.waiters, cardID)
	var subs []Subscription
	for _, sub := range c.subs[cardID] {
		subs = append(subs, sub)
	}
	return waiting, subs
}

// fanOut pushes a recorded result to the detached waiters and
// subscribers outside any lock
func (c *Coordinator) fanOut(result models.TaskResult, waiting []chan models.TaskResult, subs []Subscription) {
	for _, ch := range waiting {
		ch <- result
	}
	for _, sub := range subs {
		if result.Success && sub.OnComplete != nil {
			sub.OnComplete(result)
		}
		if !result.Success && sub.OnError != nil {
			sub.OnError(result)
		}
	}
}

// complete marks the task terminal and records its result under one
// lock, so a waiter can never see the card gone from the queue with
// the result still unrecorded
func (c *Coordinator) complete(task models.EnrichmentTask, result models.TaskResult) {
	c.mu.Lock()
	if err := c.queue.MarkCompleted(task.ID); err != nil {
		c.logger.WithError(err).WithField("task_id", task.ID).Error("Failed to mark task completed")
	}
	waiting, subs := c.recordLocked(task.CardID, result)
	c.mu.Unlock()

	c.persistTask(task.ID)
	c.fanOut(result, waiting, subs)
}

// pruneResults ages recorded results out of the retention window
func (c *Coordinator) pruneResults() {
	cutoff := time.Now().Add(-resultRetention)
	c.mu.Lock()
	for cardID, recorded := range c.results {
		if recorded.recordedAt.Before(cutoff) {
			delete(c.results, cardID)
		}
	}
	c.mu.Unlock()
}

func (c *Coordinator) notifyProgress(cardID string, status models.TaskStatus) {
	c.mu.Lock()
	var callbacks []func(models.TaskStatus)
	for _, sub := range c.subs[cardID] {
		if sub.OnProgress != nil {
			callbacks = append(callbacks, sub.OnProgress)
		}
	}
	c.mu.Unlock()

	for _, cb := range callbacks {
		cb(status)
	}
}
