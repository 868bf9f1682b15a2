package queue

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"kandarr/internal/models"
)

func testQueue(cfg Config) *Queue {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return New(cfg, logger)
}

func enqueue(t *testing.T, q *Queue, cardID string, priority models.Priority) models.EnrichmentTask {
	t.Helper()
	task, created, err := q.CreateTask(cardID, "Title "+cardID, models.TextBundle{Title: "Title " + cardID}, models.ContentTypeUnknown, 0, priority)
	if err != nil {
		t.Fatalf("Failed to enqueue %s: %v", cardID, err)
	}
	if !created {
		t.Fatalf("Expected a new task for %s", cardID)
	}
	return task
}

func TestCreateTaskDeduplicatesByCard(t *testing.T) {
	q := testQueue(Config{})

	first := enqueue(t, q, "card-1", models.PriorityLow)

	second, created, err := q.CreateTask("card-1", "Title", models.TextBundle{}, models.ContentTypeUnknown, 0, models.PriorityHigh)
	if err != nil {
		t.Fatalf("Resubmission failed: %v", err)
	}
	if created {
		t.Error("Expected the duplicate submission to reuse the existing task")
	}
	if second.ID != first.ID {
		t.Errorf("Expected task id %s, got %s", first.ID, second.ID)
	}
	if second.Priority != models.PriorityHigh {
		t.Errorf("Expected the priority raised to high, got %s", second.Priority)
	}
}

func TestDuplicateNeverLowersPriority(t *testing.T) {
	q := testQueue(Config{})

	enqueue(t, q, "card-1", models.PriorityHigh)

	task, _, err := q.CreateTask("card-1", "Title", models.TextBundle{}, models.ContentTypeUnknown, 0, models.PriorityLow)
	if err != nil {
		t.Fatalf("Resubmission failed: %v", err)
	}
	if task.Priority != models.PriorityHigh {
		t.Errorf("Expected priority to stay high, got %s", task.Priority)
	}
}

func TestNextPendingOrdersByPriorityThenAge(t *testing.T) {
	q := testQueue(Config{})

	for _, card := range []struct {
		id       string
		priority models.Priority
	}{
		{"low", models.PriorityLow},
		{"normal-1", models.PriorityNormal},
		{"normal-2", models.PriorityNormal},
		{"high", models.PriorityHigh},
	} {
		enqueue(t, q, card.id, card.priority)
		time.Sleep(time.Millisecond)
	}

	expected := []string{"high", "normal-1", "normal-2", "low"}
	for _, cardID := range expected {
		task, ok := q.NextPending()
		if !ok {
			t.Fatalf("Expected a pending task for %s", cardID)
		}
		if task.CardID != cardID {
			t.Fatalf("Expected card %s next, got %s", cardID, task.CardID)
		}
		if err := q.MarkProcessing(task.ID, "worker-1"); err != nil {
			t.Fatalf("Failed to mark %s processing: %v", cardID, err)
		}
	}

	if _, ok := q.NextPending(); ok {
		t.Error("Expected the queue to be drained")
	}
}

func TestMarkFailedRetriesUntilBudgetExhausted(t *testing.T) {
	q := testQueue(Config{MaxAttempts: 2})

	task := enqueue(t, q, "card-1", models.PriorityNormal)

	// first attempt fails, task cycles back to pending
	if err := q.MarkProcessing(task.ID, "worker-1"); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if err := q.MarkFailed(task.ID, "upstream timeout"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
	got, _ := q.Get(task.ID)
	if got.Status != models.TaskStatusPending {
		t.Fatalf("Expected pending after first failure, got %s", got.Status)
	}
	if got.Attempts != 1 {
		t.Errorf("Expected 1 attempt recorded, got %d", got.Attempts)
	}

	// second attempt exhausts the budget
	if err := q.MarkProcessing(task.ID, "worker-2"); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if err := q.MarkFailed(task.ID, "upstream timeout"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
	got, _ = q.Get(task.ID)
	if got.Status != models.TaskStatusFailed {
		t.Fatalf("Expected terminal failure, got %s", got.Status)
	}
	if got.LastError != "upstream timeout" {
		t.Errorf("Expected the error kept, got %q", got.LastError)
	}

	// the card is free for a fresh task now
	_, created, err := q.CreateTask("card-1", "Title", models.TextBundle{}, models.ContentTypeUnknown, 0, models.PriorityNormal)
	if err != nil {
		t.Fatalf("Fresh submission failed: %v", err)
	}
	if !created {
		t.Error("Expected a fresh task after terminal failure")
	}
}

func TestCancelPendingOnly(t *testing.T) {
	q := testQueue(Config{})

	task := enqueue(t, q, "card-1", models.PriorityNormal)

	cancelled, ok := q.Cancel("card-1")
	if !ok {
		t.Fatal("Expected a pending task to cancel")
	}
	if cancelled.Status != models.TaskStatusFailed || cancelled.LastError != "cancelled" {
		t.Errorf("Expected failed/cancelled, got %s/%q", cancelled.Status, cancelled.LastError)
	}

	if _, ok := q.Cancel("card-1"); ok {
		t.Error("Expected no second cancellation")
	}

	// a processing task must not cancel
	task2 := enqueue(t, q, "card-2", models.PriorityNormal)
	if err := q.MarkProcessing(task2.ID, "worker-1"); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if _, ok := q.Cancel("card-2"); ok {
		t.Error("Expected a processing task to run to completion")
	}
	_ = task
}

func TestQueueFullAfterCleanupFails(t *testing.T) {
	q := testQueue(Config{MaxSize: 2, Retention: time.Hour})

	enqueue(t, q, "card-1", models.PriorityNormal)
	enqueue(t, q, "card-2", models.PriorityNormal)

	_, _, err := q.CreateTask("card-3", "Title", models.TextBundle{}, models.ContentTypeUnknown, 0, models.PriorityNormal)
	if err != ErrQueueFull {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}
}

func TestQueueFullCleansAgedTerminalTasks(t *testing.T) {
	q := testQueue(Config{MaxSize: 2, Retention: time.Millisecond})

	task := enqueue(t, q, "card-1", models.PriorityNormal)
	enqueue(t, q, "card-2", models.PriorityNormal)

	if err := q.MarkProcessing(task.ID, "worker-1"); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if err := q.MarkCompleted(task.ID); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	_, created, err := q.CreateTask("card-3", "Title", models.TextBundle{}, models.ContentTypeUnknown, 0, models.PriorityNormal)
	if err != nil {
		t.Fatalf("Expected cleanup to admit the new task: %v", err)
	}
	if !created {
		t.Error("Expected a new task after cleanup")
	}
}

func TestUpdatePriorityReorders(t *testing.T) {
	q := testQueue(Config{})

	enqueue(t, q, "card-1", models.PriorityNormal)
	enqueue(t, q, "card-2", models.PriorityNormal)

	if !q.UpdatePriority("card-2", models.PriorityHigh) {
		t.Fatal("Expected the priority update to apply")
	}

	next, ok := q.NextPending()
	if !ok || next.CardID != "card-2" {
		t.Errorf("Expected card-2 to jump the queue, got %v", next.CardID)
	}

	if q.UpdatePriority("missing", models.PriorityHigh) {
		t.Error("Expected no update for an unknown card")
	}
}

func TestStatsCensus(t *testing.T) {
	q := testQueue(Config{MaxAttempts: 1})

	enqueue(t, q, "pending-1", models.PriorityHigh)
	task := enqueue(t, q, "done-1", models.PriorityNormal)

	if err := q.MarkProcessing(task.ID, "worker-1"); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if err := q.MarkCompleted(task.ID); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	stats := q.Stats()
	if stats.PendingByPriority[models.PriorityHigh] != 1 {
		t.Errorf("Expected 1 high-priority pending, got %d", stats.PendingByPriority[models.PriorityHigh])
	}
	if stats.Completed != 1 {
		t.Errorf("Expected 1 completed, got %d", stats.Completed)
	}
}

func TestReleaseRefundsAttempt(t *testing.T) {
	q := testQueue(Config{MaxAttempts: 2})

	task := enqueue(t, q, "card-1", models.PriorityNormal)

	if err := q.MarkProcessing(task.ID, ""); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if err := q.Release(task.ID); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	got, _ := q.Get(task.ID)
	if got.Status != models.TaskStatusPending {
		t.Fatalf("Expected the task back in pending, got %s", got.Status)
	}
	if got.Attempts != 0 {
		t.Errorf("Expected the attempt refunded, got %d", got.Attempts)
	}
	if got.StartedAt != nil {
		t.Error("Expected the start time cleared")
	}

	// only processing tasks release
	if err := q.Release(task.ID); err != ErrBadTransition {
		t.Errorf("Expected ErrBadTransition for a pending task, got %v", err)
	}
}

func TestAssignWorkerOnlyWhileProcessing(t *testing.T) {
	q := testQueue(Config{})

	task := enqueue(t, q, "card-1", models.PriorityNormal)

	if err := q.MarkProcessing(task.ID, ""); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	q.AssignWorker(task.ID, "worker-7")

	got, _ := q.Get(task.ID)
	if got.WorkerID != "worker-7" {
		t.Errorf("Expected worker-7 recorded, got %q", got.WorkerID)
	}

	if err := q.MarkCompleted(task.ID); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	q.AssignWorker(task.ID, "worker-9")

	got, _ = q.Get(task.ID)
	if got.WorkerID != "worker-7" {
		t.Errorf("Expected the completed task left alone, got %q", got.WorkerID)
	}
}
