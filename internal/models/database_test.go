package models

import (
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTaskHistoryRoundTrip(t *testing.T) {
	db := testDB(t)

	task := &EnrichmentTask{
		ID:       "task-1",
		CardID:   "card-1",
		Title:    "Dark",
		Status:   TaskStatusCompleted,
		Priority: PriorityNormal,
	}
	if err := db.SaveTask(task); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}

	got, err := db.GetTask("task-1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.CardID != "card-1" || got.Title != "Dark" {
		t.Errorf("Expected the stored task back, got %+v", got)
	}

	byCard, err := db.GetTasksByCardID("card-1")
	if err != nil {
		t.Fatalf("GetTasksByCardID failed: %v", err)
	}
	if len(byCard) != 1 {
		t.Errorf("Expected 1 task for the card, got %d", len(byCard))
	}

	byStatus, err := db.GetTasksByStatus(TaskStatusCompleted)
	if err != nil {
		t.Fatalf("GetTasksByStatus failed: %v", err)
	}
	if len(byStatus) != 1 {
		t.Errorf("Expected 1 completed task, got %d", len(byStatus))
	}
}

func TestDeleteTasksOlderThanSparesActiveTasks(t *testing.T) {
	db := testDB(t)

	for _, task := range []*EnrichmentTask{
		{ID: "old-done", CardID: "a", Status: TaskStatusCompleted},
		{ID: "old-pending", CardID: "b", Status: TaskStatusPending},
	} {
		if err := db.SaveTask(task); err != nil {
			t.Fatalf("SaveTask failed: %v", err)
		}
	}

	removed, err := db.DeleteTasksOlderThan(time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("DeleteTasksOlderThan failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected only the terminal task removed, got %d", removed)
	}

	if _, err := db.GetTask("old-pending"); err != nil {
		t.Errorf("Expected the pending task spared: %v", err)
	}
}

func TestCachedEnrichmentRoundTrip(t *testing.T) {
	db := testDB(t)

	cached := &CachedEnrichment{
		CardID:    "card-1",
		Data:      EnrichedData{Type: ContentTypeMovie, Title: "Heat"},
		FetchedAt: time.Now(),
	}
	if err := db.SaveCachedEnrichment(cached); err != nil {
		t.Fatalf("SaveCachedEnrichment failed: %v", err)
	}

	got, err := db.GetCachedEnrichment("card-1")
	if err != nil {
		t.Fatalf("GetCachedEnrichment failed: %v", err)
	}
	if got.Data.Title != "Heat" {
		t.Errorf("Expected the snapshot back, got %+v", got.Data)
	}
	if !got.Fresh(time.Hour) {
		t.Error("Expected a just-written snapshot to be fresh")
	}

	if err := db.DeleteCachedEnrichment("card-1"); err != nil {
		t.Fatalf("DeleteCachedEnrichment failed: %v", err)
	}
	if _, err := db.GetCachedEnrichment("card-1"); err == nil {
		t.Error("Expected the snapshot gone after deletion")
	}
}
