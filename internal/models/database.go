package models

import (
	"fmt"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// Database wraps the bolthold store holding task history and the
// new-content scan cache
type Database struct {
	store *bolthold.Store
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// Task history operations

// SaveTask inserts or replaces a task record
func (db *Database) SaveTask(task *EnrichmentTask) error {
	task.UpdatedAt = time.Now()
	return db.store.Upsert(task.ID, task)
}

// GetTask retrieves a task by id
func (db *Database) GetTask(id string) (*EnrichmentTask, error) {
	var task EnrichmentTask
	if err := db.store.Get(id, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTasksByCardID retrieves all recorded tasks for a card
func (db *Database) GetTasksByCardID(cardID string) ([]*EnrichmentTask, error) {
	var tasks []*EnrichmentTask
	err := db.store.Find(&tasks, bolthold.Where("CardID").Eq(cardID))
	return tasks, err
}

// GetTasksByStatus retrieves all tasks with a specific status
func (db *Database) GetTasksByStatus(status TaskStatus) ([]*EnrichmentTask, error) {
	var tasks []*EnrichmentTask
	err := db.store.Find(&tasks, bolthold.Where("Status").Eq(status))
	return tasks, err
}

// DeleteTasksOlderThan removes terminal task records last updated before
// the cutoff. Returns how many were removed.
func (db *Database) DeleteTasksOlderThan(cutoff time.Time) (int, error) {
	var tasks []*EnrichmentTask
	err := db.store.Find(&tasks, bolthold.Where("Status").In(TaskStatusCompleted, TaskStatusFailed))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, task := range tasks {
		if task.UpdatedAt.After(cutoff) {
			continue
		}
		if err := db.store.Delete(task.ID, &EnrichmentTask{}); err != nil {
			return removed, err
		}
		removed++
	}

	return removed, nil
}

// Scan cache operations

// SaveCachedEnrichment stores an enrichment snapshot for a card
func (db *Database) SaveCachedEnrichment(cached *CachedEnrichment) error {
	return db.store.Upsert(cached.CardID, cached)
}

// GetCachedEnrichment retrieves the enrichment snapshot for a card.
// Returns bolthold.ErrNotFound when no snapshot exists.
func (db *Database) GetCachedEnrichment(cardID string) (*CachedEnrichment, error) {
	var cached CachedEnrichment
	if err := db.store.Get(cardID, &cached); err != nil {
		return nil, err
	}
	return &cached, nil
}

// GetAllCachedEnrichments retrieves every stored snapshot
func (db *Database) GetAllCachedEnrichments() ([]*CachedEnrichment, error) {
	var cached []*CachedEnrichment
	err := db.store.Find(&cached, nil)
	return cached, err
}

// DeleteCachedEnrichment drops the snapshot for a card, typically after
// the user manually overrides the detected content type
func (db *Database) DeleteCachedEnrichment(cardID string) error {
	return db.store.Delete(cardID, &CachedEnrichment{})
}
