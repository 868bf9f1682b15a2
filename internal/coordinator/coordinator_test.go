package coordinator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"kandarr/internal/classify"
	"kandarr/internal/enrich"
	"kandarr/internal/models"
	"kandarr/internal/pool"
	"kandarr/internal/queue"
	"kandarr/internal/ratelimit"
	"kandarr/internal/validate"
)

// stubProvider serves canned enrichment data for one content type
type stubProvider struct {
	contentType models.ContentType
	data        *models.EnrichedData
	err         error
	calls       int64
}

func (p *stubProvider) Type() models.ContentType {
	return p.contentType
}

func (p *stubProvider) Enrich(ctx context.Context, title string, year int) (*models.EnrichedData, error) {
	atomic.AddInt64(&p.calls, 1)
	return p.data, p.err
}

func testCoordinator(t *testing.T, providers []enrich.Provider, maxAttempts int) *Coordinator {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	orchestrator, err := classify.NewDefaultOrchestrator(classify.OrchestratorConfig{}, logger)
	if err != nil {
		t.Fatalf("Failed to build orchestrator: %v", err)
	}
	service := enrich.NewService(orchestrator, providers, validate.NewPipeline(logger), enrich.NewCache(time.Minute), logger)

	q := queue.New(queue.Config{MaxAttempts: maxAttempts}, logger)
	p := pool.New(pool.Config{MinWorkers: 1, MaxWorkers: 2}, logger)
	return New(q, p, service, nil, ratelimit.NewLimiter(logger), 5*time.Second, logger)
}

func tvData() *models.EnrichedData {
	return &models.EnrichedData{
		Type:    models.ContentTypeTVSeries,
		Title:   "Breaking Bad",
		Year:    2008,
		Ratings: []models.Rating{{Source: "TMDB", Score: 8.9, MaxScore: 10}},
		Links:   []models.Link{{Name: "TMDB", URL: "https://themoviedb.org/tv/1396"}},
		Show:    &models.ShowDetails{SeasonCount: 5},
	}
}

func TestSubmitAndWait(t *testing.T) {
	provider := &stubProvider{contentType: models.ContentTypeTVSeries, data: tvData()}
	coord := testCoordinator(t, []enrich.Provider{provider}, 3)
	coord.Start()
	defer coord.Shutdown(context.Background())

	taskID, err := coord.Submit("card-1", models.TextBundle{
		Title:       "Breaking Bad TV Series (2008-2013)",
		ListContext: "TV Shows",
	}, models.PriorityNormal)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if taskID == "" {
		t.Fatal("Expected a task id")
	}

	result, err := coord.WaitFor(context.Background(), "card-1")
	if err != nil {
		t.Fatalf("WaitFor failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("Expected success, got error %q", result.Err)
	}
	if result.Detection == nil || result.Detection.ContentType != models.ContentTypeTVSeries {
		t.Errorf("Expected a tv_series detection, got %+v", result.Detection)
	}
	if result.Data == nil || result.Data.Title != "Breaking Bad" {
		t.Errorf("Expected enriched data, got %+v", result.Data)
	}
}

func TestSubmitWithKnownTypeSkipsDetection(t *testing.T) {
	provider := &stubProvider{contentType: models.ContentTypeTVSeries, data: tvData()}
	coord := testCoordinator(t, []enrich.Provider{provider}, 3)
	coord.Start()
	defer coord.Shutdown(context.Background())

	_, err := coord.SubmitWithKnownType("card-1", models.TextBundle{Title: "Breaking Bad"},
		models.ContentTypeTVSeries, 2008, models.PriorityHigh)
	if err != nil {
		t.Fatalf("SubmitWithKnownType failed: %v", err)
	}

	result, err := coord.WaitFor(context.Background(), "card-1")
	if err != nil {
		t.Fatalf("WaitFor failed: %v", err)
	}
	if result.Detection == nil || result.Detection.Method != "user_specified" {
		t.Errorf("Expected a user_specified detection, got %+v", result.Detection)
	}
	if result.Detection != nil && result.Detection.Confidence != 100 {
		t.Errorf("Expected full confidence on a user choice, got %d", result.Detection.Confidence)
	}
}

func TestFailedTaskRetriesThenSurfacesError(t *testing.T) {
	provider := &stubProvider{
		contentType: models.ContentTypeTVSeries,
		err:         errors.New("upstream down"),
	}
	coord := testCoordinator(t, []enrich.Provider{provider}, 2)
	coord.Start()
	defer coord.Shutdown(context.Background())

	_, err := coord.SubmitWithKnownType("card-1", models.TextBundle{Title: "Breaking Bad"},
		models.ContentTypeTVSeries, 2008, models.PriorityNormal)
	if err != nil {
		t.Fatalf("SubmitWithKnownType failed: %v", err)
	}

	result, err := coord.WaitFor(context.Background(), "card-1")
	if err != nil {
		t.Fatalf("WaitFor failed: %v", err)
	}
	if result.Success {
		t.Fatal("Expected the task to fail")
	}
	if result.Err == "" {
		t.Error("Expected the error surfaced on the result")
	}
	if got := atomic.LoadInt64(&provider.calls); got != 2 {
		t.Errorf("Expected 2 attempts, got %d", got)
	}
}

func TestUnknownDetectionSkipsEnrichment(t *testing.T) {
	provider := &stubProvider{contentType: models.ContentTypeTVSeries, data: tvData()}
	coord := testCoordinator(t, []enrich.Provider{provider}, 3)
	coord.Start()
	defer coord.Shutdown(context.Background())

	_, err := coord.Submit("card-1", models.TextBundle{Title: "Untitled"}, models.PriorityNormal)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	result, err := coord.WaitFor(context.Background(), "card-1")
	if err != nil {
		t.Fatalf("WaitFor failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("Expected a clean unknown verdict, got error %q", result.Err)
	}
	if result.Data != nil {
		t.Error("Expected no enrichment for an unknown verdict")
	}
	if got := atomic.LoadInt64(&provider.calls); got != 0 {
		t.Errorf("Expected no provider calls, got %d", got)
	}
}

func TestCancelPendingTask(t *testing.T) {
	coord := testCoordinator(t, nil, 3)
	// not started: tasks stay pending, which makes cancellation deterministic

	_, err := coord.Submit("card-1", models.TextBundle{Title: "Anything"}, models.PriorityNormal)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if !coord.Cancel("card-1") {
		t.Fatal("Expected the pending task to cancel")
	}
	if coord.Cancel("card-1") {
		t.Error("Expected no second cancellation")
	}

	result, err := coord.WaitFor(context.Background(), "card-1")
	if err != nil {
		t.Fatalf("WaitFor failed: %v", err)
	}
	if result.Err != "cancelled" {
		t.Errorf("Expected a cancelled result, got %q", result.Err)
	}
}

func TestSubscribeReceivesCompletion(t *testing.T) {
	provider := &stubProvider{contentType: models.ContentTypeTVSeries, data: tvData()}
	coord := testCoordinator(t, []enrich.Provider{provider}, 3)

	done := make(chan models.TaskResult, 1)
	unsubscribe := coord.Subscribe("card-1", Subscription{
		OnComplete: func(result models.TaskResult) { done <- result },
	})
	defer unsubscribe()

	coord.Start()
	defer coord.Shutdown(context.Background())

	_, err := coord.SubmitWithKnownType("card-1", models.TextBundle{Title: "Breaking Bad"},
		models.ContentTypeTVSeries, 2008, models.PriorityNormal)
	if err != nil {
		t.Fatalf("SubmitWithKnownType failed: %v", err)
	}

	select {
	case result := <-done:
		if !result.Success {
			t.Errorf("Expected a successful completion callback, got %q", result.Err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Expected the completion callback to fire")
	}
}

func TestWaitForNoTask(t *testing.T) {
	coord := testCoordinator(t, nil, 3)

	_, err := coord.WaitFor(context.Background(), "missing")
	if err != ErrNoTask {
		t.Errorf("Expected ErrNoTask, got %v", err)
	}
}

func TestGetStats(t *testing.T) {
	coord := testCoordinator(t, nil, 3)

	if _, err := coord.Submit("card-1", models.TextBundle{Title: "Anything"}, models.PriorityHigh); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	stats := coord.GetStats()
	if stats.Queue.PendingByPriority[models.PriorityHigh] != 1 {
		t.Errorf("Expected 1 high-priority pending task, got %d", stats.Queue.PendingByPriority[models.PriorityHigh])
	}
}

func TestFreshSnapshotServesResubmission(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	err = db.SaveCachedEnrichment(&models.CachedEnrichment{
		CardID:    "card-1",
		Data:      *tvData(),
		FetchedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Failed to store snapshot: %v", err)
	}

	provider := &stubProvider{contentType: models.ContentTypeTVSeries, data: tvData()}
	orchestrator, err := classify.NewDefaultOrchestrator(classify.OrchestratorConfig{}, logger)
	if err != nil {
		t.Fatalf("Failed to build orchestrator: %v", err)
	}
	service := enrich.NewService(orchestrator, []enrich.Provider{provider}, validate.NewPipeline(logger), enrich.NewCache(time.Minute), logger)
	coord := New(
		queue.New(queue.Config{MaxAttempts: 3}, logger),
		pool.New(pool.Config{MinWorkers: 1, MaxWorkers: 2}, logger),
		service, db, ratelimit.NewLimiter(logger), 5*time.Second, logger,
	)
	coord.Start()
	defer coord.Shutdown(context.Background())

	if _, err := coord.Submit("card-1", models.TextBundle{Title: "Breaking Bad TV Series"}, models.PriorityNormal); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	result, err := coord.WaitFor(context.Background(), "card-1")
	if err != nil {
		t.Fatalf("WaitFor failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("Expected success, got error %q", result.Err)
	}
	if result.Detection == nil || result.Detection.Method != "cached" {
		t.Errorf("Expected the snapshot to answer the resubmission, got %+v", result.Detection)
	}
	if atomic.LoadInt64(&provider.calls) != 0 {
		t.Errorf("Expected no upstream calls, got %d", provider.calls)
	}
}

func testCoordinatorWithDB(t *testing.T) (*Coordinator, *models.Database) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	orchestrator, err := classify.NewDefaultOrchestrator(classify.OrchestratorConfig{}, logger)
	if err != nil {
		t.Fatalf("Failed to build orchestrator: %v", err)
	}
	service := enrich.NewService(orchestrator, nil, validate.NewPipeline(logger), enrich.NewCache(time.Minute), logger)
	coord := New(
		queue.New(queue.Config{MaxAttempts: 3}, logger),
		pool.New(pool.Config{MinWorkers: 1, MaxWorkers: 1}, logger),
		service, db, ratelimit.NewLimiter(logger), 5*time.Second, logger,
	)
	return coord, db
}

func seedSnapshot(t *testing.T, db *models.Database, cardID string) {
	t.Helper()
	err := db.SaveCachedEnrichment(&models.CachedEnrichment{
		CardID:    cardID,
		Data:      *tvData(),
		FetchedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Failed to store snapshot for %s: %v", cardID, err)
	}
}

func TestFastCompletionsDrainCleanly(t *testing.T) {
	coord, db := testCoordinatorWithDB(t)

	// snapshot-served tasks finish almost instantly, so the worker
	// races the dispatcher's own bookkeeping on every one of them
	const cards = 25
	for i := 0; i < cards; i++ {
		seedSnapshot(t, db, cardName(i))
	}

	coord.Start()
	defer coord.Shutdown(context.Background())

	for i := 0; i < cards; i++ {
		if _, err := coord.Submit(cardName(i), models.TextBundle{Title: "Breaking Bad"}, models.PriorityNormal); err != nil {
			t.Fatalf("Submit %d failed: %v", i, err)
		}
	}
	for i := 0; i < cards; i++ {
		result, err := coord.WaitFor(context.Background(), cardName(i))
		if err != nil {
			t.Fatalf("WaitFor %d failed: %v", i, err)
		}
		if !result.Success {
			t.Fatalf("Expected success for card %d, got %q", i, result.Err)
		}
	}

	stats := coord.GetStats()
	if stats.Queue.Processing != 0 {
		t.Errorf("Expected no task left in processing, got %d", stats.Queue.Processing)
	}
	if stats.Queue.Completed != cards {
		t.Errorf("Expected %d completed tasks, got %d", cards, stats.Queue.Completed)
	}

	// a drained card must accept a fresh submission
	if _, err := coord.Submit(cardName(0), models.TextBundle{Title: "Breaking Bad"}, models.PriorityNormal); err != nil {
		t.Errorf("Expected the card free for resubmission: %v", err)
	}
}

func TestWaitForSeesJustCompletedTask(t *testing.T) {
	coord, db := testCoordinatorWithDB(t)

	const cards = 25
	for i := 0; i < cards; i++ {
		seedSnapshot(t, db, cardName(i))
	}

	coord.Start()
	defer coord.Shutdown(context.Background())

	// waiting right on the heels of each submission lands in the
	// window where the task is leaving the queue
	for i := 0; i < cards; i++ {
		if _, err := coord.Submit(cardName(i), models.TextBundle{Title: "Breaking Bad"}, models.PriorityNormal); err != nil {
			t.Fatalf("Submit %d failed: %v", i, err)
		}
		result, err := coord.WaitFor(context.Background(), cardName(i))
		if err != nil {
			t.Fatalf("WaitFor %d failed: %v", i, err)
		}
		if !result.Success {
			t.Fatalf("Expected success for card %d, got %q", i, result.Err)
		}
	}
}

func TestPruneResultsEvictsAged(t *testing.T) {
	coord := testCoordinator(t, nil, 3)

	coord.mu.Lock()
	coord.results["stale"] = recordedResult{
		result:     models.TaskResult{Success: true},
		recordedAt: time.Now().Add(-2 * resultRetention),
	}
	coord.results["recent"] = recordedResult{
		result:     models.TaskResult{Success: true},
		recordedAt: time.Now(),
	}
	coord.mu.Unlock()

	coord.pruneResults()

	coord.mu.Lock()
	_, staleKept := coord.results["stale"]
	_, recentKept := coord.results["recent"]
	coord.mu.Unlock()

	if staleKept {
		t.Error("Expected the aged result evicted")
	}
	if !recentKept {
		t.Error("Expected the recent result kept")
	}
}

func cardName(i int) string {
	return fmt.Sprintf("card-%d", i)
}
