package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"kandarr/internal/classify"
	"kandarr/internal/models"
	"kandarr/internal/validate"
)

type fakeProvider struct {
	contentType models.ContentType
	data        *models.EnrichedData
	err         error
	calls       int
}

func (p *fakeProvider) Type() models.ContentType {
	return p.contentType
}

func (p *fakeProvider) Enrich(ctx context.Context, title string, year int) (*models.EnrichedData, error) {
	p.calls++
	return p.data, p.err
}

func testService(t *testing.T, providers ...Provider) *Service {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	orchestrator, err := classify.NewDefaultOrchestrator(classify.OrchestratorConfig{}, logger)
	if err != nil {
		t.Fatalf("Failed to build orchestrator: %v", err)
	}
	return NewService(orchestrator, providers, validate.NewPipeline(logger), NewCache(time.Minute), logger)
}

func validGame() *models.EnrichedData {
	return &models.EnrichedData{
		Type:    models.ContentTypeGame,
		Title:   "Hades",
		Year:    2020,
		Ratings: []models.Rating{{Source: "RAWG", Score: 4.4, MaxScore: 5}},
		Links:   []models.Link{{Name: "RAWG", URL: "https://rawg.io/games/hades"}},
		Game:    &models.GameDetails{Platforms: []string{"PC"}},
	}
}

func TestEnrichHitsCacheOnSecondCall(t *testing.T) {
	provider := &fakeProvider{contentType: models.ContentTypeGame, data: validGame()}
	service := testService(t, provider)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		data, report, err := service.Enrich(ctx, "Hades", models.ContentTypeGame, 2020)
		if err != nil {
			t.Fatalf("Enrich failed: %v", err)
		}
		if data == nil || report == nil {
			t.Fatal("Expected data and a report")
		}
	}

	if provider.calls != 1 {
		t.Errorf("Expected 1 upstream call, got %d", provider.calls)
	}
}

func TestEnrichInvalidDataNotCached(t *testing.T) {
	broken := validGame()
	broken.Ratings = nil // provider contract breach
	provider := &fakeProvider{contentType: models.ContentTypeGame, data: broken}
	service := testService(t, provider)
	ctx := context.Background()

	data, report, err := service.Enrich(ctx, "Hades", models.ContentTypeGame, 2020)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if data == nil {
		t.Fatal("Expected the invalid data surfaced")
	}
	if report == nil || report.Valid {
		t.Fatal("Expected an invalid report")
	}

	// a second call must hit upstream again
	if _, _, err := service.Enrich(ctx, "Hades", models.ContentTypeGame, 2020); err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("Expected invalid data to stay uncached, got %d upstream calls", provider.calls)
	}
}

func TestEnrichNoProviderForType(t *testing.T) {
	service := testService(t)

	data, report, err := service.Enrich(context.Background(), "Anything", models.ContentTypeMusic, 0)
	if err != nil || data != nil || report != nil {
		t.Errorf("Expected a silent miss without a provider, got data=%v report=%v err=%v", data, report, err)
	}
}

func TestEnrichPropagatesUpstreamError(t *testing.T) {
	provider := &fakeProvider{contentType: models.ContentTypeGame, err: errors.New("upstream down")}
	service := testService(t, provider)

	_, _, err := service.Enrich(context.Background(), "Hades", models.ContentTypeGame, 2020)
	if err == nil {
		t.Fatal("Expected the upstream error propagated")
	}
}

func TestProcessSkipsEnrichmentWhenUnknown(t *testing.T) {
	provider := &fakeProvider{contentType: models.ContentTypeGame, data: validGame()}
	service := testService(t, provider)

	outcome, err := service.Process(context.Background(), models.TextBundle{Title: "Untitled"})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if outcome.Detection.ContentType != models.ContentTypeUnknown {
		t.Fatalf("Expected an unknown verdict, got %s", outcome.Detection.ContentType)
	}
	if outcome.Data != nil {
		t.Error("Expected no enrichment for an unknown verdict")
	}
	if provider.calls != 0 {
		t.Errorf("Expected no upstream calls, got %d", provider.calls)
	}
}

func TestProcessDetectsAndEnriches(t *testing.T) {
	provider := &fakeProvider{contentType: models.ContentTypeGame, data: validGame()}
	service := testService(t, provider)

	outcome, err := service.Process(context.Background(), models.TextBundle{
		Title:       "Hades game",
		ListContext: "Gaming Backlog",
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if outcome.Detection.ContentType != models.ContentTypeGame {
		t.Fatalf("Expected a game verdict, got %s", outcome.Detection.ContentType)
	}
	if outcome.Data == nil || outcome.Data.Title != "Hades" {
		t.Errorf("Expected enriched data, got %+v", outcome.Data)
	}
}
