package enrich

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"kandarr/internal/classify"
	"kandarr/internal/models"
	"kandarr/internal/validate"
)

// Outcome is the combined result of detecting and enriching one bundle
type Outcome struct {
	Detection models.DetectionResult
	Data      *models.EnrichedData // nil when detection was unknown or nothing matched upstream
	Report    *models.ValidationReport
}

// Service composes the detection orchestrator with the per-type
// enrichment providers, validating and caching everything it fetches.
type Service struct {
	orchestrator *classify.Orchestrator
	providers    map[models.ContentType]Provider
	pipeline     *validate.Pipeline
	cache        *Cache
	logger       *logrus.Logger
}

// NewService creates an enrichment service
func NewService(orchestrator *classify.Orchestrator, providers []Provider, pipeline *validate.Pipeline, cache *Cache, logger *logrus.Logger) *Service {
	registry := make(map[models.ContentType]Provider, len(providers))
	for _, provider := range providers {
		registry[provider.Type()] = provider
	}
	return &Service{
		orchestrator: orchestrator,
		providers:    registry,
		pipeline:     pipeline,
		cache:        cache,
		logger:       logger,
	}
}

// Detect classifies a text bundle
func (s *Service) Detect(bundle models.TextBundle) models.DetectionResult {
	return s.orchestrator.Detect(bundle)
}

// Enrich fetches metadata for a known title and content type,
// consulting the cache first. Returns (nil, nil) when no provider
// serves the type or nothing matched upstream; data that fails
// validation is still returned, flagged through the report.
func (s *Service) Enrich(ctx context.Context, title string, contentType models.ContentType, year int) (*models.EnrichedData, *models.ValidationReport, error) {
	provider, ok := s.providers[contentType]
	if !ok {
		s.logger.WithField("type", contentType).Debug("No enrichment provider for type")
		return nil, nil, nil
	}

	key := Key(contentType, title, year)
	if cached := s.cache.Get(key); cached != nil {
		report := s.pipeline.Run(cached)
		return cached, &report, nil
	}

	data, err := provider.Enrich(ctx, title, year)
	if err != nil {
		return nil, nil, fmt.Errorf("enrichment for %q failed: %w", title, err)
	}
	if data == nil {
		s.logger.WithFields(logrus.Fields{
			"title": title,
			"type":  contentType,
		}).Debug("No upstream match")
		return nil, nil, nil
	}

	report := s.pipeline.Run(data)
	if !report.Valid {
		// Untrusted data is surfaced but never cached.
		s.logger.WithFields(logrus.Fields{
			"title":  title,
			"type":   contentType,
			"errors": report.ErrorCount(),
		}).Warn("Enriched data failed validation, surfacing uncached")
		return data, &report, nil
	}

	s.cache.Set(key, data)
	return data, &report, nil
}

// Invalidate drops the cached enrichment for a request, used when the
// user manually overrides the detected content type
func (s *Service) Invalidate(title string, contentType models.ContentType, year int) {
	s.cache.Invalidate(Key(contentType, title, year))
}

// Process composes detect and enrich, skipping enrichment entirely
// when the verdict is unknown
func (s *Service) Process(ctx context.Context, bundle models.TextBundle) (Outcome, error) {
	detection := s.Detect(bundle)
	outcome := Outcome{Detection: detection}

	if detection.ContentType == models.ContentTypeUnknown {
		return outcome, nil
	}

	title := detection.Meta.Title
	if title == "" {
		title = bundle.Title
	}
	data, report, err := s.Enrich(ctx, title, detection.ContentType, detection.Meta.Year)
	if err != nil {
		return outcome, err
	}
	outcome.Data = data
	outcome.Report = report
	return outcome, nil
}
