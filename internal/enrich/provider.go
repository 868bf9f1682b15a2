// Package enrich turns a detected content type into normalized
// metadata by querying the matching external source, merging secondary
// ratings, and caching the result.
package enrich

import (
	"context"

	"kandarr/internal/models"
)

// Provider enriches titles of one content type. Enrich returns
// (nil, nil) when no upstream match exists; callers treat that as a
// valid terminal outcome, not a failure.
type Provider interface {
	Type() models.ContentType
	Enrich(ctx context.Context, title string, year int) (*models.EnrichedData, error)
}

// finalize guarantees the invariants every provider result carries:
// title and type populated (falling back to the searched title) and
// ratings/links present as empty slices rather than nil.
func finalize(data *models.EnrichedData, contentType models.ContentType, inputTitle string) *models.EnrichedData {
	data.Type = contentType
	if data.Title == "" {
		data.Title = inputTitle
	}
	if data.Ratings == nil {
		data.Ratings = []models.Rating{}
	}
	if data.Links == nil {
		data.Links = []models.Link{}
	}
	return data
}

// mergeRatings appends secondary ratings to the primary list, skipping
// sources already present
func mergeRatings(primary []models.Rating, secondary []models.Rating) []models.Rating {
	seen := make(map[string]bool, len(primary))
	for _, rating := range primary {
		seen[rating.Source] = true
	}
	for _, rating := range secondary {
		if seen[rating.Source] {
			continue
		}
		seen[rating.Source] = true
		primary = append(primary, rating)
	}
	return primary
}
