package enrich

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"kandarr/internal/models"
	"kandarr/internal/services/rawg"
)

// GameProvider enriches games through the game database, recording
// series entries as sequels and additions as DLC-style spinoffs
type GameProvider struct {
	client *rawg.Client
	logger *logrus.Logger
}

// NewGameProvider creates a game enrichment provider
func NewGameProvider(client *rawg.Client, logger *logrus.Logger) *GameProvider {
	return &GameProvider{client: client, logger: logger}
}

// Type reports the content type this provider serves
func (p *GameProvider) Type() models.ContentType {
	return models.ContentTypeGame
}

// Enrich looks a game up, fetches platform/developer details, and
// attaches series entries and additions as related content
func (p *GameProvider) Enrich(ctx context.Context, title string, year int) (*models.EnrichedData, error) {
	match, err := p.client.Search(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("game search failed: %w", err)
	}
	if match == nil {
		return nil, nil
	}
	if year > 0 && match.ReleaseYear() > 0 && match.ReleaseYear() != year {
		p.logger.WithFields(logrus.Fields{
			"title":      title,
			"match_year": match.ReleaseYear(),
			"want_year":  year,
		}).Debug("Game match rejected on year mismatch")
		return nil, nil
	}

	details, err := p.client.FetchDetails(ctx, match.ID)
	if err != nil {
		return nil, fmt.Errorf("game details failed: %w", err)
	}
	if details == nil {
		return nil, nil
	}

	data := &models.EnrichedData{
		Title:       details.Name,
		Year:        details.ReleaseYear(),
		Description: details.Description,
		ImageURL:    details.BackgroundImage,
		Game: &models.GameDetails{
			Playtime: details.Playtime,
		},
	}
	for _, platform := range details.Platforms {
		data.Game.Platforms = append(data.Game.Platforms, platform.Platform.Name)
	}
	if len(details.Developers) > 0 {
		data.Game.Developer = details.Developers[0].Name
	}
	for _, genre := range details.Genres {
		data.Genres = append(data.Genres, genre.Name)
	}
	if details.Rating > 0 {
		data.Ratings = append(data.Ratings, models.Rating{
			Source:   "RAWG",
			Score:    details.Rating,
			MaxScore: 5,
		})
	}
	data.Links = append(data.Links, models.Link{
		Name: "RAWG",
		URL:  "https://rawg.io/games/" + details.Slug,
	})
	if details.Website != "" {
		data.Links = append(data.Links, models.Link{Name: "Website", URL: details.Website})
	}

	if series, err := p.client.FetchSeries(ctx, details.ID); err != nil {
		p.logger.WithError(err).Warn("Game series lookup failed, continuing without")
	} else {
		for _, entry := range series {
			if entry.ID == details.ID {
				continue
			}
			relation := models.RelationSeries
			if entry.ReleaseYear() > data.Year && data.Year > 0 {
				relation = models.RelationSequel
			}
			data.Related = append(data.Related, models.RelatedContent{
				Title:    entry.Name,
				Relation: relation,
				Year:     entry.ReleaseYear(),
			})
		}
	}

	if additions, err := p.client.FetchAdditions(ctx, details.ID); err != nil {
		p.logger.WithError(err).Warn("Game additions lookup failed, continuing without")
	} else {
		for _, entry := range additions {
			data.Related = append(data.Related, models.RelatedContent{
				Title:    entry.Name,
				Relation: models.RelationSpinoff,
				Year:     entry.ReleaseYear(),
			})
		}
	}

	return finalize(data, models.ContentTypeGame, title), nil
}
