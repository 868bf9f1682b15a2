package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"kandarr/internal/models"
	"kandarr/internal/services/jikan"
)

// AnimeProvider enriches anime through the anime database, including
// the related-entry graph used for sequel/season detection
type AnimeProvider struct {
	jikan  *jikan.Client
	logger *logrus.Logger
}

// NewAnimeProvider creates an anime enrichment provider
func NewAnimeProvider(jikanClient *jikan.Client, logger *logrus.Logger) *AnimeProvider {
	return &AnimeProvider{jikan: jikanClient, logger: logger}
}

// Type reports the content type this provider serves
func (p *AnimeProvider) Type() models.ContentType {
	return models.ContentTypeAnime
}

// Enrich looks an anime up and folds its relation graph into the
// unified shape. The season count approximates one season per sequel
// entry in the graph, since the source models seasons as separate
// entries rather than numbered seasons.
func (p *AnimeProvider) Enrich(ctx context.Context, title string, year int) (*models.EnrichedData, error) {
	match, err := p.jikan.Search(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("anime search failed: %w", err)
	}
	if match == nil {
		return nil, nil
	}
	if year > 0 && match.Year > 0 && match.Year != year {
		p.logger.WithFields(logrus.Fields{
			"title":      title,
			"match_year": match.Year,
			"want_year":  year,
		}).Debug("Anime match rejected on year mismatch")
		return nil, nil
	}

	data := &models.EnrichedData{
		Title:       match.DisplayTitle(),
		Year:        match.Year,
		Description: match.Synopsis,
		ImageURL:    match.Images.JPG.ImageURL,
		Show: &models.ShowDetails{
			SeasonCount:  1,
			EpisodeCount: match.Episodes,
			Status:       match.Status,
		},
	}
	for _, genre := range match.Genres {
		data.Genres = append(data.Genres, genre.Name)
	}
	if match.Score > 0 {
		data.Ratings = append(data.Ratings, models.Rating{
			Source:   "MyAnimeList",
			Score:    match.Score,
			MaxScore: 10,
			URL:      match.URL,
		})
	}
	if match.URL != "" {
		data.Links = append(data.Links, models.Link{Name: "MyAnimeList", URL: match.URL})
	}

	relations, err := p.jikan.FetchRelations(ctx, match.MalID)
	if err != nil {
		p.logger.WithError(err).Warn("Relation graph lookup failed, continuing without")
	} else {
		p.addRelations(relations, data)
	}

	return finalize(data, models.ContentTypeAnime, title), nil
}

// addRelations maps the source's relation labels onto the unified
// relation types and counts sequels toward the season total
func (p *AnimeProvider) addRelations(relations []jikan.RelatedEntry, data *models.EnrichedData) {
	for _, entry := range relations {
		var relation models.RelationType
		switch strings.ToLower(entry.Relation) {
		case "sequel":
			relation = models.RelationSequel
			data.Show.SeasonCount++
		case "prequel":
			// prequels come before the tracked entry, they never add
			// a watchable later season
			relation = models.RelationPrequel
		case "side story", "spin-off", "spinoff":
			relation = models.RelationSpinoff
		case "alternative version", "alternative setting":
			relation = models.RelationSimilar
		default:
			relation = models.RelationSeries
		}
		data.Related = append(data.Related, models.RelatedContent{
			Title:    entry.Name,
			Relation: relation,
			URL:      entry.URL,
		})
	}
}
