package enrich

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"kandarr/internal/models"
	"kandarr/internal/services/omdb"
	"kandarr/internal/services/tmdb"
	"kandarr/internal/utils"
)

// TVProvider enriches TV series through the movie/TV database, with
// secondary ratings from the reviews aggregator
type TVProvider struct {
	tmdb   *tmdb.Client
	omdb   *omdb.Client // optional
	logger *logrus.Logger
}

// NewTVProvider creates a TV series enrichment provider
func NewTVProvider(tmdbClient *tmdb.Client, omdbClient *omdb.Client, logger *logrus.Logger) *TVProvider {
	return &TVProvider{tmdb: tmdbClient, omdb: omdbClient, logger: logger}
}

// Type reports the content type this provider serves
func (p *TVProvider) Type() models.ContentType {
	return models.ContentTypeTVSeries
}

// Enrich looks a series up, fetches details and streaming
// availability, and merges aggregator ratings
func (p *TVProvider) Enrich(ctx context.Context, title string, year int) (*models.EnrichedData, error) {
	match, err := p.tmdb.SearchTV(ctx, title, year)
	if err != nil {
		return nil, fmt.Errorf("tv search failed: %w", err)
	}
	if match == nil {
		return nil, nil
	}

	details, err := p.tmdb.FetchTVDetails(ctx, match.ID)
	if err != nil {
		return nil, fmt.Errorf("tv details failed: %w", err)
	}
	if details == nil {
		return nil, nil
	}

	data := &models.EnrichedData{
		Title:       details.Name,
		Year:        utils.ExtractYear(details.FirstAirDate),
		Description: details.Overview,
		Show: &models.ShowDetails{
			SeasonCount:  details.NumberOfSeasons,
			EpisodeCount: details.NumberOfEpisodes,
			Status:       details.Status,
		},
	}
	if len(details.EpisodeRunTime) > 0 {
		data.Show.EpisodeRuntime = details.EpisodeRunTime[0]
	}
	if details.NextEpisodeToAir != nil {
		data.Show.NextSeasonNumber = details.NextEpisodeToAir.SeasonNumber
	}
	if details.PosterPath != "" {
		data.ImageURL = tmdbImageURL(details.PosterPath)
	}
	for _, genre := range details.Genres {
		data.Genres = append(data.Genres, genre.Name)
	}
	if details.VoteAverage > 0 {
		data.Ratings = append(data.Ratings, models.Rating{
			Source:   "TMDB",
			Score:    details.VoteAverage,
			MaxScore: 10,
		})
	}
	data.Links = append(data.Links, models.Link{
		Name: "TMDB",
		URL:  fmt.Sprintf("https://www.themoviedb.org/tv/%d", details.ID),
	})
	if details.Homepage != "" {
		data.Links = append(data.Links, models.Link{Name: "Homepage", URL: details.Homepage})
	}

	if streaming, err := p.tmdb.FetchWatchProviders(ctx, "tv", details.ID); err != nil {
		p.logger.WithError(err).Warn("Watch provider lookup failed, continuing without")
	} else {
		data.Show.StreamingOn = streaming
	}

	if p.omdb != nil {
		if secondary, err := p.omdb.FetchRatings(ctx, details.Name, data.Year); err != nil {
			p.logger.WithError(err).Warn("Secondary rating lookup failed, continuing without")
		} else {
			data.Ratings = mergeRatings(data.Ratings, convertOMDBRatings(secondary))
		}
	}

	return finalize(data, models.ContentTypeTVSeries, title), nil
}

// convertOMDBRatings maps aggregator ratings into the unified shape
func convertOMDBRatings(ratings []omdb.Rating) []models.Rating {
	var converted []models.Rating
	for _, rating := range ratings {
		converted = append(converted, models.Rating{
			Source:   rating.Source,
			Score:    rating.Score,
			MaxScore: rating.MaxScore,
		})
	}
	return converted
}

func tmdbImageURL(path string) string {
	return "https://image.tmdb.org/t/p/w500" + path
}
