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

// MovieProvider enriches movies through the movie/TV database,
// including franchise position, with secondary ratings from the
// reviews aggregator
type MovieProvider struct {
	tmdb   *tmdb.Client
	omdb   *omdb.Client // optional
	logger *logrus.Logger
}

// NewMovieProvider creates a movie enrichment provider
func NewMovieProvider(tmdbClient *tmdb.Client, omdbClient *omdb.Client, logger *logrus.Logger) *MovieProvider {
	return &MovieProvider{tmdb: tmdbClient, omdb: omdbClient, logger: logger}
}

// Type reports the content type this provider serves
func (p *MovieProvider) Type() models.ContentType {
	return models.ContentTypeMovie
}

// Enrich looks a movie up, fetches details, franchise entries and
// streaming availability, and merges aggregator ratings
func (p *MovieProvider) Enrich(ctx context.Context, title string, year int) (*models.EnrichedData, error) {
	match, err := p.tmdb.SearchMovie(ctx, title, year)
	if err != nil {
		return nil, fmt.Errorf("movie search failed: %w", err)
	}
	if match == nil {
		return nil, nil
	}

	details, err := p.tmdb.FetchMovieDetails(ctx, match.ID)
	if err != nil {
		return nil, fmt.Errorf("movie details failed: %w", err)
	}
	if details == nil {
		return nil, nil
	}

	data := &models.EnrichedData{
		Title:       details.Title,
		Year:        utils.ExtractYear(details.ReleaseDate),
		Description: details.Overview,
		Movie: &models.MovieDetails{
			Runtime: details.Runtime,
			Status:  details.Status,
		},
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
		URL:  fmt.Sprintf("https://www.themoviedb.org/movie/%d", details.ID),
	})
	if details.Homepage != "" {
		data.Links = append(data.Links, models.Link{Name: "Homepage", URL: details.Homepage})
	}

	if details.Collection != nil {
		if err := p.addFranchise(ctx, details, data); err != nil {
			p.logger.WithError(err).Warn("Franchise lookup failed, continuing without")
		}
	}

	if streaming, err := p.tmdb.FetchWatchProviders(ctx, "movie", details.ID); err != nil {
		p.logger.WithError(err).Warn("Watch provider lookup failed, continuing without")
	} else {
		data.Movie.StreamingOn = streaming
	}

	if p.omdb != nil {
		if secondary, err := p.omdb.FetchRatings(ctx, details.Title, data.Year); err != nil {
			p.logger.WithError(err).Warn("Secondary rating lookup failed, continuing without")
		} else {
			data.Ratings = mergeRatings(data.Ratings, convertOMDBRatings(secondary))
		}
	}

	return finalize(data, models.ContentTypeMovie, title), nil
}

// addFranchise resolves the movie's position inside its collection and
// records the other entries as related content
func (p *MovieProvider) addFranchise(ctx context.Context, details *tmdb.MovieDetails, data *models.EnrichedData) error {
	parts, err := p.tmdb.FetchCollection(ctx, details.Collection.ID)
	if err != nil {
		return err
	}

	data.Movie.FranchiseSize = len(parts)
	for i, part := range parts {
		if part.ID == details.ID {
			data.Movie.FranchisePosition = i + 1
			continue
		}
		relation := models.RelationSeries
		if data.Movie.FranchisePosition > 0 {
			relation = models.RelationSequel
		}
		data.Related = append(data.Related, models.RelatedContent{
			Title:    part.Title,
			Relation: relation,
			Year:     utils.ExtractYear(part.ReleaseDate),
		})
	}
	return nil
}
