// Package tmdb wraps the movie/TV metadata source. It exposes the
// narrow search → details → watch-providers → franchise contract the
// enrichment providers consume.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"kandarr/internal/config"
	"kandarr/internal/ratelimit"
	"kandarr/internal/services"
)

// ProviderName is the rate-limiter key for this source
const ProviderName = "tmdb"

// Client handles communication with the movie/TV database API
type Client struct {
	baseURL string
	apiKey  string
	region  string
	http    *services.Client
	logger  *logrus.Logger
}

// NewClient creates a new movie/TV database client
func NewClient(cfg *config.Config, limiter *ratelimit.Limiter, logger *logrus.Logger) (*Client, error) {
	if cfg.TMDBAPIKey == "" {
		return nil, fmt.Errorf("TMDB API key is required")
	}

	return &Client{
		baseURL: cfg.TMDBBaseURL,
		apiKey:  cfg.TMDBAPIKey,
		region:  cfg.WatchRegion,
		http:    services.NewClient(ProviderName, limiter, logger),
		logger:  logger,
	}, nil
}

// SearchResult is one candidate from a title search
type SearchResult struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`          // movies
	Name         string  `json:"name"`           // tv
	ReleaseDate  string  `json:"release_date"`   // movies
	FirstAirDate string  `json:"first_air_date"` // tv
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
}

// DisplayTitle returns whichever title field the record carries
func (r SearchResult) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

type searchResponse struct {
	Results []SearchResult `json:"results"`
}

// SearchMovie finds the single best movie match for a title.
// Returns (nil, nil) when nothing upstream matches closely enough.
func (c *Client) SearchMovie(ctx context.Context, title string, year int) (*SearchResult, error) {
	params := url.Values{}
	params.Set("query", title)
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}
	return c.search(ctx, "/search/movie", title, params)
}

// SearchTV finds the single best TV series match for a title.
// Returns (nil, nil) when nothing upstream matches closely enough.
func (c *Client) SearchTV(ctx context.Context, title string, year int) (*SearchResult, error) {
	params := url.Values{}
	params.Set("query", title)
	if year > 0 {
		params.Set("first_air_date_year", strconv.Itoa(year))
	}
	return c.search(ctx, "/search/tv", title, params)
}

func (c *Client) search(ctx context.Context, path, title string, params url.Values) (*SearchResult, error) {
	params.Set("api_key", c.apiKey)

	var response searchResponse
	err := c.http.GetJSON(ctx, c.baseURL+path+"?"+params.Encode(), nil, &response)
	if errors.Is(err, services.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(response.Results) == 0 {
		return nil, nil
	}

	best := pickBest(title, response.Results)
	if best == nil {
		c.logger.WithField("title", title).Debug("No close enough TMDB match")
		return nil, nil
	}

	c.logger.WithFields(logrus.Fields{
		"title": title,
		"match": best.DisplayTitle(),
		"id":    best.ID,
	}).Debug("TMDB search matched")
	return best, nil
}

// pickBest prefers the closest title by edit distance, breaking ties
// with vote count so obscure duplicates lose to the canonical entry
func pickBest(query string, results []SearchResult) *SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		di := services.MatchDistance(query, results[i].DisplayTitle())
		dj := services.MatchDistance(query, results[j].DisplayTitle())
		if di != dj {
			return di < dj
		}
		return results[i].VoteCount > results[j].VoteCount
	})

	best := results[0]
	if !services.AcceptableDistance(query, services.MatchDistance(query, best.DisplayTitle())) {
		return nil
	}
	return &best
}

// Genre is a named genre tag
type Genre struct {
	Name string `json:"name"`
}

// Collection identifies the franchise a movie belongs to
type Collection struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MovieDetails is the normalized movie detail record
type MovieDetails struct {
	ID          int         `json:"id"`
	Title       string      `json:"title"`
	ReleaseDate string      `json:"release_date"`
	Overview    string      `json:"overview"`
	Runtime     int         `json:"runtime"`
	Status      string      `json:"status"`
	PosterPath  string      `json:"poster_path"`
	VoteAverage float64     `json:"vote_average"`
	Genres      []Genre     `json:"genres"`
	Collection  *Collection `json:"belongs_to_collection"`
	Homepage    string      `json:"homepage"`
}

// FetchMovieDetails retrieves the full detail record for a movie
func (c *Client) FetchMovieDetails(ctx context.Context, id int) (*MovieDetails, error) {
	var details MovieDetails
	endpoint := fmt.Sprintf("%s/movie/%d?api_key=%s", c.baseURL, id, url.QueryEscape(c.apiKey))
	if err := c.http.GetJSON(ctx, endpoint, nil, &details); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &details, nil
}

// NextEpisode announces an upcoming episode/season
type NextEpisode struct {
	SeasonNumber int `json:"season_number"`
}

// TVDetails is the normalized TV series detail record
type TVDetails struct {
	ID               int          `json:"id"`
	Name             string       `json:"name"`
	FirstAirDate     string       `json:"first_air_date"`
	Overview         string       `json:"overview"`
	NumberOfSeasons  int          `json:"number_of_seasons"`
	NumberOfEpisodes int          `json:"number_of_episodes"`
	EpisodeRunTime   []int        `json:"episode_run_time"`
	Status           string       `json:"status"`
	PosterPath       string       `json:"poster_path"`
	VoteAverage      float64      `json:"vote_average"`
	Genres           []Genre      `json:"genres"`
	NextEpisodeToAir *NextEpisode `json:"next_episode_to_air"`
	Homepage         string       `json:"homepage"`
}

// FetchTVDetails retrieves the full detail record for a TV series
func (c *Client) FetchTVDetails(ctx context.Context, id int) (*TVDetails, error) {
	var details TVDetails
	endpoint := fmt.Sprintf("%s/tv/%d?api_key=%s", c.baseURL, id, url.QueryEscape(c.apiKey))
	if err := c.http.GetJSON(ctx, endpoint, nil, &details); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &details, nil
}

// CollectionPart is one franchise entry
type CollectionPart struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
}

type collectionResponse struct {
	Parts []CollectionPart `json:"parts"`
}

// FetchCollection retrieves the franchise entries for a collection,
// ordered by release date
func (c *Client) FetchCollection(ctx context.Context, id int) ([]CollectionPart, error) {
	var response collectionResponse
	endpoint := fmt.Sprintf("%s/collection/%d?api_key=%s", c.baseURL, id, url.QueryEscape(c.apiKey))
	if err := c.http.GetJSON(ctx, endpoint, nil, &response); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	sort.SliceStable(response.Parts, func(i, j int) bool {
		return response.Parts[i].ReleaseDate < response.Parts[j].ReleaseDate
	})
	return response.Parts, nil
}

type watchProvider struct {
	ProviderName string `json:"provider_name"`
}

type watchRegion struct {
	Flatrate []watchProvider `json:"flatrate"`
}

type watchProvidersResponse struct {
	Results map[string]watchRegion `json:"results"`
}

// FetchWatchProviders retrieves streaming availability for the
// configured region. kind is "movie" or "tv".
func (c *Client) FetchWatchProviders(ctx context.Context, kind string, id int) ([]string, error) {
	var response watchProvidersResponse
	endpoint := fmt.Sprintf("%s/%s/%d/watch/providers?api_key=%s", c.baseURL, kind, id, url.QueryEscape(c.apiKey))
	if err := c.http.GetJSON(ctx, endpoint, nil, &response); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	region, ok := response.Results[c.region]
	if !ok {
		return nil, nil
	}
	var names []string
	for _, provider := range region.Flatrate {
		names = append(names, provider.ProviderName)
	}
	return names, nil
}
