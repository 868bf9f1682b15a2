// Package omdb wraps the reviews aggregator used for secondary ratings
// (critic and audience scores per source).
package omdb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"kandarr/internal/config"
	"kandarr/internal/ratelimit"
	"kandarr/internal/services"
)

// ProviderName is the rate-limiter key for this source
const ProviderName = "omdb"

// Client handles communication with the reviews aggregator API
type Client struct {
	baseURL string
	apiKey  string
	http    *services.Client
	logger  *logrus.Logger
}

// NewClient creates a new reviews aggregator client. The aggregator is
// optional: an empty API key yields a nil client and providers skip the
// secondary-rating fetch.
func NewClient(cfg *config.Config, limiter *ratelimit.Limiter, logger *logrus.Logger) *Client {
	if cfg.OMDBAPIKey == "" {
		return nil
	}
	return &Client{
		baseURL: cfg.OMDBBaseURL,
		apiKey:  cfg.OMDBAPIKey,
		http:    services.NewClient(ProviderName, limiter, logger),
		logger:  logger,
	}
}

// SourceRating is one score from one review source, as the aggregator
// reports it ("8.5/10", "87%", ...)
type SourceRating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

type titleResponse struct {
	Title    string         `json:"Title"`
	Ratings  []SourceRating `json:"Ratings"`
	Response string         `json:"Response"`
}

// Rating is a parsed secondary rating
type Rating struct {
	Source   string
	Score    float64
	MaxScore float64
}

// FetchRatings retrieves every rating the aggregator has for a title.
// Returns (nil, nil) when the aggregator has no record.
func (c *Client) FetchRatings(ctx context.Context, title string, year int) ([]Rating, error) {
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("t", title)
	if year > 0 {
		params.Set("y", strconv.Itoa(year))
	}

	var response titleResponse
	err := c.http.GetJSON(ctx, c.baseURL+"/?"+params.Encode(), nil, &response)
	if errors.Is(err, services.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// The aggregator reports misses inside a 200 response.
	if !strings.EqualFold(response.Response, "True") {
		return nil, nil
	}

	var ratings []Rating
	for _, raw := range response.Ratings {
		rating, ok := parseRating(raw)
		if !ok {
			c.logger.WithFields(logrus.Fields{
				"source": raw.Source,
				"value":  raw.Value,
			}).Debug("Skipping unparseable rating")
			continue
		}
		ratings = append(ratings, rating)
	}
	return ratings, nil
}

// parseRating normalizes "8.5/10", "87%" and bare "7.9" score formats
func parseRating(raw SourceRating) (Rating, bool) {
	value := strings.TrimSpace(raw.Value)

	if strings.HasSuffix(value, "%") {
		score, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64)
		if err != nil {
			return Rating{}, false
		}
		return Rating{Source: raw.Source, Score: score, MaxScore: 100}, true
	}

	if num, denom, found := strings.Cut(value, "/"); found {
		score, err1 := strconv.ParseFloat(strings.TrimSpace(num), 64)
		max, err2 := strconv.ParseFloat(strings.TrimSpace(denom), 64)
		if err1 != nil || err2 != nil {
			return Rating{}, false
		}
		return Rating{Source: raw.Source, Score: score, MaxScore: max}, true
	}

	score, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return Rating{}, false
	}
	return Rating{Source: raw.Source, Score: score, MaxScore: 10}, true
}

// String implements error-free formatting for logs
func (r Rating) String() string {
	if r.MaxScore > 0 {
		return fmt.Sprintf("%s %.1f/%.0f", r.Source, r.Score, r.MaxScore)
	}
	return fmt.Sprintf("%s %.1f", r.Source, r.Score)
}
