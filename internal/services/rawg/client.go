// Package rawg wraps the game database: title search, platform and
// developer details, plus the series and additions (DLC) listings the
// game new-content strategy consumes.
package rawg

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"github.com/sirupsen/logrus"

	"kandarr/internal/config"
	"kandarr/internal/ratelimit"
	"kandarr/internal/services"
)

// ProviderName is the rate-limiter key for this source
const ProviderName = "rawg"

// Client handles communication with the game database API
type Client struct {
	baseURL string
	apiKey  string
	http    *services.Client
	logger  *logrus.Logger
}

// NewClient creates a new game database client
func NewClient(cfg *config.Config, limiter *ratelimit.Limiter, logger *logrus.Logger) (*Client, error) {
	if cfg.RAWGAPIKey == "" {
		return nil, fmt.Errorf("RAWG API key is required")
	}
	return &Client{
		baseURL: cfg.RAWGBaseURL,
		apiKey:  cfg.RAWGAPIKey,
		http:    services.NewClient(ProviderName, limiter, logger),
		logger:  logger,
	}, nil
}

// Game is one game record
type Game struct {
	ID              int     `json:"id"`
	Slug            string  `json:"slug"`
	Name            string  `json:"name"`
	Released        string  `json:"released"` // "2017-03-03"
	Rating          float64 `json:"rating"`
	RatingsCount    int     `json:"ratings_count"`
	BackgroundImage string  `json:"background_image"`
	Platforms       []struct {
		Platform struct {
			Name string `json:"name"`
		} `json:"platform"`
	} `json:"platforms"`
	Genres []struct {
		Name string `json:"name"`
	} `json:"genres"`
}

// ReleaseYear parses the year out of the release date, 0 when unknown
func (g Game) ReleaseYear() int {
	if len(g.Released) < 4 {
		return 0
	}
	year := 0
	for _, r := range g.Released[:4] {
		if r < '0' || r > '9' {
			return 0
		}
		year = year*10 + int(r-'0')
	}
	return year
}

type listResponse struct {
	Results []Game `json:"results"`
}

// Search finds the single best game match for a title.
// Returns (nil, nil) when nothing upstream matches closely enough.
func (c *Client) Search(ctx context.Context, title string) (*Game, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("search", title)
	params.Set("page_size", "5")

	var response listResponse
	err := c.http.GetJSON(ctx, c.baseURL+"/games?"+params.Encode(), nil, &response)
	if errors.Is(err, services.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(response.Results) == 0 {
		return nil, nil
	}

	sort.SliceStable(response.Results, func(i, j int) bool {
		di := services.MatchDistance(title, response.Results[i].Name)
		dj := services.MatchDistance(title, response.Results[j].Name)
		if di != dj {
			return di < dj
		}
		return response.Results[i].RatingsCount > response.Results[j].RatingsCount
	})

	best := response.Results[0]
	if !services.AcceptableDistance(title, services.MatchDistance(title, best.Name)) {
		c.logger.WithField("title", title).Debug("No close enough game match")
		return nil, nil
	}

	c.logger.WithFields(logrus.Fields{
		"title": title,
		"match": best.Name,
		"id":    best.ID,
	}).Debug("Game search matched")
	return &best, nil
}

// Details is the full game detail record
type Details struct {
	Game
	Description string `json:"description_raw"`
	Website     string `json:"website"`
	Playtime    int    `json:"playtime"`
	Developers  []struct {
		Name string `json:"name"`
	} `json:"developers"`
}

// FetchDetails retrieves the full detail record for a game
func (c *Client) FetchDetails(ctx context.Context, id int) (*Details, error) {
	var details Details
	endpoint := fmt.Sprintf("%s/games/%d?key=%s", c.baseURL, id, url.QueryEscape(c.apiKey))
	if err := c.http.GetJSON(ctx, endpoint, nil, &details); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &details, nil
}

// FetchSeries retrieves the other entries in the game's series,
// release-ordered
func (c *Client) FetchSeries(ctx context.Context, id int) ([]Game, error) {
	return c.fetchList(ctx, fmt.Sprintf("%s/games/%d/game-series?key=%s", c.baseURL, id, url.QueryEscape(c.apiKey)))
}

// FetchAdditions retrieves the game's DLC and expansions
func (c *Client) FetchAdditions(ctx context.Context, id int) ([]Game, error) {
	return c.fetchList(ctx, fmt.Sprintf("%s/games/%d/additions?key=%s", c.baseURL, id, url.QueryEscape(c.apiKey)))
}

func (c *Client) fetchList(ctx context.Context, endpoint string) ([]Game, error) {
	var response listResponse
	if err := c.http.GetJSON(ctx, endpoint, nil, &response); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	sort.SliceStable(response.Results, func(i, j int) bool {
		return response.Results[i].Released < response.Results[j].Released
	})
	return response.Results, nil
}
