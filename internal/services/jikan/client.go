// Package jikan wraps the anime database. It exposes title search,
// detail fetch and the related-entry graph (sequels, prequels,
// spin-offs) the anime provider and new-content strategy consume.
package jikan

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
const ProviderName = "jikan"

// Client handles communication with the anime database API
type Client struct {
	baseURL string
	http    *services.Client
	logger  *logrus.Logger
}

// NewClient creates a new anime database client. The source is keyless.
func NewClient(cfg *config.Config, limiter *ratelimit.Limiter, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: cfg.JikanBaseURL,
		http:    services.NewClient(ProviderName, limiter, logger),
		logger:  logger,
	}
}

// Anime is one anime record
type Anime struct {
	MalID        int     `json:"mal_id"`
	Title        string  `json:"title"`
	TitleEnglish string  `json:"title_english"`
	URL          string  `json:"url"`
	Synopsis     string  `json:"synopsis"`
	Episodes     int     `json:"episodes"`
	Status       string  `json:"status"`
	Airing       bool    `json:"airing"`
	Score        float64 `json:"score"`
	Year         int     `json:"year"`
	Images       struct {
		JPG struct {
			ImageURL string `json:"image_url"`
		} `json:"jpg"`
	} `json:"images"`
	Genres []struct {
		Name string `json:"name"`
	} `json:"genres"`
}

// DisplayTitle prefers the English title when the source has one
func (a Anime) DisplayTitle() string {
	if a.TitleEnglish != "" {
		return a.TitleEnglish
	}
	return a.Title
}

type searchResponse struct {
	Data []Anime `json:"data"`
}

// Search finds the single best anime match for a title.
// Returns (nil, nil) when nothing upstream matches closely enough.
func (c *Client) Search(ctx context.Context, title string) (*Anime, error) {
	params := url.Values{}
	params.Set("q", title)
	params.Set("limit", "5")

	var response searchResponse
	err := c.http.GetJSON(ctx, c.baseURL+"/anime?"+params.Encode(), nil, &response)
	if errors.Is(err, services.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(response.Data) == 0 {
		return nil, nil
	}

	sort.SliceStable(response.Data, func(i, j int) bool {
		di := bestDistance(title, response.Data[i])
		dj := bestDistance(title, response.Data[j])
		if di != dj {
			return di < dj
		}
		return response.Data[i].Score > response.Data[j].Score
	})

	best := response.Data[0]
	if !services.AcceptableDistance(title, bestDistance(title, best)) {
		c.logger.WithField("title", title).Debug("No close enough anime match")
		return nil, nil
	}

	c.logger.WithFields(logrus.Fields{
		"title": title,
		"match": best.DisplayTitle(),
		"id":    best.MalID,
	}).Debug("Anime search matched")
	return &best, nil
}

// bestDistance scores against both the romaji and English titles
func bestDistance(query string, anime Anime) int {
	distance := services.MatchDistance(query, anime.Title)
	if anime.TitleEnglish != "" {
		if englishDistance := services.MatchDistance(query, anime.TitleEnglish); englishDistance < distance {
			distance = englishDistance
		}
	}
	return distance
}

// RelatedEntry is one node in the related-entry graph
type RelatedEntry struct {
	Relation string // "Sequel", "Prequel", "Side story", ...
	Name     string
	URL      string
}

type relationsResponse struct {
	Data []struct {
		Relation string `json:"relation"`
		Entry    []struct {
			Name string `json:"name"`
			URL  string `json:"url"`
			Type string `json:"type"`
		} `json:"entry"`
	} `json:"data"`
}

// FetchRelations retrieves the related-entry graph for an anime,
// keeping only anime-typed entries
func (c *Client) FetchRelations(ctx context.Context, id int) ([]RelatedEntry, error) {
	var response relationsResponse
	endpoint := fmt.Sprintf("%s/anime/%d/relations", c.baseURL, id)
	if err := c.http.GetJSON(ctx, endpoint, nil, &response); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var entries []RelatedEntry
	for _, group := range response.Data {
		for _, entry := range group.Entry {
			if entry.Type != "" && entry.Type != "anime" {
				continue
			}
			entries = append(entries, RelatedEntry{
				Relation: group.Relation,
				Name:     entry.Name,
				URL:      entry.URL,
			})
		}
	}
	return entries, nil
}
