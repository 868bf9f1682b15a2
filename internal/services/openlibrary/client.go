// Package openlibrary wraps the bibliographic database: title search
// with author and first-publication year, plus a same-author listing
// used for new-book detection.
package openlibrary

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"kandarr/internal/config"
	"kandarr/internal/ratelimit"
	"kandarr/internal/services"
)

// ProviderName is the rate-limiter key for this source
const ProviderName = "openlibrary"

// Client handles communication with the bibliographic database API
type Client struct {
	baseURL string
	http    *services.Client
	logger  *logrus.Logger
}

// NewClient creates a new bibliographic database client. The source is
// keyless.
func NewClient(cfg *config.Config, limiter *ratelimit.Limiter, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: cfg.OpenLibraryBaseURL,
		http:    services.NewClient(ProviderName, limiter, logger),
		logger:  logger,
	}
}

// Work is one bibliographic record
type Work struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorNames      []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	ISBNs            []string `json:"isbn"`
	Pages            int      `json:"number_of_pages_median"`
	Subjects         []string `json:"subject"`
	CoverID          int      `json:"cover_i"`
	EditionCount     int      `json:"edition_count"`
}

// Author returns the primary author, or "" when the record has none
func (w Work) Author() string {
	if len(w.AuthorNames) == 0 {
		return ""
	}
	return w.AuthorNames[0]
}

type searchResponse struct {
	Docs []Work `json:"docs"`
}

// Search finds the single best work match for a title, optionally
// filtered by author. Returns (nil, nil) when nothing upstream matches
// closely enough.
func (c *Client) Search(ctx context.Context, title, author string) (*Work, error) {
	params := url.Values{}
	params.Set("title", title)
	if author != "" {
		params.Set("author", author)
	}
	params.Set("limit", "5")
	params.Set("fields", "key,title,author_name,first_publish_year,isbn,number_of_pages_median,subject,cover_i,edition_count")

	var response searchResponse
	err := c.http.GetJSON(ctx, c.baseURL+"/search.json?"+params.Encode(), nil, &response)
	if errors.Is(err, services.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(response.Docs) == 0 {
		return nil, nil
	}

	sort.SliceStable(response.Docs, func(i, j int) bool {
		di := services.MatchDistance(title, response.Docs[i].Title)
		dj := services.MatchDistance(title, response.Docs[j].Title)
		if di != dj {
			return di < dj
		}
		return response.Docs[i].EditionCount > response.Docs[j].EditionCount
	})

	best := response.Docs[0]
	if !services.AcceptableDistance(title, services.MatchDistance(title, best.Title)) {
		c.logger.WithField("title", title).Debug("No close enough work match")
		return nil, nil
	}

	c.logger.WithFields(logrus.Fields{
		"title": title,
		"match": best.Title,
		"key":   best.Key,
	}).Debug("Work search matched")
	return &best, nil
}

// FetchByAuthor retrieves an author's works newest-first, for
// same-author new-content detection
func (c *Client) FetchByAuthor(ctx context.Context, author string, limit int) ([]Work, error) {
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{}
	params.Set("author", author)
	params.Set("sort", "new")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", "key,title,author_name,first_publish_year,edition_count")

	var response searchResponse
	err := c.http.GetJSON(ctx, c.baseURL+"/search.json?"+params.Encode(), nil, &response)
	if errors.Is(err, services.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if len(response.Docs) > limit {
		response.Docs = response.Docs[:limit]
	}
	return response.Docs, nil
}

// CoverURL returns the cover image URL for a work, or "" when the
// record has no cover
func CoverURL(work *Work) string {
	if work == nil || work.CoverID == 0 {
		return ""
	}
	return "https://covers.openlibrary.org/b/id/" + strconv.Itoa(work.CoverID) + "-L.jpg"
}
