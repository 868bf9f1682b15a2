package models

import "time"

// Rating is one score from one review source
type Rating struct {
	Source   string
	Score    float64
	MaxScore float64 // 0 when the source does not publish a scale
	URL      string
}

// Link points at an external page for the enriched work
type Link struct {
	Name string
	URL  string
}

// RelatedContent is a typed pointer to another work
type RelatedContent struct {
	Title    string
	Relation RelationType
	Year     int
	URL      string
}

// ShowDetails carries the TV/anime-specific enrichment fields
type ShowDetails struct {
	SeasonCount      int
	EpisodeCount     int
	EpisodeRuntime   int    // minutes
	Status           string // "returning", "ended", "announced", ...
	NextSeasonNumber int    // announced but unreleased season, 0 if none
	StreamingOn      []string
}

// MovieDetails carries the movie-specific enrichment fields
type MovieDetails struct {
	Runtime           int // minutes
	Status            string
	StreamingOn       []string
	FranchisePosition int // 1-based position within a franchise, 0 if standalone
	FranchiseSize     int
}

// BookDetails carries the book-specific enrichment fields
type BookDetails struct {
	Author         string
	Pages          int
	ISBN           string
	SeriesPosition int // 0 when not part of a series
	SeriesTotal    int
}

// GameDetails carries the game-specific enrichment fields
type GameDetails struct {
	Platforms []string
	Developer string
	Playtime  int // typical hours
}

// EnrichedData is the unified enrichment shape, a tagged union over
// content type. Type always matches the content type of the provider
// that produced it; exactly one of the detail pointers is set.
type EnrichedData struct {
	Type        ContentType
	Title       string
	Year        int
	Description string
	ImageURL    string
	Genres      []string
	Ratings     []Rating // never nil
	Links       []Link   // never nil
	Related     []RelatedContent

	Show  *ShowDetails
	Movie *MovieDetails
	Book  *BookDetails
	Game  *GameDetails
}

// CachedEnrichment is an enrichment snapshot persisted for the
// new-content scan, keyed by card id.
type CachedEnrichment struct {
	CardID     string `boltholdKey:"CardID"`
	Data       EnrichedData
	Checklists []string // checklist item names from the card, for season tracking
	FetchedAt  time.Time
}

// Fresh reports whether the snapshot is still inside its window
func (c *CachedEnrichment) Fresh(window time.Duration) bool {
	return time.Since(c.FetchedAt) < window
}
