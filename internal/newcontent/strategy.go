// Package newcontent compares a user's tracked progress against
// enriched upstream data to flag newly available follow-on content
// (seasons, sequels, DLC, books).
package newcontent

import (
	"github.com/sirupsen/logrus"

	"kandarr/internal/models"
)

// Kinds of follow-on content a strategy can flag
const (
	KindSeason  = "season"
	KindSequel  = "sequel"
	KindDLC     = "dlc"
	KindBook    = "book"
	KindEpisode = "episode"
)

// Release statuses for flagged content
const (
	StatusReleased = "released"
	StatusUpcoming = "upcoming"
)

// Context bundles everything a strategy may inspect
type Context struct {
	Data        models.EnrichedData
	ContentType models.ContentType
	Checklists  []string // checklist names the user tracks progress in
}

// Upcoming describes the follow-on content a strategy found
type Upcoming struct {
	Title string
	Kind  string
	Year  int
}

// Detection is a strategy's verdict. Strategies are side-effect-free
// and never fail: insufficient data yields HasNewContent=false with a
// debug reason.
type Detection struct {
	HasNewContent bool
	Upcoming      *Upcoming
	Status        string
	Debug         string
}

// Strategy decides whether newer content exists upstream for one
// content type
type Strategy interface {
	Detect(ctx Context) Detection
}

// Orchestrator routes a detection request to the strategy registered
// for its content type
type Orchestrator struct {
	strategies map[models.ContentType]Strategy
	logger     *logrus.Logger
}

// NewOrchestrator creates a routing orchestrator over the given
// strategies
func NewOrchestrator(logger *logrus.Logger) *Orchestrator {
	tv := &TVStrategy{}
	return &Orchestrator{
		strategies: map[models.ContentType]Strategy{
			models.ContentTypeTVSeries: tv,
			models.ContentTypeAnime:    tv,
			models.ContentTypeMovie:    &MovieStrategy{},
			models.ContentTypeBook:     &BookStrategy{},
			models.ContentTypeGame:     &GameStrategy{},
		},
		logger: logger,
	}
}

// Detect routes to the matching strategy. Types without a strategy
// come back negative with a debug reason.
func (o *Orchestrator) Detect(ctx Context) Detection {
	strategy, ok := o.strategies[ctx.ContentType]
	if !ok {
		return Detection{Debug: "no strategy for content type " + string(ctx.ContentType)}
	}

	detection := strategy.Detect(ctx)
	o.logger.WithFields(logrus.Fields{
		"title":   ctx.Data.Title,
		"type":    ctx.ContentType,
		"new":     detection.HasNewContent,
		"status":  detection.Status,
	}).Debug("New-content detection completed")
	return detection
}
