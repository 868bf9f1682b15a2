// Package validate checks enriched data against schema, quality and
// cross-field rules before it is trusted or cached.
package validate

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"kandarr/internal/models"
)

// Completeness weights for the quality score, capped at 100
const (
	weightRatings     = 25
	weightImage       = 20
	weightLinks       = 15
	weightYear        = 10
	weightGenres      = 10
	weightDescription = 10
	weightRelated     = 10

	maxTitleLength = 300
)

// Validator is one stage of the pipeline; it appends issues in place
type Validator interface {
	Name() string
	Validate(data *models.EnrichedData, issues *[]models.ValidationIssue)
}

// Pipeline runs each validator in sequence and accumulates issues.
// Validation never fails: it always produces a best-effort report.
type Pipeline struct {
	validators []Validator
	logger     *logrus.Logger
}

// NewPipeline creates the standard schema → quality → cross-field
// pipeline
func NewPipeline(logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		validators: []Validator{
			schemaValidator{},
			qualityValidator{},
			crossFieldValidator{},
		},
		logger: logger,
	}
}

// Run validates enriched data and computes the completeness score.
// The result is valid iff no error-severity issue was found; the score
// is computed independently of validity.
func (p *Pipeline) Run(data *models.EnrichedData) models.ValidationReport {
	report := models.ValidationReport{Valid: true}
	if data == nil {
		report.Valid = false
		report.Issues = append(report.Issues, models.ValidationIssue{
			Field:    "data",
			Severity: models.SeverityError,
			Message:  "no enriched data to validate",
		})
		return report
	}

	for _, validator := range p.validators {
		before := len(report.Issues)
		validator.Validate(data, &report.Issues)
		p.logger.WithFields(logrus.Fields{
			"validator": validator.Name(),
			"issues":    len(report.Issues) - before,
		}).Debug("Validator completed")
	}

	report.Valid = report.ErrorCount() == 0
	report.QualityScore = QualityScore(data)
	return report
}

// QualityScore computes the 0-100 completeness score from weighted
// presence checks
func QualityScore(data *models.EnrichedData) int {
	score := 0
	if len(data.Ratings) > 0 {
		score += weightRatings
	}
	if data.ImageURL != "" {
		score += weightImage
	}
	if len(data.Links) > 0 {
		score += weightLinks
	}
	if data.Year > 0 {
		score += weightYear
	}
	if len(data.Genres) > 0 {
		score += weightGenres
	}
	if data.Description != "" {
		score += weightDescription
	}
	if len(data.Related) > 0 {
		score += weightRelated
	}
	if score > 100 {
		score = 100
	}
	return score
}

// schemaValidator checks required fields per content type. A nil
// ratings or links slice violates the provider contract and is an
// error; present-but-empty is only a warning.
type schemaValidator struct{}

func (schemaValidator) Name() string { return "schema" }

func (schemaValidator) Validate(data *models.EnrichedData, issues *[]models.ValidationIssue) {
	if data.Title == "" {
		*issues = append(*issues, models.ValidationIssue{
			Field:    "title",
			Severity: models.SeverityError,
			Message:  "title is required",
		})
	}
	if data.Type == "" || data.Type == models.ContentTypeUnknown {
		*issues = append(*issues, models.ValidationIssue{
			Field:    "type",
			Severity: models.SeverityError,
			Message:  "content type tag is required",
		})
	}

	if data.Ratings == nil {
		*issues = append(*issues, models.ValidationIssue{
			Field:      "ratings",
			Severity:   models.SeverityError,
			Message:    "ratings list is absent",
			Suggestion: "providers must return an empty list rather than none",
		})
	} else if len(data.Ratings) == 0 {
		*issues = append(*issues, models.ValidationIssue{
			Field:    "ratings",
			Severity: models.SeverityWarning,
			Message:  "no ratings found",
		})
	}
	if data.Links == nil {
		*issues = append(*issues, models.ValidationIssue{
			Field:      "links",
			Severity:   models.SeverityError,
			Message:    "links list is absent",
			Suggestion: "providers must return an empty list rather than none",
		})
	} else if len(data.Links) == 0 {
		*issues = append(*issues, models.ValidationIssue{
			Field:    "links",
			Severity: models.SeverityWarning,
			Message:  "no links found",
		})
	}

	requirePayload(data, issues)
}

// requirePayload checks that the detail payload matches the type tag
func requirePayload(data *models.EnrichedData, issues *[]models.ValidationIssue) {
	var missing bool
	switch data.Type {
	case models.ContentTypeTVSeries, models.ContentTypeAnime:
		missing = data.Show == nil
	case models.ContentTypeMovie:
		missing = data.Movie == nil
	case models.ContentTypeBook:
		missing = data.Book == nil
	case models.ContentTypeGame:
		missing = data.Game == nil
	}
	if missing {
		*issues = append(*issues, models.ValidationIssue{
			Field:    "details",
			Severity: models.SeverityError,
			Message:  fmt.Sprintf("missing %s detail payload", data.Type),
		})
	}
}

// qualityValidator checks presentation-level expectations
type qualityValidator struct{}

func (qualityValidator) Name() string { return "quality" }

func (qualityValidator) Validate(data *models.EnrichedData, issues *[]models.ValidationIssue) {
	if data.ImageURL == "" {
		*issues = append(*issues, models.ValidationIssue{
			Field:    "image_url",
			Severity: models.SeverityWarning,
			Message:  "no image available",
		})
	}
	if len(data.Title) > maxTitleLength {
		*issues = append(*issues, models.ValidationIssue{
			Field:    "title",
			Severity: models.SeverityWarning,
			Message:  fmt.Sprintf("title longer than %d characters", maxTitleLength),
		})
	}
	if data.Year != 0 {
		currentYear := time.Now().Year()
		if data.Year < 1850 || data.Year > currentYear+2 {
			*issues = append(*issues, models.ValidationIssue{
				Field:    "year",
				Severity: models.SeverityWarning,
				Message:  fmt.Sprintf("implausible year %d", data.Year),
			})
		}
	}
}

// crossFieldValidator checks type-specific expectations between fields
type crossFieldValidator struct{}

func (crossFieldValidator) Name() string { return "cross_field" }

func (crossFieldValidator) Validate(data *models.EnrichedData, issues *[]models.ValidationIssue) {
	switch data.Type {
	case models.ContentTypeTVSeries, models.ContentTypeAnime:
		if data.Show != nil && data.Show.SeasonCount == 0 && data.Show.EpisodeCount == 0 {
			*issues = append(*issues, models.ValidationIssue{
				Field:    "details",
				Severity: models.SeverityInfo,
				Message:  "neither season nor episode count is known",
			})
		}
	case models.ContentTypeBook:
		if data.Book != nil && data.Book.Author == "" {
			*issues = append(*issues, models.ValidationIssue{
				Field:    "author",
				Severity: models.SeverityWarning,
				Message:  "book has no author",
			})
		}
	case models.ContentTypeGame:
		if data.Game != nil && len(data.Game.Platforms) == 0 {
			*issues = append(*issues, models.ValidationIssue{
				Field:    "platforms",
				Severity: models.SeverityInfo,
				Message:  "game has no platform list",
			})
		}
	}

	seen := make(map[string]bool, len(data.Ratings))
	for _, rating := range data.Ratings {
		if seen[rating.Source] {
			*issues = append(*issues, models.ValidationIssue{
				Field:    "ratings",
				Severity: models.SeverityWarning,
				Message:  fmt.Sprintf("duplicate rating source %q", rating.Source),
			})
			continue
		}
		seen[rating.Source] = true
	}
}
