package validate

import (
	"testing"

	"github.com/sirupsen/logrus"

	"kandarr/internal/models"
)

func testPipeline() *Pipeline {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewPipeline(logger)
}

func completeMovie() *models.EnrichedData {
	return &models.EnrichedData{
		Type:        models.ContentTypeMovie,
		Title:       "Heat",
		Year:        1995,
		Description: "A crew of professional thieves...",
		ImageURL:    "https://image.example/heat.jpg",
		Genres:      []string{"Crime", "Thriller"},
		Ratings:     []models.Rating{{Source: "TMDB", Score: 8.3, MaxScore: 10}},
		Links:       []models.Link{{Name: "TMDB", URL: "https://themoviedb.org/movie/949"}},
		Related:     []models.RelatedContent{{Title: "Heat 2", Relation: models.RelationSequel}},
		Movie:       &models.MovieDetails{Runtime: 170},
	}
}

func TestRunCompleteData(t *testing.T) {
	report := testPipeline().Run(completeMovie())

	if !report.Valid {
		t.Errorf("Expected complete data to validate, issues: %+v", report.Issues)
	}
	if report.QualityScore != 100 {
		t.Errorf("Expected quality score 100, got %d", report.QualityScore)
	}
}

func TestRunNilData(t *testing.T) {
	report := testPipeline().Run(nil)

	if report.Valid {
		t.Error("Expected nil data to be invalid")
	}
	if report.ErrorCount() != 1 {
		t.Errorf("Expected a single error issue, got %d", report.ErrorCount())
	}
}

func TestRunAbsentRatingsAndLinks(t *testing.T) {
	data := completeMovie()
	data.Ratings = nil
	data.Links = nil

	report := testPipeline().Run(data)

	if report.Valid {
		t.Error("Expected absent ratings and links to be invalid")
	}
	if report.ErrorCount() != 2 {
		t.Errorf("Expected two error issues, got %d", report.ErrorCount())
	}
}

func TestRunEmptyRatingsIsWarning(t *testing.T) {
	data := completeMovie()
	data.Ratings = []models.Rating{}

	report := testPipeline().Run(data)

	if !report.Valid {
		t.Errorf("Expected empty-but-present ratings to stay valid, issues: %+v", report.Issues)
	}

	warned := false
	for _, issue := range report.Issues {
		if issue.Field == "ratings" && issue.Severity == models.SeverityWarning {
			warned = true
		}
	}
	if !warned {
		t.Error("Expected a warning for empty ratings")
	}
}

func TestRunMissingDetailPayload(t *testing.T) {
	data := completeMovie()
	data.Movie = nil

	report := testPipeline().Run(data)

	if report.Valid {
		t.Error("Expected a movie without its detail payload to be invalid")
	}
}

func TestRunImplausibleYear(t *testing.T) {
	data := completeMovie()
	data.Year = 1600

	report := testPipeline().Run(data)

	if !report.Valid {
		t.Error("Expected an implausible year to stay a warning")
	}

	warned := false
	for _, issue := range report.Issues {
		if issue.Field == "year" {
			warned = true
		}
	}
	if !warned {
		t.Error("Expected a warning for an implausible year")
	}
}

func TestRunDuplicateRatingSources(t *testing.T) {
	data := completeMovie()
	data.Ratings = append(data.Ratings, models.Rating{Source: "TMDB", Score: 9.0, MaxScore: 10})

	report := testPipeline().Run(data)

	warned := false
	for _, issue := range report.Issues {
		if issue.Field == "ratings" && issue.Severity == models.SeverityWarning {
			warned = true
		}
	}
	if !warned {
		t.Error("Expected a warning for duplicate rating sources")
	}
}

func TestQualityScoreOrdersCompleteness(t *testing.T) {
	full := completeMovie()

	sparse := &models.EnrichedData{
		Type:    models.ContentTypeMovie,
		Title:   "Heat",
		Ratings: []models.Rating{},
		Links:   []models.Link{},
		Movie:   &models.MovieDetails{},
	}

	if QualityScore(full) <= QualityScore(sparse) {
		t.Errorf("Expected fuller data to score higher: full=%d sparse=%d",
			QualityScore(full), QualityScore(sparse))
	}
}
