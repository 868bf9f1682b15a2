package enrich

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/sirupsen/logrus"

	"kandarr/internal/models"
	"kandarr/internal/services/openlibrary"
)

// seriesSubjectRegex pulls "book 2 of 5" style positions out of the
// subject tags some records carry
var seriesSubjectRegex = regexp.MustCompile(`(?i)\bbook\s+(\d+)\s+of\s+(\d+)\b`)

// BookProvider enriches books through the bibliographic database,
// adding the author's newer works as related content
type BookProvider struct {
	client *openlibrary.Client
	logger *logrus.Logger
}

// NewBookProvider creates a book enrichment provider
func NewBookProvider(client *openlibrary.Client, logger *logrus.Logger) *BookProvider {
	return &BookProvider{client: client, logger: logger}
}

// Type reports the content type this provider serves
func (p *BookProvider) Type() models.ContentType {
	return models.ContentTypeBook
}

// Enrich looks a work up by title and attaches the author's other
// works for new-content detection
func (p *BookProvider) Enrich(ctx context.Context, title string, year int) (*models.EnrichedData, error) {
	work, err := p.client.Search(ctx, title, "")
	if err != nil {
		return nil, fmt.Errorf("book search failed: %w", err)
	}
	if work == nil {
		return nil, nil
	}
	if year > 0 && work.FirstPublishYear > 0 && work.FirstPublishYear != year {
		p.logger.WithFields(logrus.Fields{
			"title":      title,
			"match_year": work.FirstPublishYear,
			"want_year":  year,
		}).Debug("Book match rejected on year mismatch")
		return nil, nil
	}

	data := &models.EnrichedData{
		Title:    work.Title,
		Year:     work.FirstPublishYear,
		ImageURL: openlibrary.CoverURL(work),
		Book: &models.BookDetails{
			Author: work.Author(),
			Pages:  work.Pages,
		},
	}
	if len(work.ISBNs) > 0 {
		data.Book.ISBN = work.ISBNs[0]
	}

	for _, subject := range work.Subjects {
		if len(data.Genres) >= 5 {
			break
		}
		data.Genres = append(data.Genres, subject)
	}
	p.extractSeriesPosition(work.Subjects, data.Book)

	data.Links = append(data.Links, models.Link{
		Name: "Open Library",
		URL:  "https://openlibrary.org" + work.Key,
	})

	if data.Book.Author != "" {
		if err := p.addSameAuthorWorks(ctx, work, data); err != nil {
			p.logger.WithError(err).Warn("Same-author lookup failed, continuing without")
		}
	}

	return finalize(data, models.ContentTypeBook, title), nil
}

// extractSeriesPosition scans subject tags for a series position
func (p *BookProvider) extractSeriesPosition(subjects []string, book *models.BookDetails) {
	for _, subject := range subjects {
		matches := seriesSubjectRegex.FindStringSubmatch(subject)
		if matches == nil {
			continue
		}
		position, err1 := strconv.Atoi(matches[1])
		total, err2 := strconv.Atoi(matches[2])
		if err1 == nil && err2 == nil && position > 0 && total >= position {
			book.SeriesPosition = position
			book.SeriesTotal = total
			return
		}
	}
}

// addSameAuthorWorks records the author's other works, newest first,
// as by-same-creator related content
func (p *BookProvider) addSameAuthorWorks(ctx context.Context, current *openlibrary.Work, data *models.EnrichedData) error {
	works, err := p.client.FetchByAuthor(ctx, data.Book.Author, 10)
	if err != nil {
		return err
	}

	for _, work := range works {
		if work.Key == current.Key {
			continue
		}
		data.Related = append(data.Related, models.RelatedContent{
			Title:    work.Title,
			Relation: models.RelationBySameCreator,
			Year:     work.FirstPublishYear,
		})
	}
	return nil
}
