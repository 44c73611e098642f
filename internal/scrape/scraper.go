package scrape

import (
	"context"
	"log"
	"path"
	"strings"

	"github.com/silkworks-ai/docrag/internal/domain"
)

// Scraper turns a source catalog into extracted documents. Individual page
// failures are logged and skipped so one dead link cannot sink a full
// ingestion run.
type Scraper struct {
	fetcher *Fetcher
}

func NewScraper(fetcher *Fetcher) *Scraper {
	return &Scraper{fetcher: fetcher}
}

// ScrapeSource fetches every cataloged page for the given source type and
// returns the documents that yielded content, in catalog order.
func (s *Scraper) ScrapeSource(ctx context.Context, sourceType domain.SourceType) ([]domain.Document, error) {
	pages := PagesFor(sourceType)
	if pages == nil {
		return nil, domain.ErrInvalidSourceType
	}
	return s.scrapePages(ctx, sourceType, pages)
}

func (s *Scraper) scrapePages(ctx context.Context, sourceType domain.SourceType, pages []PageRef) ([]domain.Document, error) {
	docs := make([]domain.Document, 0, len(pages))
	for _, page := range pages {
		result, err := s.fetcher.Fetch(ctx, page.URL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("Skipping %s: %v", page.URL, err)
			continue
		}
		if result.Status == StatusNoContent {
			log.Printf("Skipping %s: no extractable content", page.URL)
			continue
		}

		title := result.Title
		if title == "" {
			title = titleFromURL(page.URL)
		}

		docs = append(docs, domain.Document{
			Content:    result.Markdown,
			URL:        page.URL,
			SourceType: sourceType,
			Section:    page.Section,
			Title:      title,
			Version:    page.Version,
		})
	}

	log.Printf("Scraped %d/%d pages for %s", len(docs), len(pages), sourceType)
	return docs, nil
}

// titleFromURL derives a readable title from the last path segment, e.g.
// "/docs/app/building-your-application" -> "Building Your Application".
func titleFromURL(url string) string {
	segment := path.Base(strings.TrimSuffix(url, "/"))
	segment = strings.TrimSuffix(segment, path.Ext(segment))
	words := strings.FieldsFunc(segment, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
