package extractor

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
)

const maxHTMLBytes = 4 << 20

// HTMLExtractor reads saved web pages
type HTMLExtractor struct{}

func (HTMLExtractor) Extract(ctx context.Context, rec domain.FileRecord) (domain.Metadata, error) {
	f, err := os.Open(rec.Path)
	if err != nil {
		return domain.Metadata{}, err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(f, maxHTMLBytes))
	if err != nil {
		return domain.Metadata{}, fmt.Errorf("parse html: %w", err)
	}
	return parseHTML(doc), nil
}

func parseHTML(doc *goquery.Document) domain.Metadata {
	details := domain.HTMLDetails{
		Description:  firstNonEmpty(metaContent(doc, "name", "description"), metaContent(doc, "property", "og:description")),
		SiteName:     metaContent(doc, "property", "og:site_name"),
		CanonicalURL: firstNonEmpty(attr(doc, `link[rel="canonical"]`, "href"), metaContent(doc, "property", "og:url")),
	}

	meta := domain.NewMetadata(details)
	meta.Title = firstNonEmpty(
		metaContent(doc, "name", "citation_title"),
		metaContent(doc, "property", "og:title"),
		collapseSpace(doc.Find("title").First().Text()),
	)

	doc.Find(`meta[name="citation_author"]`).Each(func(_ int, s *goquery.Selection) {
		if v := strings.TrimSpace(s.AttrOr("content", "")); v != "" {
			meta.Authors = append(meta.Authors, v)
		}
	})
	if len(meta.Authors) == 0 {
		meta.Authors = domain.SplitAuthors(metaContent(doc, "name", "author"))
	}

	meta.Year = findYear(firstNonEmpty(
		metaContent(doc, "name", "citation_publication_date"),
		metaContent(doc, "name", "citation_date"),
		metaContent(doc, "property", "article:published_time"),
	))
	meta.Keywords = splitKeywords(metaContent(doc, "name", "keywords"))

	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, nav, footer").Remove()
	meta.Text = collapseSpace(body.Text())

	return meta
}

func metaContent(doc *goquery.Document, attrName, value string) string {
	return attr(doc, fmt.Sprintf(`meta[%s=%q]`, attrName, value), "content")
}

func attr(doc *goquery.Document, selector, name string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr(name, ""))
}
