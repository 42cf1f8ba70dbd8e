package extractor

import (
	"context"
	"regexp"
	"strings"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
)

// EbookExtractor parses the output of Calibre's ebook-meta
type EbookExtractor struct {
	run  Runner
	tool string
}

func NewEbookExtractor(run Runner, tool string) *EbookExtractor {
	if tool == "" {
		tool = "ebook-meta"
	}
	return &EbookExtractor{run: run, tool: tool}
}

// "Jane Doe [Doe, Jane]" carries the sort form in brackets
var sortSuffix = regexp.MustCompile(`\s*\[[^\]]*\]\s*$`)

func (e *EbookExtractor) Extract(ctx context.Context, rec domain.FileRecord) (domain.Metadata, error) {
	out, err := e.run(ctx, e.tool, rec.Path)
	if err != nil {
		return domain.Metadata{}, err
	}
	kv := keyValues(out)

	lang := kv["languages"]
	if lang == "" {
		lang = kv["language"]
	}
	meta := domain.NewMetadata(domain.EbookDetails{
		Publisher: kv["publisher"],
		Language:  lang,
		Series:    sortSuffix.ReplaceAllString(kv["series"], ""),
		Tags:      splitKeywords(kv["tags"]),
	})
	meta.Title = kv["title"]
	meta.Year = findYear(kv["published"])
	meta.Keywords = splitKeywords(kv["tags"])
	meta.Text = kv["comments"]

	for _, a := range strings.Split(kv["author(s)"], "&") {
		if a = strings.TrimSpace(sortSuffix.ReplaceAllString(a, "")); a != "" {
			meta.Authors = append(meta.Authors, a)
		}
	}

	return meta, nil
}
