package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nickng/bibtex"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
)

var errNoEntry = errors.New("no bibtex entry found")

// BibTeXExtractor reads the first entry of a .bib file
type BibTeXExtractor struct{}

func (BibTeXExtractor) Extract(ctx context.Context, rec domain.FileRecord) (domain.Metadata, error) {
	f, err := os.Open(rec.Path)
	if err != nil {
		return domain.Metadata{}, err
	}
	defer f.Close()

	entry, err := ParseFirstEntry(f)
	if err != nil {
		return domain.Metadata{}, err
	}

	meta := domain.NewMetadata(domain.BibTeXDetails{
		EntryType:   entry.Type,
		CitationKey: entry.Key,
		Journal:     firstNonEmpty(entry.Fields["journal"], entry.Fields["booktitle"]),
		Publisher:   entry.Fields["publisher"],
		DOI:         entry.Fields["doi"],
		URL:         entry.Fields["url"],
	})
	meta.Title = entry.Fields["title"]
	meta.Authors = domain.SplitAuthors(entry.Fields["author"])
	meta.Year = findYear(entry.Fields["year"])
	meta.Keywords = splitKeywords(entry.Fields["keywords"])
	meta.Text = entry.Fields["abstract"]
	return meta, nil
}

// Entry is one parsed BibTeX record
type Entry struct {
	Type   string
	Key    string
	Fields map[string]string // lower-case names, braces and quotes removed
}

// ParseFirstEntry returns the first regular entry in r. String variables
// are resolved by the parser.
func ParseFirstEntry(r io.Reader) (*Entry, error) {
	bib, err := bibtex.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse bibtex: %w", err)
	}
	if len(bib.Entries) == 0 {
		return nil, errNoEntry
	}

	first := bib.Entries[0]
	entry := &Entry{
		Type:   strings.ToLower(first.Type),
		Key:    strings.TrimSpace(first.CiteName),
		Fields: make(map[string]string, len(first.Fields)),
	}
	for name, value := range first.Fields {
		if value == nil {
			continue
		}
		entry.Fields[strings.ToLower(name)] = cleanValue(value.String())
	}
	return entry, nil
}

// cleanValue drops TeX grouping braces and outer quotes
func cleanValue(s string) string {
	s = strings.NewReplacer("{", "", "}", "").Replace(s)
	return collapseSpace(strings.Trim(s, `"`))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
