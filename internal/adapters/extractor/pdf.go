package extractor

import (
	"context"
	"strconv"
	"strings"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
)

// PDFExtractor reads the document info dictionary with pdfinfo and the
// first page text with pdftotext (poppler-utils)
type PDFExtractor struct {
	run Runner
}

func NewPDFExtractor(run Runner) *PDFExtractor {
	return &PDFExtractor{run: run}
}

func (e *PDFExtractor) Extract(ctx context.Context, rec domain.FileRecord) (domain.Metadata, error) {
	out, err := e.run(ctx, "pdfinfo", rec.Path)
	if err != nil {
		return domain.Metadata{}, err
	}
	info := keyValues(out)

	pages, _ := strconv.Atoi(info["pages"])
	meta := domain.NewMetadata(domain.PDFDetails{
		Pages:    pages,
		Producer: info["producer"],
		Creator:  info["creator"],
	})
	meta.Title = info["title"]
	meta.Authors = domain.SplitAuthors(info["author"])
	meta.Subject = info["subject"]
	meta.Keywords = splitKeywords(info["keywords"])
	meta.Year = findYear(info["creationdate"])

	// text is best effort; scanned PDFs have none
	if text, err := e.run(ctx, "pdftotext", "-l", "1", "-q", rec.Path, "-"); err == nil {
		meta.Text = strings.TrimSpace(string(text))
	}

	return meta, nil
}
