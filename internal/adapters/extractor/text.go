package extractor

import (
	"context"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/pkg/metadata"
)

const maxTextBytes = 64 * 1024

// TextExtractor reads declared headers from plain text, Markdown and LaTeX
type TextExtractor struct{}

func (TextExtractor) Extract(ctx context.Context, rec domain.FileRecord) (domain.Metadata, error) {
	f, err := os.Open(rec.Path)
	if err != nil {
		return domain.Metadata{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxTextBytes))
	if err != nil {
		return domain.Metadata{}, err
	}
	if !utf8.Valid(data) {
		data = []byte(strings.ToValidUTF8(string(data), ""))
	}
	content := string(data)

	h := metadata.Parse(content)
	meta := domain.NewMetadata(nil)
	meta.Title = h.Title
	meta.Authors = h.Authors
	meta.Keywords = h.Tags
	meta.Year = findYear(h.Date)
	if t, err := time.Parse(time.DateOnly, h.Date); err == nil {
		meta.Created = t
	}
	meta.Text = content
	return meta, nil
}
