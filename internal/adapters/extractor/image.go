package extractor

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
)

// ImageExtractor decodes only the image header
type ImageExtractor struct{}

func (ImageExtractor) Extract(ctx context.Context, rec domain.FileRecord) (domain.Metadata, error) {
	f, err := os.Open(rec.Path)
	if err != nil {
		return domain.Metadata{}, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return domain.Metadata{}, fmt.Errorf("decode image header: %w", err)
	}

	return domain.NewMetadata(domain.ImageDetails{
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
	}), nil
}
