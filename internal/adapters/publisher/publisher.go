package publisher

import (
	"fmt"
	"log/slog"

	"github.com/kamal-hamza/rfm-cli/internal/core/ports"
	"github.com/kamal-hamza/rfm-cli/pkg/config"
)

// FromConfig builds every enabled publisher, Zotero first
func FromConfig(cfg *config.Config, logger *slog.Logger) ([]ports.Publisher, error) {
	var pubs []ports.Publisher

	if cfg.Zotero.Enabled {
		z, err := NewZotero(ZoteroOptions{
			BaseURL:     cfg.Zotero.BaseURL,
			LibraryType: cfg.Zotero.LibraryType,
			LibraryID:   cfg.Zotero.LibraryID,
			APIKey:      cfg.Zotero.APIKey,
			Categories:  cfg.Zotero.PublishCategories,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("zotero publisher: %w", err)
		}
		pubs = append(pubs, z)
	}

	if cfg.Calibre.Enabled {
		c, err := NewCalibre(CalibreOptions{
			Dir:         cfg.Calibre.Path,
			LibraryPath: cfg.Calibre.LibraryPath,
			Categories:  cfg.Calibre.PublishCategories,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("calibre publisher: %w", err)
		}
		pubs = append(pubs, c)
	}

	return pubs, nil
}
