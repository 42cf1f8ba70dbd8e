package ports

import (
	"context"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
)

// MetadataExtractor defines the port for reading lightweight file metadata
type MetadataExtractor interface {
	// Extract returns whatever metadata the file type supports.
	// Implementations may fail; callers treat a failure as empty metadata.
	Extract(ctx context.Context, rec domain.FileRecord) (domain.Metadata, error)
}

// PublishRequest carries an organized file to an external library
type PublishRequest struct {
	Path           string // location inside the organized tree
	Record         domain.FileRecord
	Metadata       domain.Metadata
	Classification domain.Classification
}

// Publisher defines the port for pushing records to a reference manager
type Publisher interface {
	// Name identifies the publisher in summaries and the ledger ("zotero", "calibre")
	Name() string

	// Accepts reports whether the publisher handles this category
	Accepts(category string) bool

	// Publish creates the external record and returns its identifier
	Publish(ctx context.Context, req PublishRequest) (string, error)
}

// Ledger defines the port for the durable processing record
type Ledger interface {
	// Record appends an entry and returns its id
	Record(ctx context.Context, entry domain.LedgerEntry) (int64, error)

	// FindByHash returns the most recent organized entry with this content hash, or nil
	FindByHash(ctx context.Context, sha256 string) (*domain.LedgerEntry, error)

	// Recent returns the newest entries first
	Recent(ctx context.Context, limit int) ([]domain.LedgerEntry, error)

	// Close releases the underlying store
	Close() error
}

// SummaryWriter defines the port for the per-item JSON side output
type SummaryWriter interface {
	// Write persists the summary and returns the file path
	Write(ctx context.Context, summary domain.Summary) (string, error)
}

// Compiler defines the port for LaTeX compilation operations
type Compiler interface {
	// Compile compiles a source file to PDF next to the source
	Compile(ctx context.Context, inputPath string) (*domain.BuildResult, error)
}

// EventOp is the subset of filesystem operations the watcher cares about
type EventOp int

const (
	OpCreate EventOp = iota + 1
	OpWrite
	OpRename
	OpRemove
)

// FileEvent is a single filesystem notification
type FileEvent struct {
	Path string
	Op   EventOp
}

// EventSource defines the port for filesystem notifications
type EventSource interface {
	// Add starts watching a directory
	Add(dir string) error

	Events() <-chan FileEvent
	Errors() <-chan error
	Close() error
}
