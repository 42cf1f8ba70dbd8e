package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kamal-hamza/rfm-cli/internal/adapters/fsx"
	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/internal/core/ports"
)

const (
	summaryPrefix = "research_summary_"
	summaryLayout = "20060102_150405"
)

// SummaryRepository stores one JSON document per processed item
type SummaryRepository struct {
	dir string
	mu  sync.RWMutex
}

// NewSummaryRepository creates a repository rooted at dir
func NewSummaryRepository(dir string) *SummaryRepository {
	return &SummaryRepository{dir: dir}
}

// Ensure it implements the interface
var _ ports.SummaryWriter = (*SummaryRepository)(nil)

// Dir returns the summaries directory
func (r *SummaryRepository) Dir() string {
	return r.dir
}

// Write persists the summary atomically. Existing files are never replaced.
func (r *SummaryRepository) Write(ctx context.Context, summary domain.Summary) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if summary.ID == "" {
		return "", fmt.Errorf("summary has no id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode summary: %w", err)
	}
	data = append(data, '\n')

	name := SummaryFilename(summary)
	if err := fsx.WriteFileAtomic(r.dir, name, data); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}
	return filepath.Join(r.dir, name), nil
}

// List returns up to limit summaries, newest first. limit <= 0 means all.
// Unreadable files are skipped.
func (r *SummaryRepository) List(ctx context.Context, limit int) ([]domain.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read summaries directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, summaryPrefix) || filepath.Ext(name) != ".json" {
			continue
		}
		names = append(names, name)
	}
	// the timestamp prefix sorts chronologically
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	var summaries []domain.Summary
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return summaries, err
		}
		if limit > 0 && len(summaries) >= limit {
			break
		}
		s, err := r.read(filepath.Join(r.dir, name))
		if err != nil {
			continue
		}
		summaries = append(summaries, *s)
	}
	return summaries, nil
}

// Get finds a summary by id or id prefix
func (r *SummaryRepository) Get(ctx context.Context, id string) (*domain.Summary, error) {
	if len(id) < 8 {
		return nil, fmt.Errorf("summary id %q is too short", id)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(r.dir, summaryPrefix+"*_"+id[:8]+".json"))
	if err != nil {
		return nil, err
	}
	for _, path := range matches {
		s, err := r.read(path)
		if err != nil {
			continue
		}
		if strings.HasPrefix(s.ID, id) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("summary %q not found", id)
}

func (r *SummaryRepository) read(path string) (*domain.Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s domain.Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &s, nil
}

// SummaryFilename returns research_summary_<YYYYMMDD_HHMMSS>_<id8>.json
func SummaryFilename(s domain.Summary) string {
	ts := s.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	short := strings.ReplaceAll(s.ID, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	return summaryPrefix + ts.Format(summaryLayout) + "_" + short + ".json"
}
