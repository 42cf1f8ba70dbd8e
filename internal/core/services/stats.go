package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
)

// ArchiveStats counts files per bucket and year below the organized root.
// Files outside a numeric year directory are counted under year 0.
func ArchiveStats(ctx context.Context, root string) ([]domain.BucketCount, error) {
	type key struct {
		bucket string
		year   int
	}
	counts := make(map[key]*domain.BucketCount)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if domain.IsHidden(d.Name()) && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		parts := strings.Split(rel, string(filepath.Separator))
		if len(parts) < 2 {
			return nil // loose file at the archive root
		}

		k := key{bucket: parts[0]}
		if len(parts) >= 3 {
			if y, err := strconv.Atoi(parts[1]); err == nil {
				k.year = y
			}
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		c, ok := counts[k]
		if !ok {
			c = &domain.BucketCount{Bucket: k.bucket, Year: k.year}
			counts[k] = c
		}
		c.Count++
		c.Bytes += info.Size()
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan archive: %w", err)
	}

	result := make([]domain.BucketCount, 0, len(counts))
	for _, c := range counts {
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Bucket != result[j].Bucket {
			return result[i].Bucket < result[j].Bucket
		}
		return result[i].Year < result[j].Year
	})
	return result, nil
}

// BucketTotals folds per-year counts into one row per bucket
func BucketTotals(counts []domain.BucketCount) []domain.BucketCount {
	var totals []domain.BucketCount
	index := make(map[string]int)
	for _, c := range counts {
		i, ok := index[c.Bucket]
		if !ok {
			index[c.Bucket] = len(totals)
			totals = append(totals, domain.BucketCount{Bucket: c.Bucket})
			i = len(totals) - 1
		}
		totals[i].Count += c.Count
		totals[i].Bytes += c.Bytes
	}
	return totals
}
