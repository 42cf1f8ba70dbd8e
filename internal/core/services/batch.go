package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/pkg/logging"
)

// Candidates lists the files of dir that a batch would consider, sorted.
// Hidden entries are left out; ignore patterns are applied later so they
// show up as skipped.
func (o *Organizer) Candidates(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var files []string
	if !o.opts.Recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Type().IsRegular() && !domain.IsHidden(e.Name()) {
				files = append(files, filepath.Join(dir, e.Name()))
			}
		}
		return files, nil
	}

	root := o.opts.Resolver.Root()
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			o.logger.Warn("cannot read entry", logging.Path(path), logging.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path == dir {
				return nil
			}
			if domain.IsHidden(d.Name()) || within(root, path) || o.excluded(path) {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && !domain.IsHidden(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func (o *Organizer) excluded(path string) bool {
	for _, dir := range o.opts.ExcludeDirs {
		if within(dir, path) {
			return true
		}
	}
	return false
}

// ProcessDirectory organizes every candidate file of dir in sorted order.
// Per-file failures are counted in the report; the error is only set when
// dir itself cannot be listed or ctx was cancelled.
func (o *Organizer) ProcessDirectory(ctx context.Context, dir string) (domain.BatchReport, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return domain.BatchReport{Directory: dir}, err
	}

	report := domain.BatchReport{Directory: abs, StartedAt: o.now()}

	files, err := o.Candidates(abs)
	if err != nil {
		report.FinishedAt = o.now()
		return report, fmt.Errorf("failed to list %s: %w", abs, err)
	}

	o.logger.Info("processing directory",
		logging.Path(abs),
		logging.Int("files", len(files)),
		logging.String("mode", o.opts.Mode.String()),
	)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = o.now()
			return report, err
		}
		report.Add(o.Organize(ctx, path))
	}

	report.FinishedAt = o.now()
	o.logger.Info("directory done",
		logging.Path(abs),
		logging.Int("organized", report.Organized),
		logging.Int("duplicates", report.Duplicates),
		logging.Int("skipped", report.Skipped),
		logging.Int("failed", report.Failed),
		logging.Duration("elapsed", report.Duration()),
	)
	return report, nil
}

// ProcessAll runs ProcessDirectory over every configured source directory.
// Missing directories are logged and skipped.
func (o *Organizer) ProcessAll(ctx context.Context) ([]domain.BatchReport, error) {
	var reports []domain.BatchReport
	for _, dir := range o.opts.Sources {
		report, err := o.ProcessDirectory(ctx, dir)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				reports = append(reports, report)
				return reports, err
			}
			o.logger.Warn("skipping source directory", logging.Path(dir), logging.Error(err))
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Totals folds several reports into one
func Totals(reports []domain.BatchReport) domain.BatchReport {
	var total domain.BatchReport
	for i, r := range reports {
		if i == 0 || r.StartedAt.Before(total.StartedAt) {
			total.StartedAt = r.StartedAt
		}
		if r.FinishedAt.After(total.FinishedAt) {
			total.FinishedAt = r.FinishedAt
		}
		total.Merge(r)
	}
	return total
}
