package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kamal-hamza/rfm-cli/internal/adapters/fsx"
	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/internal/core/ports"
	"github.com/kamal-hamza/rfm-cli/pkg/logging"
)

// OrganizerOptions controls how files are placed
type OrganizerOptions struct {
	Logger     *slog.Logger
	Classifier *Classifier
	Names      *FilenameGenerator
	Resolver   *Resolver
	Extractor  ports.MetadataExtractor
	Publishers []ports.Publisher
	Ledger     ports.Ledger        // optional
	Summaries  ports.SummaryWriter // optional
	Now        func() time.Time

	Sources        []string // directories for ProcessAll
	Mode           fsx.Mode
	DryRun         bool
	Recursive      bool
	IgnorePatterns []string // globs matched against the base name
	ExcludeDirs    []string // never descended into or processed
}

// Organizer runs the per-file pipeline: classify, rename, place, publish, record
type Organizer struct {
	opts   OrganizerOptions
	logger *slog.Logger
	now    func() time.Time
}

// NewOrganizer validates its collaborators
func NewOrganizer(opts OrganizerOptions) (*Organizer, error) {
	if opts.Classifier == nil || opts.Names == nil || opts.Resolver == nil {
		return nil, fmt.Errorf("organizer requires a classifier, a filename generator and a resolver")
	}
	if opts.Extractor == nil {
		return nil, fmt.Errorf("organizer requires a metadata extractor")
	}
	for _, p := range opts.IgnorePatterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Organizer{
		opts:   opts,
		logger: logging.OrDiscard(opts.Logger),
		now:    now,
	}, nil
}

// DryRun reports whether the organizer only plans
func (o *Organizer) DryRun() bool {
	return o.opts.DryRun
}

// Ignored reports whether path is filtered out by name, pattern or location
func (o *Organizer) Ignored(path string) bool {
	name := filepath.Base(path)
	if domain.IsHidden(name) {
		return true
	}
	for _, p := range o.opts.IgnorePatterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
		if ok, _ := filepath.Match(strings.ToLower(p), strings.ToLower(name)); ok {
			return true
		}
	}
	for _, dir := range o.opts.ExcludeDirs {
		if within(dir, path) {
			return true
		}
	}
	return false
}

// Plan computes classification and destination without side effects
func (o *Organizer) Plan(ctx context.Context, rec domain.FileRecord) domain.Outcome {
	meta := o.extract(ctx, rec)
	cls := o.opts.Classifier.Classify(rec, meta)
	name := o.opts.Names.Generate(rec, meta, cls)

	return domain.Outcome{
		Source:         rec.Path,
		Destination:    filepath.Join(o.opts.Resolver.Resolve(cls), name),
		Status:         domain.StatusPlanned,
		Classification: cls,
		Metadata:       meta,
	}
}

// Organize processes a single file. It never panics on bad input and
// reports every failure through the returned outcome.
func (o *Organizer) Organize(ctx context.Context, path string) domain.Outcome {
	if err := ctx.Err(); err != nil {
		return domain.Failed(path, err)
	}

	rec, err := domain.NewFileRecord(path)
	if err != nil {
		o.logger.Error("cannot read file", logging.Path(path), logging.Error(err))
		return domain.Failed(path, err)
	}

	if o.Ignored(rec.Path) {
		o.logger.Debug("skipping ignored file", logging.Path(rec.Path))
		return domain.Outcome{Source: rec.Path, Status: domain.StatusSkipped, Err: domain.ErrIgnored}
	}

	if o.opts.DryRun {
		out := o.Plan(ctx, rec)
		o.logger.Info("planned",
			logging.Path(rec.Path),
			logging.String(logging.FieldDest, out.Destination),
			logging.String("course", out.Classification.Course),
			logging.String("confidence", string(out.Classification.Confidence)),
		)
		return out
	}

	hash, err := fsx.HashFile(rec.Path)
	if err != nil {
		o.logger.Error("cannot hash file", logging.Path(rec.Path), logging.Error(err))
		return domain.Failed(rec.Path, err)
	}

	if prior := o.priorCopy(ctx, rec, hash); prior != nil {
		o.logger.Info("duplicate of an organized file",
			logging.Path(rec.Path),
			logging.String(logging.FieldDest, prior.DestPath),
		)
		out := domain.Outcome{
			Source:      rec.Path,
			Destination: prior.DestPath,
			Status:      domain.StatusDuplicate,
			Hash:        hash,
		}
		out.SummaryPath = o.summarize(ctx, out)
		o.record(ctx, rec, out)
		return out
	}

	out := o.Plan(ctx, rec)
	out.Hash = hash

	if o.alreadyFiled(rec.Path, out.Classification) {
		out.Status = domain.StatusUnchanged
		out.Destination = rec.Path
		out.SummaryPath = o.summarize(ctx, out)
		return out
	}

	placed, err := fsx.Place(rec.Path, filepath.Dir(out.Destination), filepath.Base(out.Destination), o.opts.Mode)
	if err != nil {
		o.logger.Error("failed to place file", logging.Path(rec.Path), logging.Error(err))
		out.Status = domain.StatusFailed
		out.Err = err
		out.SummaryPath = o.summarize(ctx, out)
		return out
	}
	out.Destination = placed.Path

	switch {
	case placed.Unchanged:
		out.Status = domain.StatusUnchanged
		out.SummaryPath = o.summarize(ctx, out)
		return out
	case placed.Duplicate:
		out.Status = domain.StatusDuplicate
		o.logger.Info("identical file already in archive",
			logging.Path(rec.Path),
			logging.String(logging.FieldDest, placed.Path),
		)
		out.SummaryPath = o.summarize(ctx, out)
		o.record(ctx, rec, out)
		return out
	}

	out.Status = domain.StatusOrganized
	if placed.CrossDev {
		o.logger.Debug("moved across devices by copying", logging.Path(rec.Path))
	}

	placedRec := rec
	placedRec.Path = placed.Path
	placedRec.Name = filepath.Base(placed.Path)
	placedRec.Stem, placedRec.Ext = domain.SplitName(placedRec.Name)

	out.ExternalIDs = o.publish(ctx, ports.PublishRequest{
		Path:           placed.Path,
		Record:         placedRec,
		Metadata:       out.Metadata,
		Classification: out.Classification,
	})
	out.SummaryPath = o.summarize(ctx, out)
	o.record(ctx, rec, out)

	o.logger.Info("organized",
		logging.Path(rec.Path),
		logging.String(logging.FieldDest, placed.Path),
		logging.String("course", out.Classification.Course),
		logging.String("confidence", string(out.Classification.Confidence)),
		logging.Int("score", out.Classification.Score),
	)
	return out
}

func (o *Organizer) extract(ctx context.Context, rec domain.FileRecord) domain.Metadata {
	meta, err := o.opts.Extractor.Extract(ctx, rec)
	if err != nil {
		o.logger.Warn("metadata extraction failed", logging.Path(rec.Path), logging.Error(err))
		return domain.EmptyMetadata()
	}
	return meta
}

// priorCopy returns the ledger entry of an organized file with the same
// content that still exists somewhere other than rec
func (o *Organizer) priorCopy(ctx context.Context, rec domain.FileRecord, hash string) *domain.LedgerEntry {
	if o.opts.Ledger == nil {
		return nil
	}
	entry, err := o.opts.Ledger.FindByHash(ctx, hash)
	if err != nil {
		o.logger.Warn("ledger lookup failed", logging.Path(rec.Path), logging.Error(err))
		return nil
	}
	if entry == nil || entry.DestPath == rec.Path {
		return nil
	}
	if _, err := domain.NewFileRecord(entry.DestPath); err != nil {
		return nil
	}
	if h, err := fsx.HashFile(entry.DestPath); err != nil || h != hash {
		return nil
	}
	return entry
}

// alreadyFiled reports whether path already sits in its bucket, in any year
func (o *Organizer) alreadyFiled(path string, cls domain.Classification) bool {
	root := o.opts.Resolver.Root()
	if !within(root, path) {
		return false
	}
	bucket := filepath.Join(root, o.opts.Resolver.Bucket(cls))
	return filepath.Dir(filepath.Dir(path)) == bucket
}

func (o *Organizer) publish(ctx context.Context, req ports.PublishRequest) map[string]string {
	var ids map[string]string
	for _, p := range o.opts.Publishers {
		if !p.Accepts(req.Classification.Category) {
			continue
		}
		id, err := p.Publish(ctx, req)
		if err != nil {
			o.logger.Warn("publish failed",
				logging.String("publisher", p.Name()),
				logging.Path(req.Path),
				logging.Error(err),
			)
			continue
		}
		if ids == nil {
			ids = make(map[string]string)
		}
		ids[p.Name()] = id
		o.logger.Debug("published", logging.String("publisher", p.Name()), logging.String("id", id))
	}
	return ids
}

func (o *Organizer) summarize(ctx context.Context, out domain.Outcome) string {
	if o.opts.Summaries == nil {
		return ""
	}

	summary := domain.Summary{
		ID:             uuid.NewString(),
		Timestamp:      o.now(),
		OriginalFile:   out.Source,
		Status:         out.Status,
		Classification: out.Classification,
		Metadata:       out.Metadata,
		ExternalIDs:    out.ExternalIDs,
	}
	if out.Status != domain.StatusFailed {
		summary.OrganizedFile = out.Destination
	}
	if out.Err != nil {
		summary.Error = out.Err.Error()
	}

	path, err := o.opts.Summaries.Write(ctx, summary)
	if err != nil {
		o.logger.Warn("failed to write summary", logging.Path(out.Source), logging.Error(err))
		return ""
	}
	return path
}

func (o *Organizer) record(ctx context.Context, rec domain.FileRecord, out domain.Outcome) {
	if o.opts.Ledger == nil {
		return
	}

	entry := domain.LedgerEntry{
		SourcePath:  rec.Path,
		DestPath:    out.Destination,
		SHA256:      out.Hash,
		Size:        rec.Size,
		Category:    out.Classification.Category,
		Course:      out.Classification.Course,
		Confidence:  out.Classification.Confidence,
		Status:      out.Status,
		ZoteroKey:   out.ExternalIDs["zotero"],
		CalibreID:   out.ExternalIDs["calibre"],
		SummaryPath: out.SummaryPath,
		ProcessedAt: o.now(),
	}
	if _, err := o.opts.Ledger.Record(ctx, entry); err != nil {
		o.logger.Warn("failed to record ledger entry", logging.Path(rec.Path), logging.Error(err))
	}
}

// within reports whether path is dir or below it
func within(dir, path string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
