package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/internal/core/ports"
	"github.com/kamal-hamza/rfm-cli/pkg/config"
	"github.com/kamal-hamza/rfm-cli/pkg/logging"
)

// maxTextChars caps the text sample any extractor keeps
const maxTextChars = 4000

// Runner executes an external tool and returns its stdout
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return out, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(ee.Stderr)))
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// Registry dispatches on file extension. It never fails: any extractor
// error is logged and turned into empty metadata.
type Registry struct {
	byExt   map[string]ports.MetadataExtractor
	timeout time.Duration
	logger  *slog.Logger
}

// NewRegistry creates an empty registry. timeout bounds each extraction.
func NewRegistry(timeout time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		byExt:   make(map[string]ports.MetadataExtractor),
		timeout: timeout,
		logger:  logging.OrDiscard(logger),
	}
}

// Register binds e to the given lower-case extensions
func (r *Registry) Register(e ports.MetadataExtractor, exts ...string) {
	for _, ext := range exts {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// Supports reports whether an extractor is registered for ext
func (r *Registry) Supports(ext string) bool {
	_, ok := r.byExt[strings.ToLower(ext)]
	return ok
}

// Extract implements ports.MetadataExtractor
func (r *Registry) Extract(ctx context.Context, rec domain.FileRecord) (domain.Metadata, error) {
	e, ok := r.byExt[rec.Ext]
	if !ok {
		return domain.EmptyMetadata(), nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	meta, err := e.Extract(ctx, rec)
	if err != nil {
		r.logger.Warn("metadata extraction failed", logging.Path(rec.Path), logging.Error(err))
		return domain.EmptyMetadata(), nil
	}
	meta.Text = clip(meta.Text, maxTextChars)
	return meta, nil
}

// NewFromConfig registers every extractor enabled in cfg
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Registry {
	r := NewRegistry(cfg.ExtractTimeout(), logger)
	mc := cfg.MetadataExtraction

	if mc.ExtractPDF {
		r.Register(NewPDFExtractor(ExecRunner), "pdf")
	}
	if mc.ExtractDOCX {
		r.Register(DocxExtractor{}, "docx")
	}
	if mc.ExtractBibTeX {
		r.Register(BibTeXExtractor{}, "bib")
	}
	if mc.ExtractEbook {
		r.Register(NewEbookExtractor(ExecRunner, toolPath(cfg.Calibre.Path, "ebook-meta")), "epub", "mobi", "azw3")
	}
	if mc.ExtractMedia {
		r.Register(NewMediaExtractor(ExecRunner), "mp3", "wav", "m4a", "aac", "mp4", "mov", "avi", "mkv", "wmv")
	}
	if mc.ExtractHTML {
		r.Register(HTMLExtractor{}, "html", "htm")
	}
	r.Register(ImageExtractor{}, "png", "jpg", "jpeg", "gif")
	r.Register(TextExtractor{}, "txt", "md", "tex")

	return r
}

// toolPath resolves a Calibre helper inside dir, or on PATH when dir is empty
func toolPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

var yearPattern = regexp.MustCompile(`\b(1[5-9]\d{2}|20\d{2})\b`)

// findYear returns the first plausible four digit year in s
func findYear(s string) int {
	m := yearPattern.FindString(s)
	if m == "" {
		return 0
	}
	y, _ := strconv.Atoi(m)
	return y
}

// splitKeywords splits "a, b; c" lists
func splitKeywords(s string) []string {
	var out []string
	for _, k := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// keyValues parses "Key: value" lines as printed by pdfinfo and ebook-meta
func keyValues(out []byte) map[string]string {
	kv := make(map[string]string)
	for _, line := range strings.Split(string(out), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		if _, seen := kv[key]; !seen {
			kv[key] = strings.TrimSpace(value)
		}
	}
	return kv
}
