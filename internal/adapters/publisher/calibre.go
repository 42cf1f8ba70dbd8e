package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kamal-hamza/rfm-cli/internal/core/ports"
	"github.com/kamal-hamza/rfm-cli/pkg/logging"
)

// Runner executes a command and returns its combined output
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// DefaultCalibreTimeout bounds one calibredb add
const DefaultCalibreTimeout = 2 * time.Minute

// CalibreOptions configures the calibredb publisher
type CalibreOptions struct {
	// Dir holds the Calibre command line tools; empty means PATH
	Dir         string
	LibraryPath string
	Categories  []string
	Timeout     time.Duration // zero means DefaultCalibreTimeout
	Logger      *slog.Logger
	Runner      Runner
}

// Calibre adds organized e-books to a Calibre library through calibredb
type Calibre struct {
	calibredb   string
	libraryPath string
	categories  map[string]bool
	timeout     time.Duration
	run         Runner
	logger      *slog.Logger
}

// NewCalibre builds the publisher
func NewCalibre(opts CalibreOptions) (*Calibre, error) {
	if strings.TrimSpace(opts.LibraryPath) == "" {
		return nil, errors.New("calibre: library_path is required")
	}
	bin := "calibredb"
	if opts.Dir != "" {
		bin = filepath.Join(opts.Dir, bin)
	}
	run := opts.Runner
	if run == nil {
		run = execRunner
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultCalibreTimeout
	}
	return &Calibre{
		calibredb:   bin,
		libraryPath: opts.LibraryPath,
		categories:  toSet(opts.Categories),
		timeout:     timeout,
		run:         run,
		logger:      logging.OrDiscard(opts.Logger),
	}, nil
}

func (c *Calibre) Name() string { return "calibre" }

func (c *Calibre) Accepts(category string) bool { return c.categories[category] }

// "Added book ids: 12" (older releases print "Added book id: 12")
var addedIDs = regexp.MustCompile(`Added book ids?:\s*(\d+)`)

// Publish runs calibredb add and returns the new book id
func (c *Calibre) Publish(ctx context.Context, req ports.PublishRequest) (string, error) {
	args := []string{"add", "--library-path", c.libraryPath}

	if req.Metadata.HasTitle() {
		args = append(args, "--title", req.Metadata.Title)
	}
	if req.Metadata.HasAuthor() {
		args = append(args, "--authors", strings.Join(req.Metadata.Authors, " & "))
	}

	tags := []string{"Research", "Imported"}
	if !req.Classification.IsGeneral() {
		tags = append(tags, req.Classification.Course)
	}
	args = append(args, "--tags", strings.Join(tags, ","), req.Path)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("running calibredb", logging.Path(req.Path))
	out, err := c.run(ctx, c.calibredb, args...)
	if ctx.Err() != nil {
		return "", fmt.Errorf("calibredb add: %w", ctx.Err())
	}
	if err != nil {
		return "", fmt.Errorf("calibredb add: %w: %s", err, strings.TrimSpace(string(out)))
	}

	m := addedIDs.FindSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("calibredb add: no book id in output: %s", strings.TrimSpace(string(out)))
	}
	return string(m[1]), nil
}

// Binary returns the calibredb command that will be run
func (c *Calibre) Binary() string { return c.calibredb }
