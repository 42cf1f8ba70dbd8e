package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/pkg/config"
	"github.com/kamal-hamza/rfm-cli/pkg/logging"
	"github.com/kamal-hamza/rfm-cli/pkg/texlog"
)

// LatexmkCompiler implements the Compiler port using latexmk
type LatexmkCompiler struct {
	binary string
	flags  []string
	logger *slog.Logger
}

// NewLatexmkCompiler creates a latexmk based compiler.
// cfg.Compiler may be a bare command name or a path to the binary.
func NewLatexmkCompiler(cfg config.LatexConfig, logger *slog.Logger) *LatexmkCompiler {
	binary := cfg.Compiler
	if binary == "" {
		binary = "latexmk"
	}
	return &LatexmkCompiler{
		binary: binary,
		flags:  append([]string(nil), cfg.Flags...),
		logger: logging.OrDiscard(logger),
	}
}

// Compile builds inputPath into a PDF next to it.
// Success is decided by the PDF existing on disk, not by the exit status:
// latexmk -f keeps going past recoverable errors.
func (c *LatexmkCompiler) Compile(ctx context.Context, inputPath string) (*domain.BuildResult, error) {
	if !fileExists(inputPath) {
		return &domain.BuildResult{
			Errors: []string{fmt.Sprintf("source file not found: %s", inputPath)},
		}, fmt.Errorf("source file not found: %s", inputPath)
	}

	// -g                force rebuild
	// -f                continue past errors
	// -file-line-error  file:line: prefixes for the log parser
	args := append([]string(nil), c.flags...)
	args = append(args, "-g", "-f", "-file-line-error", filepath.Base(inputPath))

	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Dir = filepath.Dir(inputPath)
	cmd.Env = append(os.Environ(), "TEXINPUTS="+texInputs(inputPath))

	c.logger.Debug("running latexmk", logging.Path(inputPath), logging.String("args", strings.Join(args, " ")))
	output, runErr := cmd.CombinedOutput()

	return finish(inputPath, pdfPathFor(inputPath), string(output), runErr)
}

// texInputs lets documents \input files from the sibling project folders
func texInputs(inputPath string) string {
	project := filepath.Dir(filepath.Dir(inputPath))
	parts := []string{
		".",
		filepath.Join(project, "Research") + "//",
		filepath.Join(project, "Bibliography") + "//",
		"",
	}
	return strings.Join(parts, string(os.PathListSeparator))
}

// finish turns raw compiler output into a BuildResult
func finish(inputPath, pdfPath, output string, runErr error) (*domain.BuildResult, error) {
	log := texlog.Parse(output)
	result := &domain.BuildResult{
		Output:   output,
		Errors:   log.ErrorMessages(),
		Warnings: log.WarningMessages(),
	}

	if fileExists(pdfPath) {
		result.Success = true
		result.PDFPath = pdfPath
		return result, nil
	}

	if len(result.Errors) == 0 && runErr != nil {
		result.Errors = []string{runErr.Error()}
	}
	return result, fmt.Errorf("%s: %s", filepath.Base(inputPath), log.Summary())
}

func pdfPathFor(inputPath string) string {
	return strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".pdf"
}

// fileExists checks if a file exists and is a regular file
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
