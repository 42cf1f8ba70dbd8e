package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/internal/core/ports"
	"github.com/kamal-hamza/rfm-cli/pkg/config"
	"github.com/kamal-hamza/rfm-cli/pkg/logging"
)

// TectonicCompiler implements the Compiler port using Tectonic
type TectonicCompiler struct {
	binary string
	logger *slog.Logger
}

// NewTectonicCompiler creates a Tectonic based compiler.
// The latexmk flags in cfg do not apply and are ignored.
func NewTectonicCompiler(cfg config.LatexConfig, logger *slog.Logger) *TectonicCompiler {
	return &TectonicCompiler{
		binary: cfg.Compiler,
		logger: logging.OrDiscard(logger),
	}
}

// Compile runs "tectonic -X compile" with the PDF written next to the source
func (c *TectonicCompiler) Compile(ctx context.Context, inputPath string) (*domain.BuildResult, error) {
	if !fileExists(inputPath) {
		return &domain.BuildResult{
			Errors: []string{fmt.Sprintf("source file not found: %s", inputPath)},
		}, fmt.Errorf("source file not found: %s", inputPath)
	}

	dir := filepath.Dir(inputPath)
	args := []string{"-X", "compile", filepath.Base(inputPath), "--outdir", dir}

	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Dir = dir

	c.logger.Debug("running tectonic", logging.Path(inputPath))
	output, runErr := cmd.CombinedOutput()

	return finish(inputPath, pdfPathFor(inputPath), string(output), runErr)
}

// New picks the implementation from the configured compiler name
func New(cfg config.LatexConfig, logger *slog.Logger) ports.Compiler {
	name := strings.TrimSuffix(filepath.Base(cfg.Compiler), filepath.Ext(cfg.Compiler))
	if name == "tectonic" {
		return NewTectonicCompiler(cfg, logger)
	}
	return NewLatexmkCompiler(cfg, logger)
}

// Available reports whether the configured compiler is on PATH
func Available(cfg config.LatexConfig) bool {
	binary := cfg.Compiler
	if binary == "" {
		binary = "latexmk"
	}
	_, err := exec.LookPath(binary)
	return err == nil
}
