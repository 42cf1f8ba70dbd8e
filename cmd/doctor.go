package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/rfm-cli/internal/adapters/compiler"
	"github.com/kamal-hamza/rfm-cli/internal/adapters/ledger"
	"github.com/kamal-hamza/rfm-cli/internal/adapters/lock"
	"github.com/kamal-hamza/rfm-cli/internal/adapters/publisher"
	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/pkg/ui"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the health of your rfm installation",
	Long: `Diagnose issues with your RFM setup.

Checks for:
  - Configuration file and archive directories
  - Source directories
  - Metadata tools (pdfinfo, pdftotext, ebook-meta, ffprobe)
  - Zotero, Calibre and LaTeX when enabled
  - Ledger database and archive lock`,
	Run: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) {
	fmt.Println(ui.FormatTitle("RFM Doctor"))
	fmt.Println()

	failed := 0
	check := func(name string, fn func() error) {
		if !checkStep(name, fn) {
			failed++
		}
	}

	// 1. Configuration and archive
	check("Configuration File", func() error {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return fmt.Errorf("missing at %s (defaults in use, run 'rfm init')", configPath)
		}
		return nil
	})

	check("Research Base Directory", func() error {
		return requireDir(appArchive.BaseDir)
	})

	check("Organized Directory", func() error {
		return requireDir(appArchive.OrganizedPath)
	})

	check("Summaries Directory", func() error {
		return requireDir(appArchive.SummariesPath)
	})

	// 2. Sources
	for _, dir := range appConfig.SourceDirectories {
		check("Source "+dir, func() error {
			return requireDir(dir)
		})
	}

	// 3. Tools
	mc := appConfig.MetadataExtraction
	if mc.ExtractPDF {
		check("pdfinfo (PDF metadata)", func() error { return requireTool("pdfinfo") })
		check("pdftotext (PDF text)", func() error { return requireTool("pdftotext") })
	}
	if mc.ExtractEbook {
		check("ebook-meta (E-book metadata)", func() error {
			return requireTool(calibreTool("ebook-meta"))
		})
	}
	if mc.ExtractMedia {
		check("ffprobe (Media metadata)", func() error { return requireTool("ffprobe") })
	}

	if appConfig.WritingTools.Latex.Enabled {
		check("LaTeX compiler ("+appConfig.WritingTools.Latex.Compiler+")", func() error {
			if !compiler.Available(appConfig.WritingTools.Latex) {
				return fmt.Errorf("not found in PATH (required for 'rfm project compile')")
			}
			return nil
		})
	}

	// 4. Publishers
	if appConfig.Calibre.Enabled {
		check("calibredb (Calibre)", func() error {
			return requireTool(calibreTool("calibredb"))
		})
	}
	if appConfig.Zotero.Enabled {
		check("Zotero API", func() error {
			return checkZotero(cmd.Context())
		})
	}

	// 5. State
	check("Ledger Database", func() error {
		store, err := ledger.Open(appArchive.LedgerPath(), logger)
		if err != nil {
			return err
		}
		return store.Close()
	})

	check("Archive Lock", func() error {
		l, err := lock.Acquire(appArchive.LockPath())
		if errors.Is(err, domain.ErrLocked) {
			return fmt.Errorf("held by another rfm process (watch running?)")
		}
		if err != nil {
			return err
		}
		return l.Release()
	})

	// 6. Environment
	check("EDITOR Variable", func() error {
		if os.Getenv("EDITOR") == "" {
			return fmt.Errorf("not set (using fallback 'vi')")
		}
		return nil
	})

	fmt.Println()
	if failed == 0 {
		fmt.Println(ui.FormatSuccess("Everything looks good"))
		return
	}
	fmt.Println(ui.FormatWarning(fmt.Sprintf("%d check(s) need attention", failed)))
}

// checkStep runs a check function and prints the result nicely
func checkStep(name string, check func() error) bool {
	err := check()
	if err == nil {
		fmt.Printf("%s %s\n", ui.FormatSuccess("✔"), name)
		return true
	}
	fmt.Printf("%s %s\n", ui.FormatError("✘"), name)
	fmt.Printf("    %s\n", ui.StyleMuted.Render(err.Error()))
	return false
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("missing at %s", path)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

func requireTool(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s not found", name)
	}
	return nil
}

// calibreTool resolves a Calibre helper the same way the publisher does
func calibreTool(name string) string {
	if appConfig.Calibre.Path == "" {
		return name
	}
	return filepath.Join(appConfig.Calibre.Path, name)
}

func checkZotero(ctx context.Context) error {
	pubs, err := publisher.FromConfig(appConfig, logger)
	if err != nil {
		return err
	}
	for _, p := range pubs {
		z, ok := p.(*publisher.Zotero)
		if !ok {
			continue
		}
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return z.Check(ctx)
	}
	return nil
}
