package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/pkg/ui"
)

var processOpts processFlags

var processCmd = &cobra.Command{
	Use:   "process [directory]",
	Short: "Organize the files of one directory",
	Long: `Classify, rename and file every file in a directory.

Without an argument on a terminal, pick one of the configured source
directories with a fuzzy finder.

Files that cannot be processed are reported and skipped; the command
still exits successfully.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProcess,
}

func init() {
	processOpts.register(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	dir, err := processTarget(args)
	if err != nil {
		return err
	}
	if dir == "" {
		return nil
	}

	s, err := newSession(processOpts)
	if err != nil {
		return err
	}
	defer s.release()

	announce(processOpts, dir)
	report, err := s.organizer.ProcessDirectory(cmd.Context(), dir)
	if err != nil && report.Total == 0 {
		fmt.Println(ui.FormatError(err.Error()))
		return nil
	}

	printReport(report, processOpts.dryRun)
	return nil
}

// processTarget returns the directory argument or asks for one.
// An empty result means the user cancelled the picker.
func processTarget(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	sources := existingDirs(appConfig.SourceDirectories)
	if len(sources) == 0 {
		return "", fmt.Errorf("no directory given and no configured source directory exists")
	}
	if len(sources) == 1 || !isatty.IsTerminal(os.Stdin.Fd()) {
		if len(sources) > 1 {
			return "", fmt.Errorf("no directory given; use 'rfm process-all' or name one of: %v", sources)
		}
		return sources[0], nil
	}

	idx, err := fuzzyfinder.Find(
		sources,
		func(i int) string { return sources[i] },
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			return previewDir(sources[i])
		}),
	)
	if errors.Is(err, fuzzyfinder.ErrAbort) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return sources[idx], nil
}

func existingDirs(dirs []string) []string {
	var out []string
	for _, d := range dirs {
		if info, err := os.Stat(d); err == nil && info.IsDir() {
			out = append(out, d)
		}
	}
	return out
}

func previewDir(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err.Error()
	}
	files := 0
	for _, e := range entries {
		if e.Type().IsRegular() && !domain.IsHidden(e.Name()) {
			files++
		}
	}
	return fmt.Sprintf("%s\n\n%d file(s)", dir, files)
}

func announce(flags processFlags, dir string) {
	mode := "move"
	if flags.copyMode || !appConfig.AutoOrganization.MoveFiles {
		mode = "copy"
	}
	msg := fmt.Sprintf("Processing %s (%s)", dir, mode)
	if flags.dryRun {
		msg += " [dry run]"
	}
	fmt.Println(ui.FormatRocket(msg))
	fmt.Println()
}

// printReport lists every file that was not skipped, then the totals
func printReport(r domain.BatchReport, dryRun bool) {
	table := ui.NewTable(
		ui.TableColumn{Header: "Status"},
		ui.TableColumn{Header: "File", MaxWidth: 40},
		ui.TableColumn{Header: "Destination", MaxWidth: 60},
		ui.TableColumn{Header: "Confidence"},
	)

	for _, o := range r.Outcomes {
		if o.Status == domain.StatusSkipped {
			continue
		}
		dest := relToArchive(o.Destination)
		if o.Status == domain.StatusFailed && o.Err != nil {
			dest = o.Err.Error()
		}
		table.AddRow(
			ui.FormatStatus(o.Status),
			filepath.Base(o.Source),
			dest,
			ui.FormatConfidence(o.Classification.Confidence),
		)
	}
	if len(table.Rows) > 0 {
		fmt.Print(table.Render())
		fmt.Println()
	}

	printTotals(r, dryRun)
}

func printTotals(r domain.BatchReport, dryRun bool) {
	if r.Total == 0 {
		fmt.Println(ui.FormatMuted("Nothing to do in " + r.Directory))
		return
	}

	if dryRun {
		fmt.Println(ui.FormatInfo(fmt.Sprintf("%d file(s) would be organized, %d skipped", r.Planned, r.Skipped)))
		return
	}

	summary := fmt.Sprintf("%d organized, %d duplicate, %d unchanged, %d skipped in %s",
		r.Organized, r.Duplicates, r.Unchanged, r.Skipped, r.Duration().Round(time.Millisecond))
	if r.Failed > 0 {
		fmt.Println(ui.FormatWarning(summary + fmt.Sprintf(", %d failed (see log)", r.Failed)))
		return
	}
	fmt.Println(ui.FormatSuccess(summary))
}

// relToArchive shortens destinations inside the organized tree
func relToArchive(path string) string {
	if path == "" {
		return ""
	}
	if rel, err := filepath.Rel(appArchive.OrganizedPath, path); err == nil && appArchive.Contains(path) {
		return rel
	}
	return path
}
