package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/rfm-cli/internal/core/services"
	"github.com/kamal-hamza/rfm-cli/pkg/ui"
)

var processAllOpts processFlags

var processAllCmd = &cobra.Command{
	Use:   "process-all",
	Short: "Organize every configured source directory",
	Long: `Run 'rfm process' over each entry of source_directories.

Directories that do not exist are skipped with a warning.`,
	Args: cobra.NoArgs,
	RunE: runProcessAll,
}

func init() {
	processAllOpts.register(processAllCmd)
}

func runProcessAll(cmd *cobra.Command, args []string) error {
	if len(appConfig.SourceDirectories) == 0 {
		fmt.Println(ui.FormatWarning("No source directories configured"))
		fmt.Println(ui.FormatMuted("Edit the config with 'rfm config'"))
		return nil
	}

	s, err := newSession(processAllOpts)
	if err != nil {
		return err
	}
	defer s.release()

	reports, err := s.organizer.ProcessAll(cmd.Context())
	for _, r := range reports {
		fmt.Println(ui.FormatTitle(r.Directory))
		printReport(r, processAllOpts.dryRun)
		fmt.Println()
	}
	if err != nil {
		fmt.Println(ui.FormatWarning("Stopped early: " + err.Error()))
	}

	if len(reports) > 1 {
		total := services.Totals(reports)
		total.Directory = fmt.Sprintf("%d directories", len(reports))
		fmt.Println(ui.FormatBold("Total"))
		printTotals(total, processAllOpts.dryRun)
	}
	return nil
}
