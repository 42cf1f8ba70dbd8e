package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/rfm-cli/internal/adapters/watch"
	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/internal/core/services"
	"github.com/kamal-hamza/rfm-cli/pkg/ui"
)

var (
	watchOpts  processFlags
	watchQuiet bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Organize new files as they appear",
	Long: `Watch the configured source directories and organize each new file
once it has stopped changing for the settle delay
(auto_organization.settle_delay_ms).

Press Ctrl+C to stop. Files that are still settling are left alone.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchOpts.register(watchCmd)
	watchCmd.Flags().BoolVarP(&watchQuiet, "quiet", "q", false, "only log, do not print each file")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if !appConfig.AutoOrganization.Enabled {
		fmt.Println(ui.FormatWarning("Automatic organization is disabled (auto_organization.enabled)"))
		return nil
	}

	s, err := newSession(watchOpts)
	if err != nil {
		return err
	}
	defer s.release()

	source, err := watch.New(logger)
	if err != nil {
		return err
	}
	defer source.Close()

	w, err := services.NewWatcher(services.WatcherOptions{
		Logger:      logger,
		Organizer:   s.organizer,
		Source:      source,
		Dirs:        appConfig.SourceDirectories,
		SettleDelay: appConfig.SettleDelay(),
		Recursive:   watchOpts.recursive || appConfig.AutoOrganization.Recursive,
		Notify:      printOutcome,
	})
	if err != nil {
		return err
	}

	if !watchQuiet {
		fmt.Println(ui.FormatRocket("Watching for new research files..."))
		for _, dir := range appConfig.SourceDirectories {
			fmt.Println(ui.FormatMuted("  " + dir))
		}
		fmt.Println(ui.FormatMuted("Press Ctrl+C to stop"))
		fmt.Println()
	}

	if err := w.Run(cmd.Context()); err != nil {
		return err
	}

	if !watchQuiet {
		fmt.Println()
		fmt.Println(ui.FormatMuted("Watch stopped"))
	}
	return nil
}

func printOutcome(o domain.Outcome) {
	if watchQuiet || o.Status == domain.StatusSkipped {
		return
	}
	stamp := ui.FormatMuted(time.Now().Format("15:04:05"))
	name := filepath.Base(o.Source)
	switch o.Status {
	case domain.StatusFailed:
		fmt.Printf("%s %s %s: %v\n", stamp, ui.FormatStatus(o.Status), name, o.Err)
	default:
		fmt.Printf("%s %s %s -> %s\n", stamp, ui.FormatStatus(o.Status), name, relToArchive(o.Destination))
	}
}
