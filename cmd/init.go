package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/rfm-cli/pkg/config"
	"github.com/kamal-hamza/rfm-cli/pkg/ui"
)

var initForce bool

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the configuration file and archive directories",
	Long: `Initialize RFM.

Writes a default configuration file (unless one exists) and creates the
archive structure below research_base_dir:
  - Organized_Research/ : Filed documents, <bucket>/<year>/<name>
  - Summaries/          : One JSON summary per organized file
  - Projects/           : Research writing projects
  - .rfm/               : Ledger database`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing configuration file with the defaults")
}

func runInit(cmd *cobra.Command, args []string) error {
	fmt.Println(ui.FormatRocket("Initializing rfm..."))
	fmt.Println()

	_, statErr := os.Stat(configPath)
	switch {
	case os.IsNotExist(statErr) || initForce:
		defaults := config.DefaultConfig()
		if err := defaults.Save(configPath); err != nil {
			fmt.Println(ui.FormatError("Failed to write configuration"))
			return err
		}
		appConfig = defaults
		fmt.Println(ui.FormatSuccess("Configuration written"))
	case statErr != nil:
		return statErr
	default:
		fmt.Println(ui.FormatWarning("Configuration already exists, leaving it untouched"))
	}

	if err := appArchive.Initialize(); err != nil {
		fmt.Println(ui.FormatError("Failed to create archive directories"))
		return err
	}
	fmt.Println(ui.FormatSuccess("Archive initialized"))
	fmt.Println()

	fmt.Println(ui.RenderKeyValue("Config", configPath))
	fmt.Println(ui.RenderKeyValue("Archive", appArchive.BaseDir))
	fmt.Println()
	fmt.Println(ui.FormatInfo("Source directories:"))
	for _, dir := range appConfig.SourceDirectories {
		fmt.Println(ui.FormatMuted("  " + dir))
	}
	fmt.Println()
	fmt.Println(ui.FormatInfo("Next steps:"))
	fmt.Println(ui.FormatMuted("  1. Review your courses and categories: rfm config"))
	fmt.Println(ui.FormatMuted("  2. Preview the result: rfm process-all --dry-run"))
	fmt.Println(ui.FormatMuted("  3. Check external tools: rfm doctor"))

	return nil
}
