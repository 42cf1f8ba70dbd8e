package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/rfm-cli/pkg/ui"
)

var configPathOnly bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Edit the rfm configuration file",
	Long: `Open the configuration file in $EDITOR.

JSON, YAML and TOML files are accepted; the format follows the extension.`,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configPathOnly, "path", false, "print the configuration file location and exit")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configPathOnly {
		fmt.Println(configPath)
		return nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found at %s (run 'rfm init')", configPath)
	}

	fmt.Println(ui.FormatInfo("Opening config: " + configPath))

	c := exec.Command(GetPreferredEditor(), configPath)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}
