package cmd

import (
	"path/filepath"
	"testing"

	"github.com/kamal-hamza/rfm-cli/pkg/archive"
	"github.com/kamal-hamza/rfm-cli/pkg/config"
)

// TestCommandStructure verifies that all commands are properly registered
func TestCommandStructure(t *testing.T) {
	commands := []string{
		"process", "process-all", "watch", "classify", "history",
		"stats", "doctor", "init", "config", "project", "version",
	}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{cmdName})
			if err != nil {
				t.Fatalf("Command '%s' not found: %v", cmdName, err)
			}
			if cmd.Use == "" {
				t.Errorf("Command '%s' has no Use field", cmdName)
			}
		})
	}
}

// TestRootCommandExists verifies the root command is properly configured
func TestRootCommandExists(t *testing.T) {
	if rootCmd.Use != "rfm" {
		t.Errorf("Expected root command Use to be 'rfm', got '%s'", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("Root command Short description is empty")
	}
	if rootCmd.PersistentPreRunE == nil {
		t.Error("Root command should load the configuration before running")
	}
}

// TestCommandsHaveHelp verifies all commands have help text
func TestCommandsHaveHelp(t *testing.T) {
	commands := rootCmd.Commands()
	if len(commands) == 0 {
		t.Fatal("No commands registered")
	}

	for _, cmd := range commands {
		t.Run(cmd.Name(), func(t *testing.T) {
			if cmd.Short == "" {
				t.Errorf("Command '%s' has no Short description", cmd.Name())
			}
		})
	}
}

// TestSubcommands verifies specific subcommands exist
func TestSubcommands(t *testing.T) {
	for _, sub := range []string{"new", "list", "compile", "open"} {
		t.Run("project_"+sub, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{"project", sub})
			if err != nil {
				t.Fatalf("Subcommand '%s' not found: %v", sub, err)
			}
			if cmd.Name() != sub {
				t.Errorf("Expected '%s', got '%s'", sub, cmd.Name())
			}
		})
	}
}

// TestFlagsExist verifies important flags are registered
func TestFlagsExist(t *testing.T) {
	tests := []struct {
		command  []string
		flagName string
	}{
		{[]string{"process"}, "dry-run"},
		{[]string{"process"}, "copy"},
		{[]string{"process"}, "recursive"},
		{[]string{"process-all"}, "dry-run"},
		{[]string{"watch"}, "quiet"},
		{[]string{"classify"}, "json"},
		{[]string{"classify"}, "copy"},
		{[]string{"history"}, "limit"},
		{[]string{"history"}, "summaries"},
		{[]string{"history"}, "show"},
		{[]string{"stats"}, "years"},
		{[]string{"stats"}, "chart"},
		{[]string{"config"}, "path"},
		{[]string{"init"}, "force"},
		{[]string{"project", "new"}, "type"},
		{[]string{"project", "open"}, "rtf"},
	}

	for _, tt := range tests {
		t.Run(tt.command[len(tt.command)-1]+"_"+tt.flagName, func(t *testing.T) {
			cmd, _, err := rootCmd.Find(tt.command)
			if err != nil {
				t.Fatalf("Command '%v' not found: %v", tt.command, err)
			}
			if cmd.Flags().Lookup(tt.flagName) == nil {
				t.Errorf("Flag '--%s' not found on command '%s'", tt.flagName, cmd.Name())
			}
		})
	}
}

// TestCommandAliases verifies command aliases work
func TestCommandAliases(t *testing.T) {
	tests := []struct {
		alias   []string
		command string
	}{
		{[]string{"log"}, "history"},
		{[]string{"p"}, "project"},
		{[]string{"project", "ls"}, "list"},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			cmd, _, err := rootCmd.Find(tt.alias)
			if err != nil {
				t.Fatalf("Alias '%v' not found: %v", tt.alias, err)
			}
			if cmd.Name() != tt.command {
				t.Errorf("Alias '%v' resolved to '%s'", tt.alias, cmd.Name())
			}
		})
	}
}

func TestRelToArchive(t *testing.T) {
	base := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.ResearchBaseDir = base

	saved := appArchive
	appArchive = archive.New(cfg)
	defer func() { appArchive = saved }()

	inside := filepath.Join(appArchive.OrganizedPath, "CS101", "2024", "notes.pdf")
	if got := relToArchive(inside); got != filepath.Join("CS101", "2024", "notes.pdf") {
		t.Errorf("relToArchive(inside) = %q", got)
	}

	outside := filepath.Join(base, "Downloads", "notes.pdf")
	if got := relToArchive(outside); got != outside {
		t.Errorf("relToArchive(outside) = %q", got)
	}

	if got := relToArchive(""); got != "" {
		t.Errorf("relToArchive(\"\") = %q", got)
	}
}

func TestExternalLinks(t *testing.T) {
	tests := []struct {
		zotero, calibre, want string
	}{
		{"", "", ""},
		{"ABCD1234", "", "zotero:ABCD1234"},
		{"", "42", "calibre:42"},
		{"ABCD1234", "42", "zotero:ABCD1234 calibre:42"},
	}
	for _, tt := range tests {
		if got := externalLinks(tt.zotero, tt.calibre); got != tt.want {
			t.Errorf("externalLinks(%q, %q) = %q, want %q", tt.zotero, tt.calibre, got, tt.want)
		}
	}
}

func TestShortIDAndYearCell(t *testing.T) {
	if got := shortID("0f3c9a7e-1111-2222-3333-444455556666"); got != "0f3c9a7e" {
		t.Errorf("shortID = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID(short) = %q", got)
	}
	if got := yearCell(0); got != "-" {
		t.Errorf("yearCell(0) = %q", got)
	}
	if got := yearCell(2024); got != "2024" {
		t.Errorf("yearCell(2024) = %q", got)
	}
}

func TestWritingTool(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.WritingTools.TeXstudio = config.ToolConfig{Enabled: true, Path: "/usr/bin/texstudio"}
	cfg.WritingTools.Bean = config.ToolConfig{Enabled: false, Path: "/Applications/Bean.app"}

	saved := appConfig
	appConfig = cfg
	defer func() { appConfig = saved }()

	if got := writingTool("/p/Writing/study_paper.tex"); got != "/usr/bin/texstudio" {
		t.Errorf("tex tool = %q", got)
	}
	if got := writingTool("/p/Writing/study_paper.rtf"); got != "" {
		t.Errorf("disabled rtf tool = %q, want OS default", got)
	}
}

// TestVersionSkipsConfiguration verifies version runs without a config
func TestVersionSkipsConfiguration(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"version"})
	if err != nil {
		t.Fatalf("Version command not found: %v", err)
	}
	if err := initializeApp(cmd, nil); err != nil {
		t.Errorf("initializeApp(version) = %v", err)
	}
}
