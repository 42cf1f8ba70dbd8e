package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kamal-hamza/rfm-cli/pkg/config"
)

// Archive represents the managed research directory tree
type Archive struct {
	BaseDir       string
	OrganizedPath string
	SummariesPath string
	ProjectsPath  string
	StatePath     string
}

// New derives the archive layout from the configuration
func New(cfg *config.Config) *Archive {
	base := filepath.Clean(cfg.ResearchBaseDir)
	return &Archive{
		BaseDir:       base,
		OrganizedPath: cfg.OrganizedRoot(),
		SummariesPath: cfg.SummariesRoot(),
		ProjectsPath:  filepath.Join(base, "Projects"),
		StatePath:     filepath.Join(base, ".rfm"),
	}
}

// DefaultConfigPath returns the config file location.
// Follows XDG Base Directory specification on Unix and uses AppData on Windows
func DefaultConfigPath() (string, error) {
	// Check XDG_CONFIG_HOME first (Unix-like systems)
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "rfm", "config.json"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "rfm", "config.json"), nil
	}

	return filepath.Join(homeDir, ".config", "rfm", "config.json"), nil
}

// Initialize creates the archive directory structure if it doesn't exist
func (a *Archive) Initialize() error {
	directories := []string{
		a.BaseDir,
		a.OrganizedPath,
		a.SummariesPath,
		a.ProjectsPath,
		a.StatePath,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Exists checks if the archive has been initialized
func (a *Archive) Exists() bool {
	info, err := os.Stat(a.OrganizedPath)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// LedgerPath returns the processing ledger database path
func (a *Archive) LedgerPath() string {
	return filepath.Join(a.StatePath, "ledger.db")
}

// LockPath returns the advisory lock file path
func (a *Archive) LockPath() string {
	return filepath.Join(a.BaseDir, ".rfm.lock")
}

// BucketPath returns <organized>/<bucket>/<year>
func (a *Archive) BucketPath(bucket string, year int) string {
	return filepath.Join(a.OrganizedPath, bucket, strconv.Itoa(year))
}

// ProjectPath returns the directory of a research project
func (a *Archive) ProjectPath(slug string) string {
	return filepath.Join(a.ProjectsPath, slug)
}

// Contains reports whether path lies inside the organized tree
func (a *Archive) Contains(path string) bool {
	rel, err := filepath.Rel(a.OrganizedPath, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
