package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ProjectType selects the writing template for a new project
type ProjectType string

const (
	ProjectArticle ProjectType = "article"
	ProjectReport  ProjectType = "report"
	ProjectThesis  ProjectType = "thesis"
)

// ProjectDirs are created inside every project
var ProjectDirs = []string{"Research", "Writing", "Drafts", "Final", "Bibliography"}

// Project is a research writing project under Projects/
type Project struct {
	Name        string      `json:"name"`
	Type        ProjectType `json:"type"`
	Description string      `json:"description,omitempty"`
	Status      string      `json:"status"`
	Created     time.Time   `json:"created"`
	Path        string      `json:"-"`
}

var projectNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _\-]*$`)

// ParseProjectType validates a type name, defaulting to article
func ParseProjectType(s string) (ProjectType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "article":
		return ProjectArticle, nil
	case "report":
		return ProjectReport, nil
	case "thesis":
		return ProjectThesis, nil
	default:
		return "", fmt.Errorf("unknown project type %q (article, report, thesis)", s)
	}
}

// ValidateProjectName rejects names that would escape the projects directory
func ValidateProjectName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	if !projectNamePattern.MatchString(name) {
		return fmt.Errorf("project name %q may only contain letters, digits, spaces, '-' and '_'", name)
	}
	return nil
}

// ProjectSlug turns "Behavior Study" into "Behavior_Study"
func ProjectSlug(name string) string {
	return strings.Join(strings.Fields(name), "_")
}

// BuildResult is the outcome of compiling a project's writing file
type BuildResult struct {
	Success  bool
	PDFPath  string
	Output   string
	Errors   []string
	Warnings []string
}
