package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/internal/core/ports"
	"github.com/kamal-hamza/rfm-cli/pkg/logging"
)

const projectMetadataFile = "project_metadata.json"

// ErrProjectNotFound is returned for unknown project names
var ErrProjectNotFound = errors.New("project not found")

// ProjectService scaffolds and builds research writing projects
type ProjectService struct {
	root     string
	compiler ports.Compiler
	now      func() time.Time
	logger   *slog.Logger
}

// NewProjectService manages projects below root. compiler may be nil when
// LaTeX is disabled.
func NewProjectService(root string, compiler ports.Compiler, logger *slog.Logger) *ProjectService {
	return &ProjectService{
		root:     root,
		compiler: compiler,
		now:      time.Now,
		logger:   logging.OrDiscard(logger),
	}
}

// CreateProjectRequest describes a new project
type CreateProjectRequest struct {
	Name        string
	Type        domain.ProjectType
	Description string
}

// CompileResponse is the outcome of building a project
type CompileResponse struct {
	Project   *domain.Project
	Source    string
	FinalPath string
	Result    *domain.BuildResult
}

// Create builds the project directory tree and starter files
func (s *ProjectService) Create(ctx context.Context, req CreateProjectRequest) (*domain.Project, error) {
	if err := domain.ValidateProjectName(req.Name); err != nil {
		return nil, err
	}
	if req.Type == "" {
		req.Type = domain.ProjectArticle
	}

	slug := domain.ProjectSlug(req.Name)
	dir := filepath.Join(s.root, slug)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("project %q already exists at %s", req.Name, dir)
	}

	for _, sub := range domain.ProjectDirs {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", sub, err)
		}
	}

	project := &domain.Project{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Status:      "active",
		Created:     s.now(),
		Path:        dir,
	}

	stem := slug + "_" + documentLabel(req.Type)
	files := []struct {
		path string
		tmpl *template.Template
	}{
		{filepath.Join(dir, "Writing", stem+".tex"), latexTemplate},
		{filepath.Join(dir, "Writing", stem+".rtf"), rtfTemplate},
		{filepath.Join(dir, "Bibliography", slug+"_references.bib"), bibTemplate},
	}

	data := templateData{
		Title:        req.Name,
		Class:        latexClass(req.Type),
		Bibliography: "../Bibliography/" + slug + "_references",
		Sections:     sectionsFor(req.Type),
	}
	for _, f := range files {
		if err := renderFile(f.path, f.tmpl, data); err != nil {
			return nil, err
		}
	}

	if err := s.saveMetadata(project); err != nil {
		return nil, err
	}

	s.logger.Info("project created", logging.Path(dir), logging.String("type", string(req.Type)))
	return project, nil
}

// List returns every project, sorted by name. Directories without
// readable metadata are reported with status "unknown".
func (s *ProjectService) List(ctx context.Context) ([]domain.Project, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var projects []domain.Project
	for _, e := range entries {
		if !e.IsDir() || domain.IsHidden(e.Name()) {
			continue
		}
		dir := filepath.Join(s.root, e.Name())
		p, err := loadProject(dir)
		if err != nil {
			s.logger.Warn("unreadable project metadata", logging.Path(dir), logging.Error(err))
			p = &domain.Project{Name: e.Name(), Status: "unknown", Path: dir}
		}
		projects = append(projects, *p)
	}

	sort.Slice(projects, func(i, j int) bool {
		return strings.ToLower(projects[i].Name) < strings.ToLower(projects[j].Name)
	})
	return projects, nil
}

// Get loads one project by name
func (s *ProjectService) Get(name string) (*domain.Project, error) {
	dir := filepath.Join(s.root, domain.ProjectSlug(name))
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%q: %w", name, ErrProjectNotFound)
	}
	p, err := loadProject(dir)
	if err != nil {
		return &domain.Project{Name: name, Status: "unknown", Path: dir}, nil
	}
	return p, nil
}

// WritingFile picks the file to open. kind is "tex", "rtf" or "" for the
// first available in that order.
func (s *ProjectService) WritingFile(name, kind string) (string, error) {
	p, err := s.Get(name)
	if err != nil {
		return "", err
	}

	kinds := []string{"tex", "rtf", "docx", "doc"}
	switch kind {
	case "":
	case "tex":
		kinds = []string{"tex"}
	case "rtf":
		kinds = []string{"rtf", "docx", "doc"}
	default:
		return "", fmt.Errorf("unknown writing file kind %q", kind)
	}

	for _, k := range kinds {
		if f := firstWithExt(filepath.Join(p.Path, "Writing"), k); f != "" {
			return f, nil
		}
	}
	return "", fmt.Errorf("no %s writing file in project %q", strings.Join(kinds, "/"), name)
}

// Compile builds the project's first .tex file and moves the PDF to Final/
func (s *ProjectService) Compile(ctx context.Context, name string) (*CompileResponse, error) {
	if s.compiler == nil {
		return nil, fmt.Errorf("LaTeX compilation is disabled")
	}

	p, err := s.Get(name)
	if err != nil {
		return nil, err
	}

	source := firstWithExt(filepath.Join(p.Path, "Writing"), "tex")
	if source == "" {
		return nil, fmt.Errorf("no LaTeX files in project %q", name)
	}

	resp := &CompileResponse{Project: p, Source: source}
	result, err := s.compiler.Compile(ctx, source)
	resp.Result = result
	if err != nil {
		return resp, fmt.Errorf("failed to compile %s: %w", filepath.Base(source), err)
	}
	if result == nil || !result.Success {
		return resp, fmt.Errorf("compilation of %s produced no PDF", filepath.Base(source))
	}

	final := filepath.Join(p.Path, "Final", domain.ProjectSlug(p.Name)+"_Final.pdf")
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return resp, err
	}
	if err := os.Rename(result.PDFPath, final); err != nil {
		return resp, fmt.Errorf("failed to move PDF to Final: %w", err)
	}
	resp.FinalPath = final

	s.logger.Info("project compiled", logging.Path(final), logging.Int("warnings", len(result.Warnings)))
	return resp, nil
}

func (s *ProjectService) saveMetadata(p *domain.Project) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(p.Path, projectMetadataFile), append(data, '\n'), 0o644)
}

func loadProject(dir string) (*domain.Project, error) {
	data, err := os.ReadFile(filepath.Join(dir, projectMetadataFile))
	if err != nil {
		return nil, err
	}
	var p domain.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		p.Name = filepath.Base(dir)
	}
	p.Path = dir
	return &p, nil
}

func firstWithExt(dir, ext string) string {
	matches, _ := filepath.Glob(filepath.Join(dir, "*."+ext))
	sort.Strings(matches)
	if len(matches) == 0 {
		return ""
	}
	return matches[0]
}

func renderFile(path string, tmpl *template.Template, data templateData) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	if err := tmpl.Execute(f, data); err != nil {
		f.Close()
		return fmt.Errorf("failed to render %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func documentLabel(t domain.ProjectType) string {
	switch t {
	case domain.ProjectThesis:
		return "Thesis"
	case domain.ProjectReport:
		return "Report"
	default:
		return "Article"
	}
}

func latexClass(t domain.ProjectType) string {
	if t == domain.ProjectArticle {
		return "article"
	}
	return "report"
}

func sectionsFor(t domain.ProjectType) []string {
	switch t {
	case domain.ProjectThesis:
		return []string{"Introduction", "Literature Review", "Methodology", "Results", "Discussion", "Conclusion"}
	case domain.ProjectReport:
		return []string{"Executive Summary", "Background", "Findings", "Recommendations"}
	default:
		return []string{"Introduction", "Methods", "Results", "Discussion", "Conclusion"}
	}
}

type templateData struct {
	Title        string
	Class        string
	Bibliography string
	Sections     []string
}

var latexTemplate = template.Must(template.New("tex").Delims("<<", ">>").Parse(`\documentclass[11pt]{<<.Class>>}
\usepackage[utf8]{inputenc}
\usepackage{amsmath}
\usepackage{amssymb}
\usepackage{graphicx}
\usepackage{hyperref}
\usepackage{natbib}

\title{<<.Title>>}
\author{Your Name}
\date{\today}

\begin{document}

\maketitle
<<if eq .Class "article">>
\begin{abstract}
Your abstract here.
\end{abstract}
<<end>><<range .Sections>>
\<<if eq $.Class "article">>section<<else>>chapter<<end>>{<<.>>}

<<end>>
\bibliographystyle{plainnat}
\bibliography{<<.Bibliography>>}

\end{document}
`))

var rtfTemplate = template.Must(template.New("rtf").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`{\rtf1\ansi\deff0 {\fonttbl {\f0 Times;}}
\f0\fs24
\qc\b {{.Title}}\b0\par
\ql\par
{{range $i, $s := .Sections}}\b {{inc $i}}. {{$s}}:\b0 \par
\par
{{end}}\b References:\b0 \par
}
`))

var bibTemplate = template.Must(template.New("bib").Parse(`% References for {{.Title}}

@article{example2024,
  title={Example Research Paper},
  author={Author, A. and Author, B.},
  journal={Journal of Examples},
  year={2024}
}
`))
