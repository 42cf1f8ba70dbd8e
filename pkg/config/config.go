package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
)

// Classification strategies
const (
	StrategyScored       = "scored"
	StrategyFirstMatch   = "first-match"
	StrategyCodeOrNumber = "code-or-number"
)

type Config struct {
	SourceDirectories  []string                `json:"source_directories" yaml:"source_directories" toml:"source_directories"`
	ResearchBaseDir    string                  `json:"research_base_dir" yaml:"research_base_dir" toml:"research_base_dir"`
	OrganizedDir       string                  `json:"organized_dir" yaml:"organized_dir" toml:"organized_dir"`
	SummariesDir       string                  `json:"summaries_dir" yaml:"summaries_dir" toml:"summaries_dir"`
	Categories         map[string][]string     `json:"categories" yaml:"categories" toml:"categories"`
	CourseDetails      map[string]CourseConfig `json:"course_details" yaml:"course_details" toml:"course_details"`
	Classification     ClassificationConfig    `json:"classification" yaml:"classification" toml:"classification"`
	FileNaming         FileNamingConfig        `json:"file_naming" yaml:"file_naming" toml:"file_naming"`
	MetadataExtraction MetadataConfig          `json:"metadata_extraction" yaml:"metadata_extraction" toml:"metadata_extraction"`
	AutoOrganization   AutoOrganizationConfig  `json:"auto_organization" yaml:"auto_organization" toml:"auto_organization"`
	Zotero             ZoteroConfig            `json:"zotero" yaml:"zotero" toml:"zotero"`
	Calibre            CalibreConfig           `json:"calibre" yaml:"calibre" toml:"calibre"`
	WritingTools       WritingToolsConfig      `json:"writing_tools" yaml:"writing_tools" toml:"writing_tools"`
	Logging            LoggingConfig           `json:"logging" yaml:"logging" toml:"logging"`
}

type CourseConfig struct {
	Title         string   `json:"title" yaml:"title" toml:"title"`
	Keywords      []string `json:"keywords" yaml:"keywords" toml:"keywords"`
	CollectionKey string   `json:"collection_key,omitempty" yaml:"collection_key,omitempty" toml:"collection_key,omitempty"`
}

type ClassificationConfig struct {
	Strategy         string   `json:"strategy" yaml:"strategy" toml:"strategy"`
	Threshold        int      `json:"threshold" yaml:"threshold" toml:"threshold"`
	ContentChars     int      `json:"content_chars" yaml:"content_chars" toml:"content_chars"`
	CourseCategories []string `json:"course_categories" yaml:"course_categories" toml:"course_categories"`
}

type FileNamingConfig struct {
	NoiseWords      []string `json:"noise_words" yaml:"noise_words" toml:"noise_words"`
	GenericNames    []string `json:"generic_names" yaml:"generic_names" toml:"generic_names"`
	AddCoursePrefix bool     `json:"add_course_prefix" yaml:"add_course_prefix" toml:"add_course_prefix"`
	UseAuthorYear   bool     `json:"use_author_year" yaml:"use_author_year" toml:"use_author_year"`
	AddTimestamp    bool     `json:"add_timestamp" yaml:"add_timestamp" toml:"add_timestamp"`
	MaxLength       int      `json:"max_length" yaml:"max_length" toml:"max_length"`
}

type MetadataConfig struct {
	ExtractPDF     bool `json:"extract_pdf_metadata" yaml:"extract_pdf_metadata" toml:"extract_pdf_metadata"`
	ExtractDOCX    bool `json:"extract_docx_metadata" yaml:"extract_docx_metadata" toml:"extract_docx_metadata"`
	ExtractBibTeX  bool `json:"extract_bibtex" yaml:"extract_bibtex" toml:"extract_bibtex"`
	ExtractEbook   bool `json:"extract_ebook_metadata" yaml:"extract_ebook_metadata" toml:"extract_ebook_metadata"`
	ExtractMedia   bool `json:"extract_media_metadata" yaml:"extract_media_metadata" toml:"extract_media_metadata"`
	ExtractHTML    bool `json:"extract_html_metadata" yaml:"extract_html_metadata" toml:"extract_html_metadata"`
	TimeoutSeconds int  `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
}

type AutoOrganizationConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	MoveFiles      bool     `json:"move_files" yaml:"move_files" toml:"move_files"`
	Recursive      bool     `json:"recursive" yaml:"recursive" toml:"recursive"`
	SettleDelayMS  int      `json:"settle_delay_ms" yaml:"settle_delay_ms" toml:"settle_delay_ms"`
	IgnorePatterns []string `json:"ignore_patterns" yaml:"ignore_patterns" toml:"ignore_patterns"`
}

type ZoteroConfig struct {
	Enabled           bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	LibraryID         string   `json:"library_id" yaml:"library_id" toml:"library_id"`
	APIKey            string   `json:"api_key" yaml:"api_key" toml:"api_key"`
	LibraryType       string   `json:"library_type" yaml:"library_type" toml:"library_type"`
	BaseURL           string   `json:"base_url" yaml:"base_url" toml:"base_url"`
	PublishCategories []string `json:"publish_categories" yaml:"publish_categories" toml:"publish_categories"`
}

type CalibreConfig struct {
	Enabled           bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Path              string   `json:"path" yaml:"path" toml:"path"`
	LibraryPath       string   `json:"library_path" yaml:"library_path" toml:"library_path"`
	PublishCategories []string `json:"publish_categories" yaml:"publish_categories" toml:"publish_categories"`
}

type WritingToolsConfig struct {
	Latex     LatexConfig `json:"latex" yaml:"latex" toml:"latex"`
	TeXstudio ToolConfig  `json:"texstudio" yaml:"texstudio" toml:"texstudio"`
	Bean      ToolConfig  `json:"bean" yaml:"bean" toml:"bean"`
}

type LatexConfig struct {
	Enabled  bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Compiler string   `json:"compiler" yaml:"compiler" toml:"compiler"`
	Flags    []string `json:"flags" yaml:"flags" toml:"flags"`
}

type ToolConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Path    string `json:"path" yaml:"path" toml:"path"`
}

type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
	File   string `json:"file" yaml:"file" toml:"file"`
}

// ValidationError reports a bad configuration value
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

// DefaultConfig returns a Config struct with default values
func DefaultConfig() *Config {
	return &Config{
		SourceDirectories: []string{"~/Downloads", "~/Desktop"},
		ResearchBaseDir:   "~/Documents/Research",
		OrganizedDir:      "Organized_Research",
		SummariesDir:      "Research_Summaries",
		Categories:        defaultCategories(),
		CourseDetails:     defaultCourses(),
		Classification: ClassificationConfig{
			Strategy:         StrategyScored,
			Threshold:        domain.MediumScore,
			ContentChars:     1000,
			CourseCategories: []string{"papers", "presentations"},
		},
		FileNaming: FileNamingConfig{
			NoiseWords:      []string{"download", "file", "document", "paper", "research"},
			GenericNames:    []string{"untitled", "document", "file", "download", "scan", "image", "new"},
			AddCoursePrefix: true,
			UseAuthorYear:   false,
			AddTimestamp:    false,
			MaxLength:       120,
		},
		MetadataExtraction: MetadataConfig{
			ExtractPDF:     true,
			ExtractDOCX:    true,
			ExtractBibTeX:  true,
			ExtractEbook:   true,
			ExtractMedia:   true,
			ExtractHTML:    true,
			TimeoutSeconds: 15,
		},
		AutoOrganization: AutoOrganizationConfig{
			Enabled:        true,
			MoveFiles:      true,
			Recursive:      false,
			SettleDelayMS:  2000,
			IgnorePatterns: []string{"*.part", "*.crdownload", "*.download", "*.tmp", "*.partial"},
		},
		Zotero: ZoteroConfig{
			LibraryType:       "user",
			BaseURL:           "https://api.zotero.org",
			PublishCategories: []string{"papers", "books"},
		},
		Calibre: CalibreConfig{
			LibraryPath:       "~/Calibre Library",
			PublishCategories: []string{"books"},
		},
		WritingTools: WritingToolsConfig{
			Latex: LatexConfig{
				Enabled:  true,
				Compiler: "latexmk",
				Flags:    []string{"-pdf", "-interaction=nonstopmode"},
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func defaultCategories() map[string][]string {
	return map[string][]string{
		"papers":        {"pdf", "doc", "docx", "rtf", "odt", "txt", "md"},
		"books":         {"epub", "mobi", "azw", "azw3", "djvu"},
		"presentations": {"ppt", "pptx", "key", "odp"},
		"data":          {"csv", "xls", "xlsx", "json", "sav", "sqlite"},
		"images":        {"png", "jpg", "jpeg", "gif", "heic", "webp", "svg"},
		"media":         {"mp3", "wav", "m4a", "aac", "mp4", "mov", "avi", "mkv", "wmv"},
		"writing":       {"tex", "bib", "sty", "cls"},
		"web":           {"html", "htm"},
		"archives":      {"zip", "tar", "gz", "7z", "rar"},
	}
}

func defaultCourses() map[string]CourseConfig {
	return map[string]CourseConfig{
		"EDSP 505": {
			Title:    "Behavior Management",
			Keywords: []string{`behavior`, `classroom`, `management`, `discipline`, `intervention`, `positive\s*behavior`},
		},
		"EDSP 552": {
			Title:    "Curriculum and Instruction",
			Keywords: []string{`curriculum`, `instruction`, `teaching`, `lesson\s*plan`, `educational\s*materials`, `pedagogy`},
		},
		"EDSP 554": {
			Title:    "Assessment in Special Education",
			Keywords: []string{`assessment`, `evaluation`, `measurement`, `testing`, `data\s*collection`, `progress\s*monitoring`},
		},
		"EDCX 513": {
			Title:    "Research Methods",
			Keywords: []string{`methodology`, `statistics`, `analysis`, `literature\s*review`, `academic\s*writing`},
		},
	}
}

// Load reads configuration from the specified file path.
// The format follows the extension: .json, .yaml/.yml or .toml.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		// A missing file means defaults
		if os.IsNotExist(err) {
			if err := cfg.normalize(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Maps are replaced wholesale, not merged with the defaults
	cfg.Categories = nil
	cfg.CourseDetails = nil

	if err := decode(path, data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Categories == nil {
		cfg.Categories = defaultCategories()
	}
	if cfg.CourseDetails == nil {
		cfg.CourseDetails = map[string]CourseConfig{}
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

// normalize expands paths and fills missing values
func (c *Config) normalize() error {
	defaults := DefaultConfig()

	if c.ResearchBaseDir == "" {
		c.ResearchBaseDir = defaults.ResearchBaseDir
	}
	if c.OrganizedDir == "" {
		c.OrganizedDir = defaults.OrganizedDir
	}
	if c.SummariesDir == "" {
		c.SummariesDir = defaults.SummariesDir
	}
	if c.Classification.Strategy == "" {
		c.Classification.Strategy = StrategyScored
	}
	if c.Classification.ContentChars < 0 {
		c.Classification.ContentChars = 0
	}
	if c.FileNaming.MaxLength <= 0 {
		c.FileNaming.MaxLength = defaults.FileNaming.MaxLength
	}
	if c.MetadataExtraction.TimeoutSeconds <= 0 {
		c.MetadataExtraction.TimeoutSeconds = defaults.MetadataExtraction.TimeoutSeconds
	}
	if c.AutoOrganization.SettleDelayMS < 0 {
		c.AutoOrganization.SettleDelayMS = 0
	}
	if c.Zotero.LibraryType == "" {
		c.Zotero.LibraryType = defaults.Zotero.LibraryType
	}
	if c.Zotero.BaseURL == "" {
		c.Zotero.BaseURL = defaults.Zotero.BaseURL
	}
	if c.WritingTools.Latex.Compiler == "" {
		c.WritingTools.Latex.Compiler = defaults.WritingTools.Latex.Compiler
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}

	var err error
	if c.ResearchBaseDir, err = ExpandPath(c.ResearchBaseDir); err != nil {
		return err
	}
	for i, dir := range c.SourceDirectories {
		if c.SourceDirectories[i], err = ExpandPath(dir); err != nil {
			return err
		}
	}
	if c.Calibre.LibraryPath, err = ExpandPath(c.Calibre.LibraryPath); err != nil {
		return err
	}
	if c.Logging.File, err = ExpandPath(c.Logging.File); err != nil {
		return err
	}

	return nil
}

// Validate checks values that would break classification or naming
func (c *Config) Validate() error {
	var errs []error

	switch c.Classification.Strategy {
	case StrategyScored, StrategyFirstMatch, StrategyCodeOrNumber:
	default:
		errs = append(errs, &ValidationError{
			Field:   "classification.strategy",
			Message: fmt.Sprintf("unknown strategy %q (scored, first-match, code-or-number)", c.Classification.Strategy),
		})
	}

	if c.Classification.Threshold < 0 {
		errs = append(errs, &ValidationError{Field: "classification.threshold", Message: "must not be negative"})
	}

	for _, code := range sortedKeys(c.CourseDetails) {
		if strings.TrimSpace(code) == "" {
			errs = append(errs, &ValidationError{Field: "course_details", Message: "course code cannot be empty"})
			continue
		}
		for _, kw := range c.CourseDetails[code].Keywords {
			if _, err := regexp.Compile("(?i)" + kw); err != nil {
				errs = append(errs, &ValidationError{
					Field:   fmt.Sprintf("course_details[%s].keywords", code),
					Message: fmt.Sprintf("invalid pattern %q: %v", kw, err),
				})
			}
		}
	}

	for _, p := range c.AutoOrganization.IgnorePatterns {
		if _, err := filepath.Match(p, "probe"); err != nil {
			errs = append(errs, &ValidationError{
				Field:   "auto_organization.ignore_patterns",
				Message: fmt.Sprintf("invalid glob %q", p),
			})
		}
	}

	return errors.Join(errs...)
}

// Rules builds the classifier's rule set
func (c *Config) Rules() domain.RuleSet {
	courses := make([]domain.CourseRule, 0, len(c.CourseDetails))
	for _, code := range sortedKeys(c.CourseDetails) {
		cc := c.CourseDetails[code]
		courses = append(courses, domain.CourseRule{
			Code:          code,
			Title:         cc.Title,
			Keywords:      append([]string(nil), cc.Keywords...),
			CollectionKey: cc.CollectionKey,
		})
	}

	categories := make([]domain.CategoryRule, 0, len(c.Categories))
	for _, name := range sortedKeys(c.Categories) {
		categories = append(categories, domain.CategoryRule{Name: name, Extensions: c.Categories[name]})
	}

	return domain.NewRuleSet(courses, categories, c.Classification.CourseCategories)
}

// OrganizedRoot is the root of the organized archive tree
func (c *Config) OrganizedRoot() string {
	return filepath.Join(c.ResearchBaseDir, c.OrganizedDir)
}

// SummariesRoot is where summary JSON files go
func (c *Config) SummariesRoot() string {
	return filepath.Join(c.ResearchBaseDir, c.SummariesDir)
}

// SettleDelay returns the watch settle delay
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.AutoOrganization.SettleDelayMS) * time.Millisecond
}

// ExtractTimeout returns the per-call timeout for external metadata tools
func (c *Config) ExtractTimeout() time.Duration {
	return time.Duration(c.MetadataExtraction.TimeoutSeconds) * time.Second
}

// Save persists the current configuration to the specified file path
func (c *Config) Save(path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		data, err = toml.Marshal(c)
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ExpandPath replaces a leading ~ with the home directory
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
