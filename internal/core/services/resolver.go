package services

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
)

// Resolver maps a classification to its directory in the organized tree
type Resolver struct {
	root  string
	rules domain.RuleSet
	now   func() time.Time
	title cases.Caser
}

// NewResolver creates a resolver rooted at the organized tree.
// now defaults to time.Now.
func NewResolver(root string, rules domain.RuleSet, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		root:  root,
		rules: rules,
		now:   now,
		title: cases.Title(language.English),
	}
}

// Root returns the organized tree root
func (r *Resolver) Root() string {
	return r.root
}

// Bucket returns the first path component below the root
func (r *Resolver) Bucket(cls domain.Classification) string {
	switch {
	case !cls.IsGeneral():
		return safeComponent(cls.Course)
	case cls.Category == "" || cls.Category == domain.UnsortedCategory:
		return domain.UnsortedBucket
	case r.rules.CourseBearing(cls.Category):
		return domain.GeneralBucket
	default:
		return safeComponent(r.title.String(strings.ReplaceAll(cls.Category, "_", " ")))
	}
}

// Resolve returns <root>/<bucket>/<year>
func (r *Resolver) Resolve(cls domain.Classification) string {
	return filepath.Join(r.root, r.Bucket(cls), strconv.Itoa(r.now().Year()))
}

// safeComponent keeps a bucket name from escaping its parent directory
func safeComponent(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(name))

	if name == "" || name == "." || name == ".." {
		return domain.UnsortedBucket
	}
	return name
}
