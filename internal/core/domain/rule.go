package domain

import (
	"regexp"
	"sort"
	"strings"
)

var courseCodePattern = regexp.MustCompile(`^([A-Za-z]+)[\s_.\-]*([0-9]+[A-Za-z]?)$`)

// CourseRule maps a course code such as "EDSP 505" to the signals that
// identify its documents
type CourseRule struct {
	Code          string
	Title         string
	Keywords      []string // regular expressions, matched case-insensitively
	CollectionKey string   // reference manager collection, optional
}

// Prefix returns the alphabetic part of the code ("EDSP")
func (r CourseRule) Prefix() string {
	if m := courseCodePattern.FindStringSubmatch(strings.TrimSpace(r.Code)); m != nil {
		return m[1]
	}
	return strings.TrimSpace(r.Code)
}

// Number returns the numeric part of the code ("505"), "" when there is none
func (r CourseRule) Number() string {
	if m := courseCodePattern.FindStringSubmatch(strings.TrimSpace(r.Code)); m != nil {
		return m[2]
	}
	return ""
}

// Tag returns the code as a filename prefix ("EDSP_505")
func (r CourseRule) Tag() string {
	return strings.Join(strings.Fields(r.Code), "_")
}

// CategoryRule is an extension bucket
type CategoryRule struct {
	Name       string
	Extensions []string
}

// RuleSet is the static classification input built from configuration
type RuleSet struct {
	Courses          []CourseRule   // sorted by code
	Categories       []CategoryRule // sorted by name
	CourseCategories []string       // categories eligible for course detection
}

// NewRuleSet sorts the rules so every lookup is deterministic
func NewRuleSet(courses []CourseRule, categories []CategoryRule, courseCategories []string) RuleSet {
	cs := append([]CourseRule(nil), courses...)
	sort.Slice(cs, func(i, j int) bool { return cs[i].Code < cs[j].Code })

	cats := append([]CategoryRule(nil), categories...)
	sort.Slice(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })

	return RuleSet{
		Courses:          cs,
		Categories:       cats,
		CourseCategories: append([]string(nil), courseCategories...),
	}
}

// CategoryFor returns the first category (alphabetically) listing ext,
// or UnsortedCategory
func (rs RuleSet) CategoryFor(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		return UnsortedCategory
	}
	for _, cat := range rs.Categories {
		for _, e := range cat.Extensions {
			if strings.ToLower(strings.TrimPrefix(e, ".")) == ext {
				return cat.Name
			}
		}
	}
	return UnsortedCategory
}

// CourseBearing reports whether files of this category go through course detection
func (rs RuleSet) CourseBearing(category string) bool {
	for _, c := range rs.CourseCategories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// Course looks up a rule by code
func (rs RuleSet) Course(code string) (CourseRule, bool) {
	for _, c := range rs.Courses {
		if c.Code == code {
			return c, true
		}
	}
	return CourseRule{}, false
}
