package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
)

// FilenameOptions controls canonical name generation
type FilenameOptions struct {
	NoiseWords      []string
	GenericNames    []string
	AddCoursePrefix bool
	UseAuthorYear   bool
	AddTimestamp    bool // append the file's modification time
	MaxLength       int
}

// FilenameGenerator produces canonical archive names.
// Generate is a pure function of its inputs and is idempotent.
type FilenameGenerator struct {
	opts        FilenameOptions
	noisePrefix *regexp.Regexp
	noiseSuffix *regexp.Regexp
	generic     map[string]bool
}

var (
	copyMarker      = regexp.MustCompile(`(?i)(?:\s*\(\d+\)|(?:^|[\s_\-]+)copy(?:[\s_\-]*\d+)?)+$`)
	copySuffix      = regexp.MustCompile(`(?i)(?:(?:^|_)copy(?:_?\d+)?)+$`)
	timestampSuffix = regexp.MustCompile(`(?:^|_)\d{8}_\d{6}$`)
	nonNameChars    = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

const (
	placeholderPrefix = "unnamed"
	timestampLayout   = "20060102_150405"
)

// NewFilenameGenerator compiles the noise word patterns
func NewFilenameGenerator(opts FilenameOptions) *FilenameGenerator {
	if opts.MaxLength <= 0 {
		opts.MaxLength = 120
	}

	g := &FilenameGenerator{opts: opts, generic: map[string]bool{"": true}}
	for _, name := range opts.GenericNames {
		g.generic[strings.ToLower(name)] = true
	}

	var words []string
	for _, w := range opts.NoiseWords {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, regexp.QuoteMeta(w))
		}
	}
	if len(words) > 0 {
		alt := `(?:` + strings.Join(words, "|") + `)`
		g.noisePrefix = regexp.MustCompile(`(?i)^(?:` + alt + `(?:_|$))+`)
		g.noiseSuffix = regexp.MustCompile(`(?i)(?:(?:^|_)` + alt + `)+$`)
	}

	return g
}

// Generate returns the canonical file name for rec
func (g *FilenameGenerator) Generate(rec domain.FileRecord, meta domain.Metadata, cls domain.Classification) string {
	base := rec.Stem
	if g.opts.UseAuthorYear {
		if ay := authorYear(meta); ay != "" {
			base = ay
		}
	}

	stem := sanitize(copyMarker.ReplaceAllString(foldASCII(base), ""))

	var (
		tag  string
		rule domain.CourseRule
	)
	if g.opts.AddCoursePrefix && !cls.IsGeneral() {
		rule = domain.CourseRule{Code: cls.Course}
		tag = sanitize(rule.Tag())
	}

	limit := g.opts.MaxLength
	if tag != "" {
		limit -= len([]rune(tag)) + 1
	}
	if g.opts.AddTimestamp {
		limit -= len(timestampLayout) + 1
	}
	if limit < 1 {
		limit = 1
	}

	// each step only shortens the stem; repeat until nothing changes so
	// that a generated name maps to itself
	for {
		next := stem
		if g.opts.AddTimestamp {
			next = strings.Trim(timestampSuffix.ReplaceAllString(next, ""), "_")
		}
		if tag != "" {
			next = stripCourse(next, rule)
		}
		next = g.stripNoise(truncate(next, limit))
		if next == stem {
			break
		}
		stem = next
	}

	stamp := rec.ModTime.Format(timestampLayout)
	if g.generic[strings.ToLower(stem)] {
		if g.opts.AddTimestamp {
			stem = truncate(placeholderPrefix, limit)
		} else {
			stem = truncate(placeholderPrefix+"_"+stamp, limit)
		}
	}
	if g.opts.AddTimestamp {
		stem += "_" + stamp
	}

	if tag != "" {
		stem = tag + "_" + stem
	}

	if rec.Ext == "" {
		return stem
	}
	return stem + "." + rec.Ext
}

func (g *FilenameGenerator) stripNoise(stem string) string {
	for {
		next := copySuffix.ReplaceAllString(stem, "")
		if g.noisePrefix != nil {
			next = g.noisePrefix.ReplaceAllString(next, "")
			next = g.noiseSuffix.ReplaceAllString(next, "")
		}
		next = strings.Trim(next, "_")
		if next == stem {
			return stem
		}
		stem = next
	}
}

// stripCourse removes every occurrence of the course code token
func stripCourse(stem string, rule domain.CourseRule) string {
	var pattern string
	if num := rule.Number(); num != "" {
		pattern = `(?i)(?:^|_)` + regexp.QuoteMeta(rule.Prefix()) + `_?` + regexp.QuoteMeta(num) + `(?:_|$)`
	} else {
		pattern = `(?i)(?:^|_)` + regexp.QuoteMeta(sanitize(rule.Code)) + `(?:_|$)`
	}
	re := regexp.MustCompile(pattern)

	for {
		next := sanitize(re.ReplaceAllString(stem, "_"))
		if next == stem {
			return stem
		}
		stem = next
	}
}

// sanitize replaces anything but letters and digits with single underscores
func sanitize(s string) string {
	return strings.Trim(nonNameChars.ReplaceAllString(s, "_"), "_")
}

// foldASCII strips diacritics: "Café" -> "Cafe"
func foldASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func truncate(stem string, max int) string {
	r := []rune(stem)
	if len(r) <= max {
		return stem
	}
	return strings.TrimRight(string(r[:max]), "_")
}

// authorYear builds "Doe_JQ_2023_First_Three_Words" from bibliographic metadata
func authorYear(meta domain.Metadata) string {
	if !meta.HasAuthor() || !meta.HasYear() || !meta.HasTitle() {
		return ""
	}

	last, initials := splitPersonName(meta.PrimaryAuthor())
	if last == "" {
		return ""
	}

	words := strings.FieldsFunc(sanitize(foldASCII(meta.Title)), func(r rune) bool { return r == '_' })
	if len(words) > 3 {
		words = words[:3]
	}

	parts := []string{last}
	if initials != "" {
		parts = append(parts, initials)
	}
	parts = append(parts, strconv.Itoa(meta.Year))
	parts = append(parts, words...)
	return strings.Join(parts, "_")
}

// splitPersonName handles "Jane Q. Doe" and "Doe, Jane Q."
func splitPersonName(name string) (string, string) {
	var last string
	var given []string

	if before, after, ok := strings.Cut(name, ","); ok {
		last = strings.TrimSpace(before)
		given = strings.Fields(after)
	} else {
		fields := strings.Fields(name)
		if len(fields) == 0 {
			return "", ""
		}
		last = fields[len(fields)-1]
		given = fields[:len(fields)-1]
	}

	var initials strings.Builder
	for _, g := range given {
		for _, r := range g {
			if unicode.IsLetter(r) {
				initials.WriteRune(unicode.ToUpper(r))
				break
			}
		}
	}

	return sanitize(foldASCII(last)), foldASCII(initials.String())
}
