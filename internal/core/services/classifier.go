package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
)

// Classification strategy names, mirrored in the config package
const (
	StrategyScored       = "scored"
	StrategyFirstMatch   = "first-match"
	StrategyCodeOrNumber = "code-or-number"
)

// ClassifierOptions tunes course detection
type ClassifierOptions struct {
	Strategy     string
	Threshold    int // minimum score for the scored strategy
	ContentChars int // leading characters of extracted text to search
}

// Classifier decides category and course for a file.
// It is safe for concurrent use once built.
type Classifier struct {
	rules   domain.RuleSet
	opts    ClassifierOptions
	courses []compiledCourse
}

type compiledCourse struct {
	rule       domain.CourseRule
	code       *regexp.Regexp
	number     *regexp.Regexp // nil when the code has no number
	titleWords []string
	keywords   []compiledKeyword
}

type compiledKeyword struct {
	raw string
	re  *regexp.Regexp
}

// candidate is one course's evidence for a file
type candidate struct {
	course  *compiledCourse
	score   int
	match   domain.MatchKind
	matched []string
}

// NewClassifier compiles the course rules
func NewClassifier(rules domain.RuleSet, opts ClassifierOptions) (*Classifier, error) {
	switch opts.Strategy {
	case "":
		opts.Strategy = StrategyScored
	case StrategyScored, StrategyFirstMatch, StrategyCodeOrNumber:
	default:
		return nil, fmt.Errorf("unknown classification strategy %q", opts.Strategy)
	}

	c := &Classifier{rules: rules, opts: opts}
	for _, rule := range rules.Courses {
		cc, err := compileCourse(rule)
		if err != nil {
			return nil, err
		}
		c.courses = append(c.courses, cc)
	}
	return c, nil
}

func compileCourse(rule domain.CourseRule) (compiledCourse, error) {
	cc := compiledCourse{rule: rule}

	sep := `[\s_.\-]*`
	if num := rule.Number(); num != "" {
		cc.code = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(rule.Prefix()) + sep + regexp.QuoteMeta(num))
		cc.number = regexp.MustCompile(`(?:^|\D)` + regexp.QuoteMeta(num) + `(?:\D|$)`)
	} else {
		parts := strings.Fields(rule.Code)
		for i, p := range parts {
			parts[i] = regexp.QuoteMeta(p)
		}
		cc.code = regexp.MustCompile(`(?i)` + strings.Join(parts, sep))
	}

	for _, w := range strings.Fields(strings.ToLower(rule.Title)) {
		w = strings.Trim(w, ".,:;()[]\"'")
		if len(w) > 3 {
			cc.titleWords = append(cc.titleWords, w)
		}
	}

	for _, kw := range rule.Keywords {
		re, err := regexp.Compile(`(?i)` + kw)
		if err != nil {
			return compiledCourse{}, fmt.Errorf("course %s: invalid keyword %q: %w", rule.Code, kw, err)
		}
		cc.keywords = append(cc.keywords, compiledKeyword{raw: kw, re: re})
	}

	return cc, nil
}

// Strategy returns the active strategy name
func (c *Classifier) Strategy() string {
	return c.opts.Strategy
}

// Classify returns the category and course for a file
func (c *Classifier) Classify(rec domain.FileRecord, meta domain.Metadata) domain.Classification {
	category := c.rules.CategoryFor(rec.Ext)
	if len(c.rules.CourseCategories) == 0 || len(c.courses) == 0 {
		return domain.General(category, c.opts.Strategy)
	}

	text := c.searchText(rec, meta)

	var best *candidate
	switch {
	case !c.rules.CourseBearing(category):
		// only an exact course code places these files in a course
		best = c.exactCode(text)
	case c.opts.Strategy == StrategyFirstMatch:
		best = c.firstMatch(text)
	case c.opts.Strategy == StrategyCodeOrNumber:
		best = c.codeOrNumber(text)
	default:
		best = c.scored(text)
		if best != nil && best.score < c.opts.Threshold {
			general := domain.General(category, c.opts.Strategy)
			general.Score = best.score
			return general
		}
	}

	if best == nil {
		return domain.General(category, c.opts.Strategy)
	}

	cls := domain.Classification{
		Category:        category,
		Course:          best.course.rule.Code,
		CourseTitle:     best.course.rule.Title,
		CollectionKey:   best.course.rule.CollectionKey,
		Score:           best.score,
		Confidence:      domain.ConfidenceFor(best.score),
		Match:           best.match,
		MatchedKeywords: best.matched,
		Strategy:        c.opts.Strategy,
	}

	switch c.opts.Strategy {
	case StrategyFirstMatch:
		cls.Confidence = domain.ConfidenceHigh
	case StrategyCodeOrNumber:
		if best.match == domain.MatchExactCode {
			cls.Confidence = domain.ConfidenceHigh
		} else {
			cls.Confidence = domain.ConfidenceMedium
		}
	}

	return cls
}

// searchText joins the filename with extracted metadata
func (c *Classifier) searchText(rec domain.FileRecord, meta domain.Metadata) string {
	parts := []string{rec.Stem}
	if meta.HasTitle() {
		parts = append(parts, meta.Title)
	}
	if meta.Subject != "" {
		parts = append(parts, meta.Subject)
	}
	parts = append(parts, meta.Keywords...)
	if sample := meta.SearchText(c.opts.ContentChars); sample != "" {
		parts = append(parts, sample)
	}
	return strings.Join(parts, " ")
}

// scored weighs every signal and keeps the best course.
// A course whose code matched exactly outranks every course whose did not.
func (c *Classifier) scored(text string) *candidate {
	lower := strings.ToLower(text)

	var best *candidate
	for i := range c.courses {
		cc := &c.courses[i]
		cand := candidate{course: cc, match: domain.MatchNone}
		seen := map[string]bool{}

		if cc.code.MatchString(text) {
			cand.add(domain.WeightExactCode, domain.MatchExactCode, cc.rule.Code)
			seen[cc.rule.Number()] = true
		} else if cc.number != nil && cc.number.MatchString(text) {
			cand.add(domain.WeightNumber, domain.MatchNumber, cc.rule.Number())
			seen[cc.rule.Number()] = true
		}

		for _, w := range cc.titleWords {
			if seen[w] || !strings.Contains(lower, w) {
				continue
			}
			seen[w] = true
			cand.add(domain.WeightTitle, domain.MatchTitle, w)
		}

		for _, kw := range cc.keywords {
			key := strings.ToLower(kw.raw)
			if seen[key] || !kw.re.MatchString(text) {
				continue
			}
			seen[key] = true
			cand.add(domain.WeightKeyword, domain.MatchKeyword, kw.raw)
		}

		if cand.score == 0 {
			continue
		}
		if best == nil || cand.beats(best) {
			picked := cand
			best = &picked
		}
	}
	return best
}

// firstMatch walks courses in order and returns the first pattern hit
func (c *Classifier) firstMatch(text string) *candidate {
	for i := range c.courses {
		cc := &c.courses[i]
		if cc.code.MatchString(text) {
			return &candidate{course: cc, score: domain.WeightExactCode, match: domain.MatchExactCode, matched: []string{cc.rule.Code}}
		}
		if cc.number != nil && cc.number.MatchString(text) {
			return &candidate{course: cc, score: domain.WeightNumber, match: domain.MatchNumber, matched: []string{cc.rule.Number()}}
		}
		for _, kw := range cc.keywords {
			if kw.re.MatchString(text) {
				return &candidate{course: cc, score: domain.WeightKeyword, match: domain.MatchKeyword, matched: []string{kw.raw}}
			}
		}
	}
	return nil
}

// exactCode returns the first course whose full code appears in text
func (c *Classifier) exactCode(text string) *candidate {
	for i := range c.courses {
		cc := &c.courses[i]
		if cc.code.MatchString(text) {
			return &candidate{course: cc, score: domain.WeightExactCode, match: domain.MatchExactCode, matched: []string{cc.rule.Code}}
		}
	}
	return nil
}

// codeOrNumber only trusts the course code or its number
func (c *Classifier) codeOrNumber(text string) *candidate {
	for i := range c.courses {
		cc := &c.courses[i]
		if cc.code.MatchString(text) {
			return &candidate{course: cc, score: domain.WeightExactCode, match: domain.MatchExactCode, matched: []string{cc.rule.Code}}
		}
		if cc.number != nil && cc.number.MatchString(text) {
			return &candidate{course: cc, score: domain.WeightNumber, match: domain.MatchNumber, matched: []string{cc.rule.Number()}}
		}
	}
	return nil
}

func (c *candidate) add(weight int, kind domain.MatchKind, term string) {
	c.score += weight
	c.matched = append(c.matched, term)
	if matchRank(kind) > matchRank(c.match) {
		c.match = kind
	}
}

// beats compares candidates. Ties keep the earlier (alphabetical) course.
func (c candidate) beats(other *candidate) bool {
	cExact := c.match == domain.MatchExactCode
	oExact := other.match == domain.MatchExactCode
	if cExact != oExact {
		return cExact
	}
	return c.score > other.score
}

func matchRank(kind domain.MatchKind) int {
	switch kind {
	case domain.MatchExactCode:
		return 4
	case domain.MatchNumber:
		return 3
	case domain.MatchTitle:
		return 2
	case domain.MatchKeyword:
		return 1
	default:
		return 0
	}
}
