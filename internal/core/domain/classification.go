package domain

const (
	// GeneralCourse is assigned when no course reaches the confidence threshold
	GeneralCourse = "General Research"

	// GeneralBucket is the directory used for GeneralCourse
	GeneralBucket = "General_Research"

	// UnsortedCategory is used for extensions no category lists
	UnsortedCategory = "unsorted"

	// UnsortedBucket is the directory used for UnsortedCategory
	UnsortedBucket = "Unsorted"
)

// Confidence is the tier derived from a classification score
type Confidence string

const (
	ConfidenceVeryHigh Confidence = "very_high"
	ConfidenceHigh     Confidence = "high"
	ConfidenceMedium   Confidence = "medium"
	ConfidenceLow      Confidence = "low"
)

// Score thresholds for each confidence tier
const (
	VeryHighScore = 15
	HighScore     = 10
	MediumScore   = 5
)

// ConfidenceFor maps a score to its tier
func ConfidenceFor(score int) Confidence {
	switch {
	case score >= VeryHighScore:
		return ConfidenceVeryHigh
	case score >= HighScore:
		return ConfidenceHigh
	case score >= MediumScore:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Rank orders tiers, higher is more confident
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceVeryHigh:
		return 3
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether c is as confident as other
func (c Confidence) AtLeast(other Confidence) bool {
	return c.Rank() >= other.Rank()
}

// MatchKind is the strongest signal that contributed to a classification
type MatchKind string

const (
	MatchExactCode MatchKind = "exact_code"
	MatchNumber    MatchKind = "number"
	MatchTitle     MatchKind = "title"
	MatchKeyword   MatchKind = "keyword"
	MatchNone      MatchKind = "none"
)

// Signal weights used by the scored strategy
const (
	WeightExactCode = 10
	WeightNumber    = 5
	WeightTitle     = 3
	WeightKeyword   = 2
)

// Classification is the classifier's verdict for a single file
type Classification struct {
	Category        string     `json:"category"`
	Course          string     `json:"course"`
	CourseTitle     string     `json:"course_title,omitempty"`
	CollectionKey   string     `json:"collection_key,omitempty"`
	Score           int        `json:"score"`
	Confidence      Confidence `json:"confidence"`
	Match           MatchKind  `json:"match"`
	MatchedKeywords []string   `json:"matched_keywords,omitempty"`
	Strategy        string     `json:"strategy"`
}

// IsGeneral reports whether no specific course was detected
func (c Classification) IsGeneral() bool {
	return c.Course == "" || c.Course == GeneralCourse
}

// General builds the fallback classification for a category
func General(category, strategy string) Classification {
	return Classification{
		Category:   category,
		Course:     GeneralCourse,
		Confidence: ConfidenceLow,
		Match:      MatchNone,
		Strategy:   strategy,
	}
}
