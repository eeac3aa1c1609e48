package grading

import "strings"

// Question types understood by the matcher.
const (
	TypeMCQ                = "mcq"
	TypeFillBlank          = "fill_blank"
	TypeSentenceCompletion = "sentence_completion"
	TypeMatching           = "matching"
	TypeTableCompletion    = "table_completion"
	TypeMapLabeling        = "map_labeling"
)

// Q is a minimal view of a question needed for grading.
type Q struct {
	Type          string
	CorrectAnswer string
	WordLimit     int // 0 means no limit
}

// IsTextBased reports whether answers of this type are free text.
func IsTextBased(typ string) bool {
	switch typ {
	case TypeFillBlank, TypeSentenceCompletion, TypeTableCompletion:
		return true
	}
	return false
}

// IsChoiceBased reports whether answers of this type are a single letter token.
func IsChoiceBased(typ string) bool {
	switch typ {
	case TypeMCQ, TypeMatching, TypeMapLabeling:
		return true
	}
	return false
}

// ValidType reports whether typ is one of the six listening question types.
func ValidType(typ string) bool { return IsTextBased(typ) || IsChoiceBased(typ) }

// Strategy decides a single question.
type Strategy interface {
	Match(q Q, answer string) bool
}

// Option configures a Matcher.
type Option func(*config)

type config struct {
	Variants []VariantPair
}

// WithSpellingVariants replaces the default American/British table.
func WithSpellingVariants(pairs []VariantPair) Option {
	return func(c *config) { c.Variants = pairs }
}

// Matcher routes by question type to the correct Strategy.
// It holds no mutable state and is safe for concurrent use.
type Matcher struct {
	strategies map[string]Strategy
	fallback   Strategy
}

// NewMatcher installs the built-in strategies.
func NewMatcher(opts ...Option) *Matcher {
	cfg := &config{Variants: DefaultSpellingVariants}
	for _, o := range opts {
		o(cfg)
	}
	variants := make([]VariantPair, len(cfg.Variants))
	copy(variants, cfg.Variants)

	text := textStrategy{variants: variants}
	return &Matcher{
		strategies: map[string]Strategy{
			TypeMCQ:                choiceStrategy{},
			TypeMatching:           choiceStrategy{},
			TypeMapLabeling:        choiceStrategy{},
			TypeFillBlank:          text,
			TypeSentenceCompletion: text,
			TypeTableCompletion:    text,
		},
		// anything unrecognised is graded as free text
		fallback: text,
	}
}

// IsCorrect reports whether answer is accepted for q. An empty or
// whitespace-only answer is never correct.
func (m *Matcher) IsCorrect(q Q, answer string) bool {
	if strings.TrimSpace(answer) == "" {
		return false
	}
	s, ok := m.strategies[q.Type]
	if !ok {
		s = m.fallback
	}
	return s.Match(q, answer)
}

// --- Strategies ---

// choiceStrategy covers mcq, matching and map_labeling: trimmed,
// case-insensitive exact match on a letter token.
type choiceStrategy struct{}

func (choiceStrategy) Match(q Q, answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer))
}

type textStrategy struct {
	variants []VariantPair
}

func (s textStrategy) Match(q Q, answer string) bool {
	answer = strings.TrimSpace(answer)
	correct := strings.TrimSpace(q.CorrectAnswer)

	if q.WordLimit > 0 && WordCount(answer) > q.WordLimit {
		return false
	}

	user := normalize(answer)
	want := normalize(correct)
	if user == want {
		return true
	}
	if collapseSpaces(dehyphen(user)) == collapseSpaces(dehyphen(want)) {
		return true
	}
	if matchesVariant(s.variants, user, want) {
		return true
	}

	if strings.Contains(correct, "|") {
		for _, alt := range strings.Split(correct, "|") {
			na := normalize(strings.TrimSpace(alt))
			if user == na || matchesVariant(s.variants, user, na) {
				return true
			}
		}
	}
	return false
}
