package identify

import (
	"errors"
	"slices"

	"github.com/bastiangx/langserve/pkg/ngram"
	"github.com/charmbracelet/log"
)

// ErrNoProfiles is returned when classifying without any candidate language.
var ErrNoProfiles = errors.New("identify: no language profiles loaded")

// Language is a candidate language. Code is what evaluation labels use
// ("en"), Name is what humans see ("English").
type Language struct {
	Code string
	Name string
}

// String returns the display name, falling back to the code.
func (l Language) String() string {
	if l.Name != "" {
		return l.Name
	}
	return l.Code
}

// LanguageProfile holds one profile per gram length for a language.
type LanguageProfile struct {
	Language Language
	Profiles []*ngram.Profile
}

// Score is the match count of one language for one sentence.
type Score struct {
	Language Language
	Score    int
}

// Prediction is the result of classifying a single sentence.
// Scores follow the classifier's language order.
type Prediction struct {
	Language Language
	Scores   []Score
}

// ScoreOf returns the score of the language with the given code.
func (p Prediction) ScoreOf(code string) (int, bool) {
	for _, s := range p.Scores {
		if s.Language.Code == code {
			return s.Score, true
		}
	}
	return 0, false
}

// Classifier scores sentences against an immutable, ordered profile set.
// It is safe for concurrent use.
type Classifier struct {
	profiles   []LanguageProfile
	normalizer ngram.Normalizer
}

// NewClassifier creates a classifier over profiles. The order of profiles is
// the tie-break order: on equal scores the earlier language wins.
// Sentences are normalized with nz, which should match the one used to build
// the profiles.
func NewClassifier(profiles []LanguageProfile, nz ngram.Normalizer) *Classifier {
	if len(profiles) == 0 {
		log.Warn("Classifier created without language profiles")
	}
	return &Classifier{
		profiles:   slices.Clone(profiles),
		normalizer: nz,
	}
}

// Classify normalizes sentence and scores it against every language.
// A language's score is the number of sentence grams, repeats included, found
// in each of its profiles, summed over all gram lengths.
func (c *Classifier) Classify(sentence string) (Prediction, error) {
	if len(c.profiles) == 0 {
		return Prediction{}, ErrNoProfiles
	}

	text := c.normalizer.Normalize(sentence)
	scores := make([]Score, len(c.profiles))
	best := 0
	for i, lp := range c.profiles {
		total := 0
		for _, p := range lp.Profiles {
			total += p.Score(text)
		}
		scores[i] = Score{Language: lp.Language, Score: total}
		// strict comparison keeps the first language on ties
		if total > scores[best].Score {
			best = i
		}
	}

	return Prediction{Language: scores[best].Language, Scores: scores}, nil
}

// Languages returns the candidate languages in tie-break order.
func (c *Classifier) Languages() []Language {
	langs := make([]Language, len(c.profiles))
	for i, lp := range c.profiles {
		langs[i] = lp.Language
	}
	return langs
}

// Profiles returns the language profiles the classifier was built with.
func (c *Classifier) Profiles() []LanguageProfile {
	return slices.Clone(c.profiles)
}

// Normalizer returns the normalizer applied to sentences.
func (c *Classifier) Normalizer() ngram.Normalizer {
	return c.normalizer
}
