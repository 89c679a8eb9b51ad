package ngram

import (
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// DefaultTop is the profile size used when none is configured.
const DefaultTop = 100

// ErrInvalidGram is returned by NewProfile for grams that are not exactly n
// bytes of a-z, or that repeat.
var ErrInvalidGram = errors.New("ngram: invalid gram")

// Profile is the ranked list of the most frequent grams of one length for one
// language. It is immutable once built and safe for concurrent reads.
type Profile struct {
	n     int
	grams []string
	// index maps gram -> 1-based rank
	index *patricia.Trie
}

// BuildProfile builds a profile of the top most frequent n-grams of corpus
// with the default Normalizer.
func BuildProfile(corpus string, n, top int) (*Profile, error) {
	return Normalizer{}.BuildProfile(corpus, n, top)
}

// BuildProfile normalizes corpus, extracts its n-grams and keeps the top most
// frequent ones. Equal frequencies keep first-seen order.
// An empty corpus gives an empty profile.
func (nz Normalizer) BuildProfile(corpus string, n, top int) (*Profile, error) {
	if n < 1 || top < 1 {
		return nil, fmt.Errorf("%w: n=%d top=%d", ErrInvalidSize, n, top)
	}

	counts := CountGrams(Extract(nz.Normalize(corpus), n))
	// stable, so ties stay in first-seen order
	slices.SortStableFunc(counts, func(a, b Count) int {
		return b.Freq - a.Freq
	})
	if len(counts) > top {
		counts = counts[:top]
	}

	grams := make([]string, len(counts))
	for i, c := range counts {
		grams[i] = c.Gram
	}
	log.Debugf("Built %d-gram profile: %d grams (top=%d)", n, len(grams), top)
	return newProfile(n, grams), nil
}

// NewProfile builds a profile from an already ranked gram list.
func NewProfile(n int, grams []string) (*Profile, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: n=%d", ErrInvalidSize, n)
	}
	seen := make(map[string]bool, len(grams))
	for _, g := range grams {
		if len(g) != n || !isLowerLatin(g) {
			return nil, fmt.Errorf("%w: %q for n=%d", ErrInvalidGram, g, n)
		}
		if seen[g] {
			return nil, fmt.Errorf("%w: duplicate %q", ErrInvalidGram, g)
		}
		seen[g] = true
	}
	return newProfile(n, slices.Clone(grams)), nil
}

func newProfile(n int, grams []string) *Profile {
	index := patricia.NewTrie()
	for i, g := range grams {
		index.Insert(patricia.Prefix(g), i+1)
	}
	return &Profile{n: n, grams: grams, index: index}
}

// N returns the gram length of the profile.
func (p *Profile) N() int {
	return p.n
}

// Len returns the number of grams in the profile.
func (p *Profile) Len() int {
	return len(p.grams)
}

// Grams returns a copy of the ranked grams, most frequent first.
func (p *Profile) Grams() []string {
	return slices.Clone(p.grams)
}

// Rank returns the 1-based rank of gram, or false if it is not in the profile.
func (p *Profile) Rank(gram string) (int, bool) {
	if len(gram) != p.n {
		return 0, false
	}
	item := p.index.Get(patricia.Prefix(gram))
	if item == nil {
		return 0, false
	}
	rank, ok := item.(int)
	return rank, ok
}

// Contains reports whether gram is in the profile.
func (p *Profile) Contains(gram string) bool {
	_, ok := p.Rank(gram)
	return ok
}

// Score counts the n-grams of the normalized text that are in the profile.
// Repeated grams count every time they occur.
func (p *Profile) Score(normalized string) int {
	score := 0
	for i := 0; i+p.n <= len(normalized); i++ {
		if p.index.Get(patricia.Prefix(normalized[i:i+p.n])) != nil {
			score++
		}
	}
	return score
}

func isLowerLatin(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}
