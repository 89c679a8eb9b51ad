package identify

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/bastiangx/langserve/pkg/ngram"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// DefaultSizes are the gram lengths profiled for every language.
var DefaultSizes = []int{2, 3}

// ErrDuplicateLanguage is returned when two corpora share a language code.
var ErrDuplicateLanguage = errors.New("identify: duplicate language code")

// Corpus points at the reference text of one language.
type Corpus struct {
	Language Language
	Path     string
}

// BuildOptions controls profile construction.
type BuildOptions struct {
	Sizes      []int
	Top        int
	Normalizer ngram.Normalizer
	// Jobs limits concurrent corpus builds, 0 means GOMAXPROCS.
	Jobs int
}

func (o BuildOptions) withDefaults() BuildOptions {
	if len(o.Sizes) == 0 {
		o.Sizes = DefaultSizes
	}
	if o.Top == 0 {
		o.Top = ngram.DefaultTop
	}
	if o.Jobs <= 0 {
		o.Jobs = runtime.GOMAXPROCS(0)
	}
	return o
}

// BuildLanguageProfile profiles text at every configured gram length.
func BuildLanguageProfile(lang Language, text string, opts BuildOptions) (LanguageProfile, error) {
	opts = opts.withDefaults()
	lp := LanguageProfile{
		Language: lang,
		Profiles: make([]*ngram.Profile, 0, len(opts.Sizes)),
	}
	for _, n := range opts.Sizes {
		p, err := opts.Normalizer.BuildProfile(text, n, opts.Top)
		if err != nil {
			return LanguageProfile{}, fmt.Errorf("%s: %w", lang.Code, err)
		}
		lp.Profiles = append(lp.Profiles, p)
	}
	return lp, nil
}

// BuildProfiles reads every corpus and builds its language profile.
// Corpora are processed concurrently; the result keeps the order of corpora,
// which is the classifier's tie-break order. Any unreadable corpus aborts the
// whole build.
func BuildProfiles(ctx context.Context, corpora []Corpus, opts BuildOptions) ([]LanguageProfile, error) {
	opts = opts.withDefaults()

	seen := make(map[string]bool, len(corpora))
	for _, c := range corpora {
		if seen[c.Language.Code] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLanguage, c.Language.Code)
		}
		seen[c.Language.Code] = true
	}
	if len(corpora) == 0 {
		return nil, ErrNoProfiles
	}

	start := time.Now()
	// each goroutine owns results[i]
	results := make([]LanguageProfile, len(corpora))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(opts.Jobs, len(corpora)))

	for i, c := range corpora {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			text, err := ngram.LoadCorpus(c.Path)
			if err != nil {
				return err
			}
			lp, err := BuildLanguageProfile(c.Language, text, opts)
			if err != nil {
				return err
			}
			log.Debugf("Profiled %s from %s (%d bytes)", c.Language.Code, c.Path, len(text))
			results[i] = lp
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debugf("Built %d language profiles in [ %v ]", len(results), time.Since(start))
	return results, nil
}
