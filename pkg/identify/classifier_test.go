package identify

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/bastiangx/langserve/pkg/ngram"
	"github.com/charmbracelet/log"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func mustProfile(t *testing.T, n int, grams ...string) *ngram.Profile {
	t.Helper()
	p, err := ngram.NewProfile(n, grams)
	if err != nil {
		t.Fatalf("NewProfile(%d, %v): %v", n, grams, err)
	}
	return p
}

var (
	english = Language{Code: "en", Name: "English"}
	german  = Language{Code: "de", Name: "German"}
	french  = Language{Code: "fr", Name: "French"}
)

func TestClassifyHelloWorld(t *testing.T) {
	profiles := []LanguageProfile{
		{Language: english, Profiles: []*ngram.Profile{
			mustProfile(t, 2, "he", "ll", "wo"),
			mustProfile(t, 3, "ell", "orl"),
		}},
		{Language: german, Profiles: []*ngram.Profile{
			mustProfile(t, 2, "ch", "ei"),
			mustProfile(t, 3, "sch", "ein"),
		}},
	}
	c := NewClassifier(profiles, ngram.Normalizer{})

	pred, err := c.Classify("hello world")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if pred.Language != english {
		t.Errorf("predicted %v, expected English", pred.Language)
	}
	if score, _ := pred.ScoreOf("en"); score != 5 {
		t.Errorf("en score = %d, expected 5", score)
	}
	if score, _ := pred.ScoreOf("de"); score != 0 {
		t.Errorf("de score = %d, expected 0", score)
	}
}

// Equal top scores go to the language supplied first
func TestClassifyTieBreak(t *testing.T) {
	same := func(lang Language) LanguageProfile {
		return LanguageProfile{Language: lang, Profiles: []*ngram.Profile{mustProfile(t, 2, "ab")}}
	}

	testCases := []struct {
		order       []Language
		expected    Language
		description string
	}{
		{[]Language{english, german, french}, english, "english first"},
		{[]Language{french, english, german}, french, "french first"},
		{[]Language{german, french, english}, german, "german first"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			var profiles []LanguageProfile
			for _, l := range tc.order {
				profiles = append(profiles, same(l))
			}
			pred, err := NewClassifier(profiles, ngram.Normalizer{}).Classify("abab")
			if err != nil {
				t.Fatal(err)
			}
			if pred.Language != tc.expected {
				t.Errorf("predicted %v, expected %v", pred.Language, tc.expected)
			}
			for i, s := range pred.Scores {
				if s.Language != tc.order[i] {
					t.Errorf("score %d is for %v, expected %v", i, s.Language, tc.order[i])
				}
			}
		})
	}
}

func TestClassifyTieBreakLaterHigher(t *testing.T) {
	profiles := []LanguageProfile{
		{Language: english, Profiles: []*ngram.Profile{mustProfile(t, 2, "ab")}},
		{Language: german, Profiles: []*ngram.Profile{mustProfile(t, 2, "ab", "ba")}},
	}
	pred, err := NewClassifier(profiles, ngram.Normalizer{}).Classify("aba")
	if err != nil {
		t.Fatal(err)
	}
	if pred.Language != german {
		t.Errorf("predicted %v, expected German", pred.Language)
	}
}

func TestClassifyEmptyProfiles(t *testing.T) {
	c := NewClassifier(nil, ngram.Normalizer{})
	_, err := c.Classify("hello")
	if !errors.Is(err, ErrNoProfiles) {
		t.Errorf("error = %v, expected ErrNoProfiles", err)
	}
}

// A sentence with no letters still classifies: all scores are zero and the
// first language wins
func TestClassifyEmptySentence(t *testing.T) {
	profiles := []LanguageProfile{
		{Language: german, Profiles: []*ngram.Profile{mustProfile(t, 2, "de")}},
		{Language: english, Profiles: []*ngram.Profile{mustProfile(t, 2, "en")}},
	}
	for _, sentence := range []string{"", "123 ?!", "x"} {
		pred, err := NewClassifier(profiles, ngram.Normalizer{}).Classify(sentence)
		if err != nil {
			t.Fatalf("Classify(%q): %v", sentence, err)
		}
		if pred.Language != german {
			t.Errorf("Classify(%q) = %v, expected German", sentence, pred.Language)
		}
		for _, s := range pred.Scores {
			if s.Score != 0 {
				t.Errorf("Classify(%q) %v score = %d, expected 0", sentence, s.Language, s.Score)
			}
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	en, _ := BuildLanguageProfile(english, "the cat sat on the mat with the hat", BuildOptions{})
	de, _ := BuildLanguageProfile(german, "der hund und die katze sind in dem haus", BuildOptions{})
	c := NewClassifier([]LanguageProfile{en, de}, ngram.Normalizer{})

	first, err := c.Classify("the hat and the cat")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			again, err := c.Classify("the hat and the cat")
			if err != nil {
				t.Error(err)
				return
			}
			if again.Language != first.Language || !slices.Equal(again.Scores, first.Scores) {
				t.Errorf("non-deterministic result: %v vs %v", again, first)
			}
		}()
	}
	wg.Wait()

	if first.Language != english {
		t.Errorf("predicted %v, expected English", first.Language)
	}
}

func TestClassifyFoldDiacritics(t *testing.T) {
	nz := ngram.Normalizer{FoldDiacritics: true}
	fr, err := BuildLanguageProfile(french, "été café élève", BuildOptions{Normalizer: nz})
	if err != nil {
		t.Fatal(err)
	}
	c := NewClassifier([]LanguageProfile{fr}, nz)
	pred, _ := c.Classify("ÉTÉ")
	if score, _ := pred.ScoreOf("fr"); score == 0 {
		t.Error("folded sentence should match folded profile")
	}
}

func writeCorpus(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildProfiles(t *testing.T) {
	dir := t.TempDir()
	corpora := []Corpus{
		{Language: english, Path: writeCorpus(t, dir, "english.txt", "the quick brown fox jumps over the lazy dog")},
		{Language: german, Path: writeCorpus(t, dir, "german.txt", "der schnelle braune fuchs springt über den faulen hund")},
		{Language: french, Path: writeCorpus(t, dir, "french.txt", "le renard brun rapide saute par dessus le chien paresseux")},
	}

	profiles, err := BuildProfiles(context.Background(), corpora, BuildOptions{Top: 100})
	if err != nil {
		t.Fatalf("BuildProfiles: %v", err)
	}
	if len(profiles) != len(corpora) {
		t.Fatalf("got %d profiles, expected %d", len(profiles), len(corpora))
	}

	for i, lp := range profiles {
		if lp.Language != corpora[i].Language {
			t.Errorf("profile %d is %v, expected %v", i, lp.Language, corpora[i].Language)
		}
		if len(lp.Profiles) != 2 || lp.Profiles[0].N() != 2 || lp.Profiles[1].N() != 3 {
			t.Errorf("%v: expected bigram and trigram profiles", lp.Language)
		}
	}

	c := NewClassifier(profiles, ngram.Normalizer{})
	pred, err := c.Classify("the lazy dog jumps")
	if err != nil {
		t.Fatal(err)
	}
	if pred.Language != english {
		t.Errorf("predicted %v, expected English", pred.Language)
	}
}

func TestBuildProfilesMissingCorpus(t *testing.T) {
	dir := t.TempDir()
	corpora := []Corpus{
		{Language: english, Path: writeCorpus(t, dir, "english.txt", "hello")},
		{Language: german, Path: filepath.Join(dir, "german.txt")},
	}
	_, err := BuildProfiles(context.Background(), corpora, BuildOptions{})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error = %v, expected fs.ErrNotExist", err)
	}
}

func TestBuildProfilesDuplicateCode(t *testing.T) {
	corpora := []Corpus{
		{Language: english, Path: "a.txt"},
		{Language: Language{Code: "en", Name: "Also English"}, Path: "b.txt"},
	}
	_, err := BuildProfiles(context.Background(), corpora, BuildOptions{})
	if !errors.Is(err, ErrDuplicateLanguage) {
		t.Errorf("error = %v, expected ErrDuplicateLanguage", err)
	}
}

func TestBuildProfilesEmpty(t *testing.T) {
	_, err := BuildProfiles(context.Background(), nil, BuildOptions{})
	if !errors.Is(err, ErrNoProfiles) {
		t.Errorf("error = %v, expected ErrNoProfiles", err)
	}
}
