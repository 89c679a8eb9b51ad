package eval

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bastiangx/langserve/pkg/identify"
	"github.com/bastiangx/langserve/pkg/ngram"
	"github.com/charmbracelet/log"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func testClassifier(t *testing.T) *identify.Classifier {
	t.Helper()
	en, err := ngram.NewProfile(2, []string{"th", "he"})
	if err != nil {
		t.Fatal(err)
	}
	de, err := ngram.NewProfile(2, []string{"de", "er"})
	if err != nil {
		t.Fatal(err)
	}
	return identify.NewClassifier([]identify.LanguageProfile{
		{Language: identify.Language{Code: "en", Name: "English"}, Profiles: []*ngram.Profile{en}},
		{Language: identify.Language{Code: "de", Name: "German"}, Profiles: []*ngram.Profile{de}},
	}, ngram.Normalizer{})
}

func TestParseLine(t *testing.T) {
	testCases := []struct {
		line        string
		sentence    string
		label       string
		description string
	}{
		{"hello world,en", "hello world", "en", "simple"},
		{"Yes, we have no bananas,en", "Yes, we have no bananas", "en", "comma inside sentence"},
		{"  der Hund,de \r\n", "der Hund", "de", "surrounding whitespace"},
		{",fr", "", "fr", "empty sentence"},
		{"trailing,", "trailing", "", "empty label"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			sentence, label, err := ParseLine(tc.line)
			if err != nil {
				t.Fatalf("ParseLine(%q): %v", tc.line, err)
			}
			if sentence != tc.sentence || label != tc.label {
				t.Errorf("ParseLine(%q) = (%q, %q), expected (%q, %q)",
					tc.line, sentence, label, tc.sentence, tc.label)
			}
		})
	}

	if _, _, err := ParseLine("no separator here"); !errors.Is(err, ErrMalformedLine) {
		t.Errorf("error = %v, expected ErrMalformedLine", err)
	}
}

func TestEvaluateAccuracy(t *testing.T) {
	input := "the,en\nder,de\nder,en\n"

	report, err := Evaluate(strings.NewReader(input), testClassifier(t), Options{PerLabel: true})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if report.Total != 3 || report.Correct != 2 {
		t.Errorf("total/correct = %d/%d, expected 3/2", report.Total, report.Correct)
	}
	if math.Abs(report.Accuracy-2.0/3.0) > 1e-12 {
		t.Errorf("accuracy = %f, expected 2/3", report.Accuracy)
	}

	expected := []LabelStats{
		{Label: "en", Correct: 1, Wrong: 1, Total: 2, Accuracy: 0.5},
		{Label: "de", Correct: 1, Wrong: 0, Total: 1, Accuracy: 1},
	}
	if len(report.PerLabel) != len(expected) {
		t.Fatalf("got %d label rows, expected %d", len(report.PerLabel), len(expected))
	}
	for i, want := range expected {
		if got := report.PerLabel[i]; got != want {
			t.Errorf("label row %d = %+v, expected %+v", i, got, want)
		}
	}
}

func TestEvaluatePerLabelDisabled(t *testing.T) {
	report, err := Evaluate(strings.NewReader("the,en\n"), testClassifier(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.PerLabel) != 0 {
		t.Errorf("expected no per-label rows, got %v", report.PerLabel)
	}
}

func TestEvaluateMalformed(t *testing.T) {
	input := "the,en\nno label here\nder,de\n"

	t.Run("abort", func(t *testing.T) {
		_, err := Evaluate(strings.NewReader(input), testClassifier(t), Options{OnMalformed: MalformedAbort})
		if !errors.Is(err, ErrMalformedLine) {
			t.Fatalf("error = %v, expected ErrMalformedLine", err)
		}
		if !strings.Contains(err.Error(), "line 2") {
			t.Errorf("error %q should name line 2", err)
		}
	})

	t.Run("skip", func(t *testing.T) {
		report, err := Evaluate(strings.NewReader(input), testClassifier(t), Options{OnMalformed: MalformedSkip})
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if report.Total != 2 || report.Correct != 2 || report.Skipped != 1 {
			t.Errorf("total/correct/skipped = %d/%d/%d, expected 2/2/1",
				report.Total, report.Correct, report.Skipped)
		}
	})
}

func TestEvaluateEmpty(t *testing.T) {
	inputs := []string{"", "\n\n  \n", "garbage\n"}
	for _, input := range inputs {
		_, err := Evaluate(strings.NewReader(input), testClassifier(t), Options{OnMalformed: MalformedSkip})
		if !errors.Is(err, ErrEmptySample) {
			t.Errorf("Evaluate(%q) error = %v, expected ErrEmptySample", input, err)
		}
	}
}

func TestEvaluateNoProfiles(t *testing.T) {
	c := identify.NewClassifier(nil, ngram.Normalizer{})
	_, err := Evaluate(strings.NewReader("the,en\n"), c, Options{})
	if !errors.Is(err, identify.ErrNoProfiles) {
		t.Errorf("error = %v, expected identify.ErrNoProfiles", err)
	}
}

func TestEvaluateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentences.txt")
	if err := os.WriteFile(path, []byte("the,en\nder,de\nder,en\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := EvaluateFile(path, testClassifier(t), Options{})
	if err != nil {
		t.Fatalf("EvaluateFile: %v", err)
	}
	if report.Correct != 2 || report.Total != 3 {
		t.Errorf("correct/total = %d/%d, expected 2/3", report.Correct, report.Total)
	}

	_, err = EvaluateFile(filepath.Join(t.TempDir(), "missing.txt"), testClassifier(t), Options{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, expected os.ErrNotExist", err)
	}
}

func TestParsePolicy(t *testing.T) {
	testCases := map[string]MalformedPolicy{
		"":      MalformedAbort,
		"abort": MalformedAbort,
		"SKIP":  MalformedSkip,
		" skip": MalformedSkip,
	}
	for input, expected := range testCases {
		got, err := ParsePolicy(input)
		if err != nil || got != expected {
			t.Errorf("ParsePolicy(%q) = %v, %v, expected %v", input, got, err, expected)
		}
	}
	if _, err := ParsePolicy("retry"); err == nil {
		t.Error("expected an error for an unknown policy")
	}
}
