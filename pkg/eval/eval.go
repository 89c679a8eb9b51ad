/*
Package eval measures classifier accuracy over a labeled sentence file.

Each line holds a sentence and its language code, separated by the last comma
on the line, so sentences may contain commas themselves:

	Yes, we have no bananas,en
	Der Hund schläft,de

Blank lines are ignored. A line without any comma is malformed; by default it
aborts the run (MalformedAbort), MalformedSkip logs a warning and moves on.

Accuracy is correct / total. An input without a single usable example has no
accuracy and returns ErrEmptySample.
*/
package eval

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bastiangx/langserve/internal/logger"
	"github.com/bastiangx/langserve/pkg/identify"
)

var (
	// ErrMalformedLine marks a line without a label separator.
	ErrMalformedLine = errors.New("eval: line has no ',' separator")
	// ErrEmptySample is returned when no example was evaluated.
	ErrEmptySample = errors.New("eval: no examples to evaluate")
)

// MalformedPolicy decides what happens to lines that cannot be parsed.
type MalformedPolicy int

const (
	MalformedAbort MalformedPolicy = iota // stop the run with an error
	MalformedSkip                         // warn and continue
)

// ParsePolicy maps a config value ("abort", "skip") to a MalformedPolicy.
func ParsePolicy(s string) (MalformedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return MalformedAbort, nil
	case "skip":
		return MalformedSkip, nil
	}
	return MalformedAbort, fmt.Errorf("eval: unknown malformed-line policy %q", s)
}

func (p MalformedPolicy) String() string {
	if p == MalformedSkip {
		return "skip"
	}
	return "abort"
}

// Options controls an evaluation run.
type Options struct {
	OnMalformed MalformedPolicy
	PerLabel    bool
}

// LabelStats is the accuracy breakdown for one true label.
type LabelStats struct {
	Label    string
	Correct  int
	Wrong    int
	Total    int
	Accuracy float64
}

// Report is the outcome of an evaluation run.
type Report struct {
	Total    int
	Correct  int
	Skipped  int
	Accuracy float64
	// PerLabel is in first-seen label order, empty unless Options.PerLabel.
	PerLabel []LabelStats
	Elapsed  time.Duration
}

// ParseLine splits a "sentence,label" line on its last comma.
func ParseLine(line string) (sentence, label string, err error) {
	line = strings.TrimSpace(line)
	i := strings.LastIndexByte(line, ',')
	if i < 0 {
		return "", "", ErrMalformedLine
	}
	return line[:i], line[i+1:], nil
}

// Evaluate classifies every line of r and compares the prediction's language
// code to the line's label.
func Evaluate(r io.Reader, c identify.IClassifier, opts Options) (*Report, error) {
	lg := logger.New("eval")
	start := time.Now()

	report := &Report{}
	labelIndex := make(map[string]int)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		sentence, label, err := ParseLine(line)
		if err != nil {
			if opts.OnMalformed == MalformedSkip {
				lg.Warnf("Skipping line %d: %v", lineNo, err)
				report.Skipped++
				continue
			}
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		pred, err := c.Classify(sentence)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		hit := pred.Language.Code == label
		report.Total++
		if hit {
			report.Correct++
		}
		lg.Debug("classified", "line", lineNo, "label", label, "predicted", pred.Language.Code)

		if !opts.PerLabel {
			continue
		}
		i, ok := labelIndex[label]
		if !ok {
			i = len(report.PerLabel)
			labelIndex[label] = i
			report.PerLabel = append(report.PerLabel, LabelStats{Label: label})
		}
		stats := &report.PerLabel[i]
		stats.Total++
		if hit {
			stats.Correct++
		} else {
			stats.Wrong++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read evaluation input: %w", err)
	}

	if report.Total == 0 {
		return nil, ErrEmptySample
	}

	report.Accuracy = float64(report.Correct) / float64(report.Total)
	for i := range report.PerLabel {
		s := &report.PerLabel[i]
		if s.Total > 0 {
			s.Accuracy = float64(s.Correct) / float64(s.Total)
		}
	}
	report.Elapsed = time.Since(start)

	lg.Debugf("Evaluated %d lines in [ %v ]", report.Total, report.Elapsed)
	return report, nil
}

// EvaluateFile opens path and evaluates it.
func EvaluateFile(path string, c identify.IClassifier, opts Options) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open evaluation file %s: %w", path, err)
	}
	defer f.Close()

	report, err := Evaluate(f, c, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return report, nil
}
