// Package cli handles the interactive loop: one sentence per line in, detected language and scores out
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bastiangx/langserve/pkg/identify"
	"github.com/charmbracelet/log"
	"github.com/fatih/color"
)

var (
	langColor  = color.New(color.FgCyan, color.Bold)
	scoreColor = color.New(color.FgHiBlack)
)

// InputHandler reads sentences from its input and prints the detected
// language for each. The exit word ends the session, compared
// case-insensitively.
type InputHandler struct {
	classifier   identify.IClassifier
	in           io.Reader
	out          io.Writer
	exitWord     string
	showScores   bool
	requestCount int
}

// NewInputHandler handles initialization of the InputHandler on stdin/stdout
func NewInputHandler(classifier identify.IClassifier, exitWord string, showScores bool) *InputHandler {
	if exitWord == "" {
		exitWord = "exit"
	}
	return &InputHandler{
		classifier: classifier,
		in:         os.Stdin,
		out:        os.Stdout,
		exitWord:   strings.ToLower(exitWord),
		showScores: showScores,
	}
}

// WithIO swaps the input and output streams
func (h *InputHandler) WithIO(in io.Reader, out io.Writer) *InputHandler {
	h.in = in
	h.out = out
	return h
}

// Start begins the interface loop.
// It returns nil once the exit word is read or the input ends, and an error
// if reading fails or the classifier cannot run at all.
func (h *InputHandler) Start() error {
	reader := bufio.NewReader(h.in)

	for {
		fmt.Fprintf(h.out, "Enter a sentence (or '%s' to quit): ", h.exitWord)
		line, err := reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			fmt.Fprintln(h.out)
			if err == io.EOF {
				return nil
			}
			return err
		}

		sentence := strings.TrimSpace(line)
		if strings.ToLower(sentence) == h.exitWord {
			return nil
		}
		if sentence != "" {
			if err := h.handleInput(sentence); err != nil {
				return err
			}
		}
		if err == io.EOF {
			return nil
		}
	}
}

// handleInput classifies one sentence and prints the result.
func (h *InputHandler) handleInput(sentence string) error {
	h.requestCount++
	start := time.Now()

	pred, err := h.classifier.Classify(sentence)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	log.Debugf("Took [ %v ] for request #%d", time.Since(start), h.requestCount)

	fmt.Fprintf(h.out, "The detected language is: %s\n", langColor.Sprint(pred.Language))
	if !h.showScores {
		return nil
	}
	for _, s := range pred.Scores {
		fmt.Fprintf(h.out, "  %-12s %s\n", s.Language, scoreColor.Sprint(s.Score))
	}
	return nil
}
