/*
Package ngram extracts fixed-length character n-grams and builds ranked
frequency profiles from raw corpus text.

Text is normalized before extraction: it is lowercased and every byte that is
not one of the 26 lowercase Latin letters is dropped. Spaces, digits,
punctuation and non-Latin letters never take part in a gram.

	grams := ngram.Extract(ngram.Normalize("Hello, World"), 2)
	// [he el ll lo ow wo or rl ld]

A Profile keeps the `top` most frequent grams of a corpus, ranked by
descending frequency. Grams with equal frequency keep the order in which they
were first seen in the corpus.

	p, err := ngram.BuildProfile("banana", 2, 10)
	// p.Grams() == [an na ba]

Accented codepoints are stripped like any other non [a-z] character, so "é"
disappears entirely. Setting Normalizer.FoldDiacritics decomposes the text
(NFD) first, which keeps the base letter and drops the combining mark.
*/
package ngram

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidSize is returned when a gram length or profile size is below 1.
var ErrInvalidSize = errors.New("ngram: size must be >= 1")

// Normalizer holds the text normalization options shared by corpora and
// classified sentences. The zero value is the plain lowercase + [a-z] filter.
type Normalizer struct {
	FoldDiacritics bool
}

// Normalize lowercases text and keeps only the bytes a-z.
func (nz Normalizer) Normalize(text string) string {
	text = strings.ToLower(text)
	if nz.FoldDiacritics {
		text = norm.NFD.String(text)
	}

	var sb strings.Builder
	sb.Grow(len(text))
	// multi-byte UTF-8 sequences only contain bytes >= 0x80
	for i := 0; i < len(text); i++ {
		if c := text[i]; c >= 'a' && c <= 'z' {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// Normalize applies the default Normalizer.
func Normalize(text string) string {
	return Normalizer{}.Normalize(text)
}

// Extract returns every overlapping substring of length n in text, left to
// right. A text of length L yields max(L-n+1, 0) grams.
// text is expected to be normalized already.
func Extract(text string, n int) []string {
	if n < 1 || len(text) < n {
		return []string{}
	}
	grams := make([]string, 0, len(text)-n+1)
	for i := 0; i+n <= len(text); i++ {
		grams = append(grams, text[i:i+n])
	}
	return grams
}

// Count is a distinct gram with its number of occurrences.
type Count struct {
	Gram string
	Freq int
}

// CountGrams counts grams and returns the distinct ones in first-seen order.
func CountGrams(grams []string) []Count {
	index := make(map[string]int, len(grams))
	counts := make([]Count, 0, len(grams)/2+1)
	for _, g := range grams {
		if i, ok := index[g]; ok {
			counts[i].Freq++
			continue
		}
		index[g] = len(counts)
		counts = append(counts, Count{Gram: g, Freq: 1})
	}
	return counts
}

// LoadCorpus reads a whole corpus file into memory.
func LoadCorpus(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read corpus %s: %w", path, err)
	}
	return string(data), nil
}
