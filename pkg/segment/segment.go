// Package segment splits free text into the sentences analysed for contradictions.
package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultMinWords is the minimum number of whitespace tokens a fragment needs to be kept.
const DefaultMinWords = 3

// Segmenter turns text into an ordered list of sentences.
type Segmenter interface {
	Split(text string) []string
}

// RuleSegmenter splits on terminal punctuation followed by whitespace and a capital
// letter or opening quote.
type RuleSegmenter struct {
	MinWords int
}

// Default returns the rule-based segmenter with the default minimum fragment length.
func Default() *RuleSegmenter {
	return &RuleSegmenter{MinWords: DefaultMinWords}
}

// Split normalises text and returns the kept sentences with trailing terminal
// punctuation removed.
func (s *RuleSegmenter) Split(text string) []string {
	minWords := s.MinWords
	if minWords <= 0 {
		minWords = DefaultMinWords
	}

	text = Normalize(text)
	if text == "" {
		return nil
	}

	var out []string
	for _, frag := range splitFragments(text) {
		frag = strings.TrimSpace(frag)
		if len(strings.Fields(frag)) < minWords {
			continue
		}
		frag = strings.TrimSpace(strings.TrimRight(frag, ".!?"))
		if frag != "" {
			out = append(out, frag)
		}
	}
	return out
}

// Normalize applies NFKC and collapses runs of whitespace into single spaces.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	return strings.Join(strings.Fields(text), " ")
}

// splitFragments cuts after [.!?] when followed by a space and a sentence opener.
// Input must already be whitespace-normalised.
func splitFragments(text string) []string {
	var frags []string
	start := 0
	for i := 0; i < len(text); i++ {
		if !isTerminal(text[i]) || i+2 >= len(text) || text[i+1] != ' ' {
			continue
		}
		next, _ := utf8.DecodeRuneInString(text[i+2:])
		if !opensSentence(next) {
			continue
		}
		frags = append(frags, text[start:i+1])
		start = i + 2
		i++
	}
	return append(frags, text[start:])
}

func isTerminal(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func opensSentence(r rune) bool {
	switch r {
	case '"', '\'', '“', '‘', '«':
		return true
	}
	return unicode.IsUpper(r) || unicode.IsTitle(r)
}
