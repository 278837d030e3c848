// Package tokenizer turns message text into normalized word tokens and derives
// the stable identifiers words are stored under.
package tokenizer

import (
	"hash/fnv"
	"regexp"
	"strings"
)

var (
	// Web links are stripped first. Any other scheme must start the text or
	// follow a non-scheme character.
	webURLPattern = regexp.MustCompile(`https?://\S+`)
	urlPattern    = regexp.MustCompile(`(^|[^\p{L}\p{Nd}+.-])[\p{L}][\p{L}\p{Nd}+.-]*://\S+`)

	// A word is a maximal run of letters, digits, hyphens and apostrophes that
	// contains at least one letter.
	wordPattern = regexp.MustCompile(`[-'\p{Nd}]*[\p{L}\p{M}_][-'\p{L}\p{M}\p{Nd}_]*`)
)

// WordCount is a distinct token of one message with the number of times it occurred.
type WordCount struct {
	Word        string
	ID          int64
	Occurrences int
}

// Tokenize lowercases text, drops URLs and returns the words in order of appearance.
// Empty or URL-only input yields an empty slice.
func Tokenize(text string) []string {
	if text == "" {
		return []string{}
	}

	lowered := strings.ToLower(text)
	stripped := webURLPattern.ReplaceAllString(lowered, " ")
	stripped = urlPattern.ReplaceAllString(stripped, "$1 ")

	words := wordPattern.FindAllString(stripped, -1)
	if words == nil {
		return []string{}
	}
	return words
}

// WordID returns the identifier of a normalized word: FNV-1a 64 over its UTF-8
// bytes. The value never depends on process state, so it is safe to persist.
func WordID(word string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(word))
	return int64(h.Sum64()) //nolint:gosec // bit pattern reinterpretation is intended
}

// CountWords collapses a token sequence into distinct words with their
// occurrence counts, keeping first-seen order.
func CountWords(tokens []string) []WordCount {
	if len(tokens) == 0 {
		return nil
	}

	index := make(map[string]int, len(tokens))
	counts := make([]WordCount, 0, len(tokens))
	for _, tok := range tokens {
		if i, ok := index[tok]; ok {
			counts[i].Occurrences++
			continue
		}
		index[tok] = len(counts)
		counts = append(counts, WordCount{Word: tok, ID: WordID(tok), Occurrences: 1})
	}
	return counts
}

// Words returns the distinct words of counts in order.
func Words(counts []WordCount) []string {
	words := make([]string, len(counts))
	for i, c := range counts {
		words[i] = c.Word
	}
	return words
}
