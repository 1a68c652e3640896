// Package chunk splits extracted text into bounded-size pieces for
// translation, preferring paragraph boundaries and falling back to
// sentence boundaries for oversized paragraphs.
package chunk

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the target chunk size in runes
const DefaultChunkSize = 3000

// sentence-terminating runes, including CJK full stops
var sentenceEndings = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true,
}

// Splitter cuts text into chunks no larger than ChunkSize runes where
// possible. A paragraph longer than the target is split on sentence
// boundaries; a single sentence longer than the target is hard-cut. All
// sizes are measured in runes so multi-byte text packs against the same
// budget it is cut against.
type Splitter struct {
	ChunkSize int
}

// NewSplitter creates a Splitter with the given target size, falling back
// to DefaultChunkSize for non-positive values
func NewSplitter(size int) *Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &Splitter{ChunkSize: size}
}

// Split cuts text into chunks. Whitespace-only input yields no chunks.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= s.ChunkSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		paraLen := utf8.RuneCountInString(para)

		if paraLen > s.ChunkSize {
			flush()
			chunks = append(chunks, s.splitBySentences(para)...)
			continue
		}

		if currentLen > 0 && currentLen+paraLen+2 > s.ChunkSize {
			flush()
		}
		if currentLen > 0 {
			current.WriteString("\n\n")
			currentLen += 2
		}
		current.WriteString(para)
		currentLen += paraLen
	}
	flush()
	return chunks
}

// splitBySentences groups sentences into chunks of at most ChunkSize runes,
// hard-cutting any single sentence that exceeds it
func (s *Splitter) splitBySentences(text string) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
			currentLen = 0
		}
	}

	for _, sentence := range splitSentences(text) {
		sentenceLen := utf8.RuneCountInString(sentence)

		if sentenceLen > s.ChunkSize {
			flush()
			// hard cut on rune boundaries
			runes := []rune(sentence)
			for len(runes) > s.ChunkSize {
				chunks = append(chunks, string(runes[:s.ChunkSize]))
				runes = runes[s.ChunkSize:]
			}
			if len(runes) > 0 {
				current.WriteString(string(runes))
				currentLen = len(runes)
			}
			continue
		}

		if currentLen > 0 && currentLen+sentenceLen+1 > s.ChunkSize {
			flush()
		}
		if currentLen > 0 {
			current.WriteString(" ")
			currentLen++
		}
		current.WriteString(sentence)
		currentLen += sentenceLen
	}
	flush()
	return chunks
}

// splitSentences cuts text after sentence-terminating punctuation
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if !sentenceEndings[r] {
			continue
		}
		// Only cut when the terminator ends the text or precedes whitespace,
		// so decimals and abbreviated tokens stay intact.
		if i+1 == len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' {
			sentence := strings.TrimSpace(current.String())
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}
