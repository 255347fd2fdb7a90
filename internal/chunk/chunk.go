// Package chunk splits knowledge content into bounded-size segments for
// embedding.
//
// Splitting favors semantic boundaries: paragraphs are greedily packed into
// chunks up to the configured size, and a paragraph that alone exceeds the
// size is further split on sentence boundaries. A single sentence longer
// than the chunk size stands alone rather than being cut mid-sentence, so
// chunk text is only ever a soft bound.
package chunk

import (
	"regexp"
	"strings"
)

// DefaultSize is the default maximum chunk length in bytes.
const DefaultSize = 500

// paragraphSep matches one or more blank-line paragraph separators.
var paragraphSep = regexp.MustCompile(`\n\n+`)

// Chunk is one bounded segment of a larger content body.
// Index is 0-based; Total is the same across all chunks of one Split call.
type Chunk struct {
	Text  string
	Index int
	Total int
}

// Splitter splits text into chunks of at most Size bytes where possible.
// The zero value is not usable; construct with New.
type Splitter struct {
	size int
}

// New creates a Splitter with the given maximum chunk size.
// A non-positive size falls back to DefaultSize.
func New(size int) *Splitter {
	if size <= 0 {
		size = DefaultSize
	}
	return &Splitter{size: size}
}

// Size returns the configured maximum chunk length.
func (s *Splitter) Size() int {
	return s.size
}

// Split splits content into ordered chunks.
//
// Empty or whitespace-only content yields nil; callers treat this as
// nothing to index, not an error. Content that fits in one chunk is
// returned verbatim (trimmed) without the title. When multiple chunks
// result, title (if non-empty) is prepended as a heading to the first
// chunk only, so the lead chunk stays self-describing in isolation.
func (s *Splitter) Split(content, title string) []Chunk {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	if len(content) <= s.size {
		return []Chunk{{Text: content, Index: 0, Total: 1}}
	}

	raw := s.splitByParagraphs(content)

	chunks := make([]Chunk, 0, len(raw))
	for i, text := range raw {
		text = strings.TrimSpace(text)
		if i == 0 && title != "" && len(raw) > 1 {
			text = title + "\n\n" + text
		}
		chunks = append(chunks, Chunk{Text: text, Index: i, Total: len(raw)})
	}

	return chunks
}

// splitByParagraphs splits content on blank lines, greedily combining
// consecutive paragraphs while they fit. Oversize paragraphs are broken
// on sentence boundaries with the same greedy rule.
func (s *Splitter) splitByParagraphs(content string) []string {
	var chunks []string
	var current string

	for _, para := range paragraphSep.Split(content, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if len(para) > s.size {
			if current != "" {
				chunks = append(chunks, current)
				current = ""
			}

			for _, sentence := range splitSentences(para) {
				if len(current)+len(sentence) <= s.size {
					if current != "" {
						current += " "
					}
					current += sentence
				} else {
					if current != "" {
						chunks = append(chunks, current)
					}
					current = sentence
				}
			}
			continue
		}

		// The +2 accounts for the "\n\n" separator restored on join.
		if len(current)+len(para)+2 <= s.size {
			if current != "" {
				current += "\n\n"
			}
			current += para
		} else {
			if current != "" {
				chunks = append(chunks, current)
			}
			current = para
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}

	return chunks
}

// splitSentences splits text on sentence-ending punctuation (. ! ?)
// followed by whitespace. The punctuation stays with its sentence, the
// whitespace run is consumed. Text with no sentence boundary is returned
// as a single element.
func splitSentences(text string) []string {
	var sentences []string
	start := 0

	for i := 0; i < len(text); i++ {
		c := text[i]
		if (c == '.' || c == '!' || c == '?') && i+1 < len(text) && isSpace(text[i+1]) {
			sentences = append(sentences, text[start:i+1])
			j := i + 1
			for j < len(text) && isSpace(text[j]) {
				j++
			}
			start = j
			i = j - 1
		}
	}

	if start < len(text) {
		sentences = append(sentences, text[start:])
	}

	return sentences
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
