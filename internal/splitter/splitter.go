// Package splitter cuts text into overlapping chunks for embedding.
package splitter

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/kioku/internal/models"
)

// ErrInvalidConfig is returned by New for unusable size/overlap combinations.
var ErrInvalidConfig = errors.New("invalid chunk configuration")

// DefaultSeparators orders split points from coarsest to finest: paragraph
// breaks, line breaks, sentence ends, word boundaries. Segments that no
// listed separator divides are hard-cut at the chunk size.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

// Splitter cuts text into chunks of at most chunkSize runes, with adjacent
// chunks sharing chunkOverlap trailing runes. All counts and cut points are
// in runes, never bytes. Splitting is deterministic: the same input always
// produces the same chunks.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// New creates a splitter using DefaultSeparators. chunkSize and chunkOverlap
// are measured in runes; the overlap must be smaller than the size.
func New(chunkSize, chunkOverlap int) (*Splitter, error) {
	return NewWithSeparators(chunkSize, chunkOverlap, DefaultSeparators)
}

// NewWithSeparators creates a splitter with a custom separator list, ordered
// coarse to fine. Empty separators are ignored; hard cutting is always the
// terminal stage.
func NewWithSeparators(chunkSize, chunkOverlap int, separators []string) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidConfig, chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap %d must not be negative", ErrInvalidConfig, chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", ErrInvalidConfig, chunkOverlap, chunkSize)
	}
	seps := make([]string, 0, len(separators))
	for _, sep := range separators {
		if sep != "" {
			seps = append(seps, sep)
		}
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   seps,
	}, nil
}

// Split cuts text into chunks. Empty or whitespace-only input yields nil.
func (s *Splitter) Split(text string) []models.Chunk {
	return s.SplitDocument(text, nil)
}

// SplitDocument cuts text into chunks, stamping each chunk's metadata with
// its ordinal and a copy of base. Chunks with the overlap prefix removed
// concatenate back to the original text exactly.
func (s *Splitter) SplitDocument(text string, base map[string]interface{}) []models.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	contents := s.merge(s.decompose(text))
	chunks := make([]models.Chunk, 0, len(contents))
	for i, content := range contents {
		meta := make(map[string]interface{}, len(base)+1)
		for k, v := range base {
			meta[k] = v
		}
		meta[models.MetaChunkIndex] = i
		chunks = append(chunks, models.Chunk{Content: content, Metadata: meta})
	}
	return chunks
}

// segment is a stretch of text still waiting to be cut, plus the separator
// list position to try next.
type segment struct {
	text string
	sep  int
}

// decompose cuts text into an ordered list of pieces of at most chunkSize
// runes each. Separators stay attached to the start of the piece that
// follows them and nothing is trimmed, so the pieces concatenate back to the
// original text exactly. An explicit stack replaces call recursion; pieces
// that already fit are kept as coarse as possible.
func (s *Splitter) decompose(text string) []string {
	var pieces []string
	stack := []segment{{text: text}}
	for len(stack) > 0 {
		seg := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if utf8.RuneCountInString(seg.text) <= s.chunkSize {
			pieces = append(pieces, seg.text)
			continue
		}
		parts, next := s.divide(seg.text, seg.sep)
		// Reverse push so the leftmost part is processed first.
		for i := len(parts) - 1; i >= 0; i-- {
			stack = append(stack, segment{text: parts[i], sep: next})
		}
	}
	return pieces
}

// divide splits an oversized segment on the first separator, at list
// position sep or finer, that actually divides it. When none does, the
// segment is hard-cut into chunkSize-rune runs.
func (s *Splitter) divide(text string, sep int) ([]string, int) {
	for i := sep; i < len(s.separators); i++ {
		if parts := splitBefore(text, s.separators[i]); len(parts) > 1 {
			return parts, i + 1
		}
	}
	return hardCut(text, s.chunkSize), len(s.separators)
}

// splitBefore cuts text immediately before each occurrence of sep. The
// separators in this package are ASCII, so the byte cut points are always
// rune boundaries.
func splitBefore(text, sep string) []string {
	var parts []string
	start, from := 0, 0
	for {
		idx := strings.Index(text[from:], sep)
		if idx < 0 {
			break
		}
		cut := from + idx
		if cut > start {
			parts = append(parts, text[start:cut])
			start = cut
		}
		from = cut + len(sep)
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	return parts
}

// hardCut slices text into runs of at most max runes. It is the terminal
// stage for stretches without any separator, such as very long words.
func hardCut(text string, max int) []string {
	runes := []rune(text)
	parts := make([]string, 0, (len(runes)+max-1)/max)
	for start := 0; start < len(runes); start += max {
		end := start + max
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}

// merge greedily packs pieces into chunks of at most chunkSize runes. When a
// chunk fills up it is emitted and its trailing chunkOverlap runes seed the
// next one, unless the incoming piece needs the whole budget, in which case
// the carry is skipped.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var buf strings.Builder
	bufRunes := 0
	for _, piece := range pieces {
		pieceRunes := utf8.RuneCountInString(piece)
		if bufRunes > 0 && bufRunes+pieceRunes > s.chunkSize {
			chunk := buf.String()
			chunks = append(chunks, chunk)
			buf.Reset()
			bufRunes = 0
			carry := tailRunes(chunk, s.chunkOverlap)
			carryRunes := utf8.RuneCountInString(carry)
			if carryRunes > 0 && carryRunes+pieceRunes <= s.chunkSize {
				buf.WriteString(carry)
				bufRunes = carryRunes
			}
		}
		buf.WriteString(piece)
		bufRunes += pieceRunes
	}
	if buf.Len() > 0 {
		chunks = append(chunks, buf.String())
	}
	return chunks
}

// tailRunes returns the last n runes of text.
func tailRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}
