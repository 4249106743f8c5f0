// Package chunker splits extracted document text into overlapping passages
// sized for embedding and generation context limits.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	// DefaultChunkSize is the default maximum chunk length in runes.
	DefaultChunkSize = 1000

	// DefaultOverlap is the default number of runes adjacent chunks may share.
	DefaultOverlap = 500
)

// DefaultSeparators are tried in priority order.
var DefaultSeparators = []string{" ", ",", "\n"}

// ErrInvalidConfig is returned when a splitter cannot honor its size bounds.
var ErrInvalidConfig = errors.New("invalid chunker configuration")

// Span is a half-open range [Start, End) of rune offsets into the source text.
type Span struct {
	Start int
	End   int
}

// Len is the span's length in runes.
func (s Span) Len() int {
	return s.End - s.Start
}

// RecursiveSplitter packs text greedily at the highest priority separator
// found, recursing on the next separator for pieces that are still too long.
type RecursiveSplitter struct {
	chunkSize  int
	overlap    int
	separators [][]rune
}

// New builds a splitter. An empty separator list uses DefaultSeparators.
func New(chunkSize, overlap int, separators []string) (*RecursiveSplitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidConfig, overlap, chunkSize)
	}

	if len(separators) == 0 {
		separators = DefaultSeparators
	}

	seps := make([][]rune, 0, len(separators))
	for _, s := range separators {
		if s == "" {
			return nil, fmt.Errorf("%w: empty separator", ErrInvalidConfig)
		}
		seps = append(seps, []rune(s))
	}

	return &RecursiveSplitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: seps,
	}, nil
}

// NewDefault builds a splitter with the default size, overlap and separators.
func NewDefault() *RecursiveSplitter {
	s, _ := New(DefaultChunkSize, DefaultOverlap, nil)
	return s
}

// ChunkSize returns the configured maximum chunk length.
func (s *RecursiveSplitter) ChunkSize() int {
	return s.chunkSize
}

// Overlap returns the configured overlap.
func (s *RecursiveSplitter) Overlap() int {
	return s.overlap
}

// Split returns the chunk texts in source order.
func (s *RecursiveSplitter) Split(text string) []string {
	runes := []rune(text)
	spans := s.spans(runes)

	chunks := make([]string, 0, len(spans))
	for _, sp := range spans {
		chunks = append(chunks, string(runes[sp.Start:sp.End]))
	}
	return chunks
}

// Spans returns the rune offsets of every chunk Split would return.
func (s *RecursiveSplitter) Spans(text string) []Span {
	return s.spans([]rune(text))
}

func (s *RecursiveSplitter) spans(runes []rune) []Span {
	if len(runes) == 0 {
		return nil
	}

	all := s.split(runes, Span{Start: 0, End: len(runes)}, 0)

	out := make([]Span, 0, len(all))
	for _, sp := range all {
		if isBlank(runes[sp.Start:sp.End]) {
			continue
		}
		out = append(out, sp)
	}
	return out
}

// split breaks span at the first separator from seps[from:] that occurs in it
// and merges the resulting pieces into chunks.
func (s *RecursiveSplitter) split(runes []rune, span Span, from int) []Span {
	if span.Len() <= s.chunkSize {
		return []Span{span}
	}

	sepIdx := -1
	var cuts []int
	for i := from; i < len(s.separators); i++ {
		cuts = indexAll(runes, s.separators[i], span)
		if len(cuts) > 0 {
			sepIdx = i
			break
		}
	}

	if sepIdx < 0 {
		// Unsplittable: pass through whole.
		return []Span{span}
	}

	pieces := make([]Span, 0, len(cuts)+1)
	start := span.Start
	for _, c := range cuts {
		if c > start {
			pieces = append(pieces, Span{Start: start, End: c})
		}
		start = c
	}
	if span.End > start {
		pieces = append(pieces, Span{Start: start, End: span.End})
	}

	return s.merge(runes, pieces, sepIdx+1)
}

// merge packs contiguous pieces into chunks of at most chunkSize runes. After
// each emitted chunk the window keeps at most overlap runes of trailing
// pieces so the next chunk begins on a piece boundary inside the overlap.
func (s *RecursiveSplitter) merge(runes []rune, pieces []Span, next int) []Span {
	var out []Span
	var window []Span
	windowLen := 0

	emit := func() {
		if len(window) == 0 {
			return
		}
		out = append(out, Span{Start: window[0].Start, End: window[len(window)-1].End})
	}

	for _, p := range pieces {
		if p.Len() > s.chunkSize {
			emit()
			window = window[:0]
			windowLen = 0
			out = append(out, s.split(runes, p, next)...)
			continue
		}

		if windowLen+p.Len() > s.chunkSize && len(window) > 0 {
			emit()
			for len(window) > 0 && (windowLen > s.overlap || windowLen+p.Len() > s.chunkSize) {
				windowLen -= window[0].Len()
				window = window[1:]
			}
		}

		window = append(window, p)
		windowLen += p.Len()
	}

	emit()
	return out
}

func indexAll(runes, sep []rune, span Span) []int {
	var idx []int
	for i := span.Start; i+len(sep) <= span.End; i++ {
		if matchAt(runes, sep, i) {
			idx = append(idx, i)
			i += len(sep) - 1
		}
	}
	return idx
}

func matchAt(runes, sep []rune, at int) bool {
	for j, r := range sep {
		if runes[at+j] != r {
			return false
		}
	}
	return true
}

func isBlank(runes []rune) bool {
	return strings.IndexFunc(string(runes), func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
