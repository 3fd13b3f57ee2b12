// Package chunking splits document text into overlapping windows for embedding.
//
// Lengths are counted in runes. Window ends prefer natural boundaries and fall
// back to a hard cut when none is found in the lookback region.
package chunking

import (
	"iter"
	"strings"

	"github.com/Kar2410/FLOW-FIX/internal/domain/searchErrors"
)

// boundaries in order of preference; a cut is placed right after the separator.
var boundaries = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune("? "),
	[]rune("! "),
	[]rune(" "),
}

// Span is a half-open [Start, End) rune range of the trimmed input.
type Span struct {
	Start int
	End   int
}

type Policy struct {
	ChunkSize    int
	ChunkOverlap int
}

func (p Policy) Validate() error {
	switch {
	case p.ChunkSize <= 0:
		return searchErrors.New(searchErrors.ErrInvalidParameter, "chunking", "chunkSize must be positive, got %d", p.ChunkSize)
	case p.ChunkOverlap < 0:
		return searchErrors.New(searchErrors.ErrInvalidParameter, "chunking", "chunkOverlap must not be negative, got %d", p.ChunkOverlap)
	case p.ChunkOverlap >= p.ChunkSize:
		return searchErrors.New(searchErrors.ErrInvalidParameter, "chunking", "chunkOverlap %d must be smaller than chunkSize %d", p.ChunkOverlap, p.ChunkSize)
	}
	return nil
}

// Split returns the chunks of text. The sequence is lazy and can be ranged over
// any number of times with the same output.
func Split(text string, chunkSize, chunkOverlap int) (iter.Seq[string], error) {
	return Policy{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}.Split(text)
}

func (p Policy) Split(text string) (iter.Seq[string], error) {
	spans, err := p.Spans(text)
	if err != nil {
		return nil, err
	}
	runes := []rune(strings.TrimSpace(text))
	return func(yield func(string) bool) {
		for span := range spans {
			chunk := strings.TrimSpace(string(runes[span.Start:span.End]))
			if chunk == "" {
				continue
			}
			if !yield(chunk) {
				return
			}
		}
	}, nil
}

// Spans returns the windows over the trimmed input. Adjacent spans overlap by
// exactly ChunkOverlap runes and together cover the whole input.
func Spans(text string, chunkSize, chunkOverlap int) (iter.Seq[Span], error) {
	return Policy{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}.Spans(text)
}

func (p Policy) Spans(text string) (iter.Seq[Span], error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	runes := []rune(strings.TrimSpace(text))
	return func(yield func(Span) bool) {
		n := len(runes)
		if n == 0 {
			return
		}
		start := 0
		for {
			end := start + p.ChunkSize
			if end >= n {
				yield(Span{Start: start, End: n})
				return
			}
			end = p.cut(runes, start, end)
			if !yield(Span{Start: start, End: end}) {
				return
			}
			start = end - p.ChunkOverlap
		}
	}, nil
}

// cut picks the window end in (start+overlap, limit]. The lower bound keeps the
// next window start strictly ahead of the current one.
func (p Policy) cut(runes []rune, start, limit int) int {
	lo := max(limit-p.ChunkSize/2, start+p.ChunkOverlap+1)
	for _, sep := range boundaries {
		for pos := limit; pos >= lo; pos-- {
			if hasSuffixAt(runes, pos, sep) {
				return pos
			}
		}
	}
	return limit
}

func hasSuffixAt(runes []rune, pos int, sep []rune) bool {
	if pos < len(sep) {
		return false
	}
	for i, r := range sep {
		if runes[pos-len(sep)+i] != r {
			return false
		}
	}
	return true
}
