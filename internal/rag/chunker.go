package rag

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// OverlapUnit selects how the overlap parameter is interpreted.
type OverlapUnit string

const (
	// OverlapWords carries floor(overlap/10) trailing words of the previous
	// chunk. This is the historical behaviour and stays the default.
	OverlapWords OverlapUnit = "words"
	// OverlapCharacters carries up to overlap trailing characters of the
	// previous chunk, snapped forward to a word boundary.
	OverlapCharacters OverlapUnit = "characters"
)

// Segment is one chunk split into the text carried over from its predecessor
// and the text it owns. Joining every Core with a single space gives back
// the normalized input.
type Segment struct {
	Overlap string
	Core    string
}

func (s Segment) Text() string {
	if s.Overlap == "" {
		return s.Core
	}
	return s.Overlap + " " + s.Core
}

type Chunker struct {
	size    int
	overlap int
	unit    OverlapUnit
}

type ChunkerOption func(*Chunker)

func WithChunkSize(n int) ChunkerOption {
	return func(c *Chunker) {
		if n > 0 {
			c.size = n
		}
	}
}

func WithOverlap(n int) ChunkerOption {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlap = n
		}
	}
}

func WithOverlapUnit(u OverlapUnit) ChunkerOption {
	return func(c *Chunker) {
		if u == OverlapWords || u == OverlapCharacters {
			c.unit = u
		}
	}
}

func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{size: DefaultChunkSize, overlap: DefaultChunkOverlap, unit: OverlapWords}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChunkText splits text with the default word-based overlap.
func ChunkText(text string, size, overlap int) []string {
	return NewChunker(WithChunkSize(size), WithOverlap(overlap)).Chunk(text)
}

// Chunk returns the chunk texts, overlap included. It never returns an empty
// string; empty or whitespace-only input yields no chunks.
func (c *Chunker) Chunk(text string) []string {
	segs := c.Segments(text)
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.Text()
	}
	return out
}

func (c *Chunker) Segments(text string) []Segment {
	normalized := NormalizeWhitespace(text)
	if normalized == "" {
		return nil
	}
	if utf8.RuneCountInString(normalized) <= c.size {
		return []Segment{{Core: normalized}}
	}

	cores := c.pack(splitSentences(normalized))
	segs := make([]Segment, len(cores))
	for i, core := range cores {
		segs[i].Core = core
		if i > 0 {
			segs[i].Overlap = c.carry(cores[i-1])
		}
	}
	return segs
}

// pack greedily joins sentences while the joined length, separating space
// included, stays within size. An oversized sentence becomes its own chunk.
func (c *Chunker) pack(sentences []string) []string {
	var (
		chunks  []string
		current strings.Builder
		curLen  int
	)
	for _, s := range sentences {
		sLen := utf8.RuneCountInString(s)
		if curLen == 0 {
			current.WriteString(s)
			curLen = sLen
			continue
		}
		if curLen+1+sLen <= c.size {
			current.WriteByte(' ')
			current.WriteString(s)
			curLen += 1 + sLen
			continue
		}
		chunks = append(chunks, current.String())
		current.Reset()
		current.WriteString(s)
		curLen = sLen
	}
	if curLen > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func (c *Chunker) carry(prev string) string {
	switch c.unit {
	case OverlapCharacters:
		return tailChars(prev, c.overlap)
	default:
		return tailWords(prev, c.overlap/10)
	}
}

func tailWords(s string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(s)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}

func tailChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	cut := len(runes) - n
	if runes[cut-1] != ' ' {
		// drop the partial word at the front of the window
		for cut < len(runes) && runes[cut] != ' ' {
			cut++
		}
	}
	return strings.TrimSpace(string(runes[cut:]))
}

// NormalizeWhitespace collapses every whitespace run to one space and trims
// both ends.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// splitSentences breaks normalized text after '.', '!' or '?' when followed
// by a space. The separating space belongs to neither sentence.
func splitSentences(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s)-1; i++ {
		switch s[i] {
		case '.', '!', '?':
			if s[i+1] == ' ' {
				out = append(out, s[start:i+1])
				start = i + 2
				i++
			}
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
