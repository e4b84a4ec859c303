package rag

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_ThreeSentencesSizeTwenty(t *testing.T) {
	chunks := ChunkText("A cat sat. A dog ran. The sun set.", 20, 0)

	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"A cat sat.", "A dog ran.", "The sun set."}, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 20)
	}
}

func TestChunk_ShortTextIsSingleNormalizedChunk(t *testing.T) {
	chunks := ChunkText("  hello \n\n  world\t ", 500, 50)
	assert.Equal(t, []string{"hello world"}, chunks)

	exact := strings.Repeat("x", 20)
	assert.Equal(t, []string{exact}, ChunkText(exact, 20, 50))
}

func TestChunk_EmptyInput(t *testing.T) {
	assert.Empty(t, ChunkText("", 500, 50))
	assert.Empty(t, ChunkText(" \n\t  ", 500, 50))
}

func TestChunk_NoTerminatorsStaysOneOversizedChunk(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("word ", 40))
	chunks := ChunkText(text, 20, 50)
	assert.Equal(t, []string{text}, chunks)
}

func TestChunk_OversizedSentenceIsItsOwnChunk(t *testing.T) {
	long := "This sentence is definitely longer than twenty characters."
	chunks := ChunkText("Short one. "+long+" Tiny.", 20, 0)
	assert.Equal(t, []string{"Short one.", long, "Tiny."}, chunks)
}

func TestChunk_WordOverlap(t *testing.T) {
	text := "one two three four five. six seven eight nine ten. eleven twelve."
	chunks := ChunkText(text, 30, 20)

	require.Len(t, chunks, 3)
	assert.Equal(t, "one two three four five.", chunks[0])
	// floor(20/10) = 2 words carried from the previous core
	assert.Equal(t, "four five. six seven eight nine ten.", chunks[1])
	assert.Equal(t, "nine ten. eleven twelve.", chunks[2])
}

func TestChunk_OverlapBelowTenCarriesNothing(t *testing.T) {
	chunks := ChunkText("A cat sat. A dog ran. The sun set.", 20, 9)
	assert.Equal(t, []string{"A cat sat.", "A dog ran.", "The sun set."}, chunks)
}

func TestChunk_OverlapLongerThanPreviousChunk(t *testing.T) {
	chunks := ChunkText("A cat sat. A dog ran.", 15, 100)
	assert.Equal(t, []string{"A cat sat.", "A cat sat. A dog ran."}, chunks)
}

func TestChunk_CharacterOverlap(t *testing.T) {
	c := NewChunker(WithChunkSize(30), WithOverlap(10), WithOverlapUnit(OverlapCharacters))
	segs := c.Segments("one two three four five. six seven eight nine ten.")

	require.Len(t, segs, 2)
	// last 10 runes are "four five." which already starts on a word
	assert.Equal(t, "four five.", segs[1].Overlap)

	c = NewChunker(WithChunkSize(30), WithOverlap(8), WithOverlapUnit(OverlapCharacters))
	segs = c.Segments("one two three four five. six seven eight nine ten.")
	require.Len(t, segs, 2)
	// "ur five." is cut mid-word and snapped forward
	assert.Equal(t, "five.", segs[1].Overlap)
}

func TestChunk_DefaultsAndInvalidOptions(t *testing.T) {
	c := NewChunker(WithChunkSize(0), WithOverlap(-1), WithOverlapUnit("bytes"))
	assert.Equal(t, DefaultChunkSize, c.size)
	assert.Equal(t, DefaultChunkOverlap, c.overlap)
	assert.Equal(t, OverlapWords, c.unit)
}

func TestSplitSentences(t *testing.T) {
	assert.Equal(t,
		[]string{"Hi!", "Is it?", "Yes.", "3.14 is pi e.g.done."},
		splitSentences("Hi! Is it? Yes. 3.14 is pi e.g.done."),
	)
}

func TestChunk_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vocab := []string{"alpha", "beta", "gamma.", "delta!", "épsilon?", "zeta", "eta\n", "theta\t", "  iota", "kappa."}

	for trial := 0; trial < 300; trial++ {
		var sb strings.Builder
		words := rng.Intn(120)
		for i := 0; i < words; i++ {
			sb.WriteString(vocab[rng.Intn(len(vocab))])
			sb.WriteString(strings.Repeat(" ", rng.Intn(3)))
		}
		text := sb.String()
		size := 5 + rng.Intn(80)
		overlap := rng.Intn(60)
		unit := OverlapWords
		if trial%2 == 1 {
			unit = OverlapCharacters
		}
		c := NewChunker(WithChunkSize(size), WithOverlap(overlap), WithOverlapUnit(unit))
		normalized := NormalizeWhitespace(text)

		segs := c.Segments(text)
		chunks := c.Chunk(text)
		require.Len(t, chunks, len(segs))

		cores := make([]string, len(segs))
		for i, s := range segs {
			assert.NotEmpty(t, chunks[i], "trial %d chunk %d", trial, i)
			assert.NotEmpty(t, s.Core)
			cores[i] = s.Core
		}
		assert.Equal(t, normalized, strings.Join(cores, " "), "trial %d", trial)

		if normalized == "" {
			assert.Empty(t, chunks)
		} else if utf8.RuneCountInString(normalized) <= size {
			assert.Equal(t, []string{normalized}, chunks)
		}
	}
}
