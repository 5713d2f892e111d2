package chunking

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberedSentence(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i+1)
	}
	return strings.Join(words, " ") + "."
}

func TestSplitEmptyInput(t *testing.T) {
	assert.Empty(t, Split("", 80, 8))
	assert.Empty(t, Split("   \n\t ", 80, 8))
}

func TestSplitPacksWholeSentences(t *testing.T) {
	chunks := Split("One two three. Four five six. Seven eight.", 5, 1)
	require.Len(t, chunks, 2)
	assert.Equal(t, "One two three.", chunks[0])
	assert.Equal(t, "Four five six. Seven eight.", chunks[1])
}

func TestSplitForcesOversizedSentence(t *testing.T) {
	chunks := Split(numberedSentence(30), 10, 2)
	require.Len(t, chunks, 3)

	first := strings.Fields(chunks[0])
	second := strings.Fields(chunks[1])
	third := strings.Fields(chunks[2])

	assert.Len(t, first, 10)
	assert.Len(t, second, 10)
	assert.Equal(t, "w9", second[0])
	assert.Equal(t, "w17", third[0])
	assert.Equal(t, "w30.", third[len(third)-1])

	// the words after each split point restate the tail of the previous chunk
	assert.Equal(t, first[len(first)-2:], second[:2])
	assert.Equal(t, second[len(second)-2:], third[:2])
}

func TestSplitKeepsSentenceWithinTolerance(t *testing.T) {
	chunks := Split(numberedSentence(13), 10, 2)
	require.Len(t, chunks, 1)
	assert.Len(t, strings.Fields(chunks[0]), 13)
}

func TestSplitFlushesBeforeOversizedSentence(t *testing.T) {
	text := "Short lead in. " + numberedSentence(25)
	chunks := Split(text, 10, 3)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "Short lead in.", chunks[0])
	assert.Equal(t, "w1", strings.Fields(chunks[1])[0])
}

func TestSplitWordBound(t *testing.T) {
	texts := []string{
		"The company sells solar panels. It installs them on farms. Customers pay monthly.",
		numberedSentence(200),
		strings.Repeat("Alpha beta gamma delta. ", 40),
		"First paragraph without a stop\n\nSecond paragraph " + numberedSentence(50),
	}
	for _, max := range []int{5, 10, 80} {
		bound := float64(max) * (1 + 1/2.1)
		for _, text := range texts {
			for _, chunk := range Split(text, max, 2) {
				n := len(strings.Fields(chunk))
				assert.LessOrEqual(t, float64(n), bound, "max=%d chunk=%q", max, chunk)
			}
		}
	}
}

func TestSplitPreservesSentenceOrder(t *testing.T) {
	text := "Alpha one. Beta two. Gamma three. Delta four. Epsilon five."
	chunks := Split(text, 4, 1)
	assert.Equal(t, strings.Join(strings.Fields(text), " "), strings.Join(chunks, " "))
}

func TestOverlapClampedBelowWindow(t *testing.T) {
	c := NewSentenceChunker(WithMaxTokens(4), WithOverlap(10))
	chunks := c.Split(numberedSentence(40))
	assert.NotEmpty(t, chunks)
}

func TestSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"terminal punctuation", "Hello there! How are you? Fine.", []string{"Hello there!", "How are you?", "Fine."}},
		{"decimal stays", "Revenue hit 3.5 million. Next year more.", []string{"Revenue hit 3.5 million.", "Next year more."}},
		{"closing quote", `He said "stop." Then left.`, []string{`He said "stop."`, "Then left."}},
		{"blank line", "Heading\n\nBody text", []string{"Heading", "Body text"}},
		{"no punctuation", "just words", []string{"just words"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sentences(tt.in))
		})
	}
}
