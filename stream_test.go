package procpipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunksFromSlice_Empty(t *testing.T) {
	count := 0

	for range ChunksFromSlice([]string{}) {
		count++
	}

	assert.Equal(t, 0, count)
}

func TestChunksFromSlice_Multiple(t *testing.T) {
	collected := make([]string, 0, 3)

	for chunk := range ChunksFromSlice([]string{"a", "b", "c"}) {
		collected = append(collected, chunk)
	}

	assert.Equal(t, []string{"a", "b", "c"}, collected)
}

func TestChunksFromSlice_EarlyBreak(t *testing.T) {
	collected := make([]string, 0, 1)

	for chunk := range ChunksFromSlice([]string{"first", "second"}) {
		collected = append(collected, chunk)

		break
	}

	require.Len(t, collected, 1)
	assert.Equal(t, "first", collected[0])
}

func TestChunksFromChannel(t *testing.T) {
	ch := make(chan string, 2)
	ch <- "one"
	ch <- "two"

	close(ch)

	collected := make([]string, 0, 2)

	for chunk := range ChunksFromChannel(ch) {
		collected = append(collected, chunk)
	}

	assert.Equal(t, []string{"one", "two"}, collected)
}

func TestLines(t *testing.T) {
	collected := make([]string, 0, 3)

	for chunk := range Lines("a", "b\n", "") {
		collected = append(collected, chunk)
	}

	assert.Equal(t, []string{"a\n", "b\n", "\n"}, collected)
}
