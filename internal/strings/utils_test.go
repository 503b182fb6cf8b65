package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "exact", Truncate("exact", 5))
	assert.Equal(t, "lo...", Truncate("long string here", 5))
	assert.Equal(t, "a...", Truncate("abcdefg", 2))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "one", FirstLine("one\ntwo"))
	assert.Equal(t, "no newline", FirstLine("no newline"))
	assert.Equal(t, "", FirstLine("\nrest"))
}
