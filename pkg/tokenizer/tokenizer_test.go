package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Positive(t, EstimateTokens("hello world"))
	assert.Greater(t, EstimateTokens(strings.Repeat("word ", 100)), EstimateTokens("word"))
}

func TestTruncateLines(t *testing.T) {
	short := "<er/>\n"
	out, cut := TruncateLines(short, 100)
	assert.Equal(t, short, out)
	assert.False(t, cut)

	line := `<entity id="1" name="Student"><attribute id="1" name="sid"/></entity>` + "\n"
	long := strings.Repeat(line, 50)
	out, cut = TruncateLines(long, 60)
	assert.True(t, cut)
	assert.NotEmpty(t, out)
	assert.Less(t, len(out), len(long))
	assert.True(t, strings.HasSuffix(out, "\n"), "cut falls on a line boundary")
	assert.LessOrEqual(t, EstimateTokens(out), 60)

	out, cut = TruncateLines(long, 0)
	assert.Equal(t, "", out)
	assert.True(t, cut)
}
