package tokenest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/pui/internal/engineerr"
)

func TestEstimate_Empty(t *testing.T) {
	assert.Equal(t, 0, Estimate(""))
}

func TestEstimate_ScalesWithLength(t *testing.T) {
	short := Estimate("hello world")
	long := Estimate(strings.Repeat("hello world ", 50))
	assert.Less(t, short, long)
}

func TestEstimate_FloorsShortIdentifierRuns(t *testing.T) {
	// Five one-byte "tokens" separated by spaces: the byte-count estimate
	// underrates this, so the run-count floor must dominate.
	assert.Equal(t, 5, Estimate("a b c d e"))
}

func TestTruncate_NoOpUnderBudget(t *testing.T) {
	text := "# Title\n\nshort body\n"
	out, truncated, err := Truncate(text, 1000)
	require.NoError(t, err)
	assert.False(t, truncated)
	assert.Equal(t, text, out)
}

func TestTruncate_DropsWholeSections(t *testing.T) {
	text := "# Header\n\nintro\n\n## Section A\n" + strings.Repeat("alpha beta gamma\n", 40) +
		"\n## Section B\n" + strings.Repeat("delta epsilon zeta\n", 40)

	out, truncated, err := Truncate(text, Estimate("# Header\n\nintro\n\n## Section A\n")+20)
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Contains(t, out, "# Header")
	assert.Contains(t, out, "more available via zoom")
	assert.NotContains(t, out, "Section B")
}

func TestTruncate_NeverLeavesDanglingFence(t *testing.T) {
	text := "# Header\n\n```go\nfunc a() {}\n```\n\n## Big\n" + strings.Repeat("x\n", 500)
	out, truncated, err := Truncate(text, 30)
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Equal(t, 0, strings.Count(out, "```")%2)
}

func TestTruncate_BudgetTooSmall(t *testing.T) {
	text := "# Header that alone is already long enough to overflow any tiny budget given here\n"
	_, _, err := Truncate(text, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, engineerr.Sentinel(engineerr.KindBudgetTooSmall))
}
