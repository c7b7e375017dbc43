package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestInfo(t *testing.T) {
	u, out, _ := newTestUI()
	u.Info("hello %s", "world")
	assert.Contains(t, out.String(), "hello world")
}

func TestSuccess(t *testing.T) {
	u, out, _ := newTestUI()
	u.Success("done %d", 42)
	assert.Contains(t, out.String(), "done 42")
}

func TestWarning(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Warning("careful %s", "now")
	assert.Contains(t, errOut.String(), "careful now")
}

func TestError(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Error("failed %s", "badly")
	assert.Contains(t, errOut.String(), "failed badly")
}

func TestVerboseLog_Enabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = true
	u.VerboseLog("detail %d", 1)
	assert.Contains(t, out.String(), "detail 1")
}

func TestVerboseLog_Disabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = false
	u.VerboseLog("detail %d", 1)
	assert.Empty(t, out.String())
}

func TestManager(t *testing.T) {
	u, out, _ := newTestUI()
	u.Manager("Back to work.")
	assert.Contains(t, out.String(), "Back to work.")
	assert.Contains(t, out.String(), "Manager")
}

func TestColorHelpers(t *testing.T) {
	// Color helpers should return non-empty strings
	assert.NotEmpty(t, Cyan("test"))
	assert.NotEmpty(t, Green("test"))
	assert.NotEmpty(t, Yellow("test"))
	assert.NotEmpty(t, Red("test"))
}

func TestDifficultyColor(t *testing.T) {
	assert.NotEmpty(t, DifficultyColor(1))
	assert.NotEmpty(t, DifficultyColor(3))
	assert.NotEmpty(t, DifficultyColor(5))
}

func TestLevelColor(t *testing.T) {
	assert.Equal(t, "Intern", LevelColor("Intern", 0))
	assert.NotEmpty(t, LevelColor("Junior", 1))
	assert.NotEmpty(t, LevelColor("Senior", 3))
	assert.NotEmpty(t, LevelColor("Executive", 6))
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "0", FormatScore(0))
	assert.Equal(t, "480", FormatScore(480))
	assert.Equal(t, "481", FormatScore(480.6))
	assert.Equal(t, "1,234", FormatScore(1234))
	assert.Equal(t, "1,234,567", FormatScore(1234567))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "a long d...", Truncate("a long display name", 11))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"Rank", "Name"})
	require.NotNil(t, table)

	table.Append([]string{"1", "ana"})
	table.Append([]string{"2", "bob"})
	err := table.Render()
	require.NoError(t, err)

	result := out.String()
	assert.True(t, strings.Contains(result, "ana") || strings.Contains(result, "ANA"),
		"table output should contain names")
	assert.True(t, strings.Contains(result, "bob") || strings.Contains(result, "BOB"),
		"table output should contain names")
}
