package truncate

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var pySection = regexp.MustCompile(`^(def|class|async def)\b`)

func countTokens(s string) int {
	return len(strings.Fields(s))
}

func TestFitWithinBudgetReturnsInputUnchanged(t *testing.T) {
	src := "import os\n\ndef a():\n    return 1\n\ndef b():\n    return 2"
	out := Fit(src, pySection, 100)
	assert.Equal(t, src, out)
}

func TestFitKeepsWholeSectionsInOrder(t *testing.T) {
	src := strings.Join([]string{
		"import os",    // leading section: 2 tokens
		"def a():",     // section a: 4 tokens
		"    return 1",
		"def b():",     // section b: 4 tokens
		"    return 2",
		"def c():",     // section c: 4 tokens
		"    return 3",
	}, "\n")

	// Budget 11 holds the leading section plus a and b (10 tokens); the
	// first line of c (2 tokens) no longer fits the remaining 1.
	out := Fit(src, pySection, 11)
	assert.LessOrEqual(t, countTokens(out), 11)
	assert.Contains(t, out, "def a():")
	assert.Contains(t, out, "def b():")
	assert.NotContains(t, out, "def c():")

	// Output must be a prefix of the input's line sequence.
	assert.True(t, strings.HasPrefix(src, out))
}

func TestFitAcceptsLinePrefixOfFirstRejectedSection(t *testing.T) {
	src := strings.Join([]string{
		"def a():",     // 2 tokens
		"    return 1", // 2 tokens
		"def b():",     // 2 tokens
		"    x = 1",    // 3 tokens
		"    return x", // 2 tokens
	}, "\n")

	// Budget 9: section a (4 tokens) fits whole; section b (7) does
	// not, but its first two lines (2+3) fill the remaining 5 exactly,
	// leaving no room for the final line.
	out := Fit(src, pySection, 9)
	assert.LessOrEqual(t, countTokens(out), 9)
	assert.Contains(t, out, "def b():")
	assert.NotContains(t, out, "return x")
}

func TestFitOversizedLeadingSectionStillReturnsFirstLine(t *testing.T) {
	// A single unmarked section whose first line alone exceeds the budget.
	src := "one two three four five\nsix seven"
	out := Fit(src, pySection, 2)
	assert.Equal(t, "one two three four five", out)
	// The documented exception: output exceeds the budget by at most
	// one undividable unit.
	assert.Greater(t, countTokens(out), 2)
}

func TestFitBudgetLawAcrossBudgets(t *testing.T) {
	src := strings.Join([]string{
		"# header comment",
		"def f1():",
		"    a = 1",
		"    return a",
		"def f2():",
		"    return 2",
		"def f3():",
		"    return 3",
	}, "\n")
	total := countTokens(src)

	for budget := total; budget >= 3; budget-- {
		out := Fit(src, pySection, budget)
		assert.LessOrEqualf(t, countTokens(out), budget, "budget %d", budget)
	}
}

func TestFitNoSectionMarkersTruncatesByLine(t *testing.T) {
	src := "alpha beta\ngamma delta\nepsilon zeta"
	out := Fit(src, pySection, 4)
	assert.Equal(t, "alpha beta\ngamma delta", out)
}
