// Package tokenest approximates LLM token cost for generated text and
// truncates packs to fit a caller-supplied budget (C1). It does not run a
// real tokenizer; it is an ordering/guard heuristic used to keep
// RepoMap/Zoom/Impact output inside the budget the caller asked for.
//
// Grounded on standardbeagle-lci's internal/mcp/pagination.go
// (TokenEstimator, bytes-per-token heuristic) and
// internal/core/llm_optimizer.go (estimateTokens, OptimizeForContext).
package tokenest

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/pui/internal/engineerr"
)

// bytesPerToken is the approximation factor: 1 token ≈ 4 bytes of UTF-8.
const bytesPerToken = 4

// moreAvailableMarkerFmt is appended whenever Truncate drops content.
const moreAvailableMarkerFmt = "\n\n_%d more available via zoom_\n"

// Estimate approximates the token cost of text as ceil(len(text)/4), with a
// floor of 1 per non-empty maximal run of non-whitespace bytes so that many
// short identifiers aren't estimated as free.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	byteEstimate := (len(text) + bytesPerToken - 1) / bytesPerToken
	runs := countTokenRuns(text)
	if runs > byteEstimate {
		return runs
	}
	return byteEstimate
}

func countTokenRuns(text string) int {
	runs := 0
	inRun := false
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			inRun = false
			continue
		}
		if !inRun {
			runs++
			inRun = true
		}
	}
	return runs
}

// Truncate cuts text to fit within budget tokens, preferring structural
// cut points: whole Markdown ATX-header sections first, then whole
// Markdown table rows, then trailing lines. It never leaves an unclosed
// code fence. The bool return reports whether truncation occurred.
//
// Returns engineerr.KindBudgetTooSmall if budget is too small to hold even
// the first section (the mandatory header/metadata block).
func Truncate(text string, budget int) (string, bool, error) {
	if Estimate(text) <= budget {
		return text, false, nil
	}

	sections := splitSections(text)
	if len(sections) == 0 {
		return "", false, engineerr.New(engineerr.KindBudgetTooSmall, "truncate", errBudgetTooSmall)
	}

	kept := make([]string, 0, len(sections))
	droppedCount := 0
	usedTokens := 0
	markerTokens := Estimate(markerFor(1))

	for i, sec := range sections {
		secTokens := Estimate(sec)
		remainingSections := len(sections) - i - 1
		reserve := 0
		if remainingSections > 0 {
			reserve = markerTokens
		}
		if usedTokens+secTokens+reserve > budget {
			if i == 0 {
				return "", false, engineerr.New(engineerr.KindBudgetTooSmall, "truncate", errBudgetTooSmall)
			}
			droppedCount = len(sections) - i
			break
		}
		kept = append(kept, sec)
		usedTokens += secTokens
	}

	if droppedCount == 0 {
		// Every section fit whole; fall back to row/line-level trimming of
		// the last kept section so the output still respects the budget.
		return truncateWithinSection(kept, budget)
	}

	out := strings.Join(kept, "")
	out = closeDanglingFence(out)
	out += markerFor(droppedCount)
	return out, true, nil
}

var errBudgetTooSmall = budgetTooSmallErr{}

type budgetTooSmallErr struct{}

func (budgetTooSmallErr) Error() string {
	return "budget too small to hold mandatory content"
}

func markerFor(n int) string {
	return fmt.Sprintf(moreAvailableMarkerFmt, n)
}

// splitSections breaks text at Markdown ATX headers (`^#+ `), each
// returned chunk retaining its trailing content up to (not including) the
// next header. Text before the first header is its own leading section.
func splitSections(text string) []string {
	lines := strings.SplitAfter(text, "\n")
	var sections []string
	var cur strings.Builder
	started := false

	flush := func() {
		if cur.Len() > 0 {
			sections = append(sections, cur.String())
			cur.Reset()
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimLeft(line, "\t ")
		if isATXHeader(trimmed) && started {
			flush()
		}
		cur.WriteString(line)
		started = true
	}
	flush()
	return sections
}

func isATXHeader(line string) bool {
	i := 0
	for i < len(line) && line[i] == '#' {
		i++
	}
	if i == 0 || i > 6 {
		return false
	}
	return i < len(line) && (line[i] == ' ' || line[i] == '\t')
}

// truncateWithinSection trims the last kept section row-by-row (Markdown
// table rows first, then plain trailing lines) until the joined output
// fits budget. Used when whole-section trimming alone isn't enough.
func truncateWithinSection(kept []string, budget int) (string, bool, error) {
	if len(kept) == 0 {
		return "", false, engineerr.New(engineerr.KindBudgetTooSmall, "truncate", errBudgetTooSmall)
	}
	head := strings.Join(kept[:len(kept)-1], "")
	last := kept[len(kept)-1]
	lines := strings.Split(last, "\n")

	for len(lines) > 1 {
		candidate := head + strings.Join(lines, "\n")
		candidate = closeDanglingFence(candidate)
		marker := markerFor(1)
		if Estimate(candidate)+Estimate(marker) <= budget {
			return candidate + marker, true, nil
		}
		lines = lines[:len(lines)-1]
	}

	if Estimate(head) <= budget {
		return head + markerFor(1), true, nil
	}
	return "", false, engineerr.New(engineerr.KindBudgetTooSmall, "truncate", errBudgetTooSmall)
}

// closeDanglingFence appends a closing ``` if text contains an odd number
// of fence markers, so truncation never leaves a code block open.
func closeDanglingFence(text string) string {
	count := strings.Count(text, "```")
	if count%2 == 1 {
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		text += "```\n"
	}
	return text
}
