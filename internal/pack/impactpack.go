package pack

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/standardbeagle/pui/internal/engineerr"
	"github.com/standardbeagle/pui/internal/impact"
	"github.com/standardbeagle/pui/internal/store"
)

// Impact generates the blast-radius review pack from a completed Impact
// Engine (C10) analysis, in §4.11's fixed section order.
func Impact(ctx context.Context, s *store.Store, res impact.Result, opts Options) (Pack, error) {
	idxVer, err := indexVersion(ctx, s)
	if err != nil {
		return Pack{}, engineerr.New(engineerr.KindInternal, "pack.impact", err)
	}
	now := time.Now()

	sections := []section{
		{Heading: "Header", Body: fmt.Sprintf("- changed symbols: %d\n- upstream callers: %d\n- downstream: %d\n- affected tests: %d\n",
			len(res.Changed), len(res.Upstream), len(res.Downstream), len(res.AffectedTests)), Mandatory: true},
		{Heading: "Changed Items", Body: changedItemsBody(res.Changed)},
		{Heading: "Upstream", Body: affectedItemsBody(res.Upstream)},
		{Heading: "Downstream", Body: affectedItemsBody(res.Downstream)},
		{Heading: "Tests", Body: affectedItemsBody(res.AffectedTests)},
		{Heading: "Risk", Body: riskBody(res.Ranked)},
		{Heading: "Ranked Files", Body: rankedFilesBody(res.Ranked)},
		{Heading: "Metadata", Body: metadataBody(idxVer, now), Mandatory: true},
	}

	budget := budgetFor(ImpactBudget, opts.MaxTokens)
	if opts.Format == FormatJSON {
		return toJSON(TypeImpact, sections, idxVer, now, false)
	}
	return render(TypeImpact, sections, budget, idxVer, now)
}

func changedItemsBody(items []impact.ChangedItem) string {
	if len(items) == 0 {
		return "(none)\n"
	}
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "- `%s` %s\n", it.Path, it.Symbol.Name)
	}
	return b.String()
}

// affectedItemsBody renders items already ranked by Analyze (highest
// score first), so the row ordering pack generators preserve here is the
// same ordering tokenest's fallback row-trimming would need to drop from
// the end of — lower-ranked rows are already last.
func affectedItemsBody(items []impact.AffectedItem) string {
	if len(items) == 0 {
		return "(none)\n"
	}
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "- `%s` %s (%d hop, %s)\n", it.Path, it.Symbol.Name, it.HopCount, it.Rationale)
	}
	return b.String()
}

func riskBody(ranked []impact.AffectedItem) string {
	var publicCount int
	for _, it := range ranked {
		if it.IsPublic {
			publicCount++
		}
	}
	if len(ranked) == 0 {
		return "no affected symbols found\n"
	}
	level := "low"
	switch {
	case publicCount > 0 && len(ranked) > 10:
		level = "high"
	case publicCount > 0 || len(ranked) > 5:
		level = "medium"
	}
	return fmt.Sprintf("- level: %s\n- public API surface touched: %d\n- total affected symbols: %d\n", level, publicCount, len(ranked))
}

func rankedFilesBody(ranked []impact.AffectedItem) string {
	if len(ranked) == 0 {
		return "(none)\n"
	}
	seen := make(map[string]bool)
	var b strings.Builder
	n := 0
	for _, it := range ranked {
		if seen[it.Path] {
			continue
		}
		seen[it.Path] = true
		n++
		fmt.Fprintf(&b, "%d. `%s` — %s\n", n, it.Path, it.Rationale)
	}
	return b.String()
}
