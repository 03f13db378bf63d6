package matching

import (
	"context"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

var jaroWinkler = metrics.NewJaroWinkler()

// similarity scores two strings on a 0-100 scale, case-insensitively.
func similarity(a, b string) float64 {
	return strutil.Similarity(strings.ToLower(a), strings.ToLower(b), jaroWinkler) * 100
}

// MatchSupplierFuzzy ranks the OCR text against every enabled supplier's code
// and display name plus every supplier alias, and suggests the single best
// candidate at or above the threshold. Candidate order is deterministic and
// ties keep the first seen.
func (m *Matcher) MatchSupplierFuzzy(ctx context.Context, text string, threshold float64) (Result, error) {
	return m.matchFuzzy(ctx, text, threshold, m.catalog.SupplierCandidates)
}

// MatchItemFuzzy is MatchSupplierFuzzy over the item namespace.
func (m *Matcher) MatchItemFuzzy(ctx context.Context, text string, threshold float64) (Result, error) {
	return m.matchFuzzy(ctx, text, threshold, m.catalog.ItemCandidates)
}

func (m *Matcher) matchFuzzy(ctx context.Context, text string, threshold float64, candidates func(context.Context) ([]Label, error)) (Result, error) {
	miss := Result{Status: StatusUnmatched}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return miss, nil
	}

	pool, err := candidates(ctx)
	if err != nil {
		return miss, err
	}

	var bestCode string
	var bestScore float64
	for _, label := range pool {
		if label.Text == "" {
			continue
		}
		if score := similarity(trimmed, label.Text); score > bestScore {
			bestScore = score
			bestCode = label.Code
		}
	}

	if bestCode == "" || bestScore < threshold {
		return miss, nil
	}
	return Result{Code: bestCode, Status: StatusSuggested, Score: bestScore}, nil
}
