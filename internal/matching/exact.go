package matching

import (
	"context"
	"strings"
)

// lookups bundles the three exact-match probes for one entity type.
type lookups struct {
	alias  func(ctx context.Context, text string) (string, error)
	byName func(ctx context.Context, name string) (string, error)
	exists func(ctx context.Context, code string) (bool, error)
}

// MatchSupplier resolves OCR supplier text through the exact priority chain:
// learned alias, then canonical display name, then the text as a supplier
// code. First hit wins; a miss is (Unmatched, nil), never an error.
func (m *Matcher) MatchSupplier(ctx context.Context, text string) (Result, error) {
	return m.matchExact(ctx, text, lookups{
		alias:  m.catalog.SupplierAlias,
		byName: m.catalog.SupplierCodeByName,
		exists: m.catalog.SupplierCodeExists,
	})
}

// MatchItem resolves OCR item text through the same chain as MatchSupplier,
// against the item namespace.
func (m *Matcher) MatchItem(ctx context.Context, text string) (Result, error) {
	return m.matchExact(ctx, text, lookups{
		alias:  m.catalog.ItemAlias,
		byName: m.catalog.ItemCodeByName,
		exists: m.catalog.ItemCodeExists,
	})
}

func (m *Matcher) matchExact(ctx context.Context, text string, l lookups) (Result, error) {
	miss := Result{Status: StatusUnmatched}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return miss, nil
	}

	code, err := l.alias(ctx, trimmed)
	if err != nil {
		return miss, err
	}
	if code != "" {
		return Result{Code: code, Status: StatusAutoMatched}, nil
	}

	code, err = l.byName(ctx, trimmed)
	if err != nil {
		return miss, err
	}
	if code != "" {
		return Result{Code: code, Status: StatusAutoMatched}, nil
	}

	ok, err := l.exists(ctx, trimmed)
	if err != nil {
		return miss, err
	}
	if ok {
		return Result{Code: trimmed, Status: StatusAutoMatched}, nil
	}

	return miss, nil
}
