package matching

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// MatchServiceItem looks the description up against the learned
// service-mapping rules: supplier-specific rules first, then generic ones,
// longest pattern winning within a tier. A nil result is a normal miss. The
// only hard failure is calling it with no company and no configured default.
func (m *Matcher) MatchServiceItem(ctx context.Context, description, company, supplierCode string) (*ServiceMatch, error) {
	if strings.TrimSpace(description) == "" {
		return nil, nil
	}

	if company == "" {
		company = m.cfg.DefaultCompany
	}
	if company == "" {
		return nil, fmt.Errorf("service matching requires a company and no default company is configured")
	}

	normDesc := Normalize(description)
	if normDesc == "" {
		return nil, nil
	}

	if supplierCode != "" {
		match, err := m.matchRules(ctx, normDesc, company, supplierCode)
		if err != nil || match != nil {
			return match, err
		}
	}
	return m.matchRules(ctx, normDesc, company, "")
}

func (m *Matcher) matchRules(ctx context.Context, normDesc, company, supplierCode string) (*ServiceMatch, error) {
	rules, err := m.catalog.ServiceRules(ctx, company, supplierCode)
	if err != nil {
		return nil, err
	}

	// Longer patterns are more specific and win; stable sort keeps the store
	// order among equal lengths.
	sort.SliceStable(rules, func(i, j int) bool {
		return len(rules[i].Pattern) > len(rules[j].Pattern)
	})

	for _, rule := range rules {
		pattern := Normalize(rule.Pattern)
		if pattern == "" {
			continue
		}
		if strings.Contains(normDesc, pattern) {
			return &ServiceMatch{
				ItemCode:       rule.ItemCode,
				ItemName:       rule.ItemName,
				ExpenseAccount: rule.ExpenseAccount,
				CostCenter:     rule.CostCenter,
				Status:         StatusAutoMatched,
			}, nil
		}
	}
	return nil, nil
}
