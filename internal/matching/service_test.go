package matching

import (
	"context"
	"testing"
)

const testCompany = "Fynbos Chemicals (Pty) Ltd"

func TestMatchServiceItemGenericRule(t *testing.T) {
	catalog := &fakeCatalog{
		rules: map[string][]Rule{
			testCompany + "|": {
				{Pattern: "delivery", ItemCode: "DELIVERY", ItemName: "Delivery Charge", ExpenseAccount: "5800 Freight", CostCenter: "Main"},
			},
		},
	}
	m := newTestMatcher(catalog)

	match, err := m.MatchServiceItem(context.Background(), "Delivery Fee - Standard", testCompany, "")
	if err != nil {
		t.Fatalf("MatchServiceItem failed: %v", err)
	}
	if match == nil {
		t.Fatal("expected a generic mapping hit")
	}
	if match.ItemCode != "DELIVERY" {
		t.Errorf("expected DELIVERY, got %q", match.ItemCode)
	}
	if match.Status != StatusAutoMatched {
		t.Errorf("expected %q, got %q", StatusAutoMatched, match.Status)
	}
	if match.ExpenseAccount != "5800 Freight" {
		t.Errorf("expense account not carried through: %q", match.ExpenseAccount)
	}
}

func TestMatchServiceItemSupplierTierWins(t *testing.T) {
	// The same pattern exists generically and for one supplier; a lookup with
	// that supplier must take the supplier-specific row, any other lookup the
	// generic one.
	catalog := &fakeCatalog{
		rules: map[string][]Rule{
			testCompany + "|SUP-001": {
				{Pattern: "hosting", ItemCode: "HOSTING-AFRIHOST", ItemName: "Afrihost Hosting"},
			},
			testCompany + "|": {
				{Pattern: "hosting", ItemCode: "HOSTING-GENERIC", ItemName: "Web Hosting"},
			},
		},
	}
	m := newTestMatcher(catalog)

	withSupplier, err := m.MatchServiceItem(context.Background(), "Hosting renewal Jan 2026", testCompany, "SUP-001")
	if err != nil {
		t.Fatalf("MatchServiceItem failed: %v", err)
	}
	if withSupplier == nil || withSupplier.ItemCode != "HOSTING-AFRIHOST" {
		t.Errorf("supplier tier should win, got %+v", withSupplier)
	}

	otherSupplier, err := m.MatchServiceItem(context.Background(), "Hosting renewal Jan 2026", testCompany, "SUP-999")
	if err != nil {
		t.Fatalf("MatchServiceItem failed: %v", err)
	}
	if otherSupplier == nil || otherSupplier.ItemCode != "HOSTING-GENERIC" {
		t.Errorf("unrelated supplier should fall through to generic, got %+v", otherSupplier)
	}

	noSupplier, err := m.MatchServiceItem(context.Background(), "Hosting renewal Jan 2026", testCompany, "")
	if err != nil {
		t.Fatalf("MatchServiceItem failed: %v", err)
	}
	if noSupplier == nil || noSupplier.ItemCode != "HOSTING-GENERIC" {
		t.Errorf("no supplier should use the generic tier, got %+v", noSupplier)
	}
}

func TestMatchServiceItemLongestPatternWins(t *testing.T) {
	catalog := &fakeCatalog{
		rules: map[string][]Rule{
			testCompany + "|": {
				{Pattern: "subscription", ItemCode: "SUB-GENERIC"},
				{Pattern: "software subscription", ItemCode: "SUB-SOFTWARE"},
			},
		},
	}
	m := newTestMatcher(catalog)

	match, err := m.MatchServiceItem(context.Background(), "Monthly Software Subscription March 2027", testCompany, "")
	if err != nil {
		t.Fatalf("MatchServiceItem failed: %v", err)
	}
	if match == nil || match.ItemCode != "SUB-SOFTWARE" {
		t.Errorf("longer pattern should win within a tier, got %+v", match)
	}
}

func TestMatchServiceItemPatternRoundTrip(t *testing.T) {
	// A mapping learned from February's confirmed description must hit next
	// year's invoice for the same service.
	pattern := ExtractPattern("Monthly Software Subscription Feb 2026")
	if pattern != "monthly software subscription" {
		t.Fatalf("unexpected pattern: %q", pattern)
	}

	catalog := &fakeCatalog{
		rules: map[string][]Rule{
			testCompany + "|": {
				{Pattern: pattern, ItemCode: "SUB-SOFTWARE", ExpenseAccount: "6200 Software"},
			},
		},
	}
	m := newTestMatcher(catalog)

	match, err := m.MatchServiceItem(context.Background(), "Monthly Software Subscription March 2027", testCompany, "")
	if err != nil {
		t.Fatalf("MatchServiceItem failed: %v", err)
	}
	if match == nil || match.ItemCode != "SUB-SOFTWARE" {
		t.Errorf("generalized pattern should survive date drift, got %+v", match)
	}
}

func TestMatchServiceItemMissAndEmpty(t *testing.T) {
	m := newTestMatcher(&fakeCatalog{rules: map[string][]Rule{}})

	match, err := m.MatchServiceItem(context.Background(), "Something never mapped", testCompany, "")
	if err != nil {
		t.Fatalf("MatchServiceItem failed: %v", err)
	}
	if match != nil {
		t.Errorf("expected nil on miss, got %+v", match)
	}

	match, err = m.MatchServiceItem(context.Background(), "", testCompany, "")
	if err != nil {
		t.Fatalf("MatchServiceItem failed: %v", err)
	}
	if match != nil {
		t.Errorf("expected nil for empty description, got %+v", match)
	}
}

func TestMatchServiceItemDefaultCompany(t *testing.T) {
	catalog := &fakeCatalog{
		rules: map[string][]Rule{
			testCompany + "|": {
				{Pattern: "delivery", ItemCode: "DELIVERY"},
			},
		},
	}
	m := newTestMatcher(catalog)

	// Empty company falls back to the configured default.
	match, err := m.MatchServiceItem(context.Background(), "Delivery fee", "", "")
	if err != nil {
		t.Fatalf("MatchServiceItem failed: %v", err)
	}
	if match == nil || match.ItemCode != "DELIVERY" {
		t.Errorf("default company should apply, got %+v", match)
	}

	// No company anywhere is a precondition violation, not a quiet miss.
	bare := NewMatcher(catalog, Config{FuzzyThreshold: 80})
	if _, err := bare.MatchServiceItem(context.Background(), "Delivery fee", "", ""); err == nil {
		t.Error("expected an error when no company is resolvable")
	}
}
