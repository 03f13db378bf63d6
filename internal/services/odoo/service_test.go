package odoo

import (
	"testing"

	"github.com/fynbos-digital/invoiceflow/internal/models"
)

func TestSupplierCodeFallback(t *testing.T) {
	withRef := models.OdooPartner{ID: 12, Ref: "SUP-012"}
	if got := supplierCode(withRef); got != "SUP-012" {
		t.Errorf("expected the vendor ref, got %q", got)
	}

	noRef := models.OdooPartner{ID: 12}
	if got := supplierCode(noRef); got != "SUP-00012" {
		t.Errorf("expected synthetic code SUP-00012, got %q", got)
	}
}

func TestItemCodeFallback(t *testing.T) {
	withCode := models.OdooProduct{ID: 3, DefaultCode: "CHM-001"}
	if got := itemCode(withCode); got != "CHM-001" {
		t.Errorf("expected the default code, got %q", got)
	}

	noCode := models.OdooProduct{ID: 3}
	if got := itemCode(noCode); got != "ITEM-00003" {
		t.Errorf("expected synthetic code ITEM-00003, got %q", got)
	}
}
