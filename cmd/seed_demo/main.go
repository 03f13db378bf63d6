package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/fynbos-digital/invoiceflow/internal/config"
	"github.com/fynbos-digital/invoiceflow/internal/database"
	"github.com/fynbos-digital/invoiceflow/internal/models"
	"github.com/fynbos-digital/invoiceflow/internal/utils"
)

// Seeds demo master data and writes sample supplier invoices as PDFs, so the
// whole flow (upload -> extract -> match -> confirm -> learn) can be
// exercised without a live Odoo instance.

const outputDir = "./demo_invoices"

func main() {
	fmt.Println("🌱 InvoiceFlow Demo Data Seeder")

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	fmt.Println("✅ Connected to database")

	// Run migrations first
	fmt.Println("🔨 Running database migrations...")
	err = db.AutoMigrate(
		&models.User{},
		&models.Supplier{},
		&models.Item{},
		&models.SupplierAlias{},
		&models.ItemAlias{},
		&models.ServiceMapping{},
		&models.OCRImport{},
		&models.OCRImportLine{},
		&models.ExtractionLog{},
	)
	if err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	fmt.Println("✅ Migrations complete")

	var supplierCount int64
	db.Model(&models.Supplier{}).Count(&supplierCount)
	if supplierCount > 0 {
		fmt.Printf("⚠️  Database already has %d suppliers. Clear master data first? (y/N): ", supplierCount)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("❌ Aborted. Database not modified.")
			return
		}
		fmt.Println("🗑️  Clearing existing master data...")
		db.Exec("TRUNCATE TABLE service_mappings CASCADE")
		db.Exec("TRUNCATE TABLE item_aliases CASCADE")
		db.Exec("TRUNCATE TABLE supplier_aliases CASCADE")
		db.Exec("TRUNCATE TABLE items CASCADE")
		db.Exec("TRUNCATE TABLE suppliers CASCADE")
		fmt.Println("✅ Data cleared")
	}

	fmt.Println("📦 Creating demo master data...")

	now := time.Now()
	suppliers := []models.Supplier{
		{Code: "SUP-00001", Name: "Star Pops (Pty) Ltd", TaxID: "4520146789", LastSyncedAt: now},
		{Code: "SUP-00002", Name: "Afrihost", LastSyncedAt: now},
		{Code: "SUP-00003", Name: "Cactuscraft CC", TaxID: "4890012345", LastSyncedAt: now},
		{Code: "SUP-00004", Name: "Metro Cash & Carry", LastSyncedAt: now},
	}
	for i := range suppliers {
		if err := db.Create(&suppliers[i]).Error; err != nil {
			log.Fatalf("❌ Failed to create supplier: %v", err)
		}
	}
	fmt.Printf("✅ Created %d suppliers\n", len(suppliers))

	items := []models.Item{
		{Code: "CHEM-NAOH-25", Name: "Sodium Hydroxide 50% Solution 25kg", IsStock: true, LastSyncedAt: now},
		{Code: "POP-MAIZE-10", Name: "Popping Maize 10kg", IsStock: true, LastSyncedAt: now},
		{Code: "DELIVERY", Name: "Delivery Fee", ExpenseAccount: "Freight and Courier", LastSyncedAt: now},
		{Code: "SOFTWARE-SUB", Name: "Software Subscription", ExpenseAccount: "Software Expenses", LastSyncedAt: now},
		{Code: "INTERNET", Name: "Internet and Hosting", ExpenseAccount: "Communication Expenses", LastSyncedAt: now},
	}
	for i := range items {
		if err := db.Create(&items[i]).Error; err != nil {
			log.Fatalf("❌ Failed to create item: %v", err)
		}
	}
	fmt.Printf("✅ Created %d items\n", len(items))

	// A couple of pre-learned rules so the very first demo invoice already
	// auto-matches. Everything else is learned through confirmations.
	mappings := []models.ServiceMapping{
		{
			Pattern: "delivery", Company: cfg.Books.DefaultCompany,
			ItemCode: "DELIVERY", ItemName: "Delivery Fee",
			ExpenseAccount: "Freight and Courier", CostCenter: cfg.Books.CostCenter,
			Source: models.AliasSourceManual,
		},
		{
			Pattern: "vdsl line rental", Company: cfg.Books.DefaultCompany, SupplierCode: "SUP-00002",
			ItemCode: "INTERNET", ItemName: "Internet and Hosting",
			ExpenseAccount: "Communication Expenses", CostCenter: cfg.Books.CostCenter,
			Source: models.AliasSourceManual,
		},
	}
	for i := range mappings {
		if err := db.Create(&mappings[i]).Error; err != nil {
			log.Fatalf("❌ Failed to create service mapping: %v", err)
		}
	}
	fmt.Printf("✅ Created %d service mappings\n", len(mappings))

	seedAdmin(db, cfg)

	fmt.Println("📄 Generating sample invoice PDFs...")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		log.Fatalf("❌ Failed to create %s: %v", outputDir, err)
	}

	invoices := []demoInvoice{
		{
			File:     "starpops_inv_1042.pdf",
			Supplier: "Star Pops ( Pty ) Ltd", // parenthesis spacing exercises the fuzzy tier
			TaxID:    "4520146789",
			Number:   "INV-1042",
			Date:     "15/01/2026",
			Lines: []demoLine{
				{Desc: "Popping Maize 10kg", Code: "POP-MAIZE-10", Qty: 4, Rate: 380},
				{Desc: "Delivery Fee - Standard", Qty: 1, Rate: 150},
			},
		},
		{
			File:     "afrihost_feb.pdf",
			Supplier: "Afrihost",
			Number:   "AH-88231",
			Date:     "01/02/2026",
			Lines: []demoLine{
				{Desc: "Afrihost VDSL Line Rental - February 2026", Qty: 1, Rate: 897},
			},
		},
		{
			File:     "cactuscraft_chem.pdf",
			Supplier: "CACTUSCRAFT CC",
			TaxID:    "4890012345",
			Number:   "CC-2026-007",
			Date:     "20/01/2026",
			Lines: []demoLine{
				{Desc: "Sodium Hydroxide 50% Solution 25kg", Code: "CHEM-NAOH-25", Qty: 2, Rate: 1250},
				{Desc: "Monthly Software Subscription Feb 2026", Qty: 1, Rate: 499},
			},
		},
	}
	for _, inv := range invoices {
		path := filepath.Join(outputDir, inv.File)
		if err := writeInvoicePDF(path, inv); err != nil {
			log.Fatalf("❌ Failed to write %s: %v", path, err)
		}
		fmt.Printf("   📄 %s\n", path)
	}

	fmt.Println()
	fmt.Printf("🎉 Done. Upload the PDFs in %s through POST /api/imports/upload.\n", outputDir)
}

func seedAdmin(db *database.DB, cfg *config.Config) {
	var count int64
	db.Model(&models.User{}).Count(&count)
	if count > 0 {
		return
	}
	password := cfg.Admin.Password
	if password == "" {
		password = "admin"
		fmt.Println("⚠️  ADMIN_PASSWORD not set, using default password 'admin'")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		log.Fatalf("❌ Failed to hash admin password: %v", err)
	}
	if err := db.Create(&models.User{
		Username: cfg.Admin.Username,
		Password: hash,
		Role:     "admin",
		IsActive: true,
	}).Error; err != nil {
		log.Fatalf("❌ Failed to create admin user: %v", err)
	}
	fmt.Printf("✅ Created admin user %q\n", cfg.Admin.Username)
}

type demoInvoice struct {
	File     string
	Supplier string
	TaxID    string
	Number   string
	Date     string
	Lines    []demoLine
}

type demoLine struct {
	Desc string
	Code string
	Qty  float64
	Rate float64
}

// writeInvoicePDF renders a plausible supplier invoice: letterhead, invoice
// metadata, a line-item table, VAT totals and a payment QR code.
func writeInvoicePDF(path string, inv demoInvoice) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	// Letterhead
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(120, 10, inv.Supplier)
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "TAX INVOICE", "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	if inv.TaxID != "" {
		pdf.Cell(0, 6, "VAT Reg No: "+inv.TaxID)
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(40, 6, "Invoice No:")
	pdf.Cell(60, 6, inv.Number)
	pdf.Ln(6)
	pdf.Cell(40, 6, "Invoice Date:")
	pdf.Cell(60, 6, inv.Date)
	pdf.Ln(12)

	// Line-item table
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(25, 8, "Code", "1", 0, "L", true, 0, "")
	pdf.CellFormat(85, 8, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(15, 8, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(25, 8, "Unit Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 8, "Amount", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	subtotal := 0.0
	for _, line := range inv.Lines {
		amount := line.Qty * line.Rate
		subtotal += amount
		pdf.CellFormat(25, 8, line.Code, "1", 0, "L", false, 0, "")
		pdf.CellFormat(85, 8, line.Desc, "1", 0, "L", false, 0, "")
		pdf.CellFormat(15, 8, fmt.Sprintf("%.0f", line.Qty), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 8, fmt.Sprintf("%.2f", line.Rate), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", amount), "1", 1, "R", false, 0, "")
	}

	// Totals (15% VAT, rates exclusive)
	vat := subtotal * 0.15
	pdf.Ln(4)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(150, 7, "Subtotal", "", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, fmt.Sprintf("%.2f", subtotal), "", 1, "R", false, 0, "")
	pdf.CellFormat(150, 7, "VAT @ 15%", "", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, fmt.Sprintf("%.2f", vat), "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(150, 8, "Total Due", "", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", subtotal+vat), "", 1, "R", false, 0, "")

	// Payment QR (supplier|invoice|amount), like the pay-by-scan blocks on
	// real invoices.
	qrContent := fmt.Sprintf("PAY|%s|%s|%.2f", inv.Supplier, inv.Number, subtotal+vat)
	qrPng, err := qrcode.Encode(qrContent, qrcode.Medium, 256)
	if err != nil {
		return err
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader("payqr", opts, bytes.NewReader(qrPng))
	pdf.ImageOptions("payqr", 15, pdf.GetY()+8, 30, 30, false, opts, 0, "")

	return pdf.OutputFileAndClose(path)
}
