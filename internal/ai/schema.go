package ai

import (
	"github.com/google/generative-ai-go/genai"
)

// invoiceSchema constrains the model to the exact JSON shape the pipeline
// decodes. Keeping the schema on the request (rather than hoping the prompt
// is obeyed) is what makes the decode step boring.
func invoiceSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"supplier_name": {
				Type:        genai.TypeString,
				Description: "Legal name of the company that ISSUED the invoice, exactly as printed in the header. Never the bill-to party.",
			},
			"supplier_tax_id": {
				Type:        genai.TypeString,
				Description: "Supplier VAT/tax registration number if printed, digits only preferred. Empty string if absent.",
			},
			"invoice_number": {
				Type:        genai.TypeString,
				Description: "Invoice or tax-invoice number as printed.",
			},
			"invoice_date": {
				Type:        genai.TypeString,
				Description: "Invoice date exactly as printed (any format).",
			},
			"due_date": {
				Type:        genai.TypeString,
				Description: "Payment due date as printed, empty if absent.",
			},
			"currency": {
				Type:        genai.TypeString,
				Description: "ISO currency code (ZAR, USD, EUR). Infer from the symbol if no code is printed.",
			},
			"subtotal": {
				Type:        genai.TypeNumber,
				Description: "Total before tax.",
			},
			"tax_amount": {
				Type:        genai.TypeNumber,
				Description: "Total VAT/tax amount.",
			},
			"total_amount": {
				Type:        genai.TypeNumber,
				Description: "Grand total including tax.",
			},
			"is_tax_inclusive": {
				Type:        genai.TypeBoolean,
				Description: "True when the line amounts already include tax.",
			},
			"line_items": {
				Type:        genai.TypeArray,
				Description: "One entry per billed line, in document order.",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"item_code": {
							Type:        genai.TypeString,
							Description: "Product/SKU code column if the invoice has one, else empty.",
						},
						"description": {
							Type:        genai.TypeString,
							Description: "Line description exactly as printed.",
						},
						"quantity": {
							Type:        genai.TypeNumber,
							Description: "Quantity billed; 1 if the invoice shows none.",
						},
						"unit_price": {
							Type:        genai.TypeNumber,
							Description: "Price per unit.",
						},
						"amount": {
							Type:        genai.TypeNumber,
							Description: "Extended line amount as printed.",
						},
					},
					Required: []string{"description", "quantity", "unit_price", "amount"},
				},
			},
		},
		Required: []string{"supplier_name", "invoice_number", "total_amount", "line_items"},
	}
}
