package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Extractor interacts with the Google Gemini API using the official SDK.
// The model is locked to a JSON response schema, so one instance is safe
// for concurrent use by the pipeline workers.
type Extractor struct {
	client      *genai.Client
	model       *genai.GenerativeModel
	modelName   string
	maxAttempts int
}

// NewExtractor creates a Gemini client configured for invoice extraction.
func NewExtractor(ctx context.Context, apiKey, modelName string, maxAttempts int) (*Extractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is empty")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = invoiceSchema()
	model.SetTemperature(0.1)
	model.SetMaxOutputTokens(8192)

	return &Extractor{
		client:      client,
		model:       model,
		modelName:   modelName,
		maxAttempts: maxAttempts,
	}, nil
}

// Close closes the client connection.
func (e *Extractor) Close() {
	if e.client != nil {
		e.client.Close()
	}
}

// ExtractInvoice sends the document to Gemini and decodes the structured
// result. CallInfo is returned even when the call fails, so the caller can
// log the attempt.
func (e *Extractor) ExtractInvoice(ctx context.Context, data []byte, mimeType string) (*InvoiceExtraction, *CallInfo, error) {
	info := &CallInfo{Model: e.modelName}
	start := time.Now()
	defer func() { info.Duration = time.Since(start) }()

	if len(data) == 0 {
		return nil, info, fmt.Errorf("empty document")
	}
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	parts := []genai.Part{
		genai.Blob{MIMEType: mimeType, Data: data},
		genai.Text(extractionPrompt),
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		info.Attempts = attempt

		if attempt > 1 {
			wait := time.Duration(attempt-1) * 2 * time.Second
			log.Printf("⚠️ Gemini attempt %d/%d after error: %v (waiting %s)", attempt, e.maxAttempts, lastErr, wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, info, ctx.Err()
			}
		}

		resp, err := e.model.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = fmt.Errorf("gemini generation error: %w", err)
			if !isRetryable(err) {
				return nil, info, lastErr
			}
			continue
		}

		text := responseText(resp)
		if text == "" {
			lastErr = fmt.Errorf("empty response from gemini")
			continue
		}

		extraction, err := DecodeExtraction(text)
		if err != nil {
			// Malformed JSON is usually a one-off; give the model another go.
			lastErr = err
			continue
		}
		return extraction, info, nil
	}

	return nil, info, lastErr
}

// DecodeExtraction parses the model's JSON reply, scrubs OCR noise from the
// text fields and normalises amounts to a tax-exclusive shape.
func DecodeExtraction(raw string) (*InvoiceExtraction, error) {
	var e InvoiceExtraction
	if err := json.Unmarshal([]byte(stripFences(raw)), &e); err != nil {
		return nil, fmt.Errorf("failed to parse extraction JSON: %w", err)
	}

	e.SupplierName = CleanOCRText(e.SupplierName)
	e.SupplierTaxID = strings.TrimSpace(e.SupplierTaxID)
	e.InvoiceNumber = CleanOCRText(e.InvoiceNumber)
	e.Currency = strings.ToUpper(strings.TrimSpace(e.Currency))

	lines := e.LineItems[:0]
	for _, line := range e.LineItems {
		line.ItemCode = CleanOCRText(line.ItemCode)
		line.Description = CleanOCRText(line.Description)
		if line.Description == "" && line.ItemCode == "" && float64(line.Amount) == 0 {
			continue
		}
		lines = append(lines, line)
	}
	e.LineItems = lines

	normalizeExtraction(&e)
	if err := validateExtraction(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}

// stripFences removes a ```json ... ``` wrapper when the model adds one
// despite the JSON response MIME type.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// isRetryable reports whether a generation error is worth another attempt:
// rate limits and transient server errors, not auth or request problems.
func isRetryable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "500", "503", "rate limit", "resource exhausted", "unavailable", "overloaded"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
