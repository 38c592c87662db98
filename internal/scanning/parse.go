package scanning

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	amountSpacePattern    = regexp.MustCompile(`\s+`)
	amountCurrencyPattern = regexp.MustCompile(`(?i)kr|sek|eur|usd`)
)

// parseScanJSON parses the model response into a RawResult. Model output is
// messy: markdown fences, prose around the JSON object, amounts quoted as
// strings with currency suffixes. Everything coercible is coerced, the rest
// becomes nil.
func parseScanJSON(text string) (*RawResult, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Carve out the outermost JSON object
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var payload map[string]any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	// Some models skip the wrapper and return the field map directly
	extracted := payload
	if sub, ok := payload["extracted"].(map[string]any); ok {
		extracted = sub
	}

	result := &RawResult{
		Extracted: RawInvoice{
			VendorName:         asString(extracted["vendorName"]),
			Category:           asString(extracted["category"]),
			MonthlyCost:        asAmount(extracted["monthlyCost"]),
			TotalAmount:        asAmount(extracted["totalAmount"]),
			Currency:           asString(extracted["currency"]),
			DueDate:            asString(extracted["dueDate"]),
			InvoiceDate:        asString(extracted["invoiceDate"]),
			CustomerNumber:     asString(extracted["customerNumber"]),
			InvoiceNumber:      asString(extracted["invoiceNumber"]),
			OrganizationNumber: asString(extracted["organizationNumber"]),
			OCRNumber:          asString(extracted["ocrNumber"]),
			VATAmount:          asAmount(extracted["vatAmount"]),
			PaymentMethod:      asString(extracted["paymentMethod"]),
			Confidence:         asFloat(extracted["confidence"]),
		},
		FieldMeta: map[string]RawFieldMeta{},
	}

	if rawMeta, ok := payload["fieldMeta"].(map[string]any); ok {
		for key, value := range rawMeta {
			entry, ok := value.(map[string]any)
			if !ok {
				continue
			}
			meta := RawFieldMeta{Confidence: asFloat(entry["confidence"])}
			if source := asString(entry["sourceText"]); source != nil {
				meta.SourceText = *source
			}
			result.FieldMeta[key] = meta
		}
	}

	return result, nil
}

func asString(value any) *string {
	text, ok := value.(string)
	if !ok {
		return nil
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func asFloat(value any) *float64 {
	number, ok := value.(float64)
	if !ok {
		return nil
	}
	return &number
}

func asAmount(value any) *decimal.Decimal {
	switch typed := value.(type) {
	case float64:
		amount := decimal.NewFromFloat(typed)
		return &amount
	case string:
		cleaned := amountSpacePattern.ReplaceAllString(typed, "")
		cleaned = amountCurrencyPattern.ReplaceAllString(cleaned, "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
		if cleaned == "" {
			return nil
		}
		amount, err := decimal.NewFromString(cleaned)
		if err != nil {
			return nil
		}
		return &amount
	default:
		return nil
	}
}
