package invoice

import (
	"regexp"
	"strings"

	"github.com/TheoLangborg/MinFakturaKoll/internal/scanning"
	"github.com/shopspring/decimal"
)

var sameAmountTolerance = decimal.NewFromFloat(0.005)

// Normalize merges a raw extraction result with the deterministic rule
// fallback over the same source text and produces the canonical Invoice
// plus per-field provenance. raw may be nil, in which case the rules carry
// everything. Normalizing an already normalized result is a no-op.
func Normalize(raw *scanning.RawResult, sourceText string) (*Invoice, map[string]FieldMeta) {
	fallback := ExtractWithRules(sourceText)

	var rawExtracted scanning.RawInvoice
	var rawMeta map[string]scanning.RawFieldMeta
	if raw != nil {
		rawExtracted = raw.Extracted
		rawMeta = raw.FieldMeta
	}

	totalAmount := pickAmount(rawExtracted.TotalAmount, fallback.TotalAmount)
	monthlyCost := resolveMonthlyCost(
		copyAmount(rawExtracted.MonthlyCost),
		fallback.MonthlyCost,
		totalAmount,
		rawMeta["monthlyCost"].SourceText,
		sourceText,
	)
	vatAmount := pickAmount(rawExtracted.VATAmount, fallback.VATAmount)

	confidence := fallback.Confidence
	if rawExtracted.Confidence != nil {
		confidence = *rawExtracted.Confidence
	}

	aiCategory := NormalizeCategory(stringValue(rawExtracted.Category))
	fallbackCategory := NormalizeCategory(fallback.Category)
	category := resolveCategoryPreference(aiCategory, fallbackCategory, sourceText)

	extracted := &Invoice{
		VendorName:         cleanString(stringValue(rawExtracted.VendorName), fallback.VendorName),
		Category:           category,
		MonthlyCost:        monthlyCost,
		TotalAmount:        totalAmount,
		Currency:           cleanString(stringValue(rawExtracted.Currency), "SEK"),
		DueDate:            NormalizeDate(firstNonEmpty(stringValue(rawExtracted.DueDate), fallback.DueDate)),
		InvoiceDate:        NormalizeDate(firstNonEmpty(stringValue(rawExtracted.InvoiceDate), fallback.InvoiceDate)),
		CustomerNumber:     cleanString(stringValue(rawExtracted.CustomerNumber), fallback.CustomerNumber),
		InvoiceNumber:      cleanString(stringValue(rawExtracted.InvoiceNumber), fallback.InvoiceNumber),
		OrganizationNumber: cleanString(stringValue(rawExtracted.OrganizationNumber), fallback.OrganizationNumber),
		OCRNumber:          cleanString(stringValue(rawExtracted.OCRNumber), fallback.OCRNumber),
		VATAmount:          vatAmount,
		PaymentMethod:      NormalizePaymentMethod(firstNonEmpty(stringValue(rawExtracted.PaymentMethod), fallback.PaymentMethod)),
		Confidence:         clamp(confidence, 0, 1),
	}

	return extracted, buildFieldMeta(extracted, rawMeta, sourceText)
}

// MissingFields lists the user-facing labels for the critical fields the
// extraction could not fill.
func MissingFields(extracted *Invoice) []string {
	missing := []string{}

	if extracted.VendorName == "" || extracted.VendorName == UnknownVendor {
		missing = append(missing, "Leverantör")
	}
	if extracted.TotalAmount == nil {
		missing = append(missing, "Totalbelopp")
	}
	if extracted.DueDate == "" {
		missing = append(missing, "Förfallodatum")
	}
	if extracted.InvoiceNumber == "" {
		missing = append(missing, "Fakturanummer")
	}
	if extracted.CustomerNumber == "" && extracted.OCRNumber == "" {
		missing = append(missing, "Kundnummer eller OCR-nummer")
	}

	return missing
}

// resolveMonthlyCost guards against the common model mistake of copying the
// invoice total into monthlyCost. A candidate equal to the total only
// survives when the surrounding text carries an explicit monthly signal.
func resolveMonthlyCost(rawMonthly, fallbackMonthly, totalAmount *decimal.Decimal, rawMonthlySource, fullSource string) *decimal.Decimal {
	candidate := rawMonthly
	if candidate == nil {
		candidate = fallbackMonthly
	}
	if candidate == nil {
		return nil
	}
	if totalAmount == nil {
		return candidate
	}

	sameAsTotal := candidate.Sub(*totalAmount).Abs().LessThan(sameAmountTolerance)
	if !sameAsTotal {
		return candidate
	}

	if hasMonthlySignals(rawMonthlySource) || hasMonthlySignals(fullSource) {
		return candidate
	}
	return nil
}

// resolveCategoryPreference arbitrates between the model's category and the
// rule guess. A craft or labor invoice stays Tjänst even when the model
// picked a subscription category, as long as the text itself carries
// service wording.
func resolveCategoryPreference(aiCategory, fallbackCategory, sourceText string) string {
	if fallbackCategory == CategoryService && aiCategory != CategoryService && hasServiceSignals(sourceText) {
		return CategoryService
	}
	if aiCategory != "" && aiCategory != CategoryOther {
		return aiCategory
	}
	if fallbackCategory != "" && fallbackCategory != CategoryOther {
		return fallbackCategory
	}
	if aiCategory != "" {
		return aiCategory
	}
	if fallbackCategory != "" {
		return fallbackCategory
	}
	return CategoryOther
}

func buildFieldMeta(extracted *Invoice, rawMeta map[string]scanning.RawFieldMeta, sourceText string) map[string]FieldMeta {
	meta := make(map[string]FieldMeta, len(FieldKeys))

	for _, key := range FieldKeys {
		rawEntry := rawMeta[key]

		source := strings.TrimSpace(rawEntry.SourceText)
		if source == "" {
			source = inferSourceText(sourceText, key, extracted)
		}
		if source == "" {
			source = NoClearSource
		}

		var fieldConfidence float64
		if rawEntry.Confidence != nil {
			fieldConfidence = clamp(*rawEntry.Confidence, 0, 1)
		} else {
			fieldConfidence = inferFieldConfidence(key, fieldIsEmpty(extracted, key), extracted.Confidence, source)
		}

		meta[key] = FieldMeta{Confidence: fieldConfidence, SourceText: source}
	}

	return meta
}

// inferFieldConfidence derives a per-field confidence from the global score
// when the backend did not supply one. Empty fields always sit at 0.25.
func inferFieldConfidence(key string, empty bool, globalConfidence float64, sourceText string) float64 {
	if empty {
		return 0.25
	}

	base := clamp(globalConfidence, 0.35, 0.95)
	base -= 0.08

	if sourceText != "" && sourceText != NoClearSource {
		base += 0.12
	} else {
		base -= 0.08
	}

	if key == "category" || key == "paymentMethod" {
		base -= 0.05
	}

	return clamp(base, 0, 1)
}

var sourcePatterns = map[string][]*regexp.Regexp{
	"vendorName":         {regexp.MustCompile(`^.{2,}$`)},
	"category":           {regexp.MustCompile(`(?i)abonnemang|bredband|internet|elfaktura|försäkring|bank|stream|installation|hantverk|rot|renovering|service|arbete`)},
	"monthlyCost":        {regexp.MustCompile(`(?i)månadskostnad|månadsavgift|per\s*månad|/\s*mån|kr\s*/\s*mån|abonnemang`)},
	"totalAmount":        {regexp.MustCompile(`(?i)att\s*betala|belopp|total|summa`)},
	"currency":           {regexp.MustCompile(`(?i)sek|eur|usd|kr`)},
	"dueDate":            {regexp.MustCompile(`(?i)förfallo|förfaller|due\s*date`)},
	"invoiceDate":        {regexp.MustCompile(`(?i)fakturadatum|invoice\s*date|datum`)},
	"customerNumber":     {regexp.MustCompile(`(?i)kundnummer|customer\s*number|account`)},
	"invoiceNumber":      {regexp.MustCompile(`(?i)fakturanummer|invoice\s*number|faktura\s*nr`)},
	"organizationNumber": {regexp.MustCompile(`(?i)organisationsnummer|org\.?\s*nr|orgnr`)},
	"ocrNumber":          {regexp.MustCompile(`(?i)ocr|betalreferens|reference`)},
	"vatAmount":          {regexp.MustCompile(`(?i)moms|vat|varav\s+moms`)},
	"paymentMethod":      {regexp.MustCompile(`(?i)autogiro|e-faktura|efaktura|bankgiro|plusgiro|kort|swish`)},
}

// inferSourceText finds the line of the source text that most plausibly
// produced a field value: first a line containing the value itself, then a
// line matching the field's label vocabulary.
func inferSourceText(text, key string, extracted *Invoice) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) == 0 {
		return ""
	}

	for _, line := range lines {
		if lineMatchesValue(line, extracted, key) {
			return line
		}
	}

	for _, pattern := range sourcePatterns[key] {
		for _, line := range lines {
			if pattern.MatchString(line) {
				return line
			}
		}
	}

	if key == "vendorName" {
		return lines[0]
	}

	return ""
}

var isoValuePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func lineMatchesValue(line string, extracted *Invoice, key string) bool {
	if fieldIsEmpty(extracted, key) {
		return false
	}
	lowerLine := strings.ToLower(line)

	if amount := fieldAmount(extracted, key); amount != nil {
		rounded := amount.Round(2).String()
		integer := amount.Round(0).String()
		return strings.Contains(lowerLine, rounded) || strings.Contains(lowerLine, integer)
	}

	textValue := strings.ToLower(strings.TrimSpace(fieldText(extracted, key)))
	if textValue == "" {
		return false
	}

	if isoValuePattern.MatchString(textValue) {
		parts := strings.SplitN(textValue, "-", 3)
		year, month, day := parts[0], parts[1], parts[2]
		candidates := []string{
			year + "-" + month + "-" + day,
			year + "/" + month + "/" + day,
			day + "-" + month + "-" + year,
			day + "/" + month + "/" + year,
		}
		for _, candidate := range candidates {
			if strings.Contains(lowerLine, candidate) {
				return true
			}
		}
		return false
	}

	return len(textValue) >= 3 && strings.Contains(lowerLine, textValue)
}

func fieldText(extracted *Invoice, key string) string {
	switch key {
	case "vendorName":
		return extracted.VendorName
	case "category":
		return extracted.Category
	case "currency":
		return extracted.Currency
	case "dueDate":
		return extracted.DueDate
	case "invoiceDate":
		return extracted.InvoiceDate
	case "customerNumber":
		return extracted.CustomerNumber
	case "invoiceNumber":
		return extracted.InvoiceNumber
	case "organizationNumber":
		return extracted.OrganizationNumber
	case "ocrNumber":
		return extracted.OCRNumber
	case "paymentMethod":
		return extracted.PaymentMethod
	default:
		return ""
	}
}

func fieldAmount(extracted *Invoice, key string) *decimal.Decimal {
	switch key {
	case "monthlyCost":
		return extracted.MonthlyCost
	case "totalAmount":
		return extracted.TotalAmount
	case "vatAmount":
		return extracted.VATAmount
	default:
		return nil
	}
}

func fieldIsEmpty(extracted *Invoice, key string) bool {
	switch key {
	case "monthlyCost", "totalAmount", "vatAmount":
		return fieldAmount(extracted, key) == nil
	default:
		return strings.TrimSpace(fieldText(extracted, key)) == ""
	}
}

func pickAmount(raw, fallback *decimal.Decimal) *decimal.Decimal {
	if raw != nil {
		return copyAmount(raw)
	}
	return fallback
}

func copyAmount(value *decimal.Decimal) *decimal.Decimal {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
