package invoice

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Canonical invoice categories. Free-form input is mapped onto these by
// NormalizeCategory and CanonicalCategory.
const (
	CategoryMobile    = "Mobil"
	CategoryInternet  = "Internet"
	CategoryElectric  = "El"
	CategoryInsurance = "Försäkring"
	CategoryStreaming = "Streaming"
	CategoryBanking   = "Bank"
	CategoryService   = "Tjänst"
	CategoryOther     = "Övrigt"
)

// Canonical payment methods.
const (
	PaymentAutogiro = "Autogiro"
	PaymentEInvoice = "E-faktura"
	PaymentBankgiro = "Bankgiro"
	PaymentPlusgiro = "Plusgiro"
	PaymentCard     = "Kort"
	PaymentSwish    = "Swish"
	PaymentUnknown  = "Okänt"
)

// UnknownVendor is the vendor placeholder when no vendor line is found.
const UnknownVendor = "Okänd leverantör"

// NoClearSource is the provenance sentinel when no source line was found.
const NoClearSource = "Ingen tydlig källa hittades i texten."

// FieldKeys lists every extracted field that carries its own FieldMeta
// entry, in presentation order.
var FieldKeys = []string{
	"vendorName",
	"category",
	"monthlyCost",
	"totalAmount",
	"currency",
	"dueDate",
	"invoiceDate",
	"customerNumber",
	"invoiceNumber",
	"organizationNumber",
	"ocrNumber",
	"vatAmount",
	"paymentMethod",
}

// Invoice holds the canonical extracted invoice fields. Dates are ISO
// strings (YYYY-MM-DD) or empty, amounts are nil when absent.
type Invoice struct {
	VendorName         string           `json:"vendorName"`
	Category           string           `json:"category"`
	MonthlyCost        *decimal.Decimal `json:"monthlyCost"`
	TotalAmount        *decimal.Decimal `json:"totalAmount"`
	Currency           string           `json:"currency"`
	DueDate            string           `json:"dueDate"`
	InvoiceDate        string           `json:"invoiceDate"`
	CustomerNumber     string           `json:"customerNumber"`
	InvoiceNumber      string           `json:"invoiceNumber"`
	OrganizationNumber string           `json:"organizationNumber"`
	OCRNumber          string           `json:"ocrNumber"`
	VATAmount          *decimal.Decimal `json:"vatAmount"`
	PaymentMethod      string           `json:"paymentMethod"`
	Confidence         float64          `json:"confidence"`
}

// FieldMeta is the per-field provenance record: how trustworthy a value is
// and which source line plausibly produced it.
type FieldMeta struct {
	Confidence float64 `json:"confidence"`
	SourceText string  `json:"sourceText"`
}

var (
	amountCleanupPattern = regexp.MustCompile(`\s+`)
	currencyWordPattern  = regexp.MustCompile(`(?i)kr|sek|eur|usd`)
	isoDatePattern       = regexp.MustCompile(`^(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})$`)
	euroDatePattern      = regexp.MustCompile(`^(\d{1,2})[-/.](\d{1,2})[-/.](\d{2,4})$`)
)

// ParseAmount converts a formatted amount like "1 234,56 kr" into a
// decimal. Returns nil when the text holds no parseable number.
func ParseAmount(value string) *decimal.Decimal {
	cleaned := strings.ReplaceAll(value, " ", " ")
	cleaned = amountCleanupPattern.ReplaceAllString(cleaned, "")
	cleaned = currencyWordPattern.ReplaceAllString(cleaned, "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return nil
	}

	parsed, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil
	}
	return &parsed
}

// NormalizeDate canonicalizes ISO-ish and European day-first dates to
// YYYY-MM-DD. Two-digit years are taken as 20xx. Returns "" when the text
// is not a recognizable date.
func NormalizeDate(value string) string {
	text := strings.TrimSpace(value)
	if text == "" {
		return ""
	}

	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		return m[1] + "-" + pad2(m[2]) + "-" + pad2(m[3])
	}

	if m := euroDatePattern.FindStringSubmatch(text); m != nil {
		year := m[3]
		if len(year) == 2 {
			year = "20" + year
		}
		return year + "-" + pad2(m[2]) + "-" + pad2(m[1])
	}

	return ""
}

var categoryAliases = map[string]string{
	"mobil":        CategoryMobile,
	"mobile":       CategoryMobile,
	"telefoni":     CategoryMobile,
	"internet":     CategoryInternet,
	"broadband":    CategoryInternet,
	"bredband":     CategoryInternet,
	"el":           CategoryElectric,
	"electricity":  CategoryElectric,
	"försäkring":   CategoryInsurance,
	"forsakring":   CategoryInsurance,
	"insurance":    CategoryInsurance,
	"streaming":    CategoryStreaming,
	"bank":         CategoryBanking,
	"tjänst":       CategoryService,
	"tjanst":       CategoryService,
	"service":      CategoryService,
	"tjänster":     CategoryService,
	"tjanster":     CategoryService,
	"hantverk":     CategoryService,
	"installation": CategoryService,
	"renovering":   CategoryService,
	"bygg":         CategoryService,
	"övrigt":       CategoryOther,
	"ovrigt":       CategoryOther,
	"other":        CategoryOther,
}

// NormalizeCategory maps known aliases onto the canonical category names.
// Unrecognized non-empty input is passed through untouched so the caller
// can still display what the extraction produced.
func NormalizeCategory(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return CategoryOther
	}
	if canonical, ok := categoryAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// CanonicalCategory is the strict variant: anything that is not a known
// category alias collapses to Övrigt.
func CanonicalCategory(value string) string {
	if canonical, ok := categoryAliases[strings.ToLower(strings.TrimSpace(value))]; ok {
		return canonical
	}
	return CategoryOther
}

var paymentAliases = map[string]string{
	"autogiro":  PaymentAutogiro,
	"e-faktura": PaymentEInvoice,
	"efaktura":  PaymentEInvoice,
	"bankgiro":  PaymentBankgiro,
	"plusgiro":  PaymentPlusgiro,
	"kort":      PaymentCard,
	"swish":     PaymentSwish,
	"okänt":     PaymentUnknown,
	"okant":     PaymentUnknown,
	"unknown":   PaymentUnknown,
}

// NormalizePaymentMethod maps known aliases onto the canonical payment
// method names, passing unrecognized non-empty input through.
func NormalizePaymentMethod(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return PaymentUnknown
	}
	if canonical, ok := paymentAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

func cleanString(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func pad2(value string) string {
	if len(value) == 1 {
		return "0" + value
	}
	return value
}
