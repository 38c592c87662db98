package invoice

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice lifecycle statuses relative to the due date.
const (
	StatusActive  = "Aktiv"
	StatusDueSoon = "Förfaller snart"
	StatusOverdue = "Förfallen"
	StatusUnknown = "Okänt"
)

// Billing types.
const (
	BillingSubscription = "Abonnemang"
	BillingOneTime      = "Engång"
	BillingUnclear      = "Oklart"
)

// Entry is a stored scan: the extracted invoice plus ownership, lifecycle
// and provenance metadata.
type Entry struct {
	Invoice

	ID           string               `json:"id"`
	OwnerID      string               `json:"ownerId"`
	BillingType  string               `json:"billingType"`
	Status       string               `json:"status"`
	SourceType   string               `json:"sourceType"`
	FileName     string               `json:"fileName"`
	FilePreview  *FilePreview         `json:"filePreview,omitempty"`
	AnalysisMode string               `json:"analysisMode"`
	FieldMeta    map[string]FieldMeta `json:"fieldMeta,omitempty"`
	ScannedAt    time.Time            `json:"scannedAt"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// FilePreview is the stored preview of the scanned document, bounded so a
// history entry stays a reasonable size.
type FilePreview struct {
	PreviewKind       string `json:"previewKind"`
	PreviewSrc        string `json:"previewSrc"`
	TextPreview       string `json:"textPreview"`
	FileName          string `json:"fileName"`
	FileType          string `json:"fileType"`
	UnavailableReason string `json:"unavailableReason"`
}

// InferStatus derives the lifecycle status from the due date. Days are
// counted between midnight today and midnight on the due date, rounding
// partial days up so a DST transition does not shorten the window.
func InferStatus(dueDate string, now time.Time) string {
	if strings.TrimSpace(dueDate) == "" {
		return StatusUnknown
	}

	due, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(dueDate), now.Location())
	if err != nil {
		return StatusUnknown
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	diffDays := int(math.Ceil(due.Sub(today).Hours() / 24))

	if diffDays < 0 {
		return StatusOverdue
	}
	if diffDays <= 7 {
		return StatusDueSoon
	}
	return StatusActive
}

var oneTimeCategoryPattern = regexp.MustCompile(`tjanst|service|hantverk|installation|renovering|bygg|rot`)

// InferBillingType normalizes a declared billing type, or derives one from
// the invoice context when the declaration is absent or unrecognized.
// Service category invoices are one-time work regardless of amounts.
func InferBillingType(value, category string, monthlyCost, totalAmount *decimal.Decimal) string {
	switch Fold(value) {
	case "abonnemang", "subscription", "recurring":
		return BillingSubscription
	case "engang", "one-time", "onetime":
		return BillingOneTime
	case "oklart", "okant":
		return BillingUnclear
	}

	if oneTimeCategoryPattern.MatchString(Fold(category)) {
		return BillingOneTime
	}
	if monthlyCost != nil && monthlyCost.IsPositive() {
		return BillingSubscription
	}
	if totalAmount != nil && totalAmount.IsPositive() {
		return BillingOneTime
	}
	return BillingUnclear
}
