package scanning

import "github.com/shopspring/decimal"

// RawInvoice carries the field values exactly as the extraction backend
// reported them. Every field is a pointer so absent and null values stay
// distinguishable from zero values during normalization.
type RawInvoice struct {
	VendorName         *string          `json:"vendorName"`
	Category           *string          `json:"category"`
	MonthlyCost        *decimal.Decimal `json:"monthlyCost"`
	TotalAmount        *decimal.Decimal `json:"totalAmount"`
	Currency           *string          `json:"currency"`
	DueDate            *string          `json:"dueDate"`
	InvoiceDate        *string          `json:"invoiceDate"`
	CustomerNumber     *string          `json:"customerNumber"`
	InvoiceNumber      *string          `json:"invoiceNumber"`
	OrganizationNumber *string          `json:"organizationNumber"`
	OCRNumber          *string          `json:"ocrNumber"`
	VATAmount          *decimal.Decimal `json:"vatAmount"`
	PaymentMethod      *string          `json:"paymentMethod"`
	Confidence         *float64         `json:"confidence"`
}

// RawFieldMeta is the backend's own provenance claim for one field.
type RawFieldMeta struct {
	Confidence *float64 `json:"confidence"`
	SourceText string   `json:"sourceText"`
}

// RawResult is the unvalidated output of one extraction call.
type RawResult struct {
	Extracted RawInvoice              `json:"extracted"`
	FieldMeta map[string]RawFieldMeta `json:"fieldMeta"`
}

// Scanner defines the interface for invoice extraction backends
type Scanner interface {
	// ExtractInvoice analyzes invoice text and an optional uploaded
	// document and returns the raw extraction result
	ExtractInvoice(text string, file *FilePayload) (*RawResult, error)
	// Close closes the scanner and releases resources
	Close() error
}
