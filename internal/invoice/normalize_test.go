package invoice_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/TheoLangborg/MinFakturaKoll/internal/invoice"
	"github.com/shopspring/decimal"

	"github.com/TheoLangborg/MinFakturaKoll/internal/scanning"
)

func strPtr(value string) *string { return &value }

func floatPtr(value float64) *float64 { return &value }

func decPtr(value string) *decimal.Decimal {
	parsed := decimal.RequireFromString(value)
	return &parsed
}

var _ = Describe("Normalize", func() {
	When("no raw result is available", func() {
		It("falls back entirely to the rule extraction", func() {
			extracted, meta := invoice.Normalize(nil, "Telia\nFakturanummer: 12345\nAtt betala: 299 kr\nFörfallodatum: 2024-03-15")

			Expect(extracted.VendorName).To(Equal("Telia"))
			Expect(extracted.TotalAmount).To(HaveValue(Equal(dec("299"))))
			Expect(extracted.Category).To(Equal(invoice.CategoryMobile))
			Expect(meta).To(HaveLen(len(invoice.FieldKeys)))
		})
	})

	When("the raw result carries values", func() {
		var (
			raw       *scanning.RawResult
			extracted *invoice.Invoice
			meta      map[string]invoice.FieldMeta
		)

		BeforeEach(func() {
			raw = &scanning.RawResult{
				Extracted: scanning.RawInvoice{
					VendorName:  strPtr("Telia Sverige AB"),
					Category:    strPtr("Mobil"),
					TotalAmount: decPtr("299"),
					Currency:    strPtr("SEK"),
					DueDate:     strPtr("2024-03-15"),
					Confidence:  floatPtr(0.92),
				},
				FieldMeta: map[string]scanning.RawFieldMeta{
					"totalAmount": {Confidence: floatPtr(0.95), SourceText: "Att betala: 299 kr"},
				},
			}
		})

		JustBeforeEach(func() {
			extracted, meta = invoice.Normalize(raw, "Telia\nAtt betala: 299 kr")
		})

		It("prefers raw values over the rule fallback", func() {
			Expect(extracted.VendorName).To(Equal("Telia Sverige AB"))
			Expect(extracted.Confidence).To(BeNumerically("~", 0.92, 1e-9))
		})

		It("keeps the backend provenance where supplied", func() {
			Expect(meta["totalAmount"].SourceText).To(Equal("Att betala: 299 kr"))
			Expect(meta["totalAmount"].Confidence).To(BeNumerically("~", 0.95, 1e-9))
		})

		It("infers provenance for the remaining fields", func() {
			Expect(meta["vendorName"].SourceText).NotTo(BeEmpty())
		})

		When("the raw confidence is out of range", func() {
			BeforeEach(func() {
				raw.Extracted.Confidence = floatPtr(3.7)
			})

			It("clamps the global confidence to 1", func() {
				Expect(extracted.Confidence).To(Equal(1.0))
			})
		})

		When("the raw confidence is negative", func() {
			BeforeEach(func() {
				raw.Extracted.Confidence = floatPtr(-2)
			})

			It("clamps the global confidence to 0", func() {
				Expect(extracted.Confidence).To(Equal(0.0))
			})
		})
	})

	When("the monthly cost equals the total without a monthly signal", func() {
		It("drops the monthly cost", func() {
			raw := &scanning.RawResult{
				Extracted: scanning.RawInvoice{
					MonthlyCost: decPtr("500"),
					TotalAmount: decPtr("500"),
				},
			}

			extracted, _ := invoice.Normalize(raw, "Bygg AB\nAtt betala: 500 kr")
			Expect(extracted.MonthlyCost).To(BeNil())
			Expect(extracted.TotalAmount).To(HaveValue(Equal(dec("500"))))
		})
	})

	When("the monthly cost equals the total with a monthly signal", func() {
		It("keeps the monthly cost", func() {
			raw := &scanning.RawResult{
				Extracted: scanning.RawInvoice{
					MonthlyCost: decPtr("500"),
					TotalAmount: decPtr("500"),
				},
				FieldMeta: map[string]scanning.RawFieldMeta{
					"monthlyCost": {SourceText: "500 kr/mån"},
				},
			}

			extracted, _ := invoice.Normalize(raw, "Bygg AB\nAtt betala: 500 kr")
			Expect(extracted.MonthlyCost).To(HaveValue(Equal(dec("500"))))
		})
	})

	When("the monthly cost differs from the total", func() {
		It("keeps both amounts", func() {
			raw := &scanning.RawResult{
				Extracted: scanning.RawInvoice{
					MonthlyCost: decPtr("250"),
					TotalAmount: decPtr("500"),
				},
			}

			extracted, _ := invoice.Normalize(raw, "Bahnhof\nAtt betala: 500 kr")
			Expect(extracted.MonthlyCost).To(HaveValue(Equal(dec("250"))))
			Expect(extracted.TotalAmount).To(HaveValue(Equal(dec("500"))))
		})
	})

	When("the model misses service wording the rules caught", func() {
		It("keeps the service category", func() {
			raw := &scanning.RawResult{
				Extracted: scanning.RawInvoice{Category: strPtr("Övrigt")},
			}

			extracted, _ := invoice.Normalize(raw, "Rörfirman\nInstallation och arbete (timmar): 8\nTotal: 9000 kr")
			Expect(extracted.Category).To(Equal(invoice.CategoryService))
		})
	})

	It("is idempotent over its own output", func() {
		sourceText := "Telia\nFakturanummer: 12345\nAtt betala: 299 kr\nFörfallodatum: 2024-03-15\nBetalsätt: Autogiro"
		first, firstMeta := invoice.Normalize(nil, sourceText)

		again := &scanning.RawResult{
			Extracted: scanning.RawInvoice{
				VendorName:         strPtr(first.VendorName),
				Category:           strPtr(first.Category),
				MonthlyCost:        first.MonthlyCost,
				TotalAmount:        first.TotalAmount,
				Currency:           strPtr(first.Currency),
				DueDate:            strPtr(first.DueDate),
				CustomerNumber:     strPtr(first.CustomerNumber),
				InvoiceNumber:      strPtr(first.InvoiceNumber),
				OrganizationNumber: strPtr(first.OrganizationNumber),
				OCRNumber:          strPtr(first.OCRNumber),
				VATAmount:          first.VATAmount,
				PaymentMethod:      strPtr(first.PaymentMethod),
				Confidence:         floatPtr(first.Confidence),
			},
		}

		second, _ := invoice.Normalize(again, sourceText)
		Expect(second.VendorName).To(Equal(first.VendorName))
		Expect(second.Category).To(Equal(first.Category))
		Expect(second.DueDate).To(Equal(first.DueDate))
		Expect(second.PaymentMethod).To(Equal(first.PaymentMethod))
		Expect(second.Confidence).To(BeNumerically("~", first.Confidence, 1e-9))
		Expect(firstMeta).To(HaveLen(len(invoice.FieldKeys)))
	})

	It("keeps every field confidence within [0, 1]", func() {
		_, meta := invoice.Normalize(nil, "Okänd text utan tydliga fält")
		for key, entry := range meta {
			Expect(entry.Confidence).To(BeNumerically(">=", 0), key)
			Expect(entry.Confidence).To(BeNumerically("<=", 1), key)
			Expect(entry.SourceText).NotTo(BeEmpty(), key)
		}
	})
})

var _ = Describe("MissingFields", func() {
	It("lists every critical gap for an empty extraction", func() {
		extracted := invoice.ExtractWithRules("")
		Expect(invoice.MissingFields(extracted)).To(Equal([]string{
			"Leverantör",
			"Totalbelopp",
			"Förfallodatum",
			"Fakturanummer",
			"Kundnummer eller OCR-nummer",
		}))
	})

	It("accepts an OCR number in place of a customer number", func() {
		extracted := invoice.ExtractWithRules("Telia\nOCR: 1234567890\nAtt betala: 299 kr\nFörfallodatum: 2024-03-15\nFakturanummer: 12")
		Expect(invoice.MissingFields(extracted)).NotTo(ContainElement("Kundnummer eller OCR-nummer"))
	})
})
