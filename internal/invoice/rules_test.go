package invoice_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/TheoLangborg/MinFakturaKoll/internal/invoice"
)

var _ = Describe("ExtractWithRules", func() {
	var (
		text      string
		extracted *invoice.Invoice
	)

	JustBeforeEach(func() {
		extracted = invoice.ExtractWithRules(text)
	})

	When("scanning a typical phone invoice", func() {
		BeforeEach(func() {
			text = "Telia\nFakturanummer: 12345\nAtt betala: 299 kr\nFörfallodatum: 2024-03-15"
		})

		It("takes the vendor from the first line", func() {
			Expect(extracted.VendorName).To(Equal("Telia"))
		})

		It("finds the invoice number", func() {
			Expect(extracted.InvoiceNumber).To(Equal("12345"))
		})

		It("parses the total amount", func() {
			Expect(extracted.TotalAmount).To(HaveValue(Equal(dec("299"))))
		})

		It("normalizes the due date", func() {
			Expect(extracted.DueDate).To(Equal("2024-03-15"))
		})

		It("classifies the category from the brand name", func() {
			Expect(extracted.Category).To(Equal(invoice.CategoryMobile))
		})

		It("scores confidence from the matched anchors", func() {
			Expect(extracted.Confidence).To(BeNumerically("~", 0.85, 1e-9))
		})
	})

	When("scanning empty text", func() {
		BeforeEach(func() {
			text = ""
		})

		It("falls back to the unknown vendor placeholder", func() {
			Expect(extracted.VendorName).To(Equal(invoice.UnknownVendor))
		})

		It("leaves amounts unset", func() {
			Expect(extracted.TotalAmount).To(BeNil())
			Expect(extracted.MonthlyCost).To(BeNil())
		})

		It("keeps the base confidence", func() {
			Expect(extracted.Confidence).To(BeNumerically("~", 0.25, 1e-9))
		})

		It("defaults the currency to SEK", func() {
			Expect(extracted.Currency).To(Equal("SEK"))
		})
	})

	When("the text states an explicit monthly price", func() {
		BeforeEach(func() {
			text = "Bahnhof\nFakturanummer: 771\nAtt betala: 500 kr\nBredband 250 kr/mån"
		})

		It("keeps the monthly cost separate from the total", func() {
			Expect(extracted.TotalAmount).To(HaveValue(Equal(dec("500"))))
			Expect(extracted.MonthlyCost).To(HaveValue(Equal(dec("250"))))
		})

		It("classifies as Internet", func() {
			Expect(extracted.Category).To(Equal(invoice.CategoryInternet))
		})
	})

	When("scanning a craft invoice that mentions a phone brand", func() {
		BeforeEach(func() {
			text = "Rörmokarna AB\nInstallation golvvärme\nArbete (timmar): 12\nKontakt via mobil\nTotal: 15000 kr"
		})

		It("prefers the service category", func() {
			Expect(extracted.Category).To(Equal(invoice.CategoryService))
		})
	})

	When("scanning an invoice paid by autogiro", func() {
		BeforeEach(func() {
			text = "Folksam\nBetalsätt: Autogiro\nBelopp: 279 kr"
		})

		It("detects the payment method", func() {
			Expect(extracted.PaymentMethod).To(Equal(invoice.PaymentAutogiro))
		})

		It("classifies as insurance", func() {
			Expect(extracted.Category).To(Equal(invoice.CategoryInsurance))
		})
	})

	When("amounts use Swedish formatting", func() {
		BeforeEach(func() {
			text = "Fortum\nAtt betala: 1 234,56 kr\nVarav moms 246,91 kr"
		})

		It("parses grouped digits and decimal comma", func() {
			Expect(extracted.TotalAmount).To(HaveValue(Equal(dec("1234.56"))))
		})

		It("parses the VAT amount", func() {
			Expect(extracted.VATAmount).To(HaveValue(Equal(dec("246.91"))))
		})
	})
})

var _ = Describe("GuessPaymentMethod", func() {
	It("returns Okänt when nothing matches", func() {
		Expect(invoice.GuessPaymentMethod("vanlig text")).To(Equal(invoice.PaymentUnknown))
	})

	It("finds swish mentions", func() {
		Expect(invoice.GuessPaymentMethod("Betala gärna med Swish")).To(Equal(invoice.PaymentSwish))
	})
})
