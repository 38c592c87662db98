package invoice_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/TheoLangborg/MinFakturaKoll/internal/invoice"
)

var _ = Describe("EmailTemplates", func() {
	var (
		extracted *invoice.Invoice
		templates []invoice.EmailTemplate
	)

	JustBeforeEach(func() {
		templates = invoice.EmailTemplates(extracted)
	})

	When("the invoice is fully extracted", func() {
		BeforeEach(func() {
			extracted = &invoice.Invoice{
				VendorName:     "Telia",
				Category:       "Mobil",
				CustomerNumber: "KU-991",
				InvoiceNumber:  "12345",
				TotalAmount:    decPtr("299"),
				Currency:       "SEK",
				DueDate:        "2024-03-15",
				PaymentMethod:  invoice.PaymentAutogiro,
			}
		})

		It("produces six common and three category drafts", func() {
			Expect(templates).To(HaveLen(9))
		})

		It("includes the connectivity drafts for Mobil", func() {
			ids := templateIDs(templates)
			Expect(ids).To(ContainElements("connectivity-loyalty", "connectivity-binding-check", "connectivity-downgrade"))
		})

		It("fills the drafts with the invoice values", func() {
			Expect(templates[0].Subject).To(Equal("Uppsägning av abonnemang - kundnummer KU-991"))
			Expect(templates[0].Body).To(ContainSubstring("hos Telia"))
			Expect(templates[2].Body).To(ContainSubstring("299 SEK"))
		})
	})

	When("the invoice is sparse", func() {
		BeforeEach(func() {
			extracted = &invoice.Invoice{}
		})

		It("substitutes neutral placeholders", func() {
			Expect(templates[0].Subject).To(ContainSubstring("okänt"))
			Expect(templates[0].Body).To(ContainSubstring("hos leverantören"))
			Expect(templates[2].Body).To(ContainSubstring("okänt belopp"))
		})

		It("falls back to the generic category drafts", func() {
			Expect(templateIDs(templates)).To(ContainElement("generic-price-review"))
		})
	})

	When("the category is a service", func() {
		BeforeEach(func() {
			extracted = &invoice.Invoice{Category: "Tjänst", VendorName: "Rörfirman"}
		})

		It("includes the craft work drafts", func() {
			Expect(templateIDs(templates)).To(ContainElements(
				"service-cost-clarification", "service-price-check", "service-material-hours-proof"))
		})
	})

	When("the category is unrecognized", func() {
		BeforeEach(func() {
			extracted = &invoice.Invoice{Category: "Parkering"}
		})

		It("uses the generic drafts", func() {
			Expect(templateIDs(templates)).To(ContainElement("generic-charge-question"))
		})
	})
})

var _ = Describe("EmailActions", func() {
	invoiceFixture := &invoice.Invoice{VendorName: "Telia", Category: "Mobil", CustomerNumber: "1", InvoiceNumber: "2"}

	It("keeps the full template set under shuffle ordering", func() {
		base := templateIDs(invoice.EmailTemplates(invoiceFixture))
		shuffled := templateIDs(invoice.EmailActions(invoiceFixture, invoice.NewShuffleOrder(42)))
		Expect(shuffled).To(ConsistOf(base))
	})

	It("does not reorder under the stable strategy", func() {
		Expect(invoice.EmailActions(invoiceFixture, invoice.StableOrder{})).To(Equal(invoice.EmailTemplates(invoiceFixture)))
	})
})

var _ = Describe("FormatAmountWithCurrency", func() {
	It("renders whole amounts without decimals", func() {
		Expect(invoice.FormatAmountWithCurrency(dec("299"), "SEK")).To(Equal("299 SEK"))
	})

	It("defaults the currency to SEK", func() {
		Expect(invoice.FormatAmountWithCurrency(dec("99"), "")).To(Equal("99 SEK"))
	})
})

func templateIDs(templates []invoice.EmailTemplate) []string {
	ids := make([]string, 0, len(templates))
	for _, template := range templates {
		ids = append(ids, template.TemplateID)
	}
	return ids
}
