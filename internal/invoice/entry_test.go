package invoice_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/TheoLangborg/MinFakturaKoll/internal/invoice"
)

var _ = Describe("InferStatus", func() {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

	It("returns Okänt without a due date", func() {
		Expect(invoice.InferStatus("", now)).To(Equal(invoice.StatusUnknown))
	})

	It("returns Okänt for an unparseable due date", func() {
		Expect(invoice.InferStatus("snart", now)).To(Equal(invoice.StatusUnknown))
	})

	It("returns Förfallen for past due dates", func() {
		Expect(invoice.InferStatus("2024-03-09", now)).To(Equal(invoice.StatusOverdue))
	})

	It("returns Förfaller snart on the day itself", func() {
		Expect(invoice.InferStatus("2024-03-10", now)).To(Equal(invoice.StatusDueSoon))
	})

	It("returns Förfaller snart up to seven days ahead", func() {
		Expect(invoice.InferStatus("2024-03-17", now)).To(Equal(invoice.StatusDueSoon))
	})

	It("returns Aktiv beyond seven days", func() {
		Expect(invoice.InferStatus("2024-03-18", now)).To(Equal(invoice.StatusActive))
	})

	It("does not shorten the window across a DST transition", func() {
		stockholm, err := time.LoadLocation("Europe/Stockholm")
		Expect(err).NotTo(HaveOccurred())

		// Summer time starts 2024-03-31, so eight calendar days ahead is
		// seven days and 23 hours on the clock.
		beforeShift := time.Date(2024, 3, 25, 9, 0, 0, 0, stockholm)
		Expect(invoice.InferStatus("2024-04-02", beforeShift)).To(Equal(invoice.StatusActive))
	})
})

var _ = Describe("InferBillingType", func() {
	It("honors a declared billing type regardless of diacritics", func() {
		Expect(invoice.InferBillingType("Engång", "Mobil", decPtr("99"), nil)).To(Equal(invoice.BillingOneTime))
		Expect(invoice.InferBillingType("abonnemang", "", nil, nil)).To(Equal(invoice.BillingSubscription))
		Expect(invoice.InferBillingType("oklart", "Mobil", decPtr("99"), nil)).To(Equal(invoice.BillingUnclear))
	})

	It("treats service categories as one-time work", func() {
		Expect(invoice.InferBillingType("", "Tjänst", decPtr("500"), decPtr("500"))).To(Equal(invoice.BillingOneTime))
	})

	It("treats a positive monthly cost as a subscription", func() {
		Expect(invoice.InferBillingType("", "Mobil", decPtr("99"), nil)).To(Equal(invoice.BillingSubscription))
	})

	It("treats a total without monthly cost as one-time", func() {
		Expect(invoice.InferBillingType("", "Övrigt", nil, decPtr("450"))).To(Equal(invoice.BillingOneTime))
	})

	It("falls back to Oklart without amounts", func() {
		Expect(invoice.InferBillingType("", "Övrigt", nil, nil)).To(Equal(invoice.BillingUnclear))
	})
})
