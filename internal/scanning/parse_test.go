package scanning

import (
	"encoding/base64"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

func TestScanning(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Scanning Suite")
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

var _ = Describe("parseScanJSON", func() {
	var (
		jsonInput string
		result    *RawResult
		err       error
	)

	JustBeforeEach(func() {
		result, err = parseScanJSON(jsonInput)
	})

	When("parsing a complete response", func() {
		BeforeEach(func() {
			jsonInput = `{
				"extracted": {
					"vendorName": "Telia",
					"category": "Mobil",
					"monthlyCost": null,
					"totalAmount": 299,
					"currency": "SEK",
					"dueDate": "2024-03-15",
					"confidence": 0.92
				},
				"fieldMeta": {
					"totalAmount": {"confidence": 0.95, "sourceText": "Att betala: 299 kr"}
				}
			}`
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should parse the vendor name", func() {
			Expect(result.Extracted.VendorName).To(HaveValue(Equal("Telia")))
		})

		It("should parse the total amount", func() {
			Expect(result.Extracted.TotalAmount).NotTo(BeNil())
			Expect(result.Extracted.TotalAmount.Equal(dec("299"))).To(BeTrue())
		})

		It("should keep explicit nulls as nil", func() {
			Expect(result.Extracted.MonthlyCost).To(BeNil())
		})

		It("should parse the confidence", func() {
			Expect(result.Extracted.Confidence).To(HaveValue(BeNumerically("~", 0.92, 1e-9)))
		})

		It("should carry the field provenance through", func() {
			Expect(result.FieldMeta).To(HaveKey("totalAmount"))
			Expect(result.FieldMeta["totalAmount"].SourceText).To(Equal("Att betala: 299 kr"))
			Expect(result.FieldMeta["totalAmount"].Confidence).To(HaveValue(BeNumerically("~", 0.95, 1e-9)))
		})
	})

	When("parsing a response wrapped in markdown code blocks", func() {
		BeforeEach(func() {
			jsonInput = "```json\n{\"extracted\": {\"vendorName\": \"Bahnhof\"}}\n```"
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should parse the vendor name", func() {
			Expect(result.Extracted.VendorName).To(HaveValue(Equal("Bahnhof")))
		})
	})

	When("the model skips the extracted wrapper", func() {
		BeforeEach(func() {
			jsonInput = `{"vendorName": "Fortum", "totalAmount": 1123.5}`
		})

		It("should read fields from the top level", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Extracted.VendorName).To(HaveValue(Equal("Fortum")))
			Expect(result.Extracted.TotalAmount.Equal(dec("1123.5"))).To(BeTrue())
		})
	})

	When("amounts arrive as formatted strings", func() {
		BeforeEach(func() {
			jsonInput = `{"extracted": {"totalAmount": "1 234,56 kr", "vatAmount": "abc"}}`
		})

		It("should clean and parse the parseable amount", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Extracted.TotalAmount).NotTo(BeNil())
			Expect(result.Extracted.TotalAmount.Equal(dec("1234.56"))).To(BeTrue())
		})

		It("should drop the unparseable amount", func() {
			Expect(result.Extracted.VATAmount).To(BeNil())
		})
	})

	When("parsing prose around the JSON object", func() {
		BeforeEach(func() {
			jsonInput = `Here is the result: {"extracted": {"vendorName": "Telenor"}} hope it helps`
		})

		It("should carve out the JSON object", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Extracted.VendorName).To(HaveValue(Equal("Telenor")))
		})
	})

	When("parsing a response with no JSON object", func() {
		BeforeEach(func() {
			jsonInput = `no structured data here`
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("NormalizeFilePayload", func() {
	It("returns nil for a nil payload", func() {
		Expect(NormalizeFilePayload(nil)).To(BeNil())
	})

	It("returns nil when the payload is not a data URL", func() {
		Expect(NormalizeFilePayload(&FilePayload{Name: "x.pdf", DataURL: "https://example.com/x.pdf"})).To(BeNil())
	})

	It("applies name and type defaults", func() {
		payload := NormalizeFilePayload(&FilePayload{DataURL: "data:;base64,aGVq"})
		Expect(payload).NotTo(BeNil())
		Expect(payload.Name).To(Equal("invoice-file"))
		Expect(payload.Type).To(Equal("application/octet-stream"))
	})

	It("bounds overlong file names", func() {
		long := make([]byte, 400)
		for i := range long {
			long[i] = 'a'
		}
		payload := NormalizeFilePayload(&FilePayload{Name: string(long), Type: "text/plain", DataURL: "data:text/plain;base64,aGVq"})
		Expect(payload.Name).To(HaveLen(180))
	})
})

var _ = Describe("FilePayload.Decode", func() {
	It("decodes a base64 data URL and reports the embedded MIME type", func() {
		encoded := base64.StdEncoding.EncodeToString([]byte("Faktura 299 kr"))
		payload := &FilePayload{Name: "f.txt", Type: "text/plain", DataURL: "data:text/plain;base64," + encoded}

		data, mimeType, err := payload.Decode()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("Faktura 299 kr"))
		Expect(mimeType).To(Equal("text/plain"))
	})

	It("rejects a data URL without a payload separator", func() {
		payload := &FilePayload{DataURL: "data:text/plain;base64"}
		_, _, err := payload.Decode()
		Expect(err).To(HaveOccurred())
	})
})
