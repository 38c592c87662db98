package history

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/TheoLangborg/MinFakturaKoll/internal/scanning"
)

var _ = Describe("buildFilePreview", func() {
	When("a small image file is scanned", func() {
		It("keeps the data URL as the preview", func() {
			preview := buildFilePreview("file", "faktura.png", &scanning.FilePayload{
				Name:    "faktura.png",
				Type:    "image/png",
				DataURL: "data:image/png;base64,aW1hZ2U=",
			}, "")

			Expect(preview.PreviewKind).To(Equal("image"))
			Expect(preview.PreviewSrc).To(Equal("data:image/png;base64,aW1hZ2U="))
			Expect(preview.UnavailableReason).To(BeEmpty())
		})
	})

	When("a PDF is recognized by file extension alone", func() {
		It("marks the preview as a pdf", func() {
			preview := buildFilePreview("file", "faktura.pdf", &scanning.FilePayload{
				Name:    "faktura.pdf",
				DataURL: "data:application/octet-stream;base64,cGRm",
			}, "")

			Expect(preview.PreviewKind).To(Equal("pdf"))
		})
	})

	When("the data URL is too large to store", func() {
		It("records why the preview is unavailable", func() {
			preview := buildFilePreview("file", "faktura.png", &scanning.FilePayload{
				Name:    "faktura.png",
				Type:    "image/png",
				DataURL: "data:image/png;base64," + strings.Repeat("A", maxPreviewDataURLLength),
			}, "")

			Expect(preview.PreviewKind).To(Equal("unavailable"))
			Expect(preview.PreviewSrc).To(BeEmpty())
			Expect(preview.UnavailableReason).To(Equal("Filen var för stor för att sparas i historikförhandsvisning."))
		})
	})

	When("the file type cannot be previewed", func() {
		It("records the unsupported file type", func() {
			preview := buildFilePreview("file", "faktura.docx", &scanning.FilePayload{
				Name:    "faktura.docx",
				Type:    "application/msword",
				DataURL: "data:application/msword;base64,ZG9j",
			}, "")

			Expect(preview.PreviewKind).To(Equal("unavailable"))
			Expect(preview.UnavailableReason).To(Equal("Ingen visuell förhandsvisning kunde sparas för filtypen."))
		})
	})

	When("pasted text is scanned", func() {
		It("keeps a truncated text preview", func() {
			long := strings.Repeat("faktura ", 2000)
			preview := buildFilePreview("text", "", nil, long)

			Expect(preview.PreviewKind).To(Equal("text"))
			Expect(preview.FileType).To(Equal("text/plain"))
			Expect(len(preview.TextPreview)).To(Equal(maxTextPreviewLength))
		})
	})

	When("there is nothing to preview", func() {
		It("returns nil", func() {
			Expect(buildFilePreview("text", "", nil, "   ")).To(BeNil())
		})
	})
})
