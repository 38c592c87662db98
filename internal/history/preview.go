package history

import (
	"strings"

	"github.com/TheoLangborg/MinFakturaKoll/internal/invoice"
	"github.com/TheoLangborg/MinFakturaKoll/internal/scanning"
)

const (
	maxPreviewDataURLLength = 720000
	maxTextPreviewLength    = 12000
)

// buildFilePreview stores a bounded preview of the scanned source on the
// history entry. File scans keep the original data URL when the file is a
// small enough image or PDF, text scans keep a truncated text excerpt.
// Returns nil when there is nothing worth previewing.
func buildFilePreview(sourceType, fileName string, file *scanning.FilePayload, sourceText string) *invoice.FilePreview {
	fileName = strings.TrimSpace(fileName)
	fileType := ""
	dataURL := ""
	if file != nil {
		if fileName == "" {
			fileName = strings.TrimSpace(file.Name)
		}
		fileType = strings.ToLower(strings.TrimSpace(file.Type))
		dataURL = strings.TrimSpace(file.DataURL)
	}

	if sourceType == "file" {
		previewKind := inferPreviewKind(fileType, fileName)
		if (previewKind == "image" || previewKind == "pdf") && strings.HasPrefix(dataURL, "data:") {
			if len(dataURL) <= maxPreviewDataURLLength {
				return &invoice.FilePreview{
					PreviewKind: previewKind,
					PreviewSrc:  dataURL,
					FileName:    fileName,
					FileType:    fileType,
				}
			}
			return &invoice.FilePreview{
				PreviewKind:       "unavailable",
				FileName:          fileName,
				FileType:          fileType,
				UnavailableReason: "Filen var för stor för att sparas i historikförhandsvisning.",
			}
		}

		return &invoice.FilePreview{
			PreviewKind:       "unavailable",
			FileName:          fileName,
			FileType:          fileType,
			UnavailableReason: "Ingen visuell förhandsvisning kunde sparas för filtypen.",
		}
	}

	textPreview := strings.TrimSpace(sourceText)
	if textPreview == "" {
		return nil
	}
	if len(textPreview) > maxTextPreviewLength {
		textPreview = textPreview[:maxTextPreviewLength]
	}

	fileTypeForText := fileType
	if fileTypeForText == "" {
		fileTypeForText = "text/plain"
	}
	return &invoice.FilePreview{
		PreviewKind: "text",
		TextPreview: textPreview,
		FileName:    fileName,
		FileType:    fileTypeForText,
	}
}

func inferPreviewKind(fileType, fileName string) string {
	if strings.HasPrefix(fileType, "image/") {
		return "image"
	}
	if fileType == "application/pdf" {
		return "pdf"
	}

	lowerName := strings.ToLower(fileName)
	if strings.HasSuffix(lowerName, ".pdf") {
		return "pdf"
	}
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".webp"} {
		if strings.HasSuffix(lowerName, ext) {
			return "image"
		}
	}

	return "unavailable"
}
