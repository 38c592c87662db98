package scanning

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// FilePayload is an uploaded invoice document as received from the client,
// carried as a data URL.
type FilePayload struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	DataURL string `json:"dataUrl"`
}

// NormalizeFilePayload validates a client file payload. It returns nil when
// there is no usable data URL, and otherwise a copy with the name bounded
// and defaults applied.
func NormalizeFilePayload(file *FilePayload) *FilePayload {
	if file == nil {
		return nil
	}
	if !strings.HasPrefix(file.DataURL, "data:") {
		return nil
	}

	name := strings.TrimSpace(file.Name)
	if name == "" {
		name = "invoice-file"
	}
	if len(name) > 180 {
		name = name[:180]
	}

	mimeType := strings.TrimSpace(file.Type)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return &FilePayload{Name: name, Type: mimeType, DataURL: file.DataURL}
}

// Decode unpacks the data URL into raw bytes and the embedded MIME type.
func (f *FilePayload) Decode() ([]byte, string, error) {
	rest, ok := strings.CutPrefix(f.DataURL, "data:")
	if !ok {
		return nil, "", fmt.Errorf("not a data URL")
	}

	header, payload, found := strings.Cut(rest, ",")
	if !found {
		return nil, "", fmt.Errorf("malformed data URL")
	}

	mimeType, encoding := header, ""
	if meta, enc, hasEnc := strings.Cut(header, ";"); hasEnc {
		mimeType, encoding = meta, enc
	}
	if mimeType == "" {
		mimeType = f.Type
	}

	if encoding == "base64" {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("decoding base64 payload: %w", err)
		}
		return data, mimeType, nil
	}

	decoded, err := url.QueryUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decoding data URL payload: %w", err)
	}
	return []byte(decoded), mimeType, nil
}

// IsImageMimeType reports whether the MIME type names an image.
func IsImageMimeType(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}

// IsPDFMimeType reports whether the MIME type or file name indicates a PDF.
func IsPDFMimeType(mimeType, name string) bool {
	return strings.TrimSpace(mimeType) == "application/pdf" ||
		strings.HasSuffix(strings.ToLower(name), ".pdf")
}
