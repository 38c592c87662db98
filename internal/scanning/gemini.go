package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// invoiceScanPrompt is the extraction prompt shared by all vision model
// providers. The JSON shape mirrors RawResult.
const invoiceScanPrompt = `You extract structured data from Swedish consumer invoices.
Read the OCR text and the attached document image carefully.

Return ONLY valid JSON in this exact shape. Do not add markdown.
{
  "extracted": {
    "vendorName": string|null,
    "category": string|null,
    "monthlyCost": number|null,
    "totalAmount": number|null,
    "currency": string|null,
    "dueDate": "YYYY-MM-DD"|null,
    "invoiceDate": "YYYY-MM-DD"|null,
    "customerNumber": string|null,
    "invoiceNumber": string|null,
    "organizationNumber": string|null,
    "ocrNumber": string|null,
    "vatAmount": number|null,
    "paymentMethod": string|null,
    "confidence": number
  },
  "fieldMeta": {
    "<field>": { "confidence": number, "sourceText": string }
  }
}

Rules:
- Use confidence values from 0 to 1.
- sourceText should be a short quote from the OCR text when possible.
- monthlyCost, totalAmount and vatAmount are numbers without currency symbols.
- monthlyCost must be null unless a monthly amount is explicitly stated (for example '/mån', 'månadskostnad', 'månadsavgift').
- currency should be an ISO code like SEK, EUR or USD.
- dueDate and invoiceDate must be YYYY-MM-DD or null.
- category should be one of: Mobil, Internet, El, Försäkring, Streaming, Bank, Tjänst, Övrigt.
- paymentMethod should be one of: Autogiro, E-faktura, Bankgiro, Plusgiro, Kort, Swish, Okänt.`

// Gemini implements the Scanner interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Scanner instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// ExtractInvoice analyzes invoice text and an optional document and
// extracts the raw field values
func (g *Gemini) ExtractInvoice(text string, file *FilePayload) (*RawResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var parts []genai.Part

	if file != nil {
		data, mimeType, err := file.Decode()
		if err != nil {
			return nil, fmt.Errorf("decoding file payload: %w", err)
		}
		pngData, err := prepareDocumentImage(data, mimeType)
		if err != nil {
			return nil, err
		}
		// genai.ImageData expects the format suffix, and after
		// prepareDocumentImage everything is PNG
		parts = append(parts, genai.ImageData("png", pngData))
	}

	if trimmed := strings.TrimSpace(text); trimmed != "" {
		parts = append(parts, genai.Text("OCR_TEXT:\n"+trimmed))
	}

	parts = append(parts, genai.Text(invoiceScanPrompt))

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if partText, ok := part.(genai.Text); ok {
			responseText.WriteString(string(partText))
		}
	}

	result, err := parseScanJSON(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("parsing extraction result: %w", err)
	}

	return result, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
