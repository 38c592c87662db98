package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TheoLangborg/MinFakturaKoll/internal/invoice"
)

const serpAPITimeout = 9 * time.Second

// categoryQueries are the Swedish shopping queries sent per category.
var categoryQueries = map[string]string{
	invoice.CategoryMobile:    "billigaste mobilabonnemang sverige månadskostnad",
	invoice.CategoryInternet:  "billigaste bredband fiber abonnemang sverige",
	invoice.CategoryElectric:  "billigaste elavtal sverige månadsavgift",
	invoice.CategoryInsurance: "billigaste hemförsäkring sverige pris per månad",
	invoice.CategoryStreaming: "streamingtjänst abonnemang pris per månad sverige",
	invoice.CategoryBanking:   "bankkort kontopaket avgift per månad sverige",
	invoice.CategoryOther:     "billigaste abonnemangstjänst sverige pris per månad",
}

var priceValuePattern = regexp.MustCompile(`(\d[\d\s.,]*)`)

// SerpAPI implements the PriceSource interface against the SerpAPI
// Google Shopping engine.
type SerpAPI struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewSerpAPI creates a new SerpAPI price source
func NewSerpAPI(apiKey string) (*SerpAPI, error) {
	return NewSerpAPIWithBaseURL(apiKey, "https://serpapi.com")
}

// NewSerpAPIWithBaseURL creates a SerpAPI price source against a custom
// endpoint, used by tests.
func NewSerpAPIWithBaseURL(apiKey, baseURL string) (*SerpAPI, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("serpapi: missing API key")
	}
	if baseURL == "" {
		baseURL = "https://serpapi.com"
	}

	return &SerpAPI{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: serpAPITimeout,
		},
	}, nil
}

// Label names the price source in comparison results
func (s *SerpAPI) Label() string {
	return "SerpAPI/Google Shopping"
}

type serpAPIResult struct {
	Price          any    `json:"price"`
	ExtractedPrice any    `json:"extracted_price"`
	OldPrice       any    `json:"old_price"`
	Snippet        string `json:"snippet"`
	Title          string `json:"title"`
}

type serpAPIResponse struct {
	ShoppingResults []serpAPIResult `json:"shopping_results"`
	OrganicResults  []serpAPIResult `json:"organic_results"`
}

// FetchPrices queries Google Shopping for the category and vendor and
// returns the deduplicated price points found in the response.
func (s *SerpAPI) FetchPrices(ctx context.Context, category, vendorName string) ([]decimal.Decimal, error) {
	query, ok := categoryQueries[category]
	if !ok {
		query = categoryQueries[invoice.CategoryOther]
	}

	params := url.Values{}
	params.Set("engine", "google_shopping")
	params.Set("q", query+" "+vendorName)
	params.Set("hl", "sv")
	params.Set("gl", "se")
	params.Set("num", "20")
	params.Set("api_key", s.apiKey)

	ctx, cancel := context.WithTimeout(ctx, serpAPITimeout)
	defer cancel()

	endpoint := s.baseURL + "/search.json?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling serpapi: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return nil, fmt.Errorf("serpapi error (status %d): %s", resp.StatusCode, string(body))
	}

	var payload serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return extractPrices(&payload), nil
}

// Close closes the SerpAPI client (no-op for HTTP client)
func (s *SerpAPI) Close() error {
	return nil
}

func extractPrices(payload *serpAPIResponse) []decimal.Decimal {
	rows := make([]serpAPIResult, 0, len(payload.ShoppingResults)+len(payload.OrganicResults))
	rows = append(rows, payload.ShoppingResults...)
	rows = append(rows, payload.OrganicResults...)

	var prices []decimal.Decimal
	for _, row := range rows {
		for _, candidate := range []any{row.Price, row.ExtractedPrice, row.OldPrice, row.Snippet, row.Title} {
			if price := parsePriceValue(candidate); price != nil && price.IsPositive() {
				prices = append(prices, *price)
			}
		}
	}

	return dedupeNearValues(prices)
}

func parsePriceValue(raw any) *decimal.Decimal {
	switch value := raw.(type) {
	case float64:
		parsed := decimal.NewFromFloat(value)
		return &parsed
	case string:
		match := priceValuePattern.FindStringSubmatch(value)
		if match == nil {
			return nil
		}
		cleaned := strings.ReplaceAll(match[1], " ", " ")
		cleaned = strings.ReplaceAll(cleaned, " ", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
		parsed, err := decimal.NewFromString(cleaned)
		if err != nil {
			return nil
		}
		return &parsed
	default:
		return nil
	}
}

// dedupeNearValues sorts the sample and drops values within 1 kr of the
// previous kept value, collapsing the same offer repeated across rows.
func dedupeNearValues(values []decimal.Decimal) []decimal.Decimal {
	if len(values) == 0 {
		return values
	}

	sorted := append([]decimal.Decimal(nil), values...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LessThan(sorted[j])
	})

	one := decimal.NewFromInt(1)
	unique := sorted[:1]
	for _, value := range sorted[1:] {
		if value.Sub(unique[len(unique)-1]).GreaterThanOrEqual(one) {
			unique = append(unique, value)
		}
	}

	return unique
}
