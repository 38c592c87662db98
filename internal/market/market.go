// Package market compares a user's current subscription prices against
// live Google Shopping data or static Swedish reference levels.
package market

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/TheoLangborg/MinFakturaKoll/internal/invoice"
)

// PriceSource fetches market price points for a category and vendor.
type PriceSource interface {
	FetchPrices(ctx context.Context, category, vendorName string) ([]decimal.Decimal, error)
	Label() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

const (
	maxBatchItems = 30

	defaultCacheTTL = 24 * time.Hour
	minCacheTTL     = time.Hour
	maxCacheTTL     = 168 * time.Hour
)

const (
	ProviderSerpAPI       = "serpapi"
	ProviderFallback      = "fallback"
	ProviderMixed         = "mixed"
	ProviderNotApplicable = "not_applicable"
)

var (
	savingPercentNegotiate = decimal.NewFromInt(30)
	savingPercentRenew     = decimal.NewFromInt(15)
	hundred                = decimal.NewFromInt(100)
)

// Item is one subscription to compare against the market.
type Item struct {
	Key          string          `json:"key"`
	VendorName   string          `json:"vendorName"`
	Category     string          `json:"category"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	Currency     string          `json:"currency"`
}

// Stats describes the market price distribution for one category/vendor.
type Stats struct {
	Low        decimal.Decimal
	Median     decimal.Decimal
	High       decimal.Decimal
	SampleSize int
	Source     string
	Provider   string
	Note       string
}

// Comparison is the per-item comparison result.
type Comparison struct {
	Key              string          `json:"key"`
	VendorName       string          `json:"vendorName"`
	Category         string          `json:"category"`
	Currency         string          `json:"currency"`
	CurrentPrice     decimal.Decimal `json:"currentPrice"`
	MarketLow        decimal.Decimal `json:"marketLow"`
	MarketMedian     decimal.Decimal `json:"marketMedian"`
	MarketHigh       decimal.Decimal `json:"marketHigh"`
	SampleSize       int             `json:"sampleSize"`
	Source           string          `json:"source"`
	Provider         string          `json:"provider"`
	PossibleSaving   decimal.Decimal `json:"possibleSaving"`
	SavingPercent    decimal.Decimal `json:"savingPercent"`
	Recommendation   string          `json:"recommendation"`
	AlternativeHints []string        `json:"alternativeHints"`
	Note             string          `json:"note"`
}

// BatchResult is the combined outcome of one comparison request.
type BatchResult struct {
	Provider string       `json:"provider"`
	Warning  string       `json:"warning"`
	Items    []Comparison `json:"items"`
}

// fallbackBenchmarks are static Swedish reference levels used when no
// live source is available.
var fallbackBenchmarks = map[string]Stats{
	invoice.CategoryMobile:    benchmarkStats(149, 249, 399, 24),
	invoice.CategoryInternet:  benchmarkStats(299, 399, 549, 20),
	invoice.CategoryElectric:  benchmarkStats(799, 999, 1499, 18),
	invoice.CategoryInsurance: benchmarkStats(189, 279, 439, 18),
	invoice.CategoryStreaming: benchmarkStats(89, 129, 199, 22),
	invoice.CategoryBanking:   benchmarkStats(0, 99, 199, 15),
	invoice.CategoryOther:     benchmarkStats(99, 199, 349, 15),
}

var alternativeHints = map[string][]string{
	invoice.CategoryMobile:    {"Hallon", "Fello", "Vimla", "Comviq"},
	invoice.CategoryInternet:  {"Bahnhof", "Ownit", "Bredband2", "Tele2"},
	invoice.CategoryElectric:  {"Tibber", "Fortum", "Vattenfall", "Göta Energi"},
	invoice.CategoryInsurance: {"Hedvig", "IF", "Folksam", "Länsförsäkringar"},
	invoice.CategoryStreaming: {"Byt plan", "Familjeabonnemang", "Reklamplan"},
	invoice.CategoryBanking:   {"Avgiftsfritt kort", "Kundrabatt", "Paketjämförelse"},
	invoice.CategoryService:   {"Begär offert", "Jämför timpris", "Fast pris innan start"},
	invoice.CategoryOther:     {"Prisförhandling", "Byt leverantör", "Rabattkampanj"},
}

func benchmarkStats(low, median, high int64, sampleSize int) Stats {
	return Stats{
		Low:        decimal.NewFromInt(low),
		Median:     decimal.NewFromInt(median),
		High:       decimal.NewFromInt(high),
		SampleSize: sampleSize,
		Source:     "Referensnivå",
		Provider:   ProviderFallback,
	}
}

// Comparator runs market comparisons with a per-category/vendor stats
// cache in front of the configured price source.
type Comparator struct {
	source PriceSource
	mode   string
	cache  *statsCache
	group  singleflight.Group
}

// NewComparator creates a Comparator. Mode is "auto", "serpapi" or
// "fallback". A nil source always degrades to reference levels.
func NewComparator(source PriceSource, mode string, cacheTTL time.Duration) *Comparator {
	return NewComparatorWithDeps(source, mode, cacheTTL, &defaultTimeSource{})
}

// NewComparatorWithDeps creates a Comparator with an injected time source
func NewComparatorWithDeps(source PriceSource, mode string, cacheTTL time.Duration, timeSource TimeSource) *Comparator {
	return &Comparator{
		source: source,
		mode:   strings.ToLower(strings.TrimSpace(mode)),
		cache:  newStatsCache(clampCacheTTL(cacheTTL), timeSource),
	}
}

func clampCacheTTL(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return defaultCacheTTL
	}
	if ttl < minCacheTTL {
		return minCacheTTL
	}
	if ttl > maxCacheTTL {
		return maxCacheTTL
	}
	return ttl
}

// Compare runs the batch comparison. Items without a positive current
// price are dropped, at most 30 items are processed.
func (c *Comparator) Compare(ctx context.Context, rawItems []Item) (*BatchResult, error) {
	items := sanitizeItems(rawItems)
	if len(items) == 0 {
		return &BatchResult{Provider: ProviderFallback, Items: []Comparison{}}, nil
	}

	if c.resolveProvider() != ProviderSerpAPI {
		compared := make([]Comparison, len(items))
		for i, item := range items {
			compared[i] = buildFallbackComparison(item, "")
		}
		return &BatchResult{
			Provider: ProviderFallback,
			Warning:  "Live-prisjämförelse är inte aktiverad. Referensnivåer används tills en SerpAPI-nyckel är konfigurerad.",
			Items:    compared,
		}, nil
	}

	c.cache.sweep()

	compared := make([]Comparison, len(items))
	g, ctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			if item.Category == invoice.CategoryService {
				compared[i] = buildNonComparableComparison(item)
				return nil
			}

			stats, err := c.statsFor(ctx, item)
			if err != nil {
				compared[i] = buildFallbackComparison(item,
					"Live-data kunde inte hämtas just nu. Referensnivå användes för den här posten.")
				return nil
			}
			compared[i] = buildMarketComparison(item, stats)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	usedFallback := false
	for _, entry := range compared {
		if entry.Provider != ProviderSerpAPI {
			usedFallback = true
			break
		}
	}

	result := &BatchResult{Provider: ProviderSerpAPI, Items: compared}
	if usedFallback {
		result.Provider = ProviderMixed
		result.Warning = "Vissa poster kunde inte hämtas live och beräknades därför med referensnivåer."
	}
	return result, nil
}

func (c *Comparator) resolveProvider() string {
	if c.mode == ProviderFallback {
		return ProviderFallback
	}
	if c.source == nil {
		return ProviderFallback
	}
	return ProviderSerpAPI
}

// statsFor serves market stats from the cache, deduplicating concurrent
// lookups for the same category and vendor.
func (c *Comparator) statsFor(ctx context.Context, item Item) (Stats, error) {
	cacheKey := invoice.FoldKey(item.Category) + "|" + invoice.FoldKey(item.VendorName)
	if stats, ok := c.cache.get(cacheKey); ok {
		return stats, nil
	}

	fetched, err, _ := c.group.Do(cacheKey, func() (any, error) {
		prices, err := c.source.FetchPrices(ctx, item.Category, item.VendorName)
		if err != nil {
			return Stats{}, err
		}
		stats, err := computeStats(prices, c.source.Label())
		if err != nil {
			return Stats{}, err
		}
		c.cache.set(cacheKey, stats)
		return stats, nil
	})
	if err != nil {
		return Stats{}, err
	}
	return fetched.(Stats), nil
}

// computeStats summarizes a price sample into 20th, 50th and 80th
// percentile levels. Fewer than three points is not a usable sample.
func computeStats(prices []decimal.Decimal, label string) (Stats, error) {
	positive := make([]decimal.Decimal, 0, len(prices))
	for _, price := range prices {
		if price.IsPositive() {
			positive = append(positive, price)
		}
	}
	if len(positive) < 3 {
		return Stats{}, fmt.Errorf("för få prispunkter i marknadssvaret: %d", len(positive))
	}

	sort.Slice(positive, func(i, j int) bool {
		return positive[i].LessThan(positive[j])
	})

	return Stats{
		Low:        percentile(positive, 0.2),
		Median:     percentile(positive, 0.5),
		High:       percentile(positive, 0.8),
		SampleSize: len(positive),
		Source:     label,
		Provider:   ProviderSerpAPI,
	}, nil
}

// percentile interpolates linearly between the two nearest sorted values.
func percentile(sorted []decimal.Decimal, ratio float64) decimal.Decimal {
	if len(sorted) == 0 {
		return decimal.Zero
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	index := float64(len(sorted)-1) * ratio
	lower := int(index)
	upper := lower
	if float64(lower) < index {
		upper = lower + 1
	}
	if lower == upper {
		return sorted[lower]
	}

	weight := decimal.NewFromFloat(index - float64(lower))
	return sorted[lower].Mul(decimal.NewFromInt(1).Sub(weight)).Add(sorted[upper].Mul(weight))
}

func sanitizeItems(rawItems []Item) []Item {
	if len(rawItems) > maxBatchItems {
		rawItems = rawItems[:maxBatchItems]
	}

	items := make([]Item, 0, len(rawItems))
	for index, raw := range rawItems {
		if !raw.CurrentPrice.IsPositive() {
			continue
		}

		item := Item{
			Key:          strings.TrimSpace(raw.Key),
			VendorName:   strings.TrimSpace(raw.VendorName),
			Category:     invoice.CanonicalCategory(raw.Category),
			CurrentPrice: raw.CurrentPrice,
			Currency:     strings.ToUpper(strings.TrimSpace(raw.Currency)),
		}
		if item.Key == "" {
			item.Key = fmt.Sprintf("entry-%d", index+1)
		}
		if item.VendorName == "" {
			item.VendorName = invoice.UnknownVendor
		}
		if item.Currency == "" {
			item.Currency = "SEK"
		}
		items = append(items, item)
	}

	return items
}

func buildFallbackComparison(item Item, note string) Comparison {
	if item.Category == invoice.CategoryService {
		return buildNonComparableComparison(item)
	}

	stats, ok := fallbackBenchmarks[item.Category]
	if !ok {
		stats = fallbackBenchmarks[invoice.CategoryOther]
	}
	stats.Note = note
	return buildMarketComparison(item, stats)
}

func buildNonComparableComparison(item Item) Comparison {
	currentPrice := item.CurrentPrice.Round(2)

	return Comparison{
		Key:              item.Key,
		VendorName:       item.VendorName,
		Category:         item.Category,
		Currency:         item.Currency,
		CurrentPrice:     currentPrice,
		MarketLow:        currentPrice,
		MarketMedian:     currentPrice,
		MarketHigh:       currentPrice,
		SampleSize:       0,
		Source:           "Ej tillämpligt",
		Provider:         ProviderNotApplicable,
		PossibleSaving:   decimal.Zero,
		SavingPercent:    decimal.Zero,
		Recommendation:   "Kategorin Tjänst behandlas som engångskostnad och jämförs inte som ett månadsabonnemang.",
		AlternativeHints: hintsFor(item.Category),
		Note:             "Manuell prisjämförelse rekommenderas för engångsarbete.",
	}
}

func buildMarketComparison(item Item, stats Stats) Comparison {
	marketMedian := stats.Median.Round(2)
	possibleSaving := item.CurrentPrice.Sub(marketMedian).Round(2)
	if possibleSaving.IsNegative() {
		possibleSaving = decimal.Zero
	}

	savingPercent := decimal.Zero
	if item.CurrentPrice.IsPositive() {
		savingPercent = possibleSaving.Div(item.CurrentPrice).Mul(hundred).Round(2)
	}

	source := stats.Source
	if source == "" {
		source = "Okänd källa"
	}
	provider := stats.Provider
	if provider == "" {
		provider = ProviderFallback
	}

	return Comparison{
		Key:              item.Key,
		VendorName:       item.VendorName,
		Category:         item.Category,
		Currency:         item.Currency,
		CurrentPrice:     item.CurrentPrice.Round(2),
		MarketLow:        stats.Low.Round(2),
		MarketMedian:     marketMedian,
		MarketHigh:       stats.High.Round(2),
		SampleSize:       stats.SampleSize,
		Source:           source,
		Provider:         provider,
		PossibleSaving:   possibleSaving,
		SavingPercent:    savingPercent,
		Recommendation:   buildRecommendation(item, marketMedian, possibleSaving, savingPercent),
		AlternativeHints: hintsFor(item.Category),
		Note:             stats.Note,
	}
}

func buildRecommendation(item Item, marketMedian, possibleSaving, savingPercent decimal.Decimal) string {
	if !possibleSaving.IsPositive() {
		return fmt.Sprintf("Du ligger redan i nivå med marknadsmedian för %s.", strings.ToLower(item.Category))
	}
	if savingPercent.GreaterThanOrEqual(savingPercentNegotiate) {
		return "Stor avvikelse mot marknaden. Förhandla direkt eller byt leverantör."
	}
	if savingPercent.GreaterThanOrEqual(savingPercentRenew) {
		return fmt.Sprintf("Du kan sannolikt sänka kostnaden genom omförhandling. Sikta mot ca %s kr/mån.", marketMedian.String())
	}
	return "Mindre avvikelse mot marknaden. Be om lojalitetsrabatt."
}

func hintsFor(category string) []string {
	if hints, ok := alternativeHints[category]; ok {
		return hints
	}
	return alternativeHints[invoice.CategoryOther]
}
