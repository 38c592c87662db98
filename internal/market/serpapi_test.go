package market_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/TheoLangborg/MinFakturaKoll/internal/market"
)

var _ = Describe("SerpAPI", func() {
	It("requires an API key", func() {
		_, err := market.NewSerpAPI("   ")
		Expect(err).To(MatchError(ContainSubstring("missing API key")))
	})

	It("reports its source label", func() {
		source, err := market.NewSerpAPI("test-key")
		Expect(err).NotTo(HaveOccurred())
		Expect(source.Label()).To(Equal("SerpAPI/Google Shopping"))
	})

	When("the API responds with shopping results", func() {
		var (
			server        *httptest.Server
			requestedPath string
			requestQuery  url.Values
		)

		BeforeEach(func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requestedPath = r.URL.Path
				requestQuery = r.URL.Query()
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{
					"shopping_results": [
						{"price": "199 kr/mån", "extracted_price": 199},
						{"price": "1 234,56 kr"},
						{"title": "Mobilabonnemang 299 kr"},
						{"snippet": "utan pris"}
					],
					"organic_results": [
						{"snippet": "abonnemang från 149 kr per månad"}
					]
				}`))
			}))
		})

		AfterEach(func() {
			server.Close()
		})

		It("queries Google Shopping with Swedish locale settings", func() {
			source, err := market.NewSerpAPIWithBaseURL("test-key", server.URL)
			Expect(err).NotTo(HaveOccurred())

			_, err = source.FetchPrices(context.Background(), "Mobil", "Telia")
			Expect(err).NotTo(HaveOccurred())

			Expect(requestedPath).To(Equal("/search.json"))
			Expect(requestQuery.Get("engine")).To(Equal("google_shopping"))
			Expect(requestQuery.Get("q")).To(Equal("billigaste mobilabonnemang sverige månadskostnad Telia"))
			Expect(requestQuery.Get("hl")).To(Equal("sv"))
			Expect(requestQuery.Get("gl")).To(Equal("se"))
			Expect(requestQuery.Get("num")).To(Equal("20"))
			Expect(requestQuery.Get("api_key")).To(Equal("test-key"))
		})

		It("extracts and deduplicates price points", func() {
			source, err := market.NewSerpAPIWithBaseURL("test-key", server.URL)
			Expect(err).NotTo(HaveOccurred())

			prices, err := source.FetchPrices(context.Background(), "Mobil", "Telia")
			Expect(err).NotTo(HaveOccurred())

			Expect(prices).To(HaveLen(4))
			Expect(prices[0]).To(beDecimal("149"))
			Expect(prices[1]).To(beDecimal("199"))
			Expect(prices[2]).To(beDecimal("299"))
			Expect(prices[3]).To(beDecimal("1234.56"))
		})
	})

	When("the category has no dedicated query", func() {
		It("falls back to the generic subscription query", func() {
			var query string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				query = r.URL.Query().Get("q")
				w.Write([]byte(`{}`))
			}))
			defer server.Close()

			source, err := market.NewSerpAPIWithBaseURL("test-key", server.URL)
			Expect(err).NotTo(HaveOccurred())

			_, err = source.FetchPrices(context.Background(), "Försäkring X", "Hedvig")
			Expect(err).NotTo(HaveOccurred())
			Expect(query).To(Equal("billigaste abonnemangstjänst sverige pris per månad Hedvig"))
		})
	})

	When("the API returns an error status", func() {
		It("surfaces the status and body", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte("rate limited"))
			}))
			defer server.Close()

			source, err := market.NewSerpAPIWithBaseURL("test-key", server.URL)
			Expect(err).NotTo(HaveOccurred())

			_, err = source.FetchPrices(context.Background(), "Mobil", "Telia")
			Expect(err).To(MatchError(ContainSubstring("status 429")))
			Expect(err).To(MatchError(ContainSubstring("rate limited")))
		})
	})
})
