package savings

import (
	"github.com/shopspring/decimal"

	"github.com/TheoLangborg/MinFakturaKoll/internal/invoice"
)

// Benchmark is the reference price level for a category. TargetMonthly is
// nil for categories without a meaningful monthly target.
type Benchmark struct {
	TargetMonthly *decimal.Decimal
	Alternatives  []string
}

var categoryBenchmarks = map[string]Benchmark{
	invoice.CategoryMobile: {
		TargetMonthly: benchmarkAmount(249),
		Alternatives:  []string{"Lägre surfmängd", "Lojalitetsrabatt", "Kampanj hos annan operatör"},
	},
	invoice.CategoryInternet: {
		TargetMonthly: benchmarkAmount(399),
		Alternatives:  []string{"Sänk hastighet", "Bindningstidsrabatt", "Jämför fiberalternativ"},
	},
	invoice.CategoryElectric: {
		TargetMonthly: benchmarkAmount(999),
		Alternatives:  []string{"Timpris", "Fastprisjämförelse", "Buntad elhandel + nät"},
	},
	invoice.CategoryInsurance: {
		TargetMonthly: benchmarkAmount(279),
		Alternatives:  []string{"Högre självrisk", "Samlingsrabatt", "Jämför villkor mot pris"},
	},
	invoice.CategoryStreaming: {
		TargetMonthly: benchmarkAmount(129),
		Alternatives:  []string{"Dela familjeplan", "Reklamfinansierad plan", "Pausa abonnemang"},
	},
	invoice.CategoryBanking: {
		TargetMonthly: benchmarkAmount(99),
		Alternatives:  []string{"Avgiftsfritt kort", "Flytta sparande", "Förhandla paketavgift"},
	},
	invoice.CategoryService: {
		TargetMonthly: nil,
		Alternatives: []string{
			"Begär offert från flera leverantörer",
			"Jämför timpris och materialpåslag",
			"Be om fast pris innan nytt arbete",
		},
	},
	invoice.CategoryOther: {
		TargetMonthly: benchmarkAmount(199),
		Alternatives:  []string{"Prisförhandling", "Byt paket", "Säg upp outnyttjade tjänster"},
	},
}

// BenchmarkFor resolves the benchmark for a category, falling back to the
// Övrigt level for anything unrecognized.
func BenchmarkFor(category string) Benchmark {
	if benchmark, ok := categoryBenchmarks[invoice.CanonicalCategory(category)]; ok {
		return benchmark
	}
	return categoryBenchmarks[invoice.CategoryOther]
}

func benchmarkAmount(value int64) *decimal.Decimal {
	amount := decimal.NewFromInt(value)
	return &amount
}
