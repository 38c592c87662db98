// Package savings analyzes scanned invoice history for recurring costs,
// month-over-month drift and concrete saving opportunities.
package savings

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TheoLangborg/MinFakturaKoll/internal/invoice"
)

var (
	hundred = decimal.NewFromInt(100)

	opportunitySavingFloor = decimal.NewFromInt(20)
	opportunityTrendFloor  = decimal.NewFromInt(8)
	highSavingFloor        = decimal.NewFromInt(120)
	highTrendFloor         = decimal.NewFromInt(15)
	mediumSavingFloor      = decimal.NewFromInt(50)
	benchmarkGapFloor      = decimal.NewFromInt(20)
)

const maxOpportunities = 8

// RecurringService is one vendor/category pairing that shows up month
// after month in the history.
type RecurringService struct {
	Key             string           `json:"key"`
	VendorName      string           `json:"vendorName"`
	Category        string           `json:"category"`
	Currency        string           `json:"currency"`
	MonthsObserved  int              `json:"monthsObserved"`
	LatestMonth     string           `json:"latestMonth"`
	LatestAmount    decimal.Decimal  `json:"latestAmount"`
	PreviousAmount  *decimal.Decimal `json:"previousAmount"`
	AverageAmount   decimal.Decimal  `json:"averageAmount"`
	TrendPercent    *decimal.Decimal `json:"trendPercent"`
	TargetMonthly   *decimal.Decimal `json:"targetMonthly"`
	BenchmarkGap    decimal.Decimal  `json:"benchmarkGap"`
	PotentialSaving decimal.Decimal  `json:"potentialSaving"`
	Status          string           `json:"status"`
	Question        string           `json:"question"`
	Recommendations []string         `json:"recommendations"`
	Alternatives    []string         `json:"alternatives"`
}

// MonthlyTotal is the combined spend for one calendar month.
type MonthlyTotal struct {
	MonthKey string          `json:"monthKey"`
	Total    decimal.Decimal `json:"total"`
}

// CategorySummary aggregates the recurring services of one category.
type CategorySummary struct {
	Category             string          `json:"category"`
	ServiceCount         int             `json:"serviceCount"`
	TotalLatestAmount    decimal.Decimal `json:"totalLatestAmount"`
	TotalPotentialSaving decimal.Decimal `json:"totalPotentialSaving"`
}

// VendorSummary aggregates the recurring services of one vendor across
// categories.
type VendorSummary struct {
	VendorKey       string           `json:"vendorKey"`
	VendorName      string           `json:"vendorName"`
	ServiceCount    int              `json:"serviceCount"`
	LatestTotal     decimal.Decimal  `json:"latestTotal"`
	PreviousTotal   decimal.Decimal  `json:"previousTotal"`
	TrendPercent    *decimal.Decimal `json:"trendPercent"`
	PotentialSaving decimal.Decimal  `json:"potentialSaving"`
}

// Summary is the report headline.
type Summary struct {
	RecurringCount         int              `json:"recurringCount"`
	OpportunityCount       int              `json:"opportunityCount"`
	EstimatedMonthlySaving decimal.Decimal  `json:"estimatedMonthlySaving"`
	LatestMonth            string           `json:"latestMonth"`
	PreviousMonth          string           `json:"previousMonth"`
	LatestMonthTotal       decimal.Decimal  `json:"latestMonthTotal"`
	PreviousMonthTotal     decimal.Decimal  `json:"previousMonthTotal"`
	MonthDelta             decimal.Decimal  `json:"monthDelta"`
	MonthDeltaPercent      *decimal.Decimal `json:"monthDeltaPercent"`
}

// Report is the full savings analysis over a user's history.
type Report struct {
	Summary         Summary            `json:"summary"`
	Recurring       []RecurringService `json:"recurring"`
	Opportunities   []RecurringService `json:"opportunities"`
	MonthlyTotals   []MonthlyTotal     `json:"monthlyTotals"`
	CategorySummary []CategorySummary  `json:"categorySummary"`
	VendorSummary   []VendorSummary    `json:"vendorSummary"`
}

// Analyze builds the savings report. Entries without a usable amount or
// date are skipped, one-time service invoices never count as recurring.
func Analyze(entries []*invoice.Entry) *Report {
	observations := normalizeEntries(entries)
	recurring := buildRecurringServices(observations)

	opportunities := make([]RecurringService, 0, maxOpportunities)
	for _, entry := range recurring {
		if len(opportunities) == maxOpportunities {
			break
		}
		if entry.PotentialSaving.GreaterThanOrEqual(opportunitySavingFloor) ||
			trendOrZero(entry.TrendPercent).GreaterThanOrEqual(opportunityTrendFloor) {
			opportunities = append(opportunities, entry)
		}
	}

	estimated := decimal.Zero
	for _, entry := range recurring {
		estimated = estimated.Add(entry.PotentialSaving)
	}

	summary := buildMonthSummary(observations)
	summary.RecurringCount = len(recurring)
	summary.OpportunityCount = len(opportunities)
	summary.EstimatedMonthlySaving = estimated.Round(2)

	return &Report{
		Summary:         summary,
		Recurring:       recurring,
		Opportunities:   opportunities,
		MonthlyTotals:   buildMonthlyTotals(observations),
		CategorySummary: buildCategorySummary(recurring),
		VendorSummary:   buildVendorSummary(recurring),
	}
}

type observation struct {
	vendorName string
	category   string
	currency   string
	monthKey   string
	amount     decimal.Decimal
	date       time.Time
}

func normalizeEntries(entries []*invoice.Entry) []observation {
	observations := make([]observation, 0, len(entries))

	for _, entry := range entries {
		if entry == nil {
			continue
		}
		amount := resolveMonthlyAmount(entry)
		if amount == nil {
			continue
		}
		date, ok := resolveDate(entry)
		if !ok {
			continue
		}

		vendorName := strings.TrimSpace(entry.VendorName)
		if vendorName == "" {
			vendorName = invoice.UnknownVendor
		}
		currency := strings.TrimSpace(entry.Currency)
		if currency == "" {
			currency = "SEK"
		}

		observations = append(observations, observation{
			vendorName: vendorName,
			category:   invoice.CanonicalCategory(entry.Category),
			currency:   currency,
			monthKey:   date.Format("2006-01"),
			amount:     *amount,
			date:       date,
		})
	}

	return observations
}

// resolveMonthlyAmount prefers the explicit monthly cost, then the invoice
// total. Non-positive amounts do not count.
func resolveMonthlyAmount(entry *invoice.Entry) *decimal.Decimal {
	if entry.MonthlyCost != nil && entry.MonthlyCost.IsPositive() {
		return entry.MonthlyCost
	}
	if entry.TotalAmount != nil && entry.TotalAmount.IsPositive() {
		return entry.TotalAmount
	}
	return nil
}

func resolveDate(entry *invoice.Entry) (time.Time, bool) {
	for _, candidate := range []string{entry.InvoiceDate, entry.DueDate} {
		if parsed, err := time.Parse("2006-01-02", strings.TrimSpace(candidate)); err == nil {
			return parsed, true
		}
	}
	if !entry.ScannedAt.IsZero() {
		return entry.ScannedAt, true
	}
	if !entry.CreatedAt.IsZero() {
		return entry.CreatedAt, true
	}
	return time.Time{}, false
}

func buildRecurringServices(observations []observation) []RecurringService {
	type group struct {
		key        string
		vendorName string
		category   string
		currency   string
		entries    []observation
	}

	groups := make(map[string]*group)
	var order []string

	for _, item := range observations {
		key := strings.ToLower(item.vendorName) + "|" + strings.ToLower(item.category)
		existing, ok := groups[key]
		if !ok {
			existing = &group{
				key:        key,
				vendorName: item.vendorName,
				category:   item.category,
				currency:   item.currency,
			}
			groups[key] = existing
			order = append(order, key)
		}
		existing.entries = append(existing.entries, item)
	}

	var recurring []RecurringService

	for _, key := range order {
		grp := groups[key]
		if grp.category == invoice.CategoryService {
			continue
		}

		monthly := collapseByMonth(grp.entries)
		if len(monthly) < 2 {
			continue
		}

		monthKeys := make([]string, len(monthly))
		for i, entry := range monthly {
			monthKeys[i] = entry.monthKey
		}
		if !isLikelyRecurring(monthKeys) {
			continue
		}

		latest := monthly[len(monthly)-1]
		previous := monthly[len(monthly)-2]
		previousAmount := previous.amount

		total := decimal.Zero
		for _, entry := range monthly {
			total = total.Add(entry.amount)
		}
		averageAmount := total.Div(decimal.NewFromInt(int64(len(monthly)))).Round(2)

		trendPercent := computeTrendPercent(previousAmount, latest.amount)
		benchmark := BenchmarkFor(grp.category)

		potentialSaving := maxZero(latest.amount.Sub(previousAmount).Round(2))
		benchmarkGap := decimal.Zero
		if benchmark.TargetMonthly != nil {
			benchmarkGap = maxZero(latest.amount.Sub(*benchmark.TargetMonthly).Round(2))
		}

		recurring = append(recurring, RecurringService{
			Key:             grp.key,
			VendorName:      grp.vendorName,
			Category:        grp.category,
			Currency:        grp.currency,
			MonthsObserved:  len(monthKeys),
			LatestMonth:     latest.monthKey,
			LatestAmount:    latest.amount,
			PreviousAmount:  &previousAmount,
			AverageAmount:   averageAmount,
			TrendPercent:    trendPercent,
			TargetMonthly:   benchmark.TargetMonthly,
			BenchmarkGap:    benchmarkGap,
			PotentialSaving: potentialSaving,
			Status:          classifyStatus(potentialSaving, trendPercent),
			Question:        fmt.Sprintf("Använder du fortfarande %s?", grp.vendorName),
			Recommendations: buildRecommendations(grp.category, grp.vendorName, trendPercent, potentialSaving, benchmarkGap, benchmark.TargetMonthly),
			Alternatives:    benchmark.Alternatives,
		})
	}

	sort.SliceStable(recurring, func(i, j int) bool {
		if !recurring[i].PotentialSaving.Equal(recurring[j].PotentialSaving) {
			return recurring[i].PotentialSaving.GreaterThan(recurring[j].PotentialSaving)
		}
		return trendOrZero(recurring[i].TrendPercent).GreaterThan(trendOrZero(recurring[j].TrendPercent))
	})

	return recurring
}

// collapseByMonth sums a group's amounts per calendar month and returns the
// collapsed entries in chronological order, one per month.
func collapseByMonth(entries []observation) []observation {
	sorted := append([]observation(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].date.Before(sorted[j].date)
	})

	byMonth := make(map[string]*observation)
	var order []string

	for _, entry := range sorted {
		existing, ok := byMonth[entry.monthKey]
		if !ok {
			copied := entry
			byMonth[entry.monthKey] = &copied
			order = append(order, entry.monthKey)
			continue
		}
		existing.amount = existing.amount.Add(entry.amount).Round(2)
		if entry.date.After(existing.date) {
			existing.date = entry.date
		}
	}

	collapsed := make([]observation, 0, len(order))
	for _, key := range order {
		collapsed = append(collapsed, *byMonth[key])
	}
	sort.SliceStable(collapsed, func(i, j int) bool {
		return collapsed[i].date.Before(collapsed[j].date)
	})

	return collapsed
}

// isLikelyRecurring decides whether a set of observed months looks like a
// subscription cadence rather than scattered one-offs. Two observations
// must sit at most two months apart. Longer series need at least one
// adjacent month pair, and a gap above three months is only tolerated once
// four or more months were observed.
func isLikelyRecurring(monthKeys []string) bool {
	if len(monthKeys) < 2 {
		return false
	}

	sorted := append([]string(nil), monthKeys...)
	sort.Strings(sorted)

	gaps := make([]int, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, monthGap(sorted[i-1], sorted[i]))
	}

	if len(sorted) == 2 {
		return gaps[0] <= 2
	}

	adjacentSteps := 0
	hasLargeGap := false
	for _, gap := range gaps {
		if gap == 1 {
			adjacentSteps++
		}
		if gap > 3 {
			hasLargeGap = true
		}
	}

	if adjacentSteps == 0 {
		return false
	}
	if hasLargeGap && len(sorted) < 4 {
		return false
	}
	return true
}

func monthGap(from, to string) int {
	fromYear, fromMonth, okFrom := splitMonthKey(from)
	toYear, toMonth, okTo := splitMonthKey(to)
	if !okFrom || !okTo {
		return int(^uint(0) >> 1)
	}

	gap := (toYear-fromYear)*12 + (toMonth - fromMonth)
	if gap < 0 {
		return 0
	}
	return gap
}

func splitMonthKey(monthKey string) (int, int, bool) {
	yearText, monthText, found := strings.Cut(monthKey, "-")
	if !found {
		return 0, 0, false
	}
	year, err := strconv.Atoi(yearText)
	if err != nil {
		return 0, 0, false
	}
	month, err := strconv.Atoi(monthText)
	if err != nil {
		return 0, 0, false
	}
	return year, month, true
}

func buildRecommendations(category, vendorName string, trendPercent *decimal.Decimal, potentialSaving, benchmarkGap decimal.Decimal, targetMonthly *decimal.Decimal) []string {
	var recommendations []string

	if invoice.CanonicalCategory(category) == invoice.CategoryService {
		recommendations = append(recommendations,
			"Detta ser ut som en engångstjänst och räknas inte som återkommande månadskostnad.",
			"Kontrollera att arbete, material och moms är tydligt specificerade.",
			fmt.Sprintf("Be %s om prisöversyn eller fastpris vid liknande jobb.", vendorName),
		)
		return recommendations[:3]
	}

	if targetMonthly != nil && benchmarkGap.GreaterThanOrEqual(benchmarkGapFloor) {
		recommendations = append(recommendations,
			fmt.Sprintf("Du ligger över riktpris för %s (ca %s kr/mån).", strings.ToLower(category), targetMonthly.String()))
	}

	if potentialSaving.GreaterThanOrEqual(opportunitySavingFloor) {
		recommendations = append(recommendations,
			fmt.Sprintf("Kostnaden ligger %s kr över föregående månad.", potentialSaving.Round(0).String()))
	}

	if trendOrZero(trendPercent).GreaterThanOrEqual(opportunityTrendFloor) {
		recommendations = append(recommendations,
			fmt.Sprintf("Kostnaden har ökat %s%% mot föregående månad.", trendPercent.Round(0).String()))
	}

	recommendations = append(recommendations,
		fmt.Sprintf("Be %s om prisöversyn eller lojalitetsrabatt.", vendorName))

	if len(recommendations) > 3 {
		recommendations = recommendations[:3]
	}
	return recommendations
}

func buildMonthSummary(observations []observation) Summary {
	totals := totalsByMonth(observations)

	monthKeys := make([]string, 0, len(totals))
	for key := range totals {
		monthKeys = append(monthKeys, key)
	}
	sort.Strings(monthKeys)

	summary := Summary{}
	if len(monthKeys) > 0 {
		summary.LatestMonth = monthKeys[len(monthKeys)-1]
		summary.LatestMonthTotal = totals[summary.LatestMonth].Round(2)
	}
	if len(monthKeys) > 1 {
		summary.PreviousMonth = monthKeys[len(monthKeys)-2]
		summary.PreviousMonthTotal = totals[summary.PreviousMonth].Round(2)
	}

	summary.MonthDelta = summary.LatestMonthTotal.Sub(summary.PreviousMonthTotal).Round(2)
	if summary.PreviousMonthTotal.IsPositive() {
		deltaPercent := summary.MonthDelta.Div(summary.PreviousMonthTotal).Mul(hundred).Round(2)
		summary.MonthDeltaPercent = &deltaPercent
	}

	return summary
}

func buildMonthlyTotals(observations []observation) []MonthlyTotal {
	totals := totalsByMonth(observations)

	monthlyTotals := make([]MonthlyTotal, 0, len(totals))
	for key, total := range totals {
		monthlyTotals = append(monthlyTotals, MonthlyTotal{MonthKey: key, Total: total.Round(2)})
	}
	sort.Slice(monthlyTotals, func(i, j int) bool {
		return monthlyTotals[i].MonthKey < monthlyTotals[j].MonthKey
	})

	return monthlyTotals
}

func totalsByMonth(observations []observation) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, item := range observations {
		totals[item.monthKey] = totals[item.monthKey].Add(item.amount)
	}
	return totals
}

func buildCategorySummary(recurring []RecurringService) []CategorySummary {
	grouped := make(map[string]*CategorySummary)
	var order []string

	for _, entry := range recurring {
		existing, ok := grouped[entry.Category]
		if !ok {
			existing = &CategorySummary{Category: entry.Category}
			grouped[entry.Category] = existing
			order = append(order, entry.Category)
		}
		existing.ServiceCount++
		existing.TotalLatestAmount = existing.TotalLatestAmount.Add(entry.LatestAmount)
		existing.TotalPotentialSaving = existing.TotalPotentialSaving.Add(entry.PotentialSaving)
	}

	summaries := make([]CategorySummary, 0, len(order))
	for _, key := range order {
		entry := grouped[key]
		entry.TotalLatestAmount = entry.TotalLatestAmount.Round(2)
		entry.TotalPotentialSaving = entry.TotalPotentialSaving.Round(2)
		summaries = append(summaries, *entry)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].TotalPotentialSaving.GreaterThan(summaries[j].TotalPotentialSaving)
	})

	return summaries
}

func buildVendorSummary(recurring []RecurringService) []VendorSummary {
	grouped := make(map[string]*VendorSummary)
	var order []string

	for _, entry := range recurring {
		key := invoice.FoldKey(entry.VendorName)
		existing, ok := grouped[key]
		if !ok {
			existing = &VendorSummary{VendorKey: key, VendorName: entry.VendorName}
			grouped[key] = existing
			order = append(order, key)
		}
		existing.ServiceCount++
		existing.LatestTotal = existing.LatestTotal.Add(entry.LatestAmount)
		if entry.PreviousAmount != nil {
			existing.PreviousTotal = existing.PreviousTotal.Add(*entry.PreviousAmount)
		}
		existing.PotentialSaving = existing.PotentialSaving.Add(entry.PotentialSaving)
	}

	summaries := make([]VendorSummary, 0, len(order))
	for _, key := range order {
		entry := grouped[key]
		entry.LatestTotal = entry.LatestTotal.Round(2)
		entry.PreviousTotal = entry.PreviousTotal.Round(2)
		entry.PotentialSaving = entry.PotentialSaving.Round(2)
		entry.TrendPercent = computeTrendPercent(entry.PreviousTotal, entry.LatestTotal)
		summaries = append(summaries, *entry)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		if !summaries[i].PotentialSaving.Equal(summaries[j].PotentialSaving) {
			return summaries[i].PotentialSaving.GreaterThan(summaries[j].PotentialSaving)
		}
		return trendOrZero(summaries[i].TrendPercent).GreaterThan(trendOrZero(summaries[j].TrendPercent))
	})

	return summaries
}

func classifyStatus(potentialSaving decimal.Decimal, trendPercent *decimal.Decimal) string {
	trend := trendOrZero(trendPercent)
	if potentialSaving.GreaterThanOrEqual(highSavingFloor) || trend.GreaterThanOrEqual(highTrendFloor) {
		return "high"
	}
	if potentialSaving.GreaterThanOrEqual(mediumSavingFloor) || trend.GreaterThanOrEqual(opportunityTrendFloor) {
		return "medium"
	}
	return "low"
}

func computeTrendPercent(previousAmount, latestAmount decimal.Decimal) *decimal.Decimal {
	if !previousAmount.IsPositive() {
		return nil
	}
	trend := latestAmount.Sub(previousAmount).Div(previousAmount).Mul(hundred).Round(2)
	return &trend
}

func maxZero(value decimal.Decimal) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}
	return value
}

func trendOrZero(trend *decimal.Decimal) decimal.Decimal {
	if trend == nil {
		return decimal.Zero
	}
	return *trend
}
