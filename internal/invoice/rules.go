package invoice

import (
	"regexp"
	"strings"
)

var (
	customerNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)kundnummer[:\s]*([a-z0-9\-]+)`),
		regexp.MustCompile(`(?i)customer\s*number[:\s]*([a-z0-9\-]+)`),
		regexp.MustCompile(`(?i)account[:\s]*([a-z0-9\-]+)`),
	}
	invoiceNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)fakturanummer[:\s]*([a-z0-9\-]+)`),
		regexp.MustCompile(`(?i)invoice\s*number[:\s]*([a-z0-9\-]+)`),
		regexp.MustCompile(`(?i)faktura\s*nr[:\s]*([a-z0-9\-]+)`),
	}
	organizationNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)organisationsnummer[:\s]*([0-9\-]+)`),
		regexp.MustCompile(`(?i)org\.?\s*nr[:\s]*([0-9\-]+)`),
		regexp.MustCompile(`(?i)orgnr[:\s]*([0-9\-]+)`),
	}
	ocrNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)ocr(?:-nummer|nummer|nr)?[:\s]*([0-9\- ]{5,})`),
		regexp.MustCompile(`(?i)betalreferens[:\s]*([0-9\- ]{5,})`),
		regexp.MustCompile(`(?i)reference[:\s]*([0-9\- ]{5,})`),
	}
	dueDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)förfallodatum[:\s]*([0-9./\-]+)`),
		regexp.MustCompile(`(?i)forfallodatum[:\s]*([0-9./\-]+)`),
		regexp.MustCompile(`(?i)förfaller[:\s]*([0-9./\-]+)`),
		regexp.MustCompile(`(?i)forfaller[:\s]*([0-9./\-]+)`),
		regexp.MustCompile(`(?i)due\s*date[:\s]*([0-9./\-]+)`),
	}
	invoiceDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)fakturadatum[:\s]*([0-9./\-]+)`),
		regexp.MustCompile(`(?i)invoice\s*date[:\s]*([0-9./\-]+)`),
		regexp.MustCompile(`(?i)datum[:\s]*([0-9./\-]+)`),
	}
	totalAmountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)att\s*betala[^0-9]*([0-9][0-9\s.,]*)`),
		regexp.MustCompile(`(?i)belopp[^0-9]*([0-9][0-9\s.,]*)\s*kr`),
		regexp.MustCompile(`(?i)total[^0-9]*([0-9][0-9\s.,]*)`),
	}
	vatAmountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)moms[^0-9]*([0-9][0-9\s.,]*)`),
		regexp.MustCompile(`(?i)varav\s+moms[^0-9]*([0-9][0-9\s.,]*)`),
		regexp.MustCompile(`(?i)vat[^0-9]*([0-9][0-9\s.,]*)`),
	}
	monthlyCostPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)månadskostnad[:\s]*([0-9][0-9\s.,]*)`),
		regexp.MustCompile(`(?i)månadsavgift[:\s]*([0-9][0-9\s.,]*)`),
		regexp.MustCompile(`(?i)([0-9][0-9\s.,]*)\s*(?:kr)?\s*/\s*mån(?:ad)?`),
		regexp.MustCompile(`(?i)([0-9][0-9\s.,]*)\s*(?:kr)?\s*per\s*månad`),
		regexp.MustCompile(`(?i)([0-9][0-9\s.,]*)\s*(?:kr)?\s*månadsvis`),
	}

	servicePattern = regexp.MustCompile(`golvvärme|golvvarme|renovering|hantverk|rot avdrag|rot skatteavdrag|installation|rör|ror|snick|målning|malning|bygg|servicearbete|arbete \(timmar\)|styckpris|summa|material`)
	mobilePattern  = regexp.MustCompile(`tele2|telia|telenor|halebop|vimla|mobil|abonnemang|comviq`)
	netPattern     = regexp.MustCompile(`bredband|internet|fiber`)
	powerPattern   = regexp.MustCompile(`elfaktura|elhandel|elnät|elnat|vattenfall|eon|fortum`)
	insurePattern  = regexp.MustCompile(`försäkring|forsakring|if|folksam|länsförsäkringar|lansforsakringar`)
	streamPattern  = regexp.MustCompile(`spotify|netflix|hbo|max|viaplay|stream`)
	bankPattern    = regexp.MustCompile(`bank|klarna|kortavgift|ränta|ranta`)

	serviceSignalPattern = regexp.MustCompile(`golvvärme|golvvarme|rot|hantverk|renovering|installation|servicearbete|arbete \(timmar\)|styckpris|material|rör|ror|snick|målning|malning`)
	monthlySignalPattern = regexp.MustCompile(`månadskostnad|månadsavgift|/\s*mån|kr\s*/\s*mån|per\s*månad|månadsvis|abonnemang`)
)

// ExtractWithRules runs the deterministic regex extraction over raw invoice
// text. It always produces a full Invoice; fields it cannot find stay
// empty and the confidence score reflects how many anchors matched.
func ExtractWithRules(text string) *Invoice {
	vendorName := firstNonEmptyLine(text)
	if vendorName == "" {
		vendorName = UnknownVendor
	}

	customerNumber := findMatch(text, customerNumberPatterns)
	invoiceNumber := findMatch(text, invoiceNumberPatterns)
	organizationNumber := findMatch(text, organizationNumberPatterns)
	ocrNumber := findMatch(text, ocrNumberPatterns)
	dueDate := NormalizeDate(findMatch(text, dueDatePatterns))
	invoiceDate := NormalizeDate(findMatch(text, invoiceDatePatterns))
	totalAmount := ParseAmount(findMatch(text, totalAmountPatterns))
	vatAmount := ParseAmount(findMatch(text, vatAmountPatterns))
	monthlyCost := ParseAmount(findMatch(text, monthlyCostPatterns))

	category := GuessCategory(text + "\n" + vendorName)
	paymentMethod := GuessPaymentMethod(text)

	confidence := 0.25
	if vendorName != UnknownVendor {
		confidence += 0.15
	}
	if totalAmount != nil {
		confidence += 0.15
	}
	if dueDate != "" {
		confidence += 0.1
	}
	if invoiceNumber != "" {
		confidence += 0.1
	}
	if customerNumber != "" {
		confidence += 0.1
	}
	if ocrNumber != "" {
		confidence += 0.1
	}
	if category != CategoryOther {
		confidence += 0.1
	}
	if paymentMethod != PaymentUnknown {
		confidence += 0.1
	}

	return &Invoice{
		VendorName:         vendorName,
		Category:           category,
		MonthlyCost:        monthlyCost,
		TotalAmount:        totalAmount,
		Currency:           "SEK",
		DueDate:            dueDate,
		InvoiceDate:        invoiceDate,
		CustomerNumber:     customerNumber,
		InvoiceNumber:      invoiceNumber,
		OrganizationNumber: organizationNumber,
		OCRNumber:          ocrNumber,
		VATAmount:          vatAmount,
		PaymentMethod:      paymentMethod,
		Confidence:         clamp(confidence, 0, 1),
	}
}

// GuessCategory classifies free text by keyword. Craft and labor wording is
// checked before the subscription brands so a plumber's invoice that
// mentions "mobil" in passing still lands in Tjänst.
func GuessCategory(text string) string {
	lower := strings.ToLower(text)
	switch {
	case servicePattern.MatchString(lower):
		return CategoryService
	case mobilePattern.MatchString(lower):
		return CategoryMobile
	case netPattern.MatchString(lower):
		return CategoryInternet
	case powerPattern.MatchString(lower):
		return CategoryElectric
	case insurePattern.MatchString(lower):
		return CategoryInsurance
	case streamPattern.MatchString(lower):
		return CategoryStreaming
	case bankPattern.MatchString(lower):
		return CategoryBanking
	default:
		return CategoryOther
	}
}

// GuessPaymentMethod looks for the Swedish payment rails by name.
func GuessPaymentMethod(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "autogiro"):
		return PaymentAutogiro
	case strings.Contains(lower, "e-faktura"), strings.Contains(lower, "efaktura"):
		return PaymentEInvoice
	case strings.Contains(lower, "bankgiro"):
		return PaymentBankgiro
	case strings.Contains(lower, "plusgiro"):
		return PaymentPlusgiro
	case strings.Contains(lower, "kort"):
		return PaymentCard
	case strings.Contains(lower, "swish"):
		return PaymentSwish
	default:
		return PaymentUnknown
	}
}

func hasServiceSignals(text string) bool {
	return serviceSignalPattern.MatchString(strings.ToLower(text))
}

func hasMonthlySignals(text string) bool {
	return monthlySignalPattern.MatchString(strings.ToLower(text))
}

func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func findMatch(source string, patterns []*regexp.Regexp) string {
	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(source); len(m) > 1 && strings.TrimSpace(m[1]) != "" {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
