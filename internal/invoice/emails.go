package invoice

import (
	"math/rand"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// EmailTemplate is a ready-to-send draft the user can pick from when
// contacting a vendor about an invoice.
type EmailTemplate struct {
	Type          string `json:"type"`
	TemplateID    string `json:"templateId"`
	TemplateLabel string `json:"templateLabel"`
	Subject       string `json:"subject"`
	Body          string `json:"body"`
}

// TemplateOrder decides the presentation order of email drafts.
type TemplateOrder interface {
	Order(templates []EmailTemplate) []EmailTemplate
}

// ShuffleOrder randomizes the draft order so the same template does not
// always land on top.
type ShuffleOrder struct {
	rng *rand.Rand
}

// NewShuffleOrder returns a ShuffleOrder seeded from the given source.
func NewShuffleOrder(seed int64) *ShuffleOrder {
	return &ShuffleOrder{rng: rand.New(rand.NewSource(seed))}
}

func (s *ShuffleOrder) Order(templates []EmailTemplate) []EmailTemplate {
	shuffled := append([]EmailTemplate(nil), templates...)
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

// StableOrder keeps the template definition order.
type StableOrder struct{}

func (StableOrder) Order(templates []EmailTemplate) []EmailTemplate {
	return append([]EmailTemplate(nil), templates...)
}

// EmailActions builds the drafts for an extracted invoice in the order the
// given strategy decides.
func EmailActions(extracted *Invoice, order TemplateOrder) []EmailTemplate {
	return order.Order(EmailTemplates(extracted))
}

var svPrinter = message.NewPrinter(language.Swedish)

// FormatAmountWithCurrency renders an amount the Swedish way, grouped
// thousands and decimal comma, followed by the currency code.
func FormatAmountWithCurrency(amount decimal.Decimal, currency string) string {
	if currency == "" {
		currency = "SEK"
	}
	return svPrinter.Sprintf("%v %s", number.Decimal(amount.Round(2).InexactFloat64()), currency)
}

type templateContext struct {
	vendor        string
	category      string
	customer      string
	invoiceNumber string
	amountText    string
	dueDateText   string
	paymentMethod string
}

func buildTemplateContext(extracted *Invoice) templateContext {
	ctx := templateContext{
		vendor:        cleanString(extracted.VendorName, "leverantören"),
		category:      CanonicalCategory(extracted.Category),
		customer:      cleanString(extracted.CustomerNumber, "okänt"),
		invoiceNumber: cleanString(extracted.InvoiceNumber, "okänt"),
		amountText:    "okänt belopp",
		dueDateText:   cleanString(extracted.DueDate, "okänt förfallodatum"),
		paymentMethod: cleanString(extracted.PaymentMethod, "okänt betalsätt"),
	}
	if extracted.TotalAmount != nil {
		ctx.amountText = FormatAmountWithCurrency(*extracted.TotalAmount, extracted.Currency)
	}
	return ctx
}

// EmailTemplates builds the full draft set for an invoice: the common
// negotiation drafts plus a category specific trio.
func EmailTemplates(extracted *Invoice) []EmailTemplate {
	ctx := buildTemplateContext(extracted)
	return append(commonTemplates(ctx), categoryTemplates(ctx)...)
}

func commonTemplates(ctx templateContext) []EmailTemplate {
	return []EmailTemplate{
		{
			Type:          "cancel_email",
			TemplateID:    "cancel-formal",
			TemplateLabel: "Uppsägningsmall",
			Subject:       "Uppsägning av abonnemang - kundnummer " + ctx.customer,
			Body: "Hej,\n\n" +
				"Jag vill säga upp mitt abonnemang hos " + ctx.vendor + ".\n" +
				"Kundnummer: " + ctx.customer + "\n" +
				"Fakturanummer: " + ctx.invoiceNumber + "\n" +
				"Vänligen bekräfta uppsägningen samt vilket datum avtalet upphör.\n\n" +
				"Tack på förhand.\n" +
				"Med vänlig hälsning",
		},
		{
			Type:          "cancel_email",
			TemplateID:    "cancel-fast-track",
			TemplateLabel: "Uppsägning snabb",
			Subject:       "Direkt uppsägning - kundnummer " + ctx.customer,
			Body: "Hej,\n\n" +
				"Jag önskar avsluta tjänsten hos " + ctx.vendor + " så snart uppsägningstiden tillåter.\n" +
				"Kundnummer: " + ctx.customer + "\n" +
				"Fakturanummer: " + ctx.invoiceNumber + "\n\n" +
				"Återkom med slutdatum och eventuell slutfaktura.\n\n" +
				"Med vänlig hälsning",
		},
		{
			Type:          "cancel_email",
			TemplateID:    "price-negotiation",
			TemplateLabel: "Förhandlingsmall",
			Subject:       "Förfrågan om bättre pris - kundnummer " + ctx.customer,
			Body: "Hej,\n\n" +
				"Jag har granskat min senaste faktura från " + ctx.vendor + " och vill se över min kostnad.\n" +
				"Nuvarande belopp: " + ctx.amountText + "\n" +
				"Fakturanummer: " + ctx.invoiceNumber + "\n" +
				"Kan ni erbjuda ett bättre pris eller ett mer fördelaktigt paket?\n\n" +
				"Om det inte finns en konkurrenskraftig lösning vill jag gå vidare med uppsägning.\n\n" +
				"Med vänlig hälsning",
		},
		{
			Type:          "cancel_email",
			TemplateID:    "price-negotiation-match",
			TemplateLabel: "Förhandling: prismatch",
			Subject:       "Begäran om prismatch för befintlig kund " + ctx.customer,
			Body: "Hej,\n\n" +
				"Jag vill fortsätta som kund hos " + ctx.vendor + ", men behöver en bättre prisnivå.\n" +
				"Nuvarande kostnad: " + ctx.amountText + "\n" +
				"Fakturanummer: " + ctx.invoiceNumber + "\n\n" +
				"Kan ni matcha ett mer konkurrenskraftigt erbjudande och återkomma skriftligt?\n\n" +
				"Med vänlig hälsning",
		},
		{
			Type:          "cancel_email",
			TemplateID:    "specification-request",
			TemplateLabel: "Specifikationsmall",
			Subject:       "Begäran om fakturaspecifikation " + ctx.invoiceNumber,
			Body: "Hej,\n\n" +
				"Jag behöver hjälp att förtydliga min senaste faktura från " + ctx.vendor + ".\n" +
				"Belopp: " + ctx.amountText + "\n" +
				"Förfallodatum: " + ctx.dueDateText + "\n" +
				"Betalsätt: " + ctx.paymentMethod + "\n" +
				"Kundnummer: " + ctx.customer + "\n\n" +
				"Kan ni förklara kostnadsposterna och bekräfta att allt är korrekt debiterat?\n\n" +
				"Tack!\n" +
				"Med vänlig hälsning",
		},
		{
			Type:          "cancel_email",
			TemplateID:    "specification-dispute",
			TemplateLabel: "Specifikation: invändning",
			Subject:       "Invändning och begäran om underlag för faktura " + ctx.invoiceNumber,
			Body: "Hej,\n\n" +
				"Jag vill bestrida delar av fakturan från " + ctx.vendor + " tills fullständig specifikation finns.\n" +
				"Fakturanummer: " + ctx.invoiceNumber + "\n" +
				"Belopp: " + ctx.amountText + "\n\n" +
				"Skicka tydligt underlag per kostnadspost inklusive datum, omfattning och pris.\n\n" +
				"Med vänlig hälsning",
		},
	}
}

func categoryTemplates(ctx templateContext) []EmailTemplate {
	switch ctx.category {
	case CategoryMobile, CategoryInternet:
		return []EmailTemplate{
			{
				Type:          "cancel_email",
				TemplateID:    "connectivity-loyalty",
				TemplateLabel: "Lojalitetsrabatt",
				Subject:       "Lojalitetsförslag för befintlig kund " + ctx.customer,
				Body: "Hej,\n\n" +
					"Jag har varit kund hos " + ctx.vendor + " en längre tid och vill se om ni kan erbjuda en lojalitetsrabatt.\n" +
					"Nuvarande kostnad: " + ctx.amountText + "\n" +
					"Fakturanummer: " + ctx.invoiceNumber + "\n\n" +
					"Om ni kan matcha marknadsnivå fortsätter jag gärna som kund.\n\n" +
					"Med vänlig hälsning",
			},
			{
				Type:          "cancel_email",
				TemplateID:    "connectivity-binding-check",
				TemplateLabel: "Bindningstid och villkor",
				Subject:       "Begäran om bindningstid och uppsägningsvillkor",
				Body: "Hej,\n\n" +
					"Jag vill få en tydlig sammanställning av mitt avtal hos " + ctx.vendor + ".\n" +
					"Kundnummer: " + ctx.customer + "\n" +
					"Fakturanummer: " + ctx.invoiceNumber + "\n" +
					"Förfallodatum: " + ctx.dueDateText + "\n\n" +
					"Vänligen återkom med aktuell bindningstid, uppsägningstid och eventuell slutfaktura.\n\n" +
					"Med vänlig hälsning",
			},
			{
				Type:          "cancel_email",
				TemplateID:    "connectivity-downgrade",
				TemplateLabel: "Nedgradera abonnemang",
				Subject:       "Förfrågan om billigare paket",
				Body: "Hej,\n\n" +
					"Jag vill nedgradera mitt abonnemang hos " + ctx.vendor + " till en lägre prisnivå.\n" +
					"Nuvarande kostnad: " + ctx.amountText + "\n" +
					"Kundnummer: " + ctx.customer + "\n\n" +
					"Skicka gärna alternativ med lägre månadspris och vad som ingår i varje nivå.\n\n" +
					"Med vänlig hälsning",
			},
		}
	case CategoryElectric:
		return []EmailTemplate{
			{
				Type:          "cancel_email",
				TemplateID:    "electricity-price-review",
				TemplateLabel: "Elprisförhandling",
				Subject:       "Översyn av elpris och avtalsnivå",
				Body: "Hej,\n\n" +
					"Jag vill omförhandla mitt nuvarande elavtal hos " + ctx.vendor + ".\n" +
					"Nuvarande debitering: " + ctx.amountText + "\n" +
					"Fakturanummer: " + ctx.invoiceNumber + "\n\n" +
					"Kan ni erbjuda ett lägre pris eller ett alternativt avtal som bättre motsvarar min förbrukning?\n\n" +
					"Med vänlig hälsning",
			},
			{
				Type:          "cancel_email",
				TemplateID:    "electricity-grid-breakdown",
				TemplateLabel: "Nät- och avgiftsspec",
				Subject:       "Begäran om tydlig uppdelning av elavgifter",
				Body: "Hej,\n\n" +
					"Jag vill få en specificerad förklaring av min elfaktura från " + ctx.vendor + ".\n" +
					"Belopp: " + ctx.amountText + "\n" +
					"Fakturanummer: " + ctx.invoiceNumber + "\n\n" +
					"Vänligen dela upp kostnaden per elhandel, nätavgift, skatter och övriga avgifter.\n\n" +
					"Med vänlig hälsning",
			},
			{
				Type:          "cancel_email",
				TemplateID:    "electricity-switch-intent",
				TemplateLabel: "Byte av elleverantör",
				Subject:       "Sista offert innan leverantörsbyte",
				Body: "Hej,\n\n" +
					"Jag utvärderar att byta från " + ctx.vendor + " och vill ge er möjlighet att lämna ett förbättrat erbjudande.\n" +
					"Fakturanummer: " + ctx.invoiceNumber + "\n" +
					"Nuvarande kostnad: " + ctx.amountText + "\n\n" +
					"Om ni kan erbjuda bättre villkor återkommer jag gärna med fortsatt avtal.\n\n" +
					"Med vänlig hälsning",
			},
		}
	case CategoryInsurance:
		return []EmailTemplate{
			{
				Type:          "cancel_email",
				TemplateID:    "insurance-premium-review",
				TemplateLabel: "Premieöversyn",
				Subject:       "Begäran om premieöversyn",
				Body: "Hej,\n\n" +
					"Jag vill se över premien för min försäkring hos " + ctx.vendor + ".\n" +
					"Nuvarande kostnad: " + ctx.amountText + "\n" +
					"Kundnummer: " + ctx.customer + "\n\n" +
					"Kan ni erbjuda en lägre premie eller ett upplägg med samma skydd men bättre pris?\n\n" +
					"Med vänlig hälsning",
			},
			{
				Type:          "cancel_email",
				TemplateID:    "insurance-terms-check",
				TemplateLabel: "Villkor och självrisk",
				Subject:       "Förtydligande av villkor och självrisk",
				Body: "Hej,\n\n" +
					"Jag vill få ett skriftligt förtydligande av villkor för min försäkring hos " + ctx.vendor + ".\n" +
					"Fakturanummer: " + ctx.invoiceNumber + "\n" +
					"Belopp: " + ctx.amountText + "\n\n" +
					"Vänligen specificera självrisknivåer, undantag och omfattning för mitt nuvarande avtal.\n\n" +
					"Med vänlig hälsning",
			},
			{
				Type:          "cancel_email",
				TemplateID:    "insurance-bundle-discount",
				TemplateLabel: "Samlingsrabatt",
				Subject:       "Förfrågan om samlingsrabatt",
				Body: "Hej,\n\n" +
					"Jag vill undersöka samlingsrabatt hos " + ctx.vendor + " för att sänka min försäkringskostnad.\n" +
					"Nuvarande kostnad: " + ctx.amountText + "\n" +
					"Kundnummer: " + ctx.customer + "\n\n" +
					"Skicka gärna förslag på paket och hur mycket jag kan spara per månad.\n\n" +
					"Med vänlig hälsning",
			},
		}
	case CategoryStreaming:
		return []EmailTemplate{
			{
				Type:          "cancel_email",
				TemplateID:    "streaming-plan-review",
				TemplateLabel: "Paketöversyn",
				Subject:       "Fråga om billigare abonnemang",
				Body: "Hej,\n\n" +
					"Jag vill se om det finns ett billigare abonnemang hos " + ctx.vendor + ".\n" +
					"Nuvarande månadskostnad: " + ctx.amountText + "\n" +
					"Kundnummer: " + ctx.customer + "\n\n" +
					"Har ni något alternativ med lägre pris som passar samma användning?\n\n" +
					"Med vänlig hälsning",
			},
			{
				Type:          "cancel_email",
				TemplateID:    "streaming-pause-or-cancel",
				TemplateLabel: "Pausa eller avsluta",
				Subject:       "Paus eller uppsägning av abonnemang",
				Body: "Hej,\n\n" +
					"Jag vill pausa eller avsluta mitt abonnemang hos " + ctx.vendor + ".\n" +
					"Kundnummer: " + ctx.customer + "\n" +
					"Förfallodatum: " + ctx.dueDateText + "\n\n" +
					"Vänligen återkom med vilka alternativ som finns och hur uppsägningen påverkar debiteringen.\n\n" +
					"Med vänlig hälsning",
			},
			{
				Type:          "cancel_email",
				TemplateID:    "streaming-annual-discount",
				TemplateLabel: "Årsplan/rabatt",
				Subject:       "Förfrågan om årsplan eller lojalitetsrabatt",
				Body: "Hej,\n\n" +
					"Jag vill behålla tjänsten hos " + ctx.vendor + ", men till lägre kostnad.\n" +
					"Nuvarande kostnad: " + ctx.amountText + "\n" +
					"Kundnummer: " + ctx.customer + "\n\n" +
					"Erbjuder ni årsbetalning, familjeplan eller annan rabatt som sänker månadskostnaden?\n\n" +
					"Med vänlig hälsning",
			},
		}
	case CategoryBanking:
		return []EmailTemplate{
			{
				Type:          "cancel_email",
				TemplateID:    "bank-fee-review",
				TemplateLabel: "Avgiftsöversyn",
				Subject:       "Begäran om översyn av bankavgifter",
				Body: "Hej,\n\n" +
					"Jag vill se över avgifterna kopplade till mitt konto hos " + ctx.vendor + ".\n" +
					"Debiterat belopp: " + ctx.amountText + "\n" +
					"Kundnummer: " + ctx.customer + "\n\n" +
					"Vänligen föreslå alternativ med lägre kostnad och beskriv vad som kan justeras.\n\n" +
					"Med vänlig hälsning",
			},
			{
				Type:          "cancel_email",
				TemplateID:    "bank-rate-negotiation",
				TemplateLabel: "Ränteförhandling",
				Subject:       "Förfrågan om bättre ränta eller villkor",
				Body: "Hej,\n\n" +
					"Jag vill diskutera bättre villkor för mina banktjänster hos " + ctx.vendor + ".\n" +
					"Fakturanummer: " + ctx.invoiceNumber + "\n" +
					"Belopp: " + ctx.amountText + "\n\n" +
					"Kan ni erbjuda en förbättrad räntenivå eller ett mer förmånligt upplägg?\n\n" +
					"Med vänlig hälsning",
			},
			{
				Type:          "cancel_email",
				TemplateID:    "bank-package-downgrade",
				TemplateLabel: "Byt till baspaket",
				Subject:       "Begäran om enklare bankpaket",
				Body: "Hej,\n\n" +
					"Jag vill byta till ett enklare och billigare kontopaket hos " + ctx.vendor + ".\n" +
					"Kundnummer: " + ctx.customer + "\n" +
					"Nuvarande kostnad: " + ctx.amountText + "\n\n" +
					"Skicka gärna förslag på baspaket och vilka avgifter som försvinner.\n\n" +
					"Med vänlig hälsning",
			},
		}
	case CategoryService:
		return []EmailTemplate{
			{
				Type:          "cancel_email",
				TemplateID:    "service-cost-clarification",
				TemplateLabel: "Tjänst: Kostnadsförklaring",
				Subject:       "Begäran om kostnadsförklaring för faktura " + ctx.invoiceNumber,
				Body: "Hej,\n\n" +
					"Jag vill få en tydlig genomgång av fakturan för utfört arbete hos " + ctx.vendor + ".\n" +
					"Fakturanummer: " + ctx.invoiceNumber + "\n" +
					"Belopp: " + ctx.amountText + "\n" +
					"Kundnummer: " + ctx.customer + "\n\n" +
					"Vänligen specificera materialkostnad, timpris, antal timmar och eventuella övriga avgifter.\n\n" +
					"Med vänlig hälsning",
			},
			{
				Type:          "cancel_email",
				TemplateID:    "service-price-check",
				TemplateLabel: "Tjänst: Prisjämförelse",
				Subject:       "Fråga om prisnivå för utförd tjänst",
				Body: "Hej,\n\n" +
					"Jag vill kontrollera prisnivån på arbetet som fakturerats av " + ctx.vendor + ".\n" +
					"Fakturanummer: " + ctx.invoiceNumber + "\n" +
					"Belopp: " + ctx.amountText + "\n\n" +
					"Kan ni bekräfta att priset följer överenskommen offert samt redovisa hur totalen beräknats?\n\n" +
					"Med vänlig hälsning",
			},
			{
				Type:          "cancel_email",
				TemplateID:    "service-material-hours-proof",
				TemplateLabel: "Tjänst: Material/timmar",
				Subject:       "Begäran om underlag för material och arbetstid",
				Body: "Hej,\n\n" +
					"Jag önskar komplett underlag för den utförda tjänsten från " + ctx.vendor + ".\n" +
					"Fakturanummer: " + ctx.invoiceNumber + "\n" +
					"Belopp: " + ctx.amountText + "\n\n" +
					"Vänligen redovisa antal timmar, timpris, materiallista, á-priser och eventuella påslag.\n\n" +
					"Med vänlig hälsning",
			},
		}
	default:
		return []EmailTemplate{
			{
				Type:          "cancel_email",
				TemplateID:    "generic-price-review",
				TemplateLabel: "Allmän prisöversyn",
				Subject:       "Begäran om prisöversyn",
				Body: "Hej,\n\n" +
					"Jag vill se över kostnaden för min tjänst hos " + ctx.vendor + ".\n" +
					"Nuvarande belopp: " + ctx.amountText + "\n" +
					"Kundnummer: " + ctx.customer + "\n\n" +
					"Kan ni erbjuda ett bättre pris eller en mer passande nivå?\n\n" +
					"Med vänlig hälsning",
			},
			{
				Type:          "cancel_email",
				TemplateID:    "generic-termination-followup",
				TemplateLabel: "Uppsägning med uppföljning",
				Subject:       "Begäran om uppsägning och bekräftelse",
				Body: "Hej,\n\n" +
					"Jag önskar säga upp avtalet hos " + ctx.vendor + ".\n" +
					"Kundnummer: " + ctx.customer + "\n" +
					"Fakturanummer: " + ctx.invoiceNumber + "\n\n" +
					"Vänligen bekräfta slutdatum, uppsägningstid och om någon ytterligare debitering tillkommer.\n\n" +
					"Med vänlig hälsning",
			},
			{
				Type:          "cancel_email",
				TemplateID:    "generic-charge-question",
				TemplateLabel: "Fråga om debitering",
				Subject:       "Begäran om förklaring av debitering",
				Body: "Hej,\n\n" +
					"Jag behöver ett tydligt underlag för debiteringen från " + ctx.vendor + ".\n" +
					"Fakturanummer: " + ctx.invoiceNumber + "\n" +
					"Belopp: " + ctx.amountText + "\n" +
					"Förfallodatum: " + ctx.dueDateText + "\n\n" +
					"Vänligen återkom med specifikation och hur kostnaden har beräknats.\n\n" +
					"Med vänlig hälsning",
			},
		}
	}
}
