package shared

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// FormatAmount renders a monetary amount with thousands separators for
// display in API payloads and notification texts (e.g. "12,500.00 XAF").
func FormatAmount(amount float64, currency string) string {
	if currency == "" {
		currency = "XAF"
	}
	return moneyPrinter.Sprintf("%.2f %s", amount, currency)
}
