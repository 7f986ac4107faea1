package views

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Spanish)

// FormatMonto formats an amount the way the UI does: "USD 1.234.567,89"
func FormatMonto(monto float64, moneda string) string {
	if moneda == "" {
		moneda = "USD"
	}
	return moneda + " " + printer.Sprintf("%.2f", monto)
}

// FormatProgreso formats a 0..100 percentage
func FormatProgreso(p float64) string {
	return printer.Sprintf("%.0f%%", p)
}
