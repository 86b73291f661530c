package application

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Formats like "₹ 1,500.00".
func FormatAmount(amount decimal.Decimal, unit currency.Unit) string {
	return printer.Sprint(currency.NarrowSymbol(unit.Amount(amount.InexactFloat64())))
}

// Like "₹" for INR.
func CurrencySymbol(unit currency.Unit) string {
	return printer.Sprint(currency.NarrowSymbol(unit))
}
