package shared

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// MoneyFormatter renders amounts with locale grouping and two decimals.
type MoneyFormatter struct {
	printer *message.Printer
	symbol  string
}

// NewMoneyFormatter parses locale (BCP 47) and falls back to French.
func NewMoneyFormatter(locale, symbol string) MoneyFormatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.French
	}
	return MoneyFormatter{printer: message.NewPrinter(tag), symbol: symbol}
}

// Format returns the localized amount followed by the currency symbol.
func (f MoneyFormatter) Format(amount float64) string {
	printer := f.printer
	if printer == nil {
		printer = message.NewPrinter(language.French)
	}
	out := printer.Sprint(number.Decimal(amount, number.Scale(2)))
	if f.symbol != "" {
		out += " " + f.symbol
	}
	return out
}
