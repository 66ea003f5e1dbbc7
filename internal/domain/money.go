package domain

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

func NewMoney(amount decimal.Decimal, unit currency.Unit) Money {
	return Money{Amount: amount, Currency: unit}
}

// MinorUnits converts the amount to integer minor currency units (cents, paise),
// rounding half away from zero.
func (m Money) MinorUnits() int64 {
	scale, _ := currency.Standard.Rounding(m.Currency)

	return m.Amount.Shift(int32(scale)).Round(0).IntPart()
}

// Rounded returns the amount rounded to the currency's standard scale.
func (m Money) Rounded() decimal.Decimal {
	scale, _ := currency.Standard.Rounding(m.Currency)

	return m.Amount.Round(int32(scale))
}

func (m Money) String() string {
	p := message.NewPrinter(language.English)

	return p.Sprint(currency.Symbol(m.Currency.Amount(m.Rounded().InexactFloat64())))
}
