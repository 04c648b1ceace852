package models

import "github.com/shopspring/decimal"

// AmountToCents переводит сумму в целые центы с округлением до двух знаков.
func AmountToCents(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}

// AmountFromCents восстанавливает сумму из центов.
func AmountFromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
