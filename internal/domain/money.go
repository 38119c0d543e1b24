package domain

import (
	"github.com/shopspring/decimal"
)

// MoneyPlaces кол-во знаков после запятой у всех сохраняемых сумм.
const MoneyPlaces = 2

// MaxAmount наибольшая сумма, которую вмещает колонка NUMERIC(18, 2).
var MaxAmount = decimal.RequireFromString("9999999999999999.99")

// RoundMoney округляет сумму до MoneyPlaces знаков (half away from zero).
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyPlaces)
}

// NormalizeAmount округляет сумму операции и проверяет, что она строго положительна и не больше MaxAmount.
func NormalizeAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	rounded := RoundMoney(amount)
	if !rounded.IsPositive() || rounded.GreaterThan(MaxAmount) {
		return decimal.Zero, ErrInvalidAmount
	}
	return rounded, nil
}

// NormalizeNonNegative округляет сумму и проверяет, что она не отрицательна и не больше MaxAmount.
func NormalizeNonNegative(amount decimal.Decimal) (decimal.Decimal, error) {
	rounded := RoundMoney(amount)
	if rounded.IsNegative() || rounded.GreaterThan(MaxAmount) {
		return decimal.Zero, ErrInvalidAmount
	}
	return rounded, nil
}
