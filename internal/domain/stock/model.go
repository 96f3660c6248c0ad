package stock

import "github.com/shopspring/decimal"

// Balance — текущий остаток по паре (код материала, единица измерения).
// Считается из журнала движений, менять его напрямую нельзя.
type Balance struct {
	Code      string
	Name      string
	UOM       string
	Available decimal.Decimal
}

// Key — ключ остатка в корзине и кэше.
func (b Balance) Key() string { return b.Code + "::" + b.UOM }
