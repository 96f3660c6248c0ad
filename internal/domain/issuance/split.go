package issuance

import "github.com/shopspring/decimal"

// Split делит запрошенное количество на лимитную и сверхлимитную части:
// inQuota = min(want, left), overQuota = want - inQuota.
// Арифметика точная, inQuota + overQuota == want всегда. Достаточность
// остатка проверяется до вызова, здесь только лимит.
func Split(want, left decimal.Decimal) (inQuota, overQuota decimal.Decimal) {
	if left.IsNegative() {
		left = decimal.Zero
	}
	inQuota = decimal.Min(want, left)
	overQuota = want.Sub(inQuota)
	return inQuota, overQuota
}
