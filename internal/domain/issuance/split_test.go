package issuance

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSplit(t *testing.T) {
	cases := []struct {
		name      string
		want      string
		left      string
		inQuota   string
		overQuota string
	}{
		{"всё в лимит", "50", "60", "50", "0"},
		{"ровно лимит", "60", "60", "60", "0"},
		{"сверх лимита", "70", "60", "60", "10"},
		{"лимит исчерпан", "25", "0", "0", "25"},
		{"отрицательный остаток лимита", "10", "-5", "0", "10"},
		{"дробные количества", "7.25", "3.5", "3.5", "3.75"},
		{"точность без округления", "0.003", "0.001", "0.001", "0.002"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, over := Split(d(tc.want), d(tc.left))
			if !in.Equal(d(tc.inQuota)) {
				t.Errorf("inQuota: expected %s, got %s", tc.inQuota, in)
			}
			if !over.Equal(d(tc.overQuota)) {
				t.Errorf("overQuota: expected %s, got %s", tc.overQuota, over)
			}
			if !in.Add(over).Equal(d(tc.want)) {
				t.Errorf("inQuota+overQuota=%s, want exactly %s", in.Add(over), tc.want)
			}
			if over.IsNegative() {
				t.Errorf("overQuota must be >= 0, got %s", over)
			}
		})
	}
}
