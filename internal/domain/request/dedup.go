package request

import "github.com/shopspring/decimal"

// Dedupe схлопывает дубли строк по request_item_id. Дубли — артефакт JOIN в
// читающей выборке, а не самостоятельные факты, поэтому числовые поля
// сливаются через max (лимит не занижаем), текстовые — первое непустое.
// Порядок первого появления сохраняется. Повторный вызов ничего не меняет.
func Dedupe(lines []QuotaLine) []QuotaLine {
	if len(lines) < 2 {
		return lines
	}

	idx := make(map[int64]int, len(lines))
	out := make([]QuotaLine, 0, len(lines))
	for _, l := range lines {
		i, seen := idx[l.ItemID]
		if !seen {
			idx[l.ItemID] = len(out)
			out = append(out, l)
			continue
		}
		out[i] = merge(out[i], l)
	}
	return out
}

func merge(a, b QuotaLine) QuotaLine {
	a.Limit = decimal.Max(a.Limit, b.Limit)
	a.Issued = decimal.Max(a.Issued, b.Issued)
	a.Left = decimal.Max(a.Left, b.Left)
	a.Available = decimal.Max(a.Available, b.Available)
	a.CanIssueNow = decimal.Max(a.CanIssueNow, b.CanIssueNow)
	if a.Name == "" {
		a.Name = b.Name
	}
	if a.Code == "" {
		a.Code = b.Code
	}
	if a.UOM == "" {
		a.UOM = b.UOM
	}
	return a
}
