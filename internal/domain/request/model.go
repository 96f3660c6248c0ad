package request

import "github.com/shopspring/decimal"

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// QuotaLine — снимок лимита по строке заявки. Поля issued/left авторитетны
// только на сервере: после каждого коммита их нужно перечитывать, локально
// они никогда не уменьшаются.
type QuotaLine struct {
	RequestID   int64
	ItemID      int64
	Name        string
	Code        string
	UOM         string
	Limit       decimal.Decimal
	Issued      decimal.Decimal
	Left        decimal.Decimal // max(0, limit - issued)
	Available   decimal.Decimal // остаток на складе
	CanIssueNow decimal.Decimal // min(left, available)
}

// Head — шапка заявки со сводными лимитами.
type Head struct {
	RequestID   int64
	Number      string
	Status      Status
	LimitTotal  decimal.Decimal
	IssuedTotal decimal.Decimal
}
