package issuance

import (
	"time"

	"github.com/shopspring/decimal"
)

// Context — объект и уровень монтажа, к которым относится свободная выдача.
type Context struct {
	Object string
	Level  string
}

// Header — шапка выдачи. После создания не меняется, кроме отметки committed.
type Header struct {
	ID        int64
	Recipient string
	Note      string
	RequestID *int64
	Object    string
	Level     string
	Committed bool
	CreatedAt time.Time
}

// Line — строка выдачи в журнале. Только добавляется, никогда не правится.
// RequestItemID = nil означает сверхлимитную или свободную выдачу.
type Line struct {
	IssueID       int64
	Code          string
	UOM           string
	Qty           decimal.Decimal
	RequestItemID *int64
}

// NewHeader — параметры создания шапки.
type NewHeader struct {
	Recipient string
	Note      string
	RequestID *int64
	Context   Context
}

// NewLine — параметры поста строки.
type NewLine struct {
	Code          string
	UOM           string
	Qty           decimal.Decimal
	RequestItemID *int64
}
