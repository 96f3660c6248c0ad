package issue

// State — состояние протокола проведения выдачи.
//
//	Created → LinesPosted → Committed
//	любая фаза → Failed
//
// Состояние Failed после создания шапки означает принятое окно
// несогласованности: строки могут быть видны на сервере, но шапка не
// проведена и экономически ни на что не влияет.
type State string

const (
	StateCreated     State = "created"
	StateLinesPosted State = "lines_posted"
	StateCommitted   State = "committed"
	StateFailed      State = "failed"
)

// Result — итог Submit.
type Result struct {
	IssueID int64
	State   State
}
