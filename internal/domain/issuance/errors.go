package issuance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Phase — фаза протокола коммита, на которой упала удалённая операция.
type Phase string

const (
	PhaseCreate Phase = "create"
	PhasePost   Phase = "post"
	PhaseCommit Phase = "commit"
)

// ValidationError — ошибка локальной валидации, до любого удалённого вызова.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// CapacityError — запрошено больше, чем позволяет остаток. Возникает и на
// предварительной проверке корзины, и как разбор серверного отказа коммита.
type CapacityError struct {
	Code      string
	UOM       string
	Name      string
	Queued    decimal.Decimal // уже набрано в корзине (для свободного режима)
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *CapacityError) Error() string {
	title := e.Name
	if title == "" {
		title = e.Code
	}
	if e.Queued.IsPositive() {
		return fmt.Sprintf("%s: в корзине уже %s, запрошено ещё +%s, доступно %s %s",
			title, e.Queued, e.Requested, e.Available, e.UOM)
	}
	return fmt.Sprintf("%s: запрошено %s, доступно не более %s %s",
		title, e.Requested, e.Available, e.UOM)
}

// ProtocolError — сбой одной из трёх фаз коммита. Операция в целом считается
// неуспешной, даже если часть строк уже видна на сервере.
type ProtocolError struct {
	Phase Phase
	Err   error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("выдача не проведена (фаза %s): %v", e.Phase, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
