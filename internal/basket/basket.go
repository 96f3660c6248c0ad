package basket

import (
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/domain/issuance"
	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/domain/request"
)

type Mode string

const (
	ModeRequest Mode = "request" // выдача по заявке, одна позиция на строку заявки
	ModeFree    Mode = "free"    // свободная выдача, позиции копятся по коду::ЕИ
)

// Line — позиция корзины. Живёт только в памяти сессии: создаётся при
// добавлении, копится при повторном добавлении, исчезает при сабмите или
// очистке. Никогда не сохраняется.
type Line struct {
	Key           string
	Code          string
	UOM           string
	Name          string
	Qty           decimal.Decimal
	RequestItemID *int64
}

// Basket — корзина одной сессии. Режимы взаимоисключающие: корзина либо
// привязана к заявке, либо свободная.
type Basket struct {
	mu        sync.Mutex
	mode      Mode
	requestID int64
	object    string
	level     string
	keys      []string
	lines     map[string]*Line
}

func New(mode Mode, requestID int64) *Basket {
	return &Basket{
		mode:      mode,
		requestID: requestID,
		lines:     map[string]*Line{},
	}
}

func (b *Basket) Mode() Mode       { return b.mode }
func (b *Basket) RequestID() int64 { return b.requestID }

// AddRequest добавляет (накапливая) количество по строке заявки. Жёсткая
// граница — остаток на складе: превышать лимит заявки можно (появится
// сверхлимитная часть), превышать остаток — нет.
func (b *Basket) AddRequest(q request.QuotaLine, qty decimal.Decimal) error {
	if b.mode != ModeRequest {
		return issuance.Validationf("корзина не привязана к заявке")
	}
	if !qty.IsPositive() {
		return issuance.Validationf("количество должно быть > 0")
	}
	if q.UOM == "" {
		return issuance.Validationf("у строки %s не задана единица измерения", q.Code)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	key := requestKey(q.ItemID)
	var queued decimal.Decimal
	if l, ok := b.lines[key]; ok {
		queued = l.Qty
	}
	total := queued.Add(qty)
	if total.GreaterThan(q.Available) {
		return &issuance.CapacityError{
			Code: q.Code, UOM: q.UOM, Name: q.Name,
			Queued: queued, Requested: qty, Available: q.Available,
		}
	}

	if l, ok := b.lines[key]; ok {
		l.Qty = total
		return nil
	}
	itemID := q.ItemID
	b.lines[key] = &Line{
		Key: key, Code: q.Code, UOM: q.UOM, Name: q.Name,
		Qty: qty, RequestItemID: &itemID,
	}
	b.keys = append(b.keys, key)
	return nil
}

// AddFree накапливает количество под ключом код::ЕИ. Отклоняется всё
// добавление целиком, если сумма с уже набранным превышает остаток; в ошибке
// видно и набранное, и отклонённую дельту.
func (b *Basket) AddFree(code, uom, name string, qty, available decimal.Decimal) error {
	if b.mode != ModeFree {
		return issuance.Validationf("корзина привязана к заявке, свободное добавление недоступно")
	}
	if !qty.IsPositive() {
		return issuance.Validationf("количество должно быть > 0")
	}
	if uom == "" {
		return issuance.Validationf("у материала %s не задана единица измерения", code)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	key := code + "::" + uom
	var queued decimal.Decimal
	if l, ok := b.lines[key]; ok {
		queued = l.Qty
	}
	total := queued.Add(qty)
	if total.GreaterThan(available) {
		return &issuance.CapacityError{
			Code: code, UOM: uom, Name: name,
			Queued: queued, Requested: qty, Available: available,
		}
	}

	if l, ok := b.lines[key]; ok {
		l.Qty = total
		return nil
	}
	b.lines[key] = &Line{Key: key, Code: code, UOM: uom, Name: name, Qty: qty}
	b.keys = append(b.keys, key)
	return nil
}

func (b *Basket) Remove(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.lines[key]; !ok {
		return
	}
	delete(b.lines, key)
	for i, k := range b.keys {
		if k == key {
			b.keys = append(b.keys[:i], b.keys[i+1:]...)
			break
		}
	}
}

func (b *Basket) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = map[string]*Line{}
	b.keys = nil
}

// Lines — снимок позиций в порядке добавления.
func (b *Basket) Lines() []Line {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Line, 0, len(b.keys))
	for _, k := range b.keys {
		out = append(out, *b.lines[k])
	}
	return out
}

func (b *Basket) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

// SetContext задаёт объект и уровень для свободной выдачи.
func (b *Basket) SetContext(object, level string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.object, b.level = object, level
}

func (b *Basket) Context() issuance.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return issuance.Context{Object: b.object, Level: b.level}
}

func requestKey(itemID int64) string {
	return "ri:" + strconv.FormatInt(itemID, 10)
}
