package issue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/basket"
	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/domain/issuance"
	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/domain/request"
	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/domain/stock"
)

// Ledger — пишущие операции внешнего журнала выдач.
type Ledger interface {
	CreateHeader(ctx context.Context, h issuance.NewHeader) (int64, error)
	PostLine(ctx context.Context, issueID int64, l issuance.NewLine) error
	PostFreeBatch(ctx context.Context, h issuance.NewHeader, lines []issuance.NewLine) (int64, error)
	Commit(ctx context.Context, issueID int64) error
}

// StockReader — читающая сторона складской правды.
type StockReader interface {
	List(ctx context.Context) ([]stock.Balance, error)
}

// RequestReader — читающая сторона заявок.
type RequestReader interface {
	ListLineQuotas(ctx context.Context, requestID int64) ([]request.QuotaLine, error)
	ListHeads(ctx context.Context) ([]request.Head, error)
}

// Notifier — побочный канал уведомлений о проведённых выдачах.
type Notifier interface {
	IssueCommitted(ctx context.Context, text string)
}

// Service — движок выдачи: корзины сессий, предпроверки, трёхфазный коммит,
// сквозной кэш серверной правды. Все количества локально только читаются;
// единственный способ их изменить — успешный коммит с перечитыванием.
type Service struct {
	log      *slog.Logger
	ledger   Ledger
	stocks   StockReader
	requests RequestReader
	baskets  *basket.Store
	cache    *cache
	notify   Notifier
}

func NewService(log *slog.Logger, ledger Ledger, stocks StockReader, requests RequestReader, baskets *basket.Store, cacheTTL time.Duration, notify Notifier) *Service {
	return &Service{
		log:      log,
		ledger:   ledger,
		stocks:   stocks,
		requests: requests,
		baskets:  baskets,
		cache:    newCache(cacheTTL),
		notify:   notify,
	}
}

/* Чтения (сквозной кэш) */

func (s *Service) Balances(ctx context.Context) ([]stock.Balance, error) {
	return s.cache.Balances(ctx, s.stocks.List)
}

func (s *Service) Heads(ctx context.Context) ([]request.Head, error) {
	return s.cache.Heads(ctx, s.requests.ListHeads)
}

// RequestLines возвращает строки заявки после дедупликации.
func (s *Service) RequestLines(ctx context.Context, requestID int64) ([]request.QuotaLine, error) {
	lines, err := s.cache.Quotas(ctx, requestID, s.requests.ListLineQuotas)
	if err != nil {
		return nil, err
	}
	return request.Dedupe(lines), nil
}

// InvalidateCache сбрасывает кэш серверной правды (например после прихода).
func (s *Service) InvalidateCache() { s.cache.Invalidate() }

/* Корзина */

// AddRequestLine кладёт количество по строке заявки в корзину сессии.
func (s *Service) AddRequestLine(ctx context.Context, session uuid.UUID, requestID, itemID int64, qty decimal.Decimal) error {
	lines, err := s.RequestLines(ctx, requestID)
	if err != nil {
		return err
	}
	var found *request.QuotaLine
	for i := range lines {
		if lines[i].ItemID == itemID {
			found = &lines[i]
			break
		}
	}
	if found == nil {
		return issuance.Validationf("строка %d не найдена в заявке %d", itemID, requestID)
	}

	b, err := s.baskets.Open(session, basket.ModeRequest, requestID)
	if err != nil {
		return err
	}
	return b.AddRequest(*found, qty)
}

// AddFree кладёт количество в свободную корзину сессии.
func (s *Service) AddFree(ctx context.Context, session uuid.UUID, code, uom string, qty decimal.Decimal, object, level string) error {
	bals, err := s.Balances(ctx)
	if err != nil {
		return err
	}
	available := decimal.Zero
	name := ""
	for _, bal := range bals {
		if bal.Code == code && bal.UOM == uom {
			available, name = bal.Available, bal.Name
			break
		}
	}

	b, err := s.baskets.Open(session, basket.ModeFree, 0)
	if err != nil {
		return err
	}
	if object != "" || level != "" {
		b.SetContext(object, level)
	}
	return b.AddFree(code, uom, name, qty, available)
}

func (s *Service) RemoveLine(session uuid.UUID, key string) error {
	b, ok := s.baskets.Get(session)
	if !ok {
		return issuance.Validationf("корзина пуста")
	}
	b.Remove(key)
	return nil
}

func (s *Service) ClearBasket(session uuid.UUID) {
	s.baskets.Drop(session)
}

// Basket — снимок корзины сессии для показа.
func (s *Service) Basket(session uuid.UUID) (basket.Mode, []basket.Line) {
	b, ok := s.baskets.Get(session)
	if !ok {
		return "", nil
	}
	return b.Mode(), b.Lines()
}

/* Сабмит */

// Submit проводит корзину сессии по трёхфазному протоколу. При любой ошибке
// корзина сохраняется — можно исправить и повторить. При успехе корзина
// очищается, кэш сбрасывается и серверная правда перечитывается.
func (s *Service) Submit(ctx context.Context, session uuid.UUID, recipient, note string) (*Result, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return nil, issuance.Validationf("не указан получатель")
	}
	b, ok := s.baskets.Get(session)
	if !ok || b.Len() == 0 {
		return nil, issuance.Validationf("корзина пуста")
	}

	var res *Result
	var err error
	if b.Mode() == basket.ModeRequest {
		res, err = s.submitRequest(ctx, b, recipient, note)
	} else {
		res, err = s.submitFree(ctx, b, recipient, note)
	}
	if err != nil {
		return res, err
	}

	s.afterCommit(ctx, session, b, res.IssueID, recipient)
	return res, nil
}

func (s *Service) submitRequest(ctx context.Context, b *basket.Basket, recipient, note string) (*Result, error) {
	requestID := b.RequestID()
	lines := b.Lines()

	// Один согласованный снимок лимитов до первого удалённого вызова.
	// Предпроверки — быстрая обратная связь; авторитетная проверка в коммите.
	quotas, err := s.RequestLines(ctx, requestID)
	if err != nil {
		return nil, err
	}
	byItem := make(map[int64]request.QuotaLine, len(quotas))
	for _, q := range quotas {
		byItem[q.ItemID] = q
	}

	var postings []issuance.NewLine
	for _, l := range lines {
		if l.RequestItemID == nil {
			return nil, issuance.Validationf("строка %s без привязки к заявке в корзине заявки", l.Code)
		}
		if l.UOM == "" {
			return nil, issuance.Validationf("у строки %s не задана единица измерения", l.Code)
		}
		q, ok := byItem[*l.RequestItemID]
		if !ok {
			return nil, issuance.Validationf("строка %d исчезла из заявки %d", *l.RequestItemID, requestID)
		}
		if l.Qty.GreaterThan(q.Available) {
			return nil, &issuance.CapacityError{
				Code: q.Code, UOM: q.UOM, Name: q.Name,
				Requested: l.Qty, Available: q.Available,
			}
		}

		inQuota, overQuota := issuance.Split(l.Qty, q.Left)
		itemID := *l.RequestItemID
		if inQuota.IsPositive() {
			postings = append(postings, issuance.NewLine{
				Code: l.Code, UOM: l.UOM, Qty: inQuota, RequestItemID: &itemID,
			})
		}
		if overQuota.IsPositive() {
			// Сверхлимитная часть идёт отдельной строкой без привязки:
			// против остатка, но не против лимита заявки.
			postings = append(postings, issuance.NewLine{
				Code: l.Code, UOM: l.UOM, Qty: overQuota,
			})
		}
	}
	if len(postings) == 0 {
		return nil, issuance.Validationf("в корзине нет ненулевых количеств")
	}

	// Фаза 1: шапка.
	issueID, err := s.ledger.CreateHeader(ctx, issuance.NewHeader{
		Recipient: recipient, Note: note, RequestID: &requestID,
	})
	if err != nil {
		return nil, s.fail(issuance.PhaseCreate, 0, err)
	}

	// Фаза 2: строки, по одному вызову. Сбой — операция неуспешна целиком,
	// уже запощенные строки остаются висеть на непроведённой шапке.
	for _, p := range postings {
		if err := s.ledger.PostLine(ctx, issueID, p); err != nil {
			return &Result{IssueID: issueID, State: StateFailed},
				s.fail(issuance.PhasePost, issueID, err)
		}
	}

	// Фаза 3: проведение.
	if err := s.ledger.Commit(ctx, issueID); err != nil {
		return &Result{IssueID: issueID, State: StateFailed},
			s.fail(issuance.PhaseCommit, issueID, err)
	}
	return &Result{IssueID: issueID, State: StateCommitted}, nil
}

func (s *Service) submitFree(ctx context.Context, b *basket.Basket, recipient, note string) (*Result, error) {
	c := b.Context()
	if c.Object == "" || c.Level == "" {
		return nil, issuance.Validationf("для свободной выдачи нужно выбрать объект и уровень")
	}

	lines := b.Lines()
	bals, err := s.Balances(ctx)
	if err != nil {
		return nil, err
	}
	avail := make(map[string]decimal.Decimal, len(bals))
	for _, bal := range bals {
		avail[bal.Key()] = bal.Available
	}

	posted := make([]issuance.NewLine, 0, len(lines))
	for _, l := range lines {
		if l.UOM == "" {
			return nil, issuance.Validationf("у материала %s не задана единица измерения", l.Code)
		}
		if l.Qty.GreaterThan(avail[l.Key]) {
			return nil, &issuance.CapacityError{
				Code: l.Code, UOM: l.UOM, Name: l.Name,
				Requested: l.Qty, Available: avail[l.Key],
			}
		}
		if l.Qty.IsPositive() {
			posted = append(posted, issuance.NewLine{Code: l.Code, UOM: l.UOM, Qty: l.Qty})
		}
	}
	if len(posted) == 0 {
		return nil, issuance.Validationf("в корзине нет ненулевых количеств")
	}

	// Фазы 1–2 одной атомарной серверной операцией.
	issueID, err := s.ledger.PostFreeBatch(ctx, issuance.NewHeader{
		Recipient: recipient, Note: note, Context: c,
	}, posted)
	if err != nil {
		return nil, s.fail(issuance.PhasePost, 0, err)
	}

	if err := s.ledger.Commit(ctx, issueID); err != nil {
		return &Result{IssueID: issueID, State: StateFailed},
			s.fail(issuance.PhaseCommit, issueID, err)
	}
	return &Result{IssueID: issueID, State: StateCommitted}, nil
}

// fail фиксирует сбой фазы. Корзину не трогаем.
func (s *Service) fail(phase issuance.Phase, issueID int64, err error) error {
	failedTotal.WithLabelValues(string(phase)).Inc()
	s.log.Error("issue submit failed", "phase", phase, "issue_id", issueID, "err", err)
	return &issuance.ProtocolError{Phase: phase, Err: err}
}

// afterCommit — обязательные побочные эффекты успеха: очистка корзины,
// сброс кэша, перечитывание остатков/лимитов/шапок, метрики, уведомление.
func (s *Service) afterCommit(ctx context.Context, session uuid.UUID, b *basket.Basket, issueID int64, recipient string) {
	lines := b.Lines()
	requestID := b.RequestID()
	mode := b.Mode()

	s.baskets.Drop(session)
	s.cache.Invalidate()

	if _, err := s.Balances(ctx); err != nil {
		s.log.Warn("refresh balances after commit", "err", err)
	}
	if mode == basket.ModeRequest {
		if _, err := s.RequestLines(ctx, requestID); err != nil {
			s.log.Warn("refresh request lines after commit", "request_id", requestID, "err", err)
		}
	}
	if _, err := s.Heads(ctx); err != nil {
		s.log.Warn("refresh request heads after commit", "err", err)
	}

	committedTotal.Inc()
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Qty)
	}
	qty, _ := total.Float64()
	issuedQtyTotal.Add(qty)

	s.log.Info("issue committed", "issue_id", issueID, "mode", mode, "lines", len(lines), "recipient", recipient)
	if s.notify != nil {
		s.notify.IssueCommitted(ctx, fmt.Sprintf("Выдача №%d проведена: %d поз., получатель %s", issueID, len(lines), recipient))
	}
}
