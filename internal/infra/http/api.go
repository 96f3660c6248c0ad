package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/basket"
	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/domain/issuance"
	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/infra/export"
	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/issue"
)

// Receiver — приход материала на склад (мимо движка выдачи).
type Receiver interface {
	Receive(ctx context.Context, code, uom string, qty decimal.Decimal, note string) error
}

// Handler — тонкий JSON API поверх движка. Сессия корзины приходит в
// заголовке X-Session-ID (uuid), рендеринг остаётся за клиентом.
type Handler struct {
	log      *slog.Logger
	engine   *issue.Service
	receiver Receiver
}

func NewHandler(log *slog.Logger, engine *issue.Service, receiver Receiver) *Handler {
	return &Handler{log: log, engine: engine, receiver: receiver}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/balances", h.listBalances)
	mux.HandleFunc("GET /api/balances/export", h.exportBalances)
	mux.HandleFunc("GET /api/requests", h.listHeads)
	mux.HandleFunc("GET /api/requests/{id}/lines", h.listRequestLines)
	mux.HandleFunc("GET /api/requests/{id}/lines/export", h.exportRequestLines)
	mux.HandleFunc("GET /api/basket", h.showBasket)
	mux.HandleFunc("POST /api/basket/request", h.addRequestLine)
	mux.HandleFunc("POST /api/basket/free", h.addFreeLine)
	mux.HandleFunc("POST /api/basket/remove", h.removeLine)
	mux.HandleFunc("POST /api/basket/clear", h.clearBasket)
	mux.HandleFunc("POST /api/submit", h.submit)
	mux.HandleFunc("POST /api/receive", h.receive)
}

func (h *Handler) listBalances(w http.ResponseWriter, r *http.Request) {
	bals, err := h.engine.Balances(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	type row struct {
		Code      string          `json:"code"`
		Name      string          `json:"name"`
		UOM       string          `json:"uom"`
		Available decimal.Decimal `json:"available"`
	}
	out := make([]row, 0, len(bals))
	for _, b := range bals {
		out = append(out, row{b.Code, b.Name, b.UOM, b.Available})
	}
	h.ok(w, out)
}

func (h *Handler) exportBalances(w http.ResponseWriter, r *http.Request) {
	bals, err := h.engine.Balances(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="balances.xlsx"`)
	if err := export.Balances(w, bals); err != nil {
		h.log.Error("export balances", "err", err)
	}
}

func (h *Handler) listHeads(w http.ResponseWriter, r *http.Request) {
	heads, err := h.engine.Heads(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	type row struct {
		RequestID   int64           `json:"request_id"`
		Number      string          `json:"number"`
		Status      string          `json:"status"`
		LimitTotal  decimal.Decimal `json:"limit_total"`
		IssuedTotal decimal.Decimal `json:"issued_total"`
	}
	out := make([]row, 0, len(heads))
	for _, hd := range heads {
		out = append(out, row{hd.RequestID, hd.Number, string(hd.Status), hd.LimitTotal, hd.IssuedTotal})
	}
	h.ok(w, out)
}

func (h *Handler) listRequestLines(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid request id", http.StatusBadRequest)
		return
	}
	lines, err := h.engine.RequestLines(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	type row struct {
		ItemID      int64           `json:"request_item_id"`
		Code        string          `json:"code"`
		Name        string          `json:"name"`
		UOM         string          `json:"uom"`
		Limit       decimal.Decimal `json:"limit"`
		Issued      decimal.Decimal `json:"issued"`
		Left        decimal.Decimal `json:"left"`
		Available   decimal.Decimal `json:"available"`
		CanIssueNow decimal.Decimal `json:"can_issue_now"`
	}
	out := make([]row, 0, len(lines))
	for _, l := range lines {
		out = append(out, row{l.ItemID, l.Code, l.Name, l.UOM, l.Limit, l.Issued, l.Left, l.Available, l.CanIssueNow})
	}
	h.ok(w, out)
}

func (h *Handler) exportRequestLines(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid request id", http.StatusBadRequest)
		return
	}
	lines, err := h.engine.RequestLines(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="request-%d.xlsx"`, id))
	if err := export.RequestLines(w, lines); err != nil {
		h.log.Error("export request lines", "request_id", id, "err", err)
	}
}

func (h *Handler) showBasket(w http.ResponseWriter, r *http.Request) {
	session, err := sessionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	mode, lines := h.engine.Basket(session)
	type row struct {
		Key  string          `json:"key"`
		Code string          `json:"code"`
		Name string          `json:"name"`
		UOM  string          `json:"uom"`
		Qty  decimal.Decimal `json:"qty"`
	}
	out := struct {
		Mode  basket.Mode `json:"mode"`
		Lines []row       `json:"lines"`
	}{Mode: mode, Lines: make([]row, 0, len(lines))}
	for _, l := range lines {
		out.Lines = append(out.Lines, row{l.Key, l.Code, l.Name, l.UOM, l.Qty})
	}
	h.ok(w, out)
}

func (h *Handler) addRequestLine(w http.ResponseWriter, r *http.Request) {
	session, err := sessionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var in struct {
		RequestID int64           `json:"request_id"`
		ItemID    int64           `json:"request_item_id"`
		Qty       decimal.Decimal `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := h.engine.AddRequestLine(r.Context(), session, in.RequestID, in.ItemID, in.Qty); err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, map[string]string{"status": "added"})
}

func (h *Handler) addFreeLine(w http.ResponseWriter, r *http.Request) {
	session, err := sessionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var in struct {
		Code   string          `json:"code"`
		UOM    string          `json:"uom"`
		Qty    decimal.Decimal `json:"qty"`
		Object string          `json:"object"`
		Level  string          `json:"level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := h.engine.AddFree(r.Context(), session, in.Code, in.UOM, in.Qty, in.Object, in.Level); err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, map[string]string{"status": "added"})
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request) {
	session, err := sessionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var in struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := h.engine.RemoveLine(session, in.Key); err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, map[string]string{"status": "removed"})
}

func (h *Handler) clearBasket(w http.ResponseWriter, r *http.Request) {
	session, err := sessionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.engine.ClearBasket(session)
	h.ok(w, map[string]string{"status": "cleared"})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	session, err := sessionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var in struct {
		Recipient string `json:"recipient"`
		Note      string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	res, err := h.engine.Submit(r.Context(), session, in.Recipient, in.Note)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, map[string]any{"issue_id": res.IssueID, "state": res.State})
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Code string          `json:"code"`
		UOM  string          `json:"uom"`
		Qty  decimal.Decimal `json:"qty"`
		Note string          `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := h.receiver.Receive(r.Context(), in.Code, in.UOM, in.Qty, in.Note); err != nil {
		h.fail(w, err)
		return
	}
	// Остатки изменились — кэш движка должен перечитаться.
	h.engine.InvalidateCache()
	h.ok(w, map[string]string{"status": "received"})
}

func (h *Handler) ok(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("encode response", "err", err)
	}
}

// fail переводит таксономию ошибок движка в HTTP-статусы.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	var vErr *issuance.ValidationError
	var capErr *issuance.CapacityError
	var pErr *issuance.ProtocolError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &vErr):
		status = http.StatusBadRequest
	case errors.As(err, &capErr):
		status = http.StatusConflict
	case errors.As(err, &pErr):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		h.log.Error("api error", "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func sessionID(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get("X-Session-ID")
	if raw == "" {
		return uuid.Nil, errors.New("missing X-Session-ID header")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid X-Session-ID: %w", err)
	}
	return id, nil
}
