package basket

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/domain/issuance"
	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/domain/request"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func quotaLine() request.QuotaLine {
	return request.QuotaLine{
		RequestID: 1, ItemID: 10, Name: "Профиль", Code: "MAT-001", UOM: "m",
		Limit: d("100"), Issued: d("40"), Left: d("60"),
		Available: d("80"), CanIssueNow: d("60"),
	}
}

func TestAddRequest_OverQuotaAllowedWithinStock(t *testing.T) {
	b := New(ModeRequest, 1)

	// 70 > left(60), но <= available(80): сверхлимит легален.
	if err := b.AddRequest(quotaLine(), d("70")); err != nil {
		t.Fatalf("add within stock must succeed: %v", err)
	}
	lines := b.Lines()
	if len(lines) != 1 || !lines[0].Qty.Equal(d("70")) {
		t.Fatalf("unexpected basket: %+v", lines)
	}
	if lines[0].RequestItemID == nil || *lines[0].RequestItemID != 10 {
		t.Fatalf("request line must keep item id, got %+v", lines[0])
	}
}

func TestAddRequest_StockIsHardCap(t *testing.T) {
	b := New(ModeRequest, 1)

	err := b.AddRequest(quotaLine(), d("81"))
	var capErr *issuance.CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapacityError, got %v", err)
	}
	if !capErr.Available.Equal(d("80")) {
		t.Errorf("error must name the max permitted amount, got %s", capErr.Available)
	}
	if !strings.Contains(capErr.Error(), "Профиль") {
		t.Errorf("error must name the line: %q", capErr.Error())
	}
	if b.Len() != 0 {
		t.Errorf("rejected add must not change the basket")
	}
}

func TestAddRequest_Accumulates(t *testing.T) {
	b := New(ModeRequest, 1)
	q := quotaLine()

	if err := b.AddRequest(q, d("30")); err != nil {
		t.Fatal(err)
	}
	if err := b.AddRequest(q, d("40")); err != nil {
		t.Fatal(err)
	}
	if got := b.Lines(); len(got) != 1 || !got[0].Qty.Equal(d("70")) {
		t.Fatalf("re-add must accumulate into one entry, got %+v", got)
	}

	// 30+40 уже в корзине, ещё 20 вывело бы за остаток 80.
	err := b.AddRequest(q, d("20"))
	var capErr *issuance.CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapacityError, got %v", err)
	}
}

func TestAddRequest_Validation(t *testing.T) {
	b := New(ModeRequest, 1)

	var vErr *issuance.ValidationError
	if err := b.AddRequest(quotaLine(), d("0")); !errors.As(err, &vErr) {
		t.Errorf("zero qty: expected ValidationError, got %v", err)
	}
	if err := b.AddRequest(quotaLine(), d("-5")); !errors.As(err, &vErr) {
		t.Errorf("negative qty: expected ValidationError, got %v", err)
	}
	q := quotaLine()
	q.UOM = ""
	if err := b.AddRequest(q, d("1")); !errors.As(err, &vErr) {
		t.Errorf("missing uom: expected ValidationError, got %v", err)
	}
	if err := New(ModeFree, 0).AddRequest(quotaLine(), d("1")); !errors.As(err, &vErr) {
		t.Errorf("mode mismatch: expected ValidationError, got %v", err)
	}
}

func TestAddFree_CumulativeCap(t *testing.T) {
	b := New(ModeFree, 0)
	avail := d("5")

	if err := b.AddFree("MAT-001", "m", "Профиль", d("3"), avail); err != nil {
		t.Fatal(err)
	}
	if err := b.AddFree("MAT-001", "m", "Профиль", d("2"), avail); err != nil {
		t.Fatal(err)
	}

	// already queued 5, requested +1, available 5
	err := b.AddFree("MAT-001", "m", "Профиль", d("1"), avail)
	var capErr *issuance.CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapacityError, got %v", err)
	}
	if !capErr.Queued.Equal(d("5")) || !capErr.Requested.Equal(d("1")) || !capErr.Available.Equal(d("5")) {
		t.Errorf("error must report queued/requested/available exactly: %+v", capErr)
	}
	msg := capErr.Error()
	for _, part := range []string{"уже 5", "+1", "доступно 5"} {
		if !strings.Contains(msg, part) {
			t.Errorf("message %q must contain %q", msg, part)
		}
	}

	// Отклонённое добавление не меняет набранное.
	if got := b.Lines(); len(got) != 1 || !got[0].Qty.Equal(d("5")) {
		t.Fatalf("basket changed by rejected add: %+v", got)
	}
}

func TestAddFree_SeparateKeys(t *testing.T) {
	b := New(ModeFree, 0)
	if err := b.AddFree("MAT-001", "m", "", d("2"), d("10")); err != nil {
		t.Fatal(err)
	}
	if err := b.AddFree("MAT-001", "pcs", "", d("4"), d("10")); err != nil {
		t.Fatal(err)
	}
	lines := b.Lines()
	if len(lines) != 2 {
		t.Fatalf("different uom must be different keys, got %+v", lines)
	}
	if lines[0].Key != "MAT-001::m" || lines[1].Key != "MAT-001::pcs" {
		t.Errorf("unexpected keys: %q, %q", lines[0].Key, lines[1].Key)
	}
}

func TestRemoveAndClear(t *testing.T) {
	b := New(ModeFree, 0)
	_ = b.AddFree("MAT-001", "m", "", d("2"), d("10"))
	_ = b.AddFree("MAT-002", "m", "", d("3"), d("10"))

	b.Remove("MAT-001::m")
	if got := b.Lines(); len(got) != 1 || got[0].Code != "MAT-002" {
		t.Fatalf("remove by key failed: %+v", got)
	}

	b.Clear()
	if b.Len() != 0 {
		t.Fatal("clear must empty the basket")
	}

	// После очистки корзина снова пригодна.
	if err := b.AddFree("MAT-001", "m", "", d("10"), d("10")); err != nil {
		t.Fatal(err)
	}
}

func TestStore_ModeConflict(t *testing.T) {
	s := NewStore()
	session := uuid.New()

	if _, err := s.Open(session, ModeRequest, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Open(session, ModeRequest, 1); err != nil {
		t.Fatalf("re-open same mode must succeed: %v", err)
	}

	var vErr *issuance.ValidationError
	if _, err := s.Open(session, ModeFree, 0); !errors.As(err, &vErr) {
		t.Errorf("mode conflict: expected ValidationError, got %v", err)
	}
	if _, err := s.Open(session, ModeRequest, 2); !errors.As(err, &vErr) {
		t.Errorf("request conflict: expected ValidationError, got %v", err)
	}

	s.Drop(session)
	if _, err := s.Open(session, ModeFree, 0); err != nil {
		t.Errorf("after drop the session is free again: %v", err)
	}
}
