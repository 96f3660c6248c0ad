package issuance

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// CreateHeader создаёт шапку выдачи (фаза 1 протокола).
func (r *Repo) CreateHeader(ctx context.Context, h NewHeader) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO issues (recipient, note, request_id, object_name, level_name)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, h.Recipient, h.Note, h.RequestID, h.Context.Object, h.Context.Level).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create issue header: %w", err)
	}
	return id, nil
}

// PostLine добавляет одну строку к непроведённой шапке (фаза 2).
func (r *Repo) PostLine(ctx context.Context, issueID int64, l NewLine) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO issue_lines (issue_id, code, uom, qty, request_item_id)
		VALUES ($1,$2,$3,$4,$5)
	`, issueID, l.Code, l.UOM, l.Qty, l.RequestItemID)
	if err != nil {
		return fmt.Errorf("post line %s %s: %w", l.Code, l.UOM, err)
	}
	return nil
}

// PostFreeBatch создаёт шапку свободной выдачи и все её строки одной
// транзакцией: для свободного режима окно "строки есть, шапка не проведена"
// между фазами схлопнуто на стороне сервера.
func (r *Repo) PostFreeBatch(ctx context.Context, h NewHeader, lines []NewLine) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO issues (recipient, note, request_id, object_name, level_name)
		VALUES ($1,$2,NULL,$3,$4)
		RETURNING id
	`, h.Recipient, h.Note, h.Context.Object, h.Context.Level).Scan(&id); err != nil {
		return 0, fmt.Errorf("create free issue header: %w", err)
	}

	for _, l := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO issue_lines (issue_id, code, uom, qty, request_item_id)
			VALUES ($1,$2,$3,$4,NULL)
		`, id, l.Code, l.UOM, l.Qty); err != nil {
			return 0, fmt.Errorf("post free line %s %s: %w", l.Code, l.UOM, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

// Commit проводит выдачу (фаза 3): списывает остатки, пишет движения в
// журнал, наращивает issued по лимитным строкам и помечает шапку. Всё одной
// транзакцией с блокировкой остатков — авторитетная проверка достаточности
// происходит здесь, а не в клиентских предпроверках.
func (r *Repo) Commit(ctx context.Context, issueID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var recipient string
	var committed bool
	err = tx.QueryRow(ctx, `
		SELECT recipient, committed FROM issues WHERE id = $1 FOR UPDATE
	`, issueID).Scan(&recipient, &committed)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("issue %d not found", issueID)
	}
	if err != nil {
		return err
	}
	if committed {
		return fmt.Errorf("issue %d already committed", issueID)
	}

	rows, err := tx.Query(ctx, `
		SELECT code, uom, qty, request_item_id
		FROM issue_lines WHERE issue_id = $1 ORDER BY id
	`, issueID)
	if err != nil {
		return err
	}
	var lines []Line
	for rows.Next() {
		l := Line{IssueID: issueID}
		if err := rows.Scan(&l.Code, &l.UOM, &l.Qty, &l.RequestItemID); err != nil {
			rows.Close()
			return err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(lines) == 0 {
		return fmt.Errorf("issue %d has no lines", issueID)
	}

	for _, l := range lines {
		if err := r.applyLine(ctx, tx, issueID, recipient, l); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE issues SET committed = TRUE, committed_at = now() WHERE id = $1
	`, issueID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) applyLine(ctx context.Context, tx pgx.Tx, issueID int64, recipient string, l Line) error {
	var cur decimal.Decimal
	err := tx.QueryRow(ctx, `
		SELECT qty FROM balances WHERE code = $1 AND uom = $2 FOR UPDATE
	`, l.Code, l.UOM).Scan(&cur)
	if err == pgx.ErrNoRows {
		cur = decimal.Zero
	} else if err != nil {
		return err
	}
	if cur.LessThan(l.Qty) {
		return &CapacityError{Code: l.Code, UOM: l.UOM, Requested: l.Qty, Available: cur}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE balances SET qty = qty - $3 WHERE code = $1 AND uom = $2
	`, l.Code, l.UOM, l.Qty); err != nil {
		return asCapacity(err, l, cur)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO movements (code, uom, qty, kind, issue_id, note)
		VALUES ($1,$2,$3,'out',$4,$5)
	`, l.Code, l.UOM, l.Qty.Neg(), issueID, recipient); err != nil {
		return err
	}

	if l.RequestItemID != nil {
		if _, err := tx.Exec(ctx, `
			UPDATE request_items SET issued = issued + $2 WHERE id = $1
		`, *l.RequestItemID, l.Qty); err != nil {
			return err
		}
	}
	return nil
}

// Receive приходует материал: остаток вверх плюс запись в журнал движений.
func (r *Repo) Receive(ctx context.Context, code, uom string, qty decimal.Decimal, note string) error {
	if !qty.IsPositive() {
		return Validationf("количество прихода должно быть > 0")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO balances (code, uom, qty)
		VALUES ($1,$2,$3)
		ON CONFLICT (code, uom)
		DO UPDATE SET qty = balances.qty + EXCLUDED.qty
	`, code, uom, qty); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO movements (code, uom, qty, kind, note)
		VALUES ($1,$2,$3,'in',$4)
	`, code, uom, qty, note); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// asCapacity переводит срабатывание серверного ограничения qty >= 0 в
// типизированную ошибку с материалом и количествами.
func asCapacity(err error, l Line, available decimal.Decimal) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23514" {
		return &CapacityError{Code: l.Code, UOM: l.UOM, Requested: l.Qty, Available: available}
	}
	return err
}
