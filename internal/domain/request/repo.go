package request

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// ListLineQuotas возвращает сырые строки лимитов по заявке, до дедупликации.
// Из-за JOIN на остатки одна логическая строка может прийти несколько раз —
// схлопывание делает Dedupe.
func (r *Repo) ListLineQuotas(ctx context.Context, requestID int64) ([]QuotaLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ri.request_id, ri.id, COALESCE(m.name, ri.name, ''), ri.code, ri.uom,
		       ri.quota_limit, ri.issued,
		       GREATEST(ri.quota_limit - ri.issued, 0),
		       COALESCE(b.qty, 0),
		       LEAST(GREATEST(ri.quota_limit - ri.issued, 0), COALESCE(b.qty, 0))
		FROM request_items ri
		LEFT JOIN materials m ON m.code = ri.code
		LEFT JOIN balances b ON b.code = ri.code AND b.uom = ri.uom
		WHERE ri.request_id = $1
		ORDER BY ri.id
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QuotaLine
	for rows.Next() {
		var q QuotaLine
		if err := rows.Scan(
			&q.RequestID,
			&q.ItemID,
			&q.Name,
			&q.Code,
			&q.UOM,
			&q.Limit,
			&q.Issued,
			&q.Left,
			&q.Available,
			&q.CanIssueNow,
		); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ListHeads возвращает шапки заявок со сводными лимитами.
func (r *Repo) ListHeads(ctx context.Context) ([]Head, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.number, r.status,
		       COALESCE(SUM(ri.quota_limit), 0),
		       COALESCE(SUM(ri.issued), 0)
		FROM requests r
		LEFT JOIN request_items ri ON ri.request_id = r.id
		GROUP BY r.id, r.number, r.status
		ORDER BY r.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Head
	for rows.Next() {
		var h Head
		if err := rows.Scan(&h.RequestID, &h.Number, &h.Status, &h.LimitTotal, &h.IssuedTotal); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
