package stock

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// List возвращает остатки по всем материалам с ненулевой историей движений.
func (r *Repo) List(ctx context.Context) ([]Balance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.code, COALESCE(m.name,''), b.uom, b.qty
		FROM balances b
		LEFT JOIN materials m ON m.code = b.code
		ORDER BY b.code, b.uom
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.Code, &b.Name, &b.UOM, &b.Available); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Available возвращает остаток по складу (0, если записи нет).
func (r *Repo) Available(ctx context.Context, code, uom string) (decimal.Decimal, error) {
	var q decimal.Decimal
	err := r.pool.
		QueryRow(ctx, `SELECT qty FROM balances WHERE code = $1 AND uom = $2`, code, uom).
		Scan(&q)
	if err == pgx.ErrNoRows {
		return decimal.Zero, nil
	}
	return q, err
}
