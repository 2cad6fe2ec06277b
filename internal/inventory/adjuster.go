// Package inventory applies stock side effects of order lifecycle transitions.
package inventory

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avolant/cafe-kds/internal/orders"
)

// Adjuster mutates product stock from an order's item snapshots. It performs
// no deduplication of its own: the lifecycle engine invokes it at most once
// per qualifying transition edge.
type Adjuster struct{ DB *pgxpool.Pool }

// Decrement subtracts every item's quantity from its product's stock and
// recomputes is_available from the post-decrement value, all in one
// transaction with the product rows locked.
func (a *Adjuster) Decrement(ctx context.Context, o *orders.Order) ([]orders.Product, error) {
	return a.adjust(ctx, o, func(stock, qty int) (int, bool) {
		after := stock - qty
		return after, after > 0
	})
}

// Restore adds every item's quantity back and forces is_available to true
// unconditionally: restoring always re-enables the product.
func (a *Adjuster) Restore(ctx context.Context, o *orders.Order) ([]orders.Product, error) {
	return a.adjust(ctx, o, func(stock, qty int) (int, bool) {
		return stock + qty, true
	})
}

func (a *Adjuster) adjust(ctx context.Context, o *orders.Order, apply func(stock, qty int) (int, bool)) ([]orders.Product, error) {
	tx, err := a.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := make([]orders.Product, 0, len(o.Items))
	for _, it := range o.Items {
		var stock int
		if err := tx.QueryRow(ctx,
			`SELECT stock FROM products WHERE id=$1 FOR UPDATE`, it.ProductID,
		).Scan(&stock); err != nil {
			return nil, err
		}

		after, available := apply(stock, it.Quantity)
		var p orders.Product
		if err := tx.QueryRow(ctx, `
			UPDATE products SET stock=$2, is_available=$3, updated_at=now()
			WHERE id=$1
			RETURNING id, name, category, price_cents, stock, is_available, COALESCE(translations, '{}'::jsonb), created_at, updated_at`,
			it.ProductID, after, available,
		).Scan(&p.ID, &p.Name, &p.Category, &p.PriceCents, &p.Stock,
			&p.IsAvailable, &p.Translations, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}
