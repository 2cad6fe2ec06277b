package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) CountOrdersCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE created_at >= $1 AND created_at < $2`,
		from, to).Scan(&n)
	return n, err
}

// CreateOrder persists the order, its item snapshots and the first history
// entry in one transaction. A unique-constraint conflict on orders.number is
// reported as ErrDuplicateNumber so the caller can regenerate and retry.
func (r *Repo) CreateOrder(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, number, customer_name, payment_method, total_cents, status, is_paid, instructions)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		o.ID, o.Number, o.CustomerName, o.PaymentMethod, o.TotalCents, o.Status, o.IsPaid, o.Instructions,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "orders_number_key") {
			return fmt.Errorf("number %s: %w", o.Number, ErrDuplicateNumber)
		}
		return err
	}

	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, name, price_cents, quantity)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			it.ID, it.OrderID, it.ProductID, it.Name, it.PriceCents, it.Quantity,
		); err != nil {
			return err
		}
	}

	for i := range o.History {
		h := &o.History[i]
		h.OrderID = o.ID
		if err := tx.QueryRow(ctx, `
			INSERT INTO status_history(order_id, status, note)
			VALUES ($1,$2,$3)
			RETURNING id, created_at`,
			h.OrderID, h.Status, h.Note,
		).Scan(&h.ID, &h.CreatedAt); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ApplyTransition loads the order under a row lock, captures the previous
// compound state, applies the provided fields and appends one history entry
// when a status is supplied. Conflicting transitions on the same order
// serialize on the lock. Escaping a terminal status, or toggling paid state
// there, fails with ErrTerminalOrder; repeating the terminal status is allowed.
func (r *Repo) ApplyTransition(ctx context.Context, orderID string, status *Status, isPaid *bool, note string) (*Order, State, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, State{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o := &Order{}
	err = tx.QueryRow(ctx, `
		SELECT id, number, customer_name, payment_method, total_cents, status, is_paid, instructions, created_at, updated_at
		FROM orders WHERE id=$1 FOR UPDATE`, orderID,
	).Scan(&o.ID, &o.Number, &o.CustomerName, &o.PaymentMethod, &o.TotalCents,
		&o.Status, &o.IsPaid, &o.Instructions, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, State{}, fmt.Errorf("order %s: %w", orderID, ErrOrderNotFound)
	}
	if err != nil {
		return nil, State{}, err
	}

	prev := State{Status: o.Status, Paid: o.IsPaid}

	if prev.Status.Terminal() {
		if status != nil && *status != prev.Status {
			return nil, State{}, fmt.Errorf("order %s is %s: %w", orderID, prev.Status, ErrTerminalOrder)
		}
		if isPaid != nil && *isPaid != prev.Paid {
			return nil, State{}, fmt.Errorf("order %s is %s: %w", orderID, prev.Status, ErrTerminalOrder)
		}
	}

	if status != nil {
		o.Status = *status
	}
	if isPaid != nil {
		o.IsPaid = *isPaid
	}

	err = tx.QueryRow(ctx,
		`UPDATE orders SET status=$2, is_paid=$3, updated_at=now() WHERE id=$1 RETURNING updated_at`,
		o.ID, o.Status, o.IsPaid,
	).Scan(&o.UpdatedAt)
	if err != nil {
		return nil, State{}, err
	}

	if status != nil {
		if note == "" {
			note = fmt.Sprintf("status changed from %s to %s", prev.Status, o.Status)
		}
		h := StatusHistory{OrderID: o.ID, Status: o.Status, Note: note}
		if err := tx.QueryRow(ctx, `
			INSERT INTO status_history(order_id, status, note)
			VALUES ($1,$2,$3)
			RETURNING id, created_at`,
			h.OrderID, h.Status, h.Note,
		).Scan(&h.ID, &h.CreatedAt); err != nil {
			return nil, State{}, err
		}
		o.History = append(o.History, h)
	}

	o.Items, err = scanItems(tx.Query(ctx, `
		SELECT id, order_id, product_id, name, price_cents, quantity
		FROM order_items WHERE order_id=$1 ORDER BY id`, o.ID))
	if err != nil {
		return nil, State{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, State{}, err
	}
	return o, prev, nil
}

// GetProductsByIDs resolves cart product ids. Missing ids are simply absent
// from the returned map; the caller decides whether that aborts the operation.
func (r *Repo) GetProductsByIDs(ctx context.Context, ids []string) (map[string]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, category, price_cents, stock, is_available, COALESCE(translations, '{}'::jsonb), created_at, updated_at
		FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Product, len(ids))
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.PriceCents, &p.Stock,
			&p.IsAvailable, &p.Translations, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *Repo) ListAvailableProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, category, price_cents, stock, is_available, COALESCE(translations, '{}'::jsonb), created_at, updated_at
		FROM products WHERE is_available ORDER BY category, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.PriceCents, &p.Stock,
			&p.IsAvailable, &p.Translations, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListOrders returns orders newest-first with their items and their history
// newest-first, for the kitchen display's initial load.
func (r *Repo) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, number, customer_name, payment_method, total_cents, status, is_paid, instructions, created_at, updated_at
		FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	idx := map[string]int{}
	var ids []string
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.Number, &o.CustomerName, &o.PaymentMethod, &o.TotalCents,
			&o.Status, &o.IsPaid, &o.Instructions, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		idx[o.ID] = len(out)
		ids = append(ids, o.ID)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	items, err := scanItems(r.DB.Query(ctx, `
		SELECT id, order_id, product_id, name, price_cents, quantity
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`, ids))
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		i := idx[it.OrderID]
		out[i].Items = append(out[i].Items, it)
	}

	hrows, err := r.DB.Query(ctx, `
		SELECT id, order_id, status, note, created_at
		FROM status_history WHERE order_id = ANY($1) ORDER BY created_at DESC, id DESC`, ids)
	if err != nil {
		return nil, err
	}
	defer hrows.Close()
	for hrows.Next() {
		var h StatusHistory
		if err := hrows.Scan(&h.ID, &h.OrderID, &h.Status, &h.Note, &h.CreatedAt); err != nil {
			return nil, err
		}
		i := idx[h.OrderID]
		out[i].History = append(out[i].History, h)
	}
	return out, hrows.Err()
}

func (r *Repo) GetOrderStatus(ctx context.Context, orderID string) (Status, bool, error) {
	var s Status
	var paid bool
	err := r.DB.QueryRow(ctx, `SELECT status, is_paid FROM orders WHERE id=$1`, orderID).Scan(&s, &paid)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, fmt.Errorf("order %s: %w", orderID, ErrOrderNotFound)
	}
	return s, paid, err
}

func scanItems(rows pgx.Rows, err error) ([]OrderItem, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.PriceCents, &it.Quantity); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
