package shop

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// Run implements UnitOfWork on Postgres. fn's mutations commit together or
// roll back together; an error from fn aborts the transaction and is
// returned unchanged.
func (r *Repo) Run(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct{ tx pgx.Tx }

func (t pgTx) InsertOrder(ctx context.Context, o Order) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO orders(id, user_id, created_at) VALUES ($1,$2,$3)`,
		o.ID, o.UserID, o.CreatedAt)
	return err
}

func (t pgTx) InsertItems(ctx context.Context, items []OrderItem) error {
	for i := range items {
		err := t.tx.QueryRow(ctx, `
			INSERT INTO order_items(order_id, product_id, qty, price_cents)
			VALUES ($1,$2,$3,$4) RETURNING id`,
			items[i].OrderID, items[i].ProductID, items[i].Qty, items[i].PriceCents).
			Scan(&items[i].ID)
		if err != nil {
			return err
		}
	}
	return nil
}

// DecrementStock is conditioned on sufficiency at commit time: the row lock
// taken by UPDATE closes the window between the admission check and the
// commit under concurrent placements. stock can never go negative.
func (t pgTx) DecrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	ct, err := t.tx.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at = now()
	                           WHERE id=$1 AND stock >= $2`, productID, qty)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (t pgTx) ProductStock(ctx context.Context, productID string) (int, bool, error) {
	var stock int
	err := t.tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return stock, true, nil
}
