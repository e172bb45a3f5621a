package shop

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres-backed implementation of the store ports plus the
// thin user/product CRUD the API exposes.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) FindMany(ctx context.Context, ids []string) (map[string]ProductInfo, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, price_cents, stock FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]ProductInfo, len(ids))
	for rows.Next() {
		var p ProductInfo
		if err := rows.Scan(&p.ID, &p.PriceCents, &p.Stock); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *Repo) GetWithItems(ctx context.Context, orderID string) (Order, []OrderItem, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `SELECT id, user_id, created_at FROM orders WHERE id=$1`, orderID).
		Scan(&o.ID, &o.UserID, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, nil, ErrNotFound
	}
	if err != nil {
		return Order{}, nil, err
	}

	// ORDER BY id keeps repeated reads identical.
	rows, err := r.DB.Query(ctx, `SELECT id, order_id, product_id, qty, price_cents
                                FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return Order{}, nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Qty, &it.PriceCents); err != nil {
			return Order{}, nil, err
		}
		items = append(items, it)
	}
	return o, items, rows.Err()
}

func (r *Repo) ListSummaries(ctx context.Context) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, user_id, created_at FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ---- thin product CRUD (catalog management, no order logic) ----

// ProductUpdate is a partial patch; nil fields keep their current value.
type ProductUpdate struct {
	SKU        *string `json:"sku"`
	Name       *string `json:"name"`
	PriceCents *int    `json:"price_cents"`
	Stock      *int    `json:"stock"`
}

func (r *Repo) CreateProduct(ctx context.Context, p Product) error {
	_, err := r.DB.Exec(ctx, `INSERT INTO products(id, sku, name, price_cents, stock)
	                          VALUES ($1,$2,$3,$4,$5)`, p.ID, p.SKU, p.Name, p.PriceCents, p.Stock)
	return err
}

func (r *Repo) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `SELECT id, sku, name, price_cents, stock, created_at, updated_at
	                           FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.SKU, &p.Name, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, sku, name, price_cents, stock, created_at, updated_at
                                FROM products ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateProduct(ctx context.Context, id string, upd ProductUpdate) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		UPDATE products SET
			sku         = COALESCE($2, sku),
			name        = COALESCE($3, name),
			price_cents = COALESCE($4, price_cents),
			stock       = COALESCE($5, stock),
			updated_at  = now()
		WHERE id=$1
		RETURNING id, sku, name, price_cents, stock, created_at, updated_at`,
		id, upd.SKU, upd.Name, upd.PriceCents, upd.Stock).
		Scan(&p.ID, &p.SKU, &p.Name, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *Repo) DeleteProduct(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- thin user CRUD ----

type UserUpdate struct {
	Email *string `json:"email"`
	Name  *string `json:"name"`
}

func (r *Repo) CreateUser(ctx context.Context, u User) error {
	_, err := r.DB.Exec(ctx, `INSERT INTO users(id, email, name) VALUES ($1,$2,$3)`,
		u.ID, u.Email, u.Name)
	return err
}

func (r *Repo) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	err := r.DB.QueryRow(ctx, `SELECT id, email, name, created_at FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *Repo) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, email, name, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateUser(ctx context.Context, id string, upd UserUpdate) (User, error) {
	var u User
	err := r.DB.QueryRow(ctx, `
		UPDATE users SET
			email = COALESCE($2, email),
			name  = COALESCE($3, name)
		WHERE id=$1
		RETURNING id, email, name, created_at`,
		id, upd.Email, upd.Name).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *Repo) DeleteUser(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
