package shop

import "time"

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID         string    `json:"id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	PriceCents int       `json:"price_cents"`
	Stock      int       `json:"stock"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Order carries no total column: the total is derived from the items on
// every read (see DeriveTotal).
type Order struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderItem snapshots the product's unit price at placement time. Later
// catalog price changes never touch it.
type OrderItem struct {
	ID         int64  `json:"id"`
	OrderID    string `json:"order_id"`
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
}

// LineItem is one (product, qty) pair in an incoming order request.
type LineItem struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}
