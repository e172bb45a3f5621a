package shop

import "context"

// ProductInfo is the price/stock snapshot the assembler reads per product.
type ProductInfo struct {
	ID         string
	PriceCents int
	Stock      int
}

type ProductStore interface {
	// FindMany returns a row for every id it finds; ids with no matching
	// row are simply absent from the map.
	FindMany(ctx context.Context, ids []string) (map[string]ProductInfo, error)
}

type OrderStore interface {
	// GetWithItems returns ErrNotFound if the order does not exist. Items
	// come back in insert order, so repeated reads are identical.
	GetWithItems(ctx context.Context, orderID string) (Order, []OrderItem, error)
	// ListSummaries returns order rows only: no items, no totals.
	ListSummaries(ctx context.Context) ([]Order, error)
}

// Tx is the set of mutations available inside one atomic unit of work.
type Tx interface {
	InsertOrder(ctx context.Context, o Order) error
	// InsertItems persists the items and fills in their assigned ids.
	InsertItems(ctx context.Context, items []OrderItem) error
	// DecrementStock subtracts qty only when the row exists and its stock
	// is >= qty; ok=false means the condition failed. Whether that was a
	// shortfall or a vanished row is for ProductStock to tell.
	DecrementStock(ctx context.Context, productID string, qty int) (ok bool, err error)
	ProductStock(ctx context.Context, productID string) (stock int, found bool, err error)
}

// UnitOfWork runs fn as one transaction: every mutation fn makes becomes
// visible together, or none does. An error from fn rolls everything back
// and is returned as-is.
type UnitOfWork interface {
	Run(ctx context.Context, fn func(tx Tx) error) error
}
