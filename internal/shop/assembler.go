package shop

import (
	"context"
	"fmt"
)

// PlaceOrderRequest is the incoming order payload.
type PlaceOrderRequest struct {
	UserID string     `json:"user_id"`
	Items  []LineItem `json:"items"`
}

// assembledLine pairs a requested line with the product snapshot read at
// assembly time. Stock may be stale by commit time; the commit re-checks.
type assembledLine struct {
	LineItem
	PriceCents int
	Stock      int
}

type assembler struct {
	products ProductStore
}

// assemble validates the request shape, resolves every referenced product
// in one batch lookup, and attaches the current price and stock. An unknown
// product id is a rejection, never silently dropped.
func (a *assembler) assemble(ctx context.Context, req PlaceOrderRequest) ([]assembledLine, error) {
	if req.UserID == "" {
		return nil, validationf("user_id is required")
	}
	if len(req.Items) == 0 {
		return nil, validationf("items must not be empty")
	}
	seen := make(map[string]bool, len(req.Items))
	ids := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		if it.ProductID == "" {
			return nil, validationf("product_id is required")
		}
		if it.Qty <= 0 {
			return nil, validationf("qty must be positive for product %s", it.ProductID)
		}
		if seen[it.ProductID] {
			return nil, validationf("duplicate product %s", it.ProductID)
		}
		seen[it.ProductID] = true
		ids = append(ids, it.ProductID)
	}

	found, err := a.products.FindMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	lines := make([]assembledLine, 0, len(req.Items))
	for _, it := range req.Items {
		p, ok := found[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %s: %w", it.ProductID, ErrNotFound)
		}
		lines = append(lines, assembledLine{LineItem: it, PriceCents: p.PriceCents, Stock: p.Stock})
	}
	return lines, nil
}
