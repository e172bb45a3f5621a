package shop

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service is the order placement and read facade.
type Service struct {
	assembler assembler
	uow       UnitOfWork
	orders    OrderStore
}

func NewService(products ProductStore, uow UnitOfWork, orders OrderStore) *Service {
	return &Service{assembler: assembler{products: products}, uow: uow, orders: orders}
}

// Place admits and commits one order. On success the returned items carry
// the unit prices persisted with the order. On any failure nothing was
// written: validation and admission reject before the transaction opens,
// and a failure inside the transaction rolls the whole unit back.
func (s *Service) Place(ctx context.Context, req PlaceOrderRequest) (Order, []OrderItem, error) {
	lines, err := s.assembler.assemble(ctx, req)
	if err != nil {
		return Order{}, nil, err
	}

	// Fast reject on the assembly snapshot. The snapshot may be stale, but
	// the conditioned decrement below re-checks inside the transaction, so
	// staleness can only cause a spurious pass here, never an over-commit.
	if shortfalls := checkAdmission(lines); len(shortfalls) > 0 {
		return Order{}, nil, &InsufficientStockError{Shortfalls: shortfalls}
	}

	order := Order{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		CreatedAt: time.Now().UTC(),
	}
	items := make([]OrderItem, 0, len(lines))
	for _, ln := range lines {
		items = append(items, OrderItem{
			OrderID:    order.ID,
			ProductID:  ln.ProductID,
			Qty:        ln.Qty,
			PriceCents: ln.PriceCents, // snapshot from admission, not re-read at commit
		})
	}

	err = s.uow.Run(ctx, func(tx Tx) error {
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		if err := tx.InsertItems(ctx, items); err != nil {
			return err
		}
		var shortfalls []StockShortfall
		for _, ln := range lines {
			ok, err := tx.DecrementStock(ctx, ln.ProductID, ln.Qty)
			if err != nil {
				return err
			}
			if ok {
				continue
			}
			stock, found, err := tx.ProductStock(ctx, ln.ProductID)
			if err != nil {
				return err
			}
			if !found {
				// vanished between assembly and commit
				return fmt.Errorf("product %s: %w", ln.ProductID, ErrNotFound)
			}
			shortfalls = append(shortfalls, StockShortfall{
				ProductID: ln.ProductID, Required: ln.Qty, Available: stock,
			})
		}
		if len(shortfalls) > 0 {
			return &InsufficientStockError{Shortfalls: shortfalls}
		}
		return nil
	})
	if err != nil {
		return Order{}, nil, err
	}
	return order, items, nil
}

func checkAdmission(lines []assembledLine) []StockShortfall {
	var shortfalls []StockShortfall
	for _, ln := range lines {
		if ln.Stock < ln.Qty {
			shortfalls = append(shortfalls, StockShortfall{
				ProductID: ln.ProductID, Required: ln.Qty, Available: ln.Stock,
			})
		}
	}
	return shortfalls
}
