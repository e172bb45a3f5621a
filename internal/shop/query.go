package shop

import "context"

// OrderView is the fetch-by-id representation: the order, its items, and
// the total derived from them.
type OrderView struct {
	Order      Order       `json:"order"`
	Items      []OrderItem `json:"items"`
	TotalCents int         `json:"total_cents"`
}

func (s *Service) Get(ctx context.Context, orderID string) (OrderView, error) {
	o, items, err := s.orders.GetWithItems(ctx, orderID)
	if err != nil {
		return OrderView{}, err
	}
	return OrderView{Order: o, Items: items, TotalCents: DeriveTotal(items)}, nil
}

// List is the cheap path: summaries only, no item expansion, no totals.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.orders.ListSummaries(ctx)
}
