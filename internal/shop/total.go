package shop

// DeriveTotal computes an order's total from its item snapshots. Totals are
// never stored, so they can never drift from the items.
func DeriveTotal(items []OrderItem) int {
	total := 0
	for _, it := range items {
		total += it.PriceCents * it.Qty
	}
	return total
}
