package redisx

import "time"

const (
	// Read cache for GET /orders/{id}: order_view:{order_id} -> OrderView JSON
	KeyOrderView = "order_view:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderView = 5 * time.Minute
	TTLDedup     = 48 * time.Hour
)
