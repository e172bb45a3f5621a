package shop

const (
	TopicOrderPlaced   = "order.placed"
	TopicStockRejected = "order.stock.rejected"
)

// Partition key = order_id so all events for one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
