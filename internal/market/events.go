package market

const (
	TopicOrderCreated = "order.created"
	EventOrderCreated = "OrderCreated"
)

type OrderCreatedPayload struct {
	OrderID    string      `json:"order_id"`
	UserEmail  string      `json:"user_email"`
	Items      []ItemInput `json:"items"`
	TotalCents int64       `json:"total_cents"`
	Status     Status      `json:"status"`
}

// PartitionKey keeps every event of one order on the same partition.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
