package enum

// OrderStatus is the fulfilment state reported by the backend for an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"    // created, waiting for payment
	OrderStatusProcessing OrderStatus = "processing" // paid and being prepared
	OrderStatusCompleted  OrderStatus = "completed"  // delivered
	OrderStatusCancelled  OrderStatus = "cancelled"
)
