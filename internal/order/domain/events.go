package domain

// OrderPlaced is emitted when a cash-on-delivery order is recorded.
type OrderPlaced struct {
	OrderID    string   `json:"orderId"`
	UserID     string   `json:"userId"`
	Email      string   `json:"email"`
	BookIDs    []string `json:"bookIds"`
	TotalPrice float64  `json:"totalPrice"`
}

// OrderPaid is emitted when a completed checkout session produces an order.
type OrderPaid struct {
	OrderID           string  `json:"orderId"`
	UserID            string  `json:"userId"`
	Email             string  `json:"email"`
	CheckoutSessionID string  `json:"checkoutSessionId"`
	TotalPrice        float64 `json:"totalPrice"`
}

const (
	EventOrderPlaced = "OrderPlaced"
	EventOrderPaid   = "OrderPaid"
)
