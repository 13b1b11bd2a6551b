package domain

import (
	"errors"
	"time"
)

// PaymentStatus tracks settlement with the payment provider.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// FulfillmentStatus tracks physical delivery, independently of payment.
// Cash-on-delivery orders are pending payment but still unfulfilled; card
// orders arrive already paid and equally unfulfilled.
type FulfillmentStatus string

const (
	FulfillmentUnfulfilled FulfillmentStatus = "unfulfilled"
	FulfillmentShipped     FulfillmentStatus = "shipped"
	FulfillmentDelivered   FulfillmentStatus = "delivered"
)

type Address struct {
	Street  string `json:"streetAddress"`
	City    string `json:"city"`
	Country string `json:"country,omitempty"`
	State   string `json:"state,omitempty"`
	Zipcode string `json:"zipcode,omitempty"`
}

// CartItem is one requested line of a checkout. Quantity is carried through
// to the payment session metadata verbatim; pricing uses one unit per
// distinct book regardless of it.
type CartItem struct {
	BookID   string `json:"productId"`
	Quantity int    `json:"quantity"`
}

type Order struct {
	ID                string            `json:"_id"`
	UserID            string            `json:"userId"`
	Email             string            `json:"email"`
	Address           Address           `json:"address"`
	Phone             string            `json:"phone"`
	BookIDs           []string          `json:"bookIds"`
	TotalPrice        float64           `json:"totalPrice"`
	PaymentStatus     PaymentStatus     `json:"paymentStatus"`
	Fulfillment       FulfillmentStatus `json:"fulfillmentStatus"`
	CheckoutSessionID string            `json:"stripeSessionId,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

var ErrInvalidOrder = errors.New("invalid order")

func (o Order) Validate() error {
	switch {
	case o.UserID == "":
		return errors.Join(ErrInvalidOrder, errors.New("user id is required"))
	case o.Email == "":
		return errors.Join(ErrInvalidOrder, errors.New("email is required"))
	case o.Address.Street == "" || o.Address.City == "":
		return errors.Join(ErrInvalidOrder, errors.New("street address and city are required"))
	case o.Phone == "":
		return errors.Join(ErrInvalidOrder, errors.New("phone is required"))
	case len(o.BookIDs) == 0:
		return errors.Join(ErrInvalidOrder, errors.New("at least one book is required"))
	case o.TotalPrice < 0:
		return errors.Join(ErrInvalidOrder, errors.New("total price must be non-negative"))
	}
	return nil
}
