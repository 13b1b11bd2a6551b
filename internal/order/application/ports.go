package application

import (
	"context"

	catalogdomain "github.com/bookverse/bookverse/internal/catalog/domain"
	"github.com/bookverse/bookverse/internal/order/domain"
)

type OrderRepository interface {
	// CreateWithOutbox persists the order together with its lifecycle event
	// in one transaction. When the order carries a checkout session id that
	// has already been recorded, nothing is written and created is false.
	CreateWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, headers map[string]string, traceparent string) (created bool, err error)
	Get(ctx context.Context, id string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}

// BookCatalog is the in-process lookup into the catalog context used for
// checkout pricing and order enrichment.
type BookCatalog interface {
	FindByIDs(ctx context.Context, ids []string) ([]catalogdomain.Book, error)
}

type LineItem struct {
	Name            string
	UnitAmountCents int64
	Quantity        int64
}

type CheckoutSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"url"`
}

// CheckoutGateway creates hosted-payment sessions with the external provider.
type CheckoutGateway interface {
	CreateSession(ctx context.Context, items []LineItem, metadata map[string]string) (CheckoutSession, error)
}

// EventTypeCheckoutCompleted is the only provider event type that creates an
// order; every other verified event is acknowledged and ignored.
const EventTypeCheckoutCompleted = "checkout.session.completed"

// PaymentEvent is a provider-neutral view of a verified webhook delivery.
// AmountTotal and PayerEmail come from the event payload itself; the
// metadata is whatever the checkout-session initiator attached.
type PaymentEvent struct {
	ID          string
	Type        string
	SessionID   string
	PayerEmail  string
	AmountTotal int64 // smallest currency unit
	Metadata    map[string]string
}

// WebhookVerifier authenticates a raw webhook body against its signature
// header and decodes it into a PaymentEvent.
type WebhookVerifier interface {
	Verify(payload []byte, signature string) (PaymentEvent, error)
}

// EventDeduper is the redis fast-path that skips already-seen webhook
// deliveries before the database constraint is consulted. A delivery is
// marked only after its order is durably recorded, so a failed insert
// leaves the key unset and the provider's redelivery goes through.
type EventDeduper interface {
	EventKey(eventID string) string
	WasSeen(ctx context.Context, key string) (bool, error)
	MarkSeen(ctx context.Context, key string) error
}
