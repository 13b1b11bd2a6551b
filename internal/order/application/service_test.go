package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogdomain "github.com/bookverse/bookverse/internal/catalog/domain"
	"github.com/bookverse/bookverse/internal/order/application"
	"github.com/bookverse/bookverse/internal/order/domain"
)

type fakeOrderRepo struct {
	orders   []domain.Order
	events   []string
	sessions map[string]struct{}
	failNext error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{sessions: map[string]struct{}{}}
}

func (r *fakeOrderRepo) CreateWithOutbox(_ context.Context, o domain.Order, eventType string, _ []byte, _ map[string]string, _ string) (bool, error) {
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return false, err
	}
	if o.CheckoutSessionID != "" {
		if _, dup := r.sessions[o.CheckoutSessionID]; dup {
			return false, nil
		}
		r.sessions[o.CheckoutSessionID] = struct{}{}
	}
	r.orders = append(r.orders, o)
	r.events = append(r.events, eventType)
	return true, nil
}

func (r *fakeOrderRepo) Get(_ context.Context, id string) (domain.Order, error) {
	for _, o := range r.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return domain.Order{}, application.ErrOrderNotFound
}

func (r *fakeOrderRepo) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	var out []domain.Order
	for i := len(r.orders) - 1; i >= 0; i-- {
		if r.orders[i].UserID == userID {
			out = append(out, r.orders[i])
		}
	}
	return out, nil
}

type fakeCatalog struct {
	books map[string]catalogdomain.Book
}

func (c *fakeCatalog) FindByIDs(_ context.Context, ids []string) ([]catalogdomain.Book, error) {
	var out []catalogdomain.Book
	seen := map[string]struct{}{}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if b, ok := c.books[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeGateway struct {
	calls    int
	items    []application.LineItem
	metadata map[string]string
	err      error
}

func (g *fakeGateway) CreateSession(_ context.Context, items []application.LineItem, metadata map[string]string) (application.CheckoutSession, error) {
	g.calls++
	g.items = items
	g.metadata = metadata
	if g.err != nil {
		return application.CheckoutSession{}, g.err
	}
	return application.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.example/cs_test_123"}, nil
}

type fakeDedup struct {
	seen map[string]bool
	err  error
}

func (d *fakeDedup) EventKey(id string) string { return "idem:stripe:" + id }

func (d *fakeDedup) WasSeen(_ context.Context, key string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return d.seen[key], nil
}

func (d *fakeDedup) MarkSeen(_ context.Context, key string) error {
	if d.err != nil {
		return d.err
	}
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	d.seen[key] = true
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{books: map[string]catalogdomain.Book{
		"book-a": {ID: "book-a", Title: "Book A", NewPrice: 19.99},
		"book-b": {ID: "book-b", Title: "Book B", NewPrice: 9.99},
	}}
}

func checkoutReq(items ...domain.CartItem) application.CheckoutRequest {
	return application.CheckoutRequest{
		UserID:  "user-1",
		Address: domain.Address{Street: "1 Main St", City: "Springfield"},
		Books:   items,
		Phone:   "555-0100",
	}
}

func TestCheckoutPricesDistinctMatchedBooks(t *testing.T) {
	repo := newFakeOrderRepo()
	gw := &fakeGateway{}
	svc := application.NewService(discard(), repo, testCatalog(), gw, nil)

	// book-a requested twice with quantity 3: still one line item, one unit
	session, err := svc.CreateCheckoutSession(context.Background(), checkoutReq(
		domain.CartItem{BookID: "book-a", Quantity: 3},
		domain.CartItem{BookID: "book-a", Quantity: 1},
		domain.CartItem{BookID: "book-b", Quantity: 1},
		domain.CartItem{BookID: "missing", Quantity: 1},
	))
	require.NoError(t, err)
	assert.Equal(t, "cs_test_123", session.ID)
	assert.NotEmpty(t, session.URL)

	require.Len(t, gw.items, 2)
	assert.Equal(t, application.LineItem{Name: "Book A", UnitAmountCents: 1999, Quantity: 1}, gw.items[0])
	assert.Equal(t, application.LineItem{Name: "Book B", UnitAmountCents: 999, Quantity: 1}, gw.items[1])
}

func TestCheckoutMetadataCarriesCartVerbatim(t *testing.T) {
	gw := &fakeGateway{}
	svc := application.NewService(discard(), newFakeOrderRepo(), testCatalog(), gw, nil)

	_, err := svc.CreateCheckoutSession(context.Background(), checkoutReq(
		domain.CartItem{BookID: "book-a", Quantity: 3},
	))
	require.NoError(t, err)

	assert.Equal(t, "user-1", gw.metadata["userId"])
	assert.Equal(t, "555-0100", gw.metadata["phone"])

	var addr domain.Address
	require.NoError(t, json.Unmarshal([]byte(gw.metadata["address"]), &addr))
	assert.Equal(t, "Springfield", addr.City)

	var cart []domain.CartItem
	require.NoError(t, json.Unmarshal([]byte(gw.metadata["books"]), &cart))
	require.Len(t, cart, 1)
	assert.Equal(t, 3, cart[0].Quantity, "requested quantity must survive in metadata")
}

func TestCheckoutEmptyCartSkipsGateway(t *testing.T) {
	gw := &fakeGateway{}
	svc := application.NewService(discard(), newFakeOrderRepo(), testCatalog(), gw, nil)

	_, err := svc.CreateCheckoutSession(context.Background(), checkoutReq())
	assert.ErrorIs(t, err, application.ErrEmptyCart)
	assert.Zero(t, gw.calls)
}

func TestCheckoutUnmatchedCartSkipsGateway(t *testing.T) {
	gw := &fakeGateway{}
	svc := application.NewService(discard(), newFakeOrderRepo(), testCatalog(), gw, nil)

	_, err := svc.CreateCheckoutSession(context.Background(), checkoutReq(
		domain.CartItem{BookID: "nope", Quantity: 1},
	))
	assert.ErrorIs(t, err, application.ErrBooksNotFound)
	assert.Zero(t, gw.calls)
}

func TestCheckoutRejectsZeroQuantity(t *testing.T) {
	gw := &fakeGateway{}
	svc := application.NewService(discard(), newFakeOrderRepo(), testCatalog(), gw, nil)

	_, err := svc.CreateCheckoutSession(context.Background(), checkoutReq(
		domain.CartItem{BookID: "book-a", Quantity: 0},
	))
	assert.ErrorIs(t, err, application.ErrBadQuantity)
	assert.Zero(t, gw.calls)
}

func TestCheckoutGatewayFailureSurfaces(t *testing.T) {
	gw := &fakeGateway{err: errors.New("provider down")}
	svc := application.NewService(discard(), newFakeOrderRepo(), testCatalog(), gw, nil)

	_, err := svc.CreateCheckoutSession(context.Background(), checkoutReq(
		domain.CartItem{BookID: "book-a", Quantity: 1},
	))
	assert.Error(t, err)
}

func completedEvent() application.PaymentEvent {
	addr, _ := json.Marshal(domain.Address{Street: "1 Main St", City: "Springfield"})
	cart, _ := json.Marshal([]domain.CartItem{
		{BookID: "book-a", Quantity: 1},
		{BookID: "book-b", Quantity: 1},
	})
	return application.PaymentEvent{
		ID:          "evt_1",
		Type:        application.EventTypeCheckoutCompleted,
		SessionID:   "cs_live_42",
		PayerEmail:  "buyer@example.com",
		AmountTotal: 2998,
		Metadata: map[string]string{
			"userId":  "user-1",
			"address": string(addr),
			"books":   string(cart),
			"phone":   "555-0100",
		},
	}
}

func TestWebhookCompletedSessionCreatesPaidOrder(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := application.NewService(discard(), repo, testCatalog(), &fakeGateway{}, nil)

	require.NoError(t, svc.HandlePaymentEvent(context.Background(), completedEvent(), ""))

	require.Len(t, repo.orders, 1)
	o := repo.orders[0]
	assert.Equal(t, domain.PaymentPaid, o.PaymentStatus)
	assert.Equal(t, domain.FulfillmentUnfulfilled, o.Fulfillment)
	assert.InDelta(t, 29.98, o.TotalPrice, 1e-9)
	assert.Equal(t, []string{"book-a", "book-b"}, o.BookIDs)
	assert.Equal(t, "cs_live_42", o.CheckoutSessionID)
	assert.Equal(t, "buyer@example.com", o.Email)
	assert.Equal(t, "user-1", o.UserID)
	assert.Equal(t, []string{domain.EventOrderPaid}, repo.events)
}

func TestWebhookOtherEventTypesIgnored(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := application.NewService(discard(), repo, testCatalog(), &fakeGateway{}, nil)

	ev := completedEvent()
	ev.Type = "payment_intent.succeeded"
	require.NoError(t, svc.HandlePaymentEvent(context.Background(), ev, ""))
	assert.Empty(t, repo.orders)
}

func TestWebhookDuplicateSessionIsNoOp(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := application.NewService(discard(), repo, testCatalog(), &fakeGateway{}, nil)

	ev := completedEvent()
	require.NoError(t, svc.HandlePaymentEvent(context.Background(), ev, ""))
	ev.ID = "evt_2" // redelivery gets a fresh event id but the same session
	require.NoError(t, svc.HandlePaymentEvent(context.Background(), ev, ""))

	assert.Len(t, repo.orders, 1)
}

func TestWebhookDedupFastPathSkipsRepeatEventID(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := application.NewService(discard(), repo, testCatalog(), &fakeGateway{}, &fakeDedup{})

	ev := completedEvent()
	require.NoError(t, svc.HandlePaymentEvent(context.Background(), ev, ""))
	require.NoError(t, svc.HandlePaymentEvent(context.Background(), ev, ""))
	assert.Len(t, repo.orders, 1)
}

func TestWebhookRedeliveryAfterStoreFailureCreatesOrder(t *testing.T) {
	repo := newFakeOrderRepo()
	repo.failNext = errors.New("pg down")
	svc := application.NewService(discard(), repo, testCatalog(), &fakeGateway{}, &fakeDedup{})

	ev := completedEvent()
	require.Error(t, svc.HandlePaymentEvent(context.Background(), ev, ""))
	assert.Empty(t, repo.orders)

	// the provider redelivers the identical event once the store recovers;
	// the dedup key must not have been set by the failed attempt
	require.NoError(t, svc.HandlePaymentEvent(context.Background(), ev, ""))
	assert.Len(t, repo.orders, 1)
}

func TestWebhookDedupErrorFallsThroughToStore(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := application.NewService(discard(), repo, testCatalog(), &fakeGateway{},
		&fakeDedup{err: errors.New("redis down")})

	require.NoError(t, svc.HandlePaymentEvent(context.Background(), completedEvent(), ""))
	assert.Len(t, repo.orders, 1, "a dedup outage must not block order creation")
}

func codOrder() domain.Order {
	return domain.Order{
		UserID:     "user-1",
		Email:      "buyer@example.com",
		Address:    domain.Address{Street: "1 Main St", City: "Springfield"},
		Phone:      "555-0100",
		BookIDs:    []string{"book-a"},
		TotalPrice: 19.99,
	}
}

func TestRecordPendingOrderVerbatim(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := application.NewService(discard(), repo, testCatalog(), &fakeGateway{}, nil)

	o, err := svc.RecordPendingOrder(context.Background(), codOrder(), "")
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, domain.PaymentPending, o.PaymentStatus)
	assert.Equal(t, domain.FulfillmentUnfulfilled, o.Fulfillment)
	assert.Equal(t, 19.99, o.TotalPrice, "no price re-derivation")
	assert.Equal(t, []string{domain.EventOrderPlaced}, repo.events)
}

func TestRecordPendingOrderDropsClientSessionID(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := application.NewService(discard(), repo, testCatalog(), &fakeGateway{}, nil)

	o := codOrder()
	o.CheckoutSessionID = "cs_live_42"
	recorded, err := svc.RecordPendingOrder(context.Background(), o, "")
	require.NoError(t, err)
	assert.Empty(t, recorded.CheckoutSessionID)

	// the real session's paid order must not be blocked by the pending one
	require.NoError(t, svc.HandlePaymentEvent(context.Background(), completedEvent(), ""))
	require.Len(t, repo.orders, 2)
	assert.Equal(t, domain.PaymentPaid, repo.orders[1].PaymentStatus)
}

func TestRecordPendingOrderRejectsEmptyBookList(t *testing.T) {
	svc := application.NewService(discard(), newFakeOrderRepo(), testCatalog(), &fakeGateway{}, nil)

	o := codOrder()
	o.BookIDs = nil
	_, err := svc.RecordPendingOrder(context.Background(), o, "")
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
}

func TestOrdersByUserEnrichedNewestFirst(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := application.NewService(discard(), repo, testCatalog(), &fakeGateway{}, nil)

	first, err := svc.RecordPendingOrder(context.Background(), codOrder(), "")
	require.NoError(t, err)
	second := codOrder()
	second.BookIDs = []string{"book-b", "gone-book"}
	secondRec, err := svc.RecordPendingOrder(context.Background(), second, "")
	require.NoError(t, err)

	got, err := svc.OrdersByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, secondRec.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)

	// deleted books are omitted, not errors
	require.Len(t, got[0].Books, 1)
	assert.Equal(t, "Book B", got[0].Books[0].Title)
}

func TestOrdersByUserEmptyIsNotFound(t *testing.T) {
	svc := application.NewService(discard(), newFakeOrderRepo(), testCatalog(), &fakeGateway{}, nil)
	_, err := svc.OrdersByUser(context.Background(), "nobody")
	assert.ErrorIs(t, err, application.ErrOrderNotFound)
}

func TestOrderByIDEnriched(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := application.NewService(discard(), repo, testCatalog(), &fakeGateway{}, nil)

	o, err := svc.RecordPendingOrder(context.Background(), codOrder(), "")
	require.NoError(t, err)

	got, err := svc.OrderByID(context.Background(), o.ID)
	require.NoError(t, err)
	require.Len(t, got.Books, 1)
	assert.Equal(t, "Book A", got.Books[0].Title)

	_, err = svc.OrderByID(context.Background(), "missing")
	assert.ErrorIs(t, err, application.ErrOrderNotFound)
}
