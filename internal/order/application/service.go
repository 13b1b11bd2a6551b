package application

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	catalogdomain "github.com/bookverse/bookverse/internal/catalog/domain"
	"github.com/bookverse/bookverse/internal/order/domain"
)

var (
	ErrBooksNotFound = errors.New("books not found")
	ErrOrderNotFound = errors.New("order not found")
	ErrEmptyCart     = errors.New("cart is empty")
	ErrBadQuantity   = errors.New("quantity must be at least 1")
)

type CheckoutRequest struct {
	UserID  string            `json:"userId"`
	Address domain.Address    `json:"address"`
	Books   []domain.CartItem `json:"books"`
	Phone   string            `json:"phone"`
}

// OrderWithBooks is an order enriched with the catalog records its bookIds
// resolve to. Books deleted since the order was placed are simply absent.
type OrderWithBooks struct {
	domain.Order
	Books []catalogdomain.Book `json:"books"`
}

type Service struct {
	log     *slog.Logger
	repo    OrderRepository
	catalog BookCatalog
	gateway CheckoutGateway
	dedup   EventDeduper
}

func NewService(log *slog.Logger, repo OrderRepository, catalog BookCatalog, gateway CheckoutGateway, dedup EventDeduper) *Service {
	return &Service{log: log, repo: repo, catalog: catalog, gateway: gateway, dedup: dedup}
}

// CreateCheckoutSession resolves current catalog prices for the cart and asks
// the payment provider for a hosted session. One line item is priced per
// distinct matched book at its current newPrice; the requested quantity is
// validated and carried in metadata but does not multiply the price.
func (s *Service) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	if len(req.Books) == 0 {
		return CheckoutSession{}, ErrEmptyCart
	}
	ids := make([]string, 0, len(req.Books))
	for _, item := range req.Books {
		if item.Quantity < 1 {
			return CheckoutSession{}, ErrBadQuantity
		}
		ids = append(ids, item.BookID)
	}

	books, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return CheckoutSession{}, err
	}
	if len(books) == 0 {
		return CheckoutSession{}, ErrBooksNotFound
	}

	items := make([]LineItem, 0, len(books))
	for _, b := range books {
		items = append(items, LineItem{
			Name:            b.Title,
			UnitAmountCents: int64(math.Round(b.NewPrice * 100)),
			Quantity:        1,
		})
	}

	addressJSON, err := json.Marshal(req.Address)
	if err != nil {
		return CheckoutSession{}, err
	}
	booksJSON, err := json.Marshal(req.Books)
	if err != nil {
		return CheckoutSession{}, err
	}
	metadata := map[string]string{
		"userId":  req.UserID,
		"address": string(addressJSON),
		"books":   string(booksJSON),
		"phone":   req.Phone,
	}

	session, err := s.gateway.CreateSession(ctx, items, metadata)
	if err != nil {
		s.log.Error("checkout session creation failed", "user_id", req.UserID, "err", err)
		return CheckoutSession{}, err
	}
	return session, nil
}

// HandlePaymentEvent processes a verified webhook delivery. Non-checkout
// events are acknowledged and ignored. Completed sessions create exactly one
// paid order: duplicate deliveries are skipped by the redis fast-path when it
// is available and by the session-id constraint in the store otherwise.
func (s *Service) HandlePaymentEvent(ctx context.Context, ev PaymentEvent, traceparent string) error {
	if ev.Type != EventTypeCheckoutCompleted {
		s.log.Info("ignoring payment event", "type", ev.Type)
		return nil
	}

	if s.dedup != nil && ev.ID != "" {
		seen, err := s.dedup.WasSeen(ctx, s.dedup.EventKey(ev.ID))
		if err != nil {
			s.log.Error("webhook dedup check failed", "event_id", ev.ID, "err", err)
		} else if seen {
			s.log.Info("duplicate webhook delivery skipped", "event_id", ev.ID)
			return nil
		}
	}

	var address domain.Address
	if raw := ev.Metadata["address"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &address); err != nil {
			return err
		}
	}
	var cart []domain.CartItem
	if raw := ev.Metadata["books"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &cart); err != nil {
			return err
		}
	}
	bookIDs := make([]string, 0, len(cart))
	for _, item := range cart {
		bookIDs = append(bookIDs, item.BookID)
	}

	now := time.Now().UTC()
	o := domain.Order{
		ID:                uuid.NewString(),
		UserID:            ev.Metadata["userId"],
		Email:             ev.PayerEmail,
		Address:           address,
		Phone:             ev.Metadata["phone"],
		BookIDs:           bookIDs,
		TotalPrice:        float64(ev.AmountTotal) / 100,
		PaymentStatus:     domain.PaymentPaid,
		Fulfillment:       domain.FulfillmentUnfulfilled,
		CheckoutSessionID: ev.SessionID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	payload, err := json.Marshal(domain.OrderPaid{
		OrderID:           o.ID,
		UserID:            o.UserID,
		Email:             o.Email,
		CheckoutSessionID: o.CheckoutSessionID,
		TotalPrice:        o.TotalPrice,
	})
	if err != nil {
		return err
	}

	created, err := s.repo.CreateWithOutbox(ctx, o, domain.EventOrderPaid, payload, sourceHeaders(), traceparent)
	if err != nil {
		// leave the dedup key unset: the handler answers 5xx and the
		// provider's redelivery must reach the store again
		return err
	}
	if s.dedup != nil && ev.ID != "" {
		if err := s.dedup.MarkSeen(ctx, s.dedup.EventKey(ev.ID)); err != nil {
			s.log.Error("webhook dedup mark failed", "event_id", ev.ID, "err", err)
		}
	}
	if !created {
		s.log.Info("order already recorded for session", "session_id", ev.SessionID)
		return nil
	}
	s.log.Info("paid order recorded", "order_id", o.ID, "session_id", ev.SessionID, "total", o.TotalPrice)
	return nil
}

// RecordPendingOrder persists an order verbatim from client input for flows
// that settle out-of-band (cash on delivery). No price re-derivation happens.
func (s *Service) RecordPendingOrder(ctx context.Context, o domain.Order, traceparent string) (domain.Order, error) {
	if err := o.Validate(); err != nil {
		return domain.Order{}, err
	}
	now := time.Now().UTC()
	o.ID = uuid.NewString()
	o.PaymentStatus = domain.PaymentPending
	o.Fulfillment = domain.FulfillmentUnfulfilled
	// session ids belong to the webhook path only; a client-supplied one
	// would squat the session's unique slot and block the paid insert
	o.CheckoutSessionID = ""
	o.CreatedAt = now
	o.UpdatedAt = now

	payload, err := json.Marshal(domain.OrderPlaced{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Email:      o.Email,
		BookIDs:    o.BookIDs,
		TotalPrice: o.TotalPrice,
	})
	if err != nil {
		return domain.Order{}, err
	}

	if _, err := s.repo.CreateWithOutbox(ctx, o, domain.EventOrderPlaced, payload, sourceHeaders(), traceparent); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

// OrdersByUser returns a user's orders, newest first, enriched with book
// details.
func (s *Service) OrdersByUser(ctx context.Context, userID string) ([]OrderWithBooks, error) {
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}

	idSet := map[string]struct{}{}
	var ids []string
	for _, o := range orders {
		for _, id := range o.BookIDs {
			if _, ok := idSet[id]; !ok {
				idSet[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	byID, err := s.bookIndex(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]OrderWithBooks, 0, len(orders))
	for _, o := range orders {
		out = append(out, enrich(o, byID))
	}
	return out, nil
}

func (s *Service) OrderByID(ctx context.Context, id string) (OrderWithBooks, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return OrderWithBooks{}, err
	}
	byID, err := s.bookIndex(ctx, o.BookIDs)
	if err != nil {
		return OrderWithBooks{}, err
	}
	return enrich(o, byID), nil
}

func (s *Service) bookIndex(ctx context.Context, ids []string) (map[string]catalogdomain.Book, error) {
	byID := map[string]catalogdomain.Book{}
	if len(ids) == 0 {
		return byID, nil
	}
	books, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, b := range books {
		byID[b.ID] = b
	}
	return byID, nil
}

func enrich(o domain.Order, byID map[string]catalogdomain.Book) OrderWithBooks {
	books := []catalogdomain.Book{}
	for _, id := range o.BookIDs {
		if b, ok := byID[id]; ok {
			books = append(books, b)
		}
	}
	return OrderWithBooks{Order: o, Books: books}
}

func sourceHeaders() map[string]string {
	return map[string]string{"source": "bookverse"}
}
