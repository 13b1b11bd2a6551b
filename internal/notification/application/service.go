// Package application holds the notification logic that reacts to order
// events. Delivery is a structured log line standing in for an email
// provider; swapping in a real sender only touches this package.
package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bookverse/bookverse/internal/order/domain"
)

type Service struct {
	log *slog.Logger
}

func NewService(log *slog.Logger) *Service {
	return &Service{log: log}
}

// NotifyOrderPlaced acknowledges a cash-on-delivery order to the buyer.
func (s *Service) NotifyOrderPlaced(ctx context.Context, ev domain.OrderPlaced) error {
	if ev.Email == "" {
		return fmt.Errorf("order %s has no recipient email", ev.OrderID)
	}
	s.log.InfoContext(ctx, "order confirmation sent",
		"order_id", ev.OrderID,
		"recipient", ev.Email,
		"books", len(ev.BookIDs),
		"total", ev.TotalPrice,
		"payment", "cash on delivery",
	)
	return nil
}

// NotifyOrderPaid confirms a completed checkout payment to the buyer.
func (s *Service) NotifyOrderPaid(ctx context.Context, ev domain.OrderPaid) error {
	if ev.Email == "" {
		return fmt.Errorf("order %s has no recipient email", ev.OrderID)
	}
	s.log.InfoContext(ctx, "payment confirmation sent",
		"order_id", ev.OrderID,
		"recipient", ev.Email,
		"session_id", ev.CheckoutSessionID,
		"total", ev.TotalPrice,
	)
	return nil
}
