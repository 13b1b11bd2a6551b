package application_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bookverse/bookverse/internal/notification/application"
	"github.com/bookverse/bookverse/internal/order/domain"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNotifyOrderPlaced(t *testing.T) {
	svc := application.NewService(discard())
	err := svc.NotifyOrderPlaced(context.Background(), domain.OrderPlaced{
		OrderID: "o-1", Email: "buyer@example.com", BookIDs: []string{"b-1"}, TotalPrice: 12.5,
	})
	assert.NoError(t, err)
}

func TestNotifyOrderPlacedMissingEmail(t *testing.T) {
	svc := application.NewService(discard())
	err := svc.NotifyOrderPlaced(context.Background(), domain.OrderPlaced{OrderID: "o-1"})
	assert.Error(t, err)
}

func TestNotifyOrderPaidMissingEmail(t *testing.T) {
	svc := application.NewService(discard())
	err := svc.NotifyOrderPaid(context.Background(), domain.OrderPaid{OrderID: "o-2"})
	assert.Error(t, err)
}
