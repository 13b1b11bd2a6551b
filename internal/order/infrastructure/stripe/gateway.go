// Package stripe adapts the hosted-checkout provider to the order
// application's gateway and webhook-verifier ports.
package stripe

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/bookverse/bookverse/internal/order/application"
)

type Config struct {
	SecretKey     string
	WebhookSecret string
	// ClientURL is the storefront base used to build redirect targets.
	ClientURL string
}

type Gateway struct {
	cfg Config
}

func NewGateway(cfg Config) *Gateway {
	stripe.Key = cfg.SecretKey
	return &Gateway{cfg: cfg}
}

// CreateSession opens a card-payment checkout session. The metadata travels
// opaquely through Stripe and comes back on the completed-session webhook so
// the order can be reconstructed without another client round-trip.
func (g *Gateway) CreateSession(ctx context.Context, items []application.LineItem, metadata map[string]string) (application.CheckoutSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(items))
	for _, item := range items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(string(stripe.CurrencyUSD)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(item.UnitAmountCents),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(g.cfg.ClientURL + "/order-success"),
		CancelURL:          stripe.String(g.cfg.ClientURL + "/cart"),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	s, err := session.New(params)
	if err != nil {
		return application.CheckoutSession{}, err
	}
	return application.CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// Verify authenticates the raw webhook body against the Stripe-Signature
// header and flattens the event into the application's provider-neutral
// shape. Session fields are only decoded for the completed-session type.
func (g *Gateway) Verify(payload []byte, signature string) (application.PaymentEvent, error) {
	// Events keep the API version of the account, not of this SDK; the
	// signature check is what authenticates the body.
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return application.PaymentEvent{}, err
	}

	ev := application.PaymentEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}
	if ev.Type != application.EventTypeCheckoutCompleted {
		return ev, nil
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return application.PaymentEvent{}, err
	}
	ev.SessionID = s.ID
	ev.AmountTotal = s.AmountTotal
	ev.Metadata = s.Metadata
	if s.CustomerDetails != nil {
		ev.PayerEmail = s.CustomerDetails.Email
	}
	return ev, nil
}
