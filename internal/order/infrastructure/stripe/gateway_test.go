package stripe_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookverse/bookverse/internal/order/application"
	stripegw "github.com/bookverse/bookverse/internal/order/infrastructure/stripe"
)

const testSecret = "whsec_test_secret"

// sign produces a Stripe-Signature header value for the payload, the same
// t=...,v1=... scheme the provider uses.
func sign(t *testing.T, payload []byte, secret string, at time.Time) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func gateway() *stripegw.Gateway {
	return stripegw.NewGateway(stripegw.Config{
		SecretKey:     "sk_test_x",
		WebhookSecret: testSecret,
		ClientURL:     "https://shop.example",
	})
}

const completedPayload = `{
	"id": "evt_123",
	"type": "checkout.session.completed",
	"data": {
		"object": {
			"id": "cs_live_42",
			"amount_total": 2998,
			"customer_details": {"email": "buyer@example.com"},
			"metadata": {"userId": "user-1", "phone": "555-0100"}
		}
	}
}`

func TestVerifyAcceptsSignedCompletedSession(t *testing.T) {
	payload := []byte(completedPayload)
	ev, err := gateway().Verify(payload, sign(t, payload, testSecret, time.Now()))
	require.NoError(t, err)

	assert.Equal(t, "evt_123", ev.ID)
	assert.Equal(t, application.EventTypeCheckoutCompleted, ev.Type)
	assert.Equal(t, "cs_live_42", ev.SessionID)
	assert.Equal(t, int64(2998), ev.AmountTotal)
	assert.Equal(t, "buyer@example.com", ev.PayerEmail)
	assert.Equal(t, "user-1", ev.Metadata["userId"])
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	payload := []byte(completedPayload)
	_, err := gateway().Verify(payload, sign(t, payload, "whsec_other", time.Now()))
	assert.Error(t, err)
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	payload := []byte(completedPayload)
	sig := sign(t, payload, testSecret, time.Now())
	tampered := []byte(`{"id":"evt_123","type":"checkout.session.completed","data":{"object":{"amount_total":1}}}`)
	_, err := gateway().Verify(tampered, sig)
	assert.Error(t, err)
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	payload := []byte(completedPayload)
	_, err := gateway().Verify(payload, sign(t, payload, testSecret, time.Now().Add(-time.Hour)))
	assert.Error(t, err)
}

func TestVerifyRejectsMissingSignature(t *testing.T) {
	_, err := gateway().Verify([]byte(completedPayload), "")
	assert.Error(t, err)
}

func TestVerifyPassesThroughOtherEventTypes(t *testing.T) {
	payload := []byte(`{"id": "evt_9", "type": "payment_intent.succeeded", "data": {"object": {}}}`)
	ev, err := gateway().Verify(payload, sign(t, payload, testSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "payment_intent.succeeded", ev.Type)
	assert.Empty(t, ev.SessionID)
}
