package payment

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	c := New("key1", "topsecret")
	body := []byte(`{"event":"payment.captured","payload":{"order_ref":"order_key1_ab","payment_id":"pay_1"}}`)

	assert.True(t, c.VerifySignature(body, c.Sign(body)))
	assert.False(t, c.VerifySignature(body, ""))
	assert.False(t, c.VerifySignature(body, "deadbeef"))

	// Tampered body fails against the original signature.
	sig := c.Sign(body)
	tampered := []byte(strings.Replace(string(body), "pay_1", "pay_2", 1))
	assert.False(t, c.VerifySignature(tampered, sig))

	// A different secret produces a different signature.
	other := New("key1", "othersecret")
	assert.False(t, other.VerifySignature(body, sig))
}

func TestParseWebhook(t *testing.T) {
	ev, err := ParseWebhook([]byte(`{"event":"payment.captured","payload":{"order_ref":"order_x","payment_id":"pay_9"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventPaymentCaptured, ev.Event)
	assert.Equal(t, "order_x", ev.OrderRef)
	assert.Equal(t, "pay_9", ev.PaymentID)

	_, err = ParseWebhook([]byte(`not json`))
	assert.ErrorIs(t, err, ErrBadPayload)

	_, err = ParseWebhook([]byte(`{"payload":{}}`))
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestCreateOrderReferences(t *testing.T) {
	c := New("key1", "topsecret")
	ref1, err := c.CreateOrder(context.Background(), 5000, "booking-1")
	require.NoError(t, err)
	ref2, err := c.CreateOrder(context.Background(), 5000, "booking-2")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ref1, "order_key1_"))
	assert.NotEqual(t, ref1, ref2)
}
