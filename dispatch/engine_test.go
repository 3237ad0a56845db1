package dispatch

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glimte/travel-notify/notify"
)

// recordingSender captures sent messages and fails on demand.
type recordingSender struct {
	sent []notify.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg notify.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func TestHandleBookingDelivery(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmation sends html email", func(t *testing.T) {
		sender := &recordingSender{}
		engine := NewEngine(sender)

		body := []byte(`{
			"type": "BookingConfirmation",
			"bookingId": 7,
			"userName": "Alice",
			"userEmail": "alice@example.com",
			"destinations": ["Oslo"],
			"guests": 2,
			"nights": 3,
			"totalPrice": 999.0,
			"bookingDate": "2024-06-01"
		}`)

		decision, err := engine.HandleBookingDelivery(ctx, nil, body, "m1")

		require.NoError(t, err)
		assert.Equal(t, DecisionAck, decision)
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "alice@example.com", sender.sent[0].To)
		assert.Equal(t, "Booking Confirmation #7", sender.sent[0].Subject)
		assert.True(t, sender.sent[0].HTML)
	})

	t.Run("missing recipient is dropped without delivery", func(t *testing.T) {
		sender := &recordingSender{}
		engine := NewEngine(sender)

		body := []byte(`{"type": "BookingConfirmation", "bookingId": 7, "userEmail": ""}`)

		decision, err := engine.HandleBookingDelivery(ctx, nil, body, "m2")

		require.NoError(t, err)
		assert.Equal(t, DecisionDrop, decision)
		assert.Empty(t, sender.sent)
	})

	t.Run("cancellation decision end to end", func(t *testing.T) {
		sender := &recordingSender{}
		engine := NewEngine(sender)

		body := []byte(`{"type":"CancellationDecision","approved":true,"bookingId":42,"userEmail":"a@b.com","userName":"A","tripStartDate":"2024-01-10","nights":3}`)

		decision, err := engine.HandleBookingDelivery(ctx, nil, body, "m3")

		require.NoError(t, err)
		assert.Equal(t, DecisionAck, decision)
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "a@b.com", sender.sent[0].To)
		assert.Equal(t, "Trip Cancellation Approved - Booking #42", sender.sent[0].Subject)
	})

	t.Run("header wins over body type", func(t *testing.T) {
		sender := &recordingSender{}
		engine := NewEngine(sender)

		headers := amqp.Table{TypeHeader: "BookingCancelled"}
		body := []byte(`{"type": "BookingConfirmation", "bookingId": 5, "userName": "B", "userEmail": "b@example.com"}`)

		decision, err := engine.HandleBookingDelivery(ctx, headers, body, "m4")

		require.NoError(t, err)
		assert.Equal(t, DecisionAck, decision)
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "Booking Cancelled #5", sender.sent[0].Subject)
		assert.False(t, sender.sent[0].HTML)
	})

	t.Run("unresolved message is rejected", func(t *testing.T) {
		sender := &recordingSender{}
		engine := NewEngine(sender)

		decision, err := engine.HandleBookingDelivery(ctx, nil, []byte(`{not json`), "m5")

		require.NoError(t, err)
		assert.Equal(t, DecisionReject, decision)
		assert.Empty(t, sender.sent)
	})

	t.Run("admin notification on booking queue is rejected", func(t *testing.T) {
		sender := &recordingSender{}
		engine := NewEngine(sender)

		body := []byte(`{"type": "AdminNotification", "adminEmail": "admin@example.com", "subject": "s"}`)

		decision, err := engine.HandleBookingDelivery(ctx, nil, body, "m6")

		require.NoError(t, err)
		assert.Equal(t, DecisionReject, decision)
		assert.Empty(t, sender.sent)
	})

	t.Run("undeserializable payload is rejected", func(t *testing.T) {
		sender := &recordingSender{}
		engine := NewEngine(sender)

		headers := amqp.Table{TypeHeader: "BookingConfirmation"}

		decision, err := engine.HandleBookingDelivery(ctx, headers, []byte(`{"bookingId": "seven"}`), "m7")

		require.Error(t, err)
		assert.Equal(t, DecisionReject, decision)
	})

	t.Run("delivery failure requests retry", func(t *testing.T) {
		sender := &recordingSender{err: errors.New("smtp unavailable")}
		engine := NewEngine(sender)

		body := []byte(`{"type": "BookingConfirmation", "bookingId": 7, "userEmail": "x@example.com"}`)

		decision, err := engine.HandleBookingDelivery(ctx, nil, body, "m8")

		require.Error(t, err)
		assert.Equal(t, DecisionRetry, decision)
	})
}

func TestHandleAdminDelivery(t *testing.T) {
	ctx := context.Background()

	t.Run("sends plain text to admin", func(t *testing.T) {
		sender := &recordingSender{}
		engine := NewEngine(sender)

		body := []byte(`{"type": "AdminNotification", "adminEmail": "admin@example.com", "subject": "New Trip Cancellation Request - Booking #9", "body": "details"}`)

		decision, err := engine.HandleAdminDelivery(ctx, body, "a1")

		require.NoError(t, err)
		assert.Equal(t, DecisionAck, decision)
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "admin@example.com", sender.sent[0].To)
		assert.Equal(t, "Admin", sender.sent[0].ToName)
		assert.False(t, sender.sent[0].HTML)
	})

	t.Run("blank recipient or subject is dropped", func(t *testing.T) {
		sender := &recordingSender{}
		engine := NewEngine(sender)

		decision, err := engine.HandleAdminDelivery(ctx, []byte(`{"adminEmail": "", "subject": "s"}`), "a2")
		require.NoError(t, err)
		assert.Equal(t, DecisionDrop, decision)

		decision, err = engine.HandleAdminDelivery(ctx, []byte(`{"adminEmail": "admin@example.com", "subject": ""}`), "a3")
		require.NoError(t, err)
		assert.Equal(t, DecisionDrop, decision)

		assert.Empty(t, sender.sent)
	})

	t.Run("malformed payload is rejected", func(t *testing.T) {
		sender := &recordingSender{}
		engine := NewEngine(sender)

		decision, err := engine.HandleAdminDelivery(ctx, []byte(`{not json`), "a4")

		require.Error(t, err)
		assert.Equal(t, DecisionReject, decision)
	})

	t.Run("delivery failure requests retry", func(t *testing.T) {
		sender := &recordingSender{err: errors.New("smtp unavailable")}
		engine := NewEngine(sender)

		body := []byte(`{"adminEmail": "admin@example.com", "subject": "s", "body": "b"}`)

		decision, err := engine.HandleAdminDelivery(ctx, body, "a5")

		require.Error(t, err)
		assert.Equal(t, DecisionRetry, decision)
	})
}
