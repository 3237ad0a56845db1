package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate(t *testing.T) {
	t.Run("unmarshals bare date", func(t *testing.T) {
		var d Date
		require.NoError(t, json.Unmarshal([]byte(`"2024-01-10"`), &d))
		assert.Equal(t, "2024-01-10", d.String())
	})

	t.Run("unmarshals RFC3339 timestamp", func(t *testing.T) {
		var d Date
		require.NoError(t, json.Unmarshal([]byte(`"2024-01-10T15:04:05Z"`), &d))
		assert.Equal(t, "2024-01-10", d.String())
	})

	t.Run("unmarshals null and empty as zero", func(t *testing.T) {
		var d Date
		require.NoError(t, json.Unmarshal([]byte(`null`), &d))
		assert.True(t, d.IsZero())

		require.NoError(t, json.Unmarshal([]byte(`""`), &d))
		assert.True(t, d.IsZero())
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		var d Date
		assert.Error(t, json.Unmarshal([]byte(`"10/01/2024"`), &d))
		assert.Error(t, json.Unmarshal([]byte(`42`), &d))
	})

	t.Run("AddDays shifts the calendar day", func(t *testing.T) {
		d := NewDate(2024, time.January, 10)
		assert.Equal(t, "2024-01-13", d.AddDays(3).String())
	})

	t.Run("round trips through JSON", func(t *testing.T) {
		d := NewDate(2024, time.March, 7)
		data, err := json.Marshal(d)
		require.NoError(t, err)
		assert.JSONEq(t, `"2024-03-07"`, string(data))
	})
}

func TestNewBaseMessage(t *testing.T) {
	msg := NewBaseMessage(TypeBookingConfirmation)

	assert.NotEmpty(t, msg.MessageID)
	assert.Equal(t, TypeBookingConfirmation, msg.Type)
	assert.WithinDuration(t, time.Now().UTC(), msg.Timestamp, time.Second)

	other := NewBaseMessage(TypeBookingConfirmation)
	assert.NotEqual(t, msg.MessageID, other.MessageID)
}

func TestBookingMessageJSON(t *testing.T) {
	payload := `{
		"messageId": "m-1",
		"type": "BookingConfirmation",
		"bookingId": 17,
		"userId": 4,
		"userName": "Dana",
		"userEmail": "dana@example.com",
		"destinations": ["Lisbon", "Porto"],
		"totalPrice": 1249.50,
		"guests": 2,
		"nights": 5,
		"startDate": "2024-06-01"
	}`

	var msg BookingMessage
	require.NoError(t, json.Unmarshal([]byte(payload), &msg))

	assert.Equal(t, "m-1", msg.MessageID)
	assert.Equal(t, TypeBookingConfirmation, msg.Type)
	assert.Equal(t, 17, msg.BookingID)
	assert.Equal(t, []string{"Lisbon", "Porto"}, msg.Destinations)
	assert.Equal(t, 1249.50, msg.TotalPrice)
	assert.Equal(t, "2024-06-01", msg.StartDate.String())
}

func TestCancellationMessageJSON(t *testing.T) {
	payload := `{
		"messageId": "m-2",
		"type": 3,
		"cancellationId": 9,
		"bookingId": 42,
		"userName": "A",
		"userEmail": "a@b.com",
		"tripStartDate": "2024-01-10",
		"nights": 3,
		"approved": true
	}`

	var msg CancellationMessage
	require.NoError(t, json.Unmarshal([]byte(payload), &msg))

	assert.Equal(t, TypeCancellationDecision, msg.Type)
	assert.Equal(t, 42, msg.BookingID)
	assert.True(t, msg.IsApproved())
	assert.Equal(t, "2024-01-13", msg.TripStartDate.AddDays(msg.Nights).String())
}

func TestCancellationMessageIsApproved(t *testing.T) {
	var msg CancellationMessage
	assert.False(t, msg.IsApproved(), "absent flag is not approval")

	rejected := false
	msg.Approved = &rejected
	assert.False(t, msg.IsApproved())

	approved := true
	msg.Approved = &approved
	assert.True(t, msg.IsApproved())
}
