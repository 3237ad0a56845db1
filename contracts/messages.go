package contracts

import (
	"time"

	"github.com/google/uuid"
)

// BaseMessage carries the envelope fields common to every notification
// payload. The envelope is immutable once published; consumers only read it.
type BaseMessage struct {
	MessageID string      `json:"messageId"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewBaseMessage stamps a fresh message ID and UTC timestamp.
func NewBaseMessage(messageType MessageType) BaseMessage {
	return BaseMessage{
		MessageID: uuid.New().String(),
		Type:      messageType,
		Timestamp: time.Now().UTC(),
	}
}

// BookingMessage is published on booking confirmation and cancellation.
type BookingMessage struct {
	BaseMessage

	BookingID    int      `json:"bookingId"`
	UserID       int      `json:"userId"`
	UserName     string   `json:"userName"`
	UserEmail    string   `json:"userEmail"`
	Destinations []string `json:"destinations"`
	TotalPrice   float64  `json:"totalPrice"`
	Guests       int      `json:"guests"`
	Nights       int      `json:"nights"`
	StartDate    Date     `json:"startDate"`
	BookingDate  Date     `json:"bookingDate"`
}

// NewBookingConfirmation builds a confirmation message envelope.
func NewBookingConfirmation(bookingID int) BookingMessage {
	return BookingMessage{BaseMessage: NewBaseMessage(TypeBookingConfirmation), BookingID: bookingID}
}

// NewBookingCancelled builds a cancellation notice envelope.
func NewBookingCancelled(bookingID int) BookingMessage {
	return BookingMessage{BaseMessage: NewBaseMessage(TypeBookingCancelled), BookingID: bookingID}
}

// CancellationMessage covers both the user's cancellation request and the
// admin's decision on it.
type CancellationMessage struct {
	BaseMessage

	CancellationID int        `json:"cancellationId"`
	BookingID      int        `json:"bookingId"`
	UserID         int        `json:"userId"`
	UserName       string     `json:"userName"`
	UserEmail      string     `json:"userEmail"`
	Reason         string     `json:"reason,omitempty"`
	RequestedAt    time.Time  `json:"requestedAt"`
	ReviewedAt     *time.Time `json:"reviewedAt,omitempty"`
	AdminComment   string     `json:"adminComment,omitempty"`
	AdminEmail     string     `json:"adminEmail,omitempty"`
	Destination    string     `json:"destination,omitempty"`
	TripStartDate  Date       `json:"tripStartDate"`
	Nights         int        `json:"nights"`
	Approved       *bool      `json:"approved,omitempty"`
}

// IsApproved reports the decision flag, treating absent as rejected.
func (m CancellationMessage) IsApproved() bool {
	return m.Approved != nil && *m.Approved
}

// AdminNotificationMessage carries a pre-rendered notice for an administrator.
type AdminNotificationMessage struct {
	BaseMessage

	AdminEmail string         `json:"adminEmail"`
	Subject    string         `json:"subject"`
	Body       string         `json:"body"`
	BookingID  *int           `json:"bookingId,omitempty"`
	UserID     *int           `json:"userId,omitempty"`
	UserName   string         `json:"userName,omitempty"`
	UserEmail  string         `json:"userEmail,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
