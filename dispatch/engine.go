package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/glimte/travel-notify/contracts"
	"github.com/glimte/travel-notify/notify"
)

// Decision is the acknowledgment outcome for one delivery.
type Decision int

const (
	// DecisionAck acknowledges: the message was processed.
	DecisionAck Decision = iota
	// DecisionDrop acknowledges and skips: the message is unprocessable in a
	// way redelivery cannot fix (missing required data), so the broker should
	// not see it again.
	DecisionDrop
	// DecisionReject negatively acknowledges without requeue, routing the
	// message to the dead-letter queue. Used for classification, schema, and
	// misrouting failures.
	DecisionReject
	// DecisionRetry marks a transient processing failure; the consumer's
	// retry policy decides between redelivery and dead-lettering.
	DecisionRetry
)

func (d Decision) String() string {
	switch d {
	case DecisionAck:
		return "ack"
	case DecisionDrop:
		return "drop"
	case DecisionReject:
		return "reject"
	case DecisionRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// payloadHandler processes the body of an already-classified message. The
// resolved type is authoritative: it may come from the header and therefore
// override whatever the body's own type field claims.
type payloadHandler func(ctx context.Context, messageType contracts.MessageType, body []byte, messageID string) (Decision, error)

// Engine routes resolved messages to their handlers. The routing table is
// keyed by message type, so adding a variant means registering a handler,
// not growing a switch.
type Engine struct {
	sender    notify.Sender
	templates *notify.TemplateBuilder
	logger    *slog.Logger
	routes    map[contracts.MessageType]payloadHandler
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates the processing engine around the delivery collaborator.
func NewEngine(sender notify.Sender, options ...EngineOption) *Engine {
	e := &Engine{
		sender:    sender,
		templates: notify.NewTemplateBuilder(),
		logger:    slog.Default(),
	}

	for _, opt := range options {
		opt(e)
	}

	e.routes = map[contracts.MessageType]payloadHandler{
		contracts.TypeBookingConfirmation:   e.handleBooking,
		contracts.TypeBookingCancelled:      e.handleBooking,
		contracts.TypeCancellationRequested: e.handleCancellation,
		contracts.TypeCancellationDecision:  e.handleCancellation,
	}

	return e
}

// HandleBookingDelivery processes one delivery from the booking work queue:
// classify, route, decide. AdminNotification here means a producer published
// to the wrong queue; that is a configuration bug, not a transient fault.
func (e *Engine) HandleBookingDelivery(ctx context.Context, headers amqp.Table, body []byte, messageID string) (Decision, error) {
	messageType, ok := ResolveMessageType(headers, body)
	if !ok {
		e.logger.Error("unresolvable message type", "messageId", messageID)
		return DecisionReject, nil
	}

	if messageType == contracts.TypeAdminNotification {
		e.logger.Warn("admin notification misrouted to booking queue", "messageId", messageID)
		return DecisionReject, nil
	}

	handler, ok := e.routes[messageType]
	if !ok {
		e.logger.Error("no handler for message type",
			"messageId", messageID,
			"messageType", messageType.String(),
		)
		return DecisionReject, nil
	}

	return handler(ctx, messageType, body, messageID)
}

// HandleAdminDelivery processes one delivery from the admin work queue. The
// single expected type is deserialized directly; the subject and body arrive
// pre-rendered, so the engine only validates and forwards.
func (e *Engine) HandleAdminDelivery(ctx context.Context, body []byte, messageID string) (Decision, error) {
	var msg contracts.AdminNotificationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		e.logger.Error("invalid admin notification payload", "messageId", messageID, "error", err)
		return DecisionReject, err
	}

	if msg.AdminEmail == "" || msg.Subject == "" {
		e.logger.Warn("admin notification missing recipient or subject, skipping",
			"messageId", messageID)
		return DecisionDrop, nil
	}

	err := e.sender.Send(ctx, notify.Message{
		To:      msg.AdminEmail,
		ToName:  "Admin",
		Subject: msg.Subject,
		Body:    msg.Body,
	})
	if err != nil {
		return DecisionRetry, err
	}

	e.logger.Info("admin notification sent", "messageId", messageID, "to", msg.AdminEmail)
	return DecisionAck, nil
}

func (e *Engine) handleBooking(ctx context.Context, messageType contracts.MessageType, body []byte, messageID string) (Decision, error) {
	var msg contracts.BookingMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		e.logger.Error("invalid booking payload", "messageId", messageID, "error", err)
		return DecisionReject, err
	}

	if msg.UserEmail == "" {
		e.logger.Warn("booking message missing recipient, skipping",
			"messageId", messageID,
			"bookingId", msg.BookingID,
		)
		return DecisionDrop, nil
	}

	var email notify.Message
	switch messageType {
	case contracts.TypeBookingConfirmation:
		subject, htmlBody := e.templates.BookingConfirmation(msg)
		email = notify.Message{To: msg.UserEmail, ToName: msg.UserName, Subject: subject, Body: htmlBody, HTML: true}
	case contracts.TypeBookingCancelled:
		subject, textBody := e.templates.BookingCancelled(msg)
		email = notify.Message{To: msg.UserEmail, ToName: msg.UserName, Subject: subject, Body: textBody}
	default:
		e.logger.Error("booking payload routed with unexpected type",
			"messageId", messageID,
			"messageType", messageType.String(),
		)
		return DecisionReject, nil
	}

	if err := e.sender.Send(ctx, email); err != nil {
		return DecisionRetry, err
	}

	e.logger.Info("booking email sent",
		"messageId", messageID,
		"messageType", messageType.String(),
		"to", msg.UserEmail,
	)
	return DecisionAck, nil
}

func (e *Engine) handleCancellation(ctx context.Context, messageType contracts.MessageType, body []byte, messageID string) (Decision, error) {
	var msg contracts.CancellationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		e.logger.Error("invalid cancellation payload", "messageId", messageID, "error", err)
		return DecisionReject, err
	}

	if msg.UserEmail == "" {
		e.logger.Warn("cancellation message missing recipient, skipping",
			"messageId", messageID,
			"bookingId", msg.BookingID,
		)
		return DecisionDrop, nil
	}

	var subject, textBody string
	switch messageType {
	case contracts.TypeCancellationRequested:
		subject, textBody = e.templates.CancellationRequested(msg)
	case contracts.TypeCancellationDecision:
		subject, textBody = e.templates.CancellationDecision(msg)
	default:
		e.logger.Error("cancellation payload routed with unexpected type",
			"messageId", messageID,
			"messageType", messageType.String(),
		)
		return DecisionReject, nil
	}

	err := e.sender.Send(ctx, notify.Message{
		To:      msg.UserEmail,
		ToName:  msg.UserName,
		Subject: subject,
		Body:    textBody,
	})
	if err != nil {
		return DecisionRetry, err
	}

	e.logger.Info("cancellation email sent",
		"messageId", messageID,
		"messageType", messageType.String(),
		"to", msg.UserEmail,
	)
	return DecisionAck, nil
}
