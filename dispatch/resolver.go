package dispatch

import (
	"encoding/json"
	"fmt"
	"math"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/glimte/travel-notify/contracts"
)

// TypeHeader is the message property producers use to tag a message's type
// without constraining the body shape.
const TypeHeader = "message-type"

// ResolveMessageType classifies a delivery. It is a pure function of the
// headers and body: the message-type header wins when it parses to a known
// type; otherwise the body's "type" field is consulted, accepting a string
// name or a known ordinal. Malformed JSON yields "unresolved" rather than an
// error, so classification can never take down the consumer loop.
func ResolveMessageType(headers amqp.Table, body []byte) (contracts.MessageType, bool) {
	if headers != nil {
		if text, ok := headerText(headers[TypeHeader]); ok {
			if t, ok := contracts.ParseMessageType(text); ok {
				return t, true
			}
		}
	}

	var probe struct {
		Type any `json:"type"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return 0, false
	}

	switch v := probe.Type.(type) {
	case string:
		return contracts.ParseMessageType(v)
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return contracts.MessageTypeFromOrdinal(int(v))
	default:
		return 0, false
	}
}

// headerText coerces an AMQP header value to text. Brokers and clients
// deliver string headers as either string or byte slices.
func headerText(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []byte:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}
