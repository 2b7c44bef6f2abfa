package message

import "time"

// Kind classifies a message payload.
type Kind string

const (
	KindPlainText      Kind = "text"
	KindPaymentRequest Kind = "payment_request"
	KindUnknown        Kind = "unknown"
)

// KindFromString maps a transport type marker to a Kind. Unrecognized
// markers come back as KindUnknown and pass through the pipeline unhandled.
func KindFromString(s string) Kind {
	switch s {
	case "text", "":
		return KindPlainText
	case "payment_request":
		return KindPaymentRequest
	default:
		return KindUnknown
	}
}

// Message is a normalized inbound message. Immutable once constructed;
// owned by the pipeline run that receives it.
type Message struct {
	ID         string
	Sender     string // stable sender id; empty when the sender is outside the platform
	SenderName string
	Kind       Kind
	Body       string // free text, or a JSON payment-request body
	RefKey     string // reference key used to route payment-request actions
	CreatedAt  time.Time
}
