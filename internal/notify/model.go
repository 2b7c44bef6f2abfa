package notify

import (
	"fmt"
	"image"
	"sync"

	"github.com/mgaspar301/txtpay/internal/message"
)

// DefaultKey buckets messages whose sender cannot be attributed to any
// known conversation (e.g. a payment that originated outside the platform).
const DefaultKey = "txtpay.external"

// Entry is one unread message held by a ChatNotification. Request is the
// parsed payment-request body for payment messages, already price-enriched
// when conversion succeeded.
type Entry struct {
	Msg     message.Message
	Request *message.PaymentRequest
}

// DisplayText renders the entry for the notification body.
func (e Entry) DisplayText() string {
	if e.Msg.Kind == message.KindPaymentRequest && e.Request != nil {
		if e.Request.LocalPrice != "" {
			return fmt.Sprintf("Payment request: %s ETH (%s)", e.Request.EthString(), e.Request.LocalPrice)
		}
		return fmt.Sprintf("Payment request: %s ETH", e.Request.EthString())
	}
	return e.Msg.Body
}

// ChatNotification accumulates the notification state for one key: the
// unread queue, sender identity, and the materialized icon. Mutations are
// synchronized so concurrent pipeline runs for the same key cannot lose
// appends.
type ChatNotification struct {
	key           string
	senderName    string
	avatarURL     string
	unknownSender bool

	mu     sync.Mutex
	unread []Entry
	icon   image.Image
}

// NewChatNotification creates the state for a key. senderName and avatarURL
// come from the resolved conversation when one exists.
func NewChatNotification(key, senderName, avatarURL string, unknownSender bool) *ChatNotification {
	if senderName == "" {
		senderName = "Unknown sender"
	}
	return &ChatNotification{
		key:           key,
		senderName:    senderName,
		avatarURL:     avatarURL,
		unknownSender: unknownSender,
	}
}

// Key returns the notification key.
func (n *ChatNotification) Key() string { return n.key }

// SenderName returns the display name used as the notification title.
func (n *ChatNotification) SenderName() string { return n.senderName }

// AvatarURL returns the sender's avatar URL, if any.
func (n *ChatNotification) AvatarURL() string { return n.avatarURL }

// IsUnknownSender reports whether the sender is outside the platform.
func (n *ChatNotification) IsUnknownSender() bool { return n.unknownSender }

// AddUnread appends an entry to the unread queue in arrival order.
func (n *ChatNotification) AddUnread(e Entry) {
	n.mu.Lock()
	n.unread = append(n.unread, e)
	n.mu.Unlock()
}

// Unread returns a copy of the unread queue.
func (n *ChatNotification) Unread() []Entry {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Entry, len(n.unread))
	copy(out, n.unread)
	return out
}

// LastKind returns the kind of the most recent unread message, or
// KindUnknown when the queue is empty.
func (n *ChatNotification) LastKind() message.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.unread) == 0 {
		return message.KindUnknown
	}
	return n.unread[len(n.unread)-1].Msg.Kind
}

// LastRefKey returns the reference key of the most recent unread message.
func (n *ChatNotification) LastRefKey() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.unread) == 0 {
		return ""
	}
	return n.unread[len(n.unread)-1].Msg.RefKey
}

// SetIcon stores the materialized icon. Races between concurrent
// materializations are resolved last-writer-wins; the icon is cosmetic.
func (n *ChatNotification) SetIcon(img image.Image) {
	n.mu.Lock()
	n.icon = img
	n.mu.Unlock()
}

// Icon returns the materialized icon, or nil when none is available.
func (n *ChatNotification) Icon() image.Image {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.icon
}
