package notify

import (
	"image"
	"strings"

	"github.com/mgaspar301/txtpay/internal/message"
)

// PlaceholderBody masks message content for conversations the user has not
// accepted yet.
const PlaceholderBody = "New message"

// Capabilities describes what the rendering platform supports.
type Capabilities struct {
	SupportsInlineReply       bool
	SupportsPerMessageActions bool
}

// IntentKind identifies what tapping a notification (or one of its actions)
// should do.
type IntentKind string

const (
	IntentOpenConversation IntentKind = "open_conversation"
	IntentOpenRequests     IntentKind = "open_requests"
	IntentDismiss          IntentKind = "dismiss"
	IntentReply            IntentKind = "reply"
	IntentAcceptPayment    IntentKind = "accept_payment"
	IntentRejectPayment    IntentKind = "reject_payment"
)

// Intent is a routing instruction for the rendering collaborator. Target is
// the conversation key, or the message reference key for payment actions.
type Intent struct {
	Kind   IntentKind `json:"kind"`
	Target string     `json:"target,omitempty"`
}

// Action is one notification action button.
type Action struct {
	Label  string `json:"label"`
	Intent Intent `json:"intent"`
}

// Payload is a fully assembled notification, ready for rendering. Assembly
// is pure: all I/O (price, icon) has already completed.
type Payload struct {
	Key           string      `json:"key"`
	Title         string      `json:"title"`
	Body          string      `json:"body"`
	Lines         []string    `json:"lines,omitempty"`
	Icon          image.Image `json:"-"`
	TapIntent     Intent      `json:"tap_intent"`
	DismissIntent Intent      `json:"dismiss_intent"`
	Actions       []Action    `json:"actions,omitempty"`
}

// Assembler builds notification payloads from accumulated state.
type Assembler struct {
	caps Capabilities
}

// NewAssembler creates an assembler for the given platform capabilities.
func NewAssembler(caps Capabilities) *Assembler {
	return &Assembler{caps: caps}
}

// Assemble builds the payload for a key's state. When the conversation is
// not accepted the body is a generic placeholder and the action list stays
// empty: content must never leak before acceptance.
func (a *Assembler) Assemble(st *ChatNotification, accepted bool) *Payload {
	p := &Payload{
		Key:           st.Key(),
		Title:         st.SenderName(),
		Icon:          st.Icon(),
		DismissIntent: Intent{Kind: IntentDismiss, Target: st.Key()},
	}

	if accepted {
		p.TapIntent = Intent{Kind: IntentOpenConversation, Target: st.Key()}
		for _, e := range st.Unread() {
			p.Lines = append(p.Lines, e.DisplayText())
		}
		p.Body = strings.Join(p.Lines, "\n")
	} else {
		p.TapIntent = Intent{Kind: IntentOpenRequests}
		p.Body = PlaceholderBody
		return p
	}

	if !a.caps.SupportsInlineReply || st.IsUnknownSender() {
		return p
	}

	p.Actions = append(p.Actions, Action{
		Label:  "Reply",
		Intent: Intent{Kind: IntentReply, Target: st.Key()},
	})

	if st.LastKind() == message.KindPaymentRequest && a.caps.SupportsPerMessageActions {
		ref := st.LastRefKey()
		p.Actions = append(p.Actions,
			Action{Label: "Accept", Intent: Intent{Kind: IntentAcceptPayment, Target: ref}},
			Action{Label: "Decline", Intent: Intent{Kind: IntentRejectPayment, Target: ref}},
		)
	}

	return p
}
