package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/mgaspar301/txtpay/internal/message"
)

func textEntry(id, body string) Entry {
	return Entry{Msg: message.Message{
		ID:        id,
		Sender:    "0xsender",
		Kind:      message.KindPlainText,
		Body:      body,
		CreatedAt: time.Now(),
	}}
}

func paymentEntry(id, refKey, localPrice string) Entry {
	pr := &message.PaymentRequest{To: "0xabc", Value: "0xde0b6b3a7640000"} // 1 ETH
	if localPrice != "" {
		pr = pr.WithLocalPrice(localPrice)
	}
	return Entry{
		Msg: message.Message{
			ID:     id,
			Sender: "0xsender",
			Kind:   message.KindPaymentRequest,
			RefKey: refKey,
		},
		Request: pr,
	}
}

func TestAssembleAcceptedPlainText(t *testing.T) {
	st := NewChatNotification("k1", "Ada", "", false)
	st.AddUnread(textEntry("m1", "hello"))
	st.AddUnread(textEntry("m2", "are you there?"))

	a := NewAssembler(Capabilities{})
	p := a.Assemble(st, true)

	if p.Title != "Ada" {
		t.Errorf("Title = %q, want Ada", p.Title)
	}
	if p.Body != "hello\nare you there?" {
		t.Errorf("Body = %q", p.Body)
	}
	if p.TapIntent.Kind != IntentOpenConversation || p.TapIntent.Target != "k1" {
		t.Errorf("TapIntent = %+v, want open_conversation k1", p.TapIntent)
	}
	if p.DismissIntent.Kind != IntentDismiss {
		t.Errorf("DismissIntent = %+v", p.DismissIntent)
	}
	if len(p.Actions) != 0 {
		t.Errorf("Actions = %v, want none without inline reply capability", p.Actions)
	}
}

func TestAssembleUnacceptedMasksContent(t *testing.T) {
	st := NewChatNotification("k1", "Ada", "", false)
	st.AddUnread(textEntry("m1", "the secret plans"))

	a := NewAssembler(Capabilities{SupportsInlineReply: true, SupportsPerMessageActions: true})
	p := a.Assemble(st, false)

	if p.Body != PlaceholderBody {
		t.Errorf("Body = %q, want placeholder", p.Body)
	}
	if strings.Contains(p.Body, "secret") || len(p.Lines) != 0 {
		t.Error("unaccepted payload leaks message content")
	}
	if p.TapIntent.Kind != IntentOpenRequests {
		t.Errorf("TapIntent.Kind = %q, want open_requests", p.TapIntent.Kind)
	}
	if len(p.Actions) != 0 {
		t.Errorf("Actions = %v, want empty regardless of capabilities", p.Actions)
	}
}

func TestAssembleReplyAction(t *testing.T) {
	st := NewChatNotification("k1", "Ada", "", false)
	st.AddUnread(textEntry("m1", "hi"))

	a := NewAssembler(Capabilities{SupportsInlineReply: true})
	p := a.Assemble(st, true)

	if len(p.Actions) != 1 {
		t.Fatalf("len(Actions) = %d, want 1", len(p.Actions))
	}
	if p.Actions[0].Intent.Kind != IntentReply || p.Actions[0].Intent.Target != "k1" {
		t.Errorf("action = %+v, want reply->k1", p.Actions[0])
	}
}

func TestAssembleNoReplyForUnknownSender(t *testing.T) {
	st := NewChatNotification(DefaultKey, "", "", true)
	st.AddUnread(textEntry("m1", "hi"))

	a := NewAssembler(Capabilities{SupportsInlineReply: true})
	p := a.Assemble(st, true)

	if len(p.Actions) != 0 {
		t.Errorf("Actions = %v, want none for unknown sender", p.Actions)
	}
	if p.Title != "Unknown sender" {
		t.Errorf("Title = %q, want Unknown sender", p.Title)
	}
}

func TestAssemblePaymentRequestActions(t *testing.T) {
	st := NewChatNotification("k1", "Ada", "", false)
	st.AddUnread(textEntry("m1", "hi"))
	st.AddUnread(paymentEntry("m2", "ref-42", "2500.00 USD"))

	a := NewAssembler(Capabilities{SupportsInlineReply: true, SupportsPerMessageActions: true})
	p := a.Assemble(st, true)

	if len(p.Actions) != 3 {
		t.Fatalf("len(Actions) = %d, want reply+accept+decline", len(p.Actions))
	}
	if p.Actions[0].Intent.Kind != IntentReply {
		t.Errorf("first action = %+v, want reply", p.Actions[0])
	}
	if p.Actions[1].Intent.Kind != IntentAcceptPayment || p.Actions[1].Intent.Target != "ref-42" {
		t.Errorf("accept action = %+v, want target ref-42", p.Actions[1])
	}
	if p.Actions[2].Intent.Kind != IntentRejectPayment || p.Actions[2].Intent.Target != "ref-42" {
		t.Errorf("decline action = %+v, want target ref-42", p.Actions[2])
	}
	if !strings.Contains(p.Body, "Payment request: 1 ETH (2500.00 USD)") {
		t.Errorf("Body = %q, want enriched payment line", p.Body)
	}
}

func TestAssemblePaymentActionsNeedLastMessagePayment(t *testing.T) {
	st := NewChatNotification("k1", "Ada", "", false)
	st.AddUnread(paymentEntry("m1", "ref-1", ""))
	st.AddUnread(textEntry("m2", "never mind"))

	a := NewAssembler(Capabilities{SupportsInlineReply: true, SupportsPerMessageActions: true})
	p := a.Assemble(st, true)

	if len(p.Actions) != 1 {
		t.Errorf("len(Actions) = %d, want 1 (reply only, last message is text)", len(p.Actions))
	}
}

func TestAssemblePaymentWithoutLocalPrice(t *testing.T) {
	st := NewChatNotification("k1", "Ada", "", false)
	st.AddUnread(paymentEntry("m1", "ref-1", ""))

	a := NewAssembler(Capabilities{})
	p := a.Assemble(st, true)

	if p.Body != "Payment request: 1 ETH" {
		t.Errorf("Body = %q, want un-enriched payment line", p.Body)
	}
}
