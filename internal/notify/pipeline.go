package notify

import (
	"context"
	"time"

	"github.com/mgaspar301/txtpay/internal/bus"
	"github.com/mgaspar301/txtpay/internal/message"
	"go.uber.org/zap"
)

// Policy holds the configurable notification policy decisions.
type Policy struct {
	// ClearUnreadOnForeground drops a key's accumulated unread state when
	// its conversation is foregrounded, instead of retaining it until
	// explicit dismissal.
	ClearUnreadOnForeground bool
}

// Orchestrator runs the notification pipeline for incoming messages and
// owns the suppression entry points. One instance per process, constructed
// at startup and shared by all pipeline runs.
type Orchestrator struct {
	cache  *Cache
	gate   *Gate
	prices PriceConverter
	icons  IconFetcher
	sink   Sink
	asm    *Assembler
	bus    *bus.Bus
	logger *zap.Logger
	policy Policy
}

// NewOrchestrator wires the pipeline. bus may be nil in tests.
func NewOrchestrator(
	dir ConversationDirectory,
	prices PriceConverter,
	icons IconFetcher,
	sink Sink,
	caps Capabilities,
	policy Policy,
	b *bus.Bus,
	logger *zap.Logger,
) *Orchestrator {
	cache := NewCache()
	return &Orchestrator{
		cache:  cache,
		gate:   NewGate(dir, cache, logger),
		prices: prices,
		icons:  icons,
		sink:   sink,
		asm:    NewAssembler(caps),
		bus:    b,
		logger: logger,
		policy: policy,
	}
}

// Cache exposes the notification state cache (read-mostly, for status APIs).
func (o *Orchestrator) Cache() *Cache { return o.cache }

// HandleIncomingMessage runs one pipeline pass for a message. Only a
// malformed payment-request payload ends the run without a notification;
// every other failure degrades and still dispatches. Suppressed runs update
// the cache silently and skip dispatch.
func (o *Orchestrator) HandleIncomingMessage(ctx context.Context, msg message.Message) error {
	switch msg.Kind {
	case message.KindPlainText, message.KindPaymentRequest:
	default:
		// Other kinds pass through unhandled.
		return nil
	}

	v := o.gate.Classify(ctx, msg)

	entry := Entry{Msg: msg}
	if msg.Kind == message.KindPaymentRequest {
		pr, err := message.ParsePaymentRequest(msg.Body)
		if err != nil {
			o.logger.Error("dropping message with malformed payment request",
				zap.String("msg_id", msg.ID), zap.Error(err))
			o.publish(bus.KindMessageDropped, msg.ID)
			return err
		}
		entry.Request = pr

		if !v.Suppressed {
			price, err := o.prices.Convert(ctx, pr.Wei())
			if err != nil {
				o.logger.Warn("price conversion unavailable, using raw amount",
					zap.String("msg_id", msg.ID), zap.Error(err))
			} else {
				entry.Request = pr.WithLocalPrice(price)
			}
		}
	}

	st := o.cache.GetOrCreate(v.Key, func() *ChatNotification {
		name := v.Conversation.DisplayName
		if name == "" {
			name = msg.SenderName
		}
		return NewChatNotification(v.Key, name, v.Conversation.AvatarURL, msg.Sender == "")
	})
	st.AddUnread(entry)

	if v.Suppressed {
		o.publish(bus.KindNotifySuppressed, v.Key)
		return nil
	}

	if st.AvatarURL() != "" {
		img, err := o.icons.Fetch(ctx, st.AvatarURL())
		if err != nil {
			o.logger.Debug("avatar fetch failed, keeping default icon",
				zap.String("key", v.Key), zap.Error(err))
		} else {
			st.SetIcon(img)
		}
	}

	payload := o.asm.Assemble(st, v.Accepted)
	o.sink.Render(v.Key, payload)
	return nil
}

// SetForegroundConversation marks key as the open conversation; an empty
// key clears suppression. The visible notification for the key is dismissed
// and, by policy, its unread state dropped.
func (o *Orchestrator) SetForegroundConversation(key string) {
	o.cache.SetForeground(key)
	if key != "" {
		o.sink.Dismiss(key)
		if o.policy.ClearUnreadOnForeground {
			o.cache.Remove(key)
		}
	}
	o.publish(bus.KindNotifyForeground, key)
}

// SetBackgrounded records whether the application UI is backgrounded.
// While backgrounded, the foreground conversation does not suppress.
func (o *Orchestrator) SetBackgrounded(bg bool) {
	o.cache.SetBackgrounded(bg)
}

// DismissNotification mirrors the user dismissing the notification for key.
func (o *Orchestrator) DismissNotification(key string) {
	o.cache.Remove(key)
	o.publish(bus.KindNotifyDismissed, key)
}

func (o *Orchestrator) publish(kind, key string) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: key})
}
