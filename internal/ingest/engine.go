// Package ingest turns transport events into persisted messages and
// notification pipeline runs.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mgaspar301/txtpay/internal/bus"
	"github.com/mgaspar301/txtpay/internal/message"
	"github.com/mgaspar301/txtpay/internal/store"
	"go.uber.org/zap"
)

// Notifier runs the notification pipeline for one message.
type Notifier interface {
	HandleIncomingMessage(ctx context.Context, msg message.Message) error
}

// Engine subscribes to "transport." events on the bus, persists each
// message, and hands it to the notification pipeline. Messages for the same
// sender are processed in arrival order by the single subscriber loop.
type Engine struct {
	db       *store.DB
	bus      *bus.Bus
	notifier Notifier
	logger   *zap.Logger
	cancel   context.CancelFunc
}

// NewEngine creates a new ingest engine.
func NewEngine(db *store.DB, b *bus.Bus, notifier Notifier, logger *zap.Logger) *Engine {
	return &Engine{
		db:       db,
		bus:      b,
		notifier: notifier,
		logger:   logger,
	}
}

// Start subscribes to inbound transport events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("transport.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(ctx, evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) handleEvent(ctx context.Context, evt bus.Event) {
	if evt.Kind != bus.KindTransportMessage {
		return
	}
	msg, ok := evt.Payload.(message.Message)
	if !ok {
		return
	}
	if err := e.Ingest(ctx, msg); err != nil {
		e.logger.Error("failed to ingest message", zap.Error(err), zap.String("msg_id", msg.ID))
	}
}

// Ingest persists one message and triggers its notification pipeline run.
func (e *Engine) Ingest(ctx context.Context, msg message.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	if msg.Sender != "" {
		if err := e.persist(msg); err != nil {
			// Persistence failure must not keep the user from being
			// notified; log and continue with the pipeline run.
			e.logger.Error("failed to persist message", zap.Error(err), zap.String("msg_id", msg.ID))
		} else {
			e.bus.Publish(bus.Event{
				Kind:      bus.KindMessageIngested,
				Timestamp: time.Now(),
				Payload:   map[string]string{"sender": msg.Sender, "msg_id": msg.ID},
			})
		}
	}

	return e.notifier.HandleIncomingMessage(ctx, msg)
}

func (e *Engine) persist(msg message.Message) error {
	conv, err := e.db.GetConversationBySender(msg.Sender)
	if err != nil {
		return fmt.Errorf("lookup conversation: %w", err)
	}
	if conv == nil {
		// First contact from this sender: the conversation starts
		// unaccepted until the user explicitly accepts it.
		conv = &store.Conversation{
			ID:          msg.Sender,
			RecipientID: msg.Sender,
			Name:        msg.SenderName,
			Accepted:    false,
		}
		if err := e.db.UpsertConversation(conv); err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
	}

	if err := e.db.UpsertMessage(&store.MessageRecord{
		ConversationID: conv.ID,
		MsgID:          msg.ID,
		SenderName:     msg.SenderName,
		Kind:           string(msg.Kind),
		Body:           msg.Body,
		RefKey:         msg.RefKey,
		Timestamp:      msg.CreatedAt.UnixMilli(),
	}); err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}
	return nil
}
