// Package render delivers assembled notification payloads to UI clients.
package render

import (
	"sync"
	"time"

	"github.com/mgaspar301/txtpay/internal/bus"
	"github.com/mgaspar301/txtpay/internal/notify"
	"go.uber.org/zap"
)

// BusSink is a rendering sink that publishes payloads on the event bus and
// tracks the currently visible notification per key. UI clients subscribe
// to "notify." events to mirror the native notification area.
type BusSink struct {
	bus    *bus.Bus
	logger *zap.Logger

	mu      sync.Mutex
	visible map[string]*notify.Payload
}

// NewBusSink creates a bus-backed rendering sink.
func NewBusSink(b *bus.Bus, logger *zap.Logger) *BusSink {
	return &BusSink{
		bus:     b,
		logger:  logger,
		visible: make(map[string]*notify.Payload),
	}
}

// Render displays (or replaces) the notification for key.
func (s *BusSink) Render(key string, p *notify.Payload) {
	s.mu.Lock()
	s.visible[key] = p
	s.mu.Unlock()

	s.logger.Info("notification dispatched",
		zap.String("key", key),
		zap.Int("actions", len(p.Actions)))
	s.bus.Publish(bus.Event{
		Kind:      bus.KindNotifyDispatched,
		Timestamp: time.Now(),
		Payload:   p,
	})
}

// Dismiss removes the visible notification for key, if any.
func (s *BusSink) Dismiss(key string) {
	s.mu.Lock()
	_, had := s.visible[key]
	delete(s.visible, key)
	s.mu.Unlock()

	if had {
		s.logger.Info("notification dismissed", zap.String("key", key))
	}
}

// Visible returns the currently displayed payloads in unspecified order.
func (s *BusSink) Visible() []*notify.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*notify.Payload, 0, len(s.visible))
	for _, p := range s.visible {
		out = append(out, p)
	}
	return out
}
