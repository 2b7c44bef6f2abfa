package render

import (
	"testing"
	"time"

	"github.com/mgaspar301/txtpay/internal/bus"
	"github.com/mgaspar301/txtpay/internal/notify"
	"go.uber.org/zap"
)

func TestRenderPublishesAndTracks(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("notify.", 10)
	defer unsub()

	s := NewBusSink(b, zap.NewNop())
	s.Render("k1", &notify.Payload{Key: "k1", Title: "Ada", Body: "hi"})

	select {
	case evt := <-ch:
		if evt.Kind != bus.KindNotifyDispatched {
			t.Errorf("kind = %q, want %q", evt.Kind, bus.KindNotifyDispatched)
		}
		p, ok := evt.Payload.(*notify.Payload)
		if !ok || p.Key != "k1" {
			t.Errorf("payload = %#v, want payload for k1", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for dispatch event")
	}

	if got := len(s.Visible()); got != 1 {
		t.Errorf("len(Visible()) = %d, want 1", got)
	}
}

func TestRenderReplacesExisting(t *testing.T) {
	s := NewBusSink(bus.New(), zap.NewNop())
	s.Render("k1", &notify.Payload{Key: "k1", Body: "one"})
	s.Render("k1", &notify.Payload{Key: "k1", Body: "one\ntwo"})

	vis := s.Visible()
	if len(vis) != 1 {
		t.Fatalf("len(Visible()) = %d, want 1", len(vis))
	}
	if vis[0].Body != "one\ntwo" {
		t.Errorf("Body = %q, want replaced payload", vis[0].Body)
	}
}

func TestDismiss(t *testing.T) {
	s := NewBusSink(bus.New(), zap.NewNop())
	s.Render("k1", &notify.Payload{Key: "k1"})
	s.Dismiss("k1")
	if len(s.Visible()) != 0 {
		t.Error("payload still visible after Dismiss")
	}
	// Dismissing an absent key is a no-op.
	s.Dismiss("k1")
}
