package ingest

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mgaspar301/txtpay/internal/bus"
	"github.com/mgaspar301/txtpay/internal/message"
	"github.com/mgaspar301/txtpay/internal/store"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []message.Message
}

func (n *recordingNotifier) HandleIncomingMessage(_ context.Context, msg message.Message) error {
	n.mu.Lock()
	n.msgs = append(n.msgs, msg)
	n.mu.Unlock()
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestIngestPersistsAndNotifies(t *testing.T) {
	db := testDB(t)
	notifier := &recordingNotifier{}
	e := NewEngine(db, bus.New(), notifier, zap.NewNop())

	msg := message.Message{
		Sender:     "0xsender",
		SenderName: "Ada",
		Kind:       message.KindPlainText,
		Body:       "hello",
	}
	if err := e.Ingest(context.Background(), msg); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	// A first-contact conversation is created, unaccepted.
	conv, err := db.GetConversationBySender("0xsender")
	if err != nil {
		t.Fatal(err)
	}
	if conv == nil {
		t.Fatal("conversation not created on first contact")
	}
	if conv.Accepted {
		t.Error("first-contact conversation should start unaccepted")
	}

	msgs, err := db.ListMessages(conv.ID, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Body != "hello" {
		t.Errorf("persisted messages = %+v, want 1 with body hello", msgs)
	}

	if notifier.count() != 1 {
		t.Errorf("notifier invoked %d times, want 1", notifier.count())
	}
	if notifier.msgs[0].ID == "" {
		t.Error("missing message id was not assigned")
	}
}

func TestIngestKeepsExistingAcceptance(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertConversation(&store.Conversation{
		ID: "conv-1", RecipientID: "0xsender", Name: "Ada", Accepted: true,
	}); err != nil {
		t.Fatal(err)
	}

	notifier := &recordingNotifier{}
	e := NewEngine(db, bus.New(), notifier, zap.NewNop())
	msg := message.Message{Sender: "0xsender", Kind: message.KindPlainText, Body: "hi"}
	if err := e.Ingest(context.Background(), msg); err != nil {
		t.Fatal(err)
	}

	conv, err := db.GetConversationBySender("0xsender")
	if err != nil {
		t.Fatal(err)
	}
	if !conv.Accepted {
		t.Error("existing acceptance flag was clobbered by ingest")
	}
}

func TestIngestExternalSenderSkipsStore(t *testing.T) {
	db := testDB(t)
	notifier := &recordingNotifier{}
	e := NewEngine(db, bus.New(), notifier, zap.NewNop())

	msg := message.Message{Kind: message.KindPaymentRequest, Body: `{"to":"0x1","value":"0x1"}`}
	if err := e.Ingest(context.Background(), msg); err != nil {
		t.Fatal(err)
	}

	convs, err := db.ListConversations(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 0 {
		t.Errorf("external sender created %d conversations, want 0", len(convs))
	}
	if notifier.count() != 1 {
		t.Error("external sender message should still reach the notifier")
	}
}

func TestStartConsumesTransportEvents(t *testing.T) {
	db := testDB(t)
	notifier := &recordingNotifier{}
	b := bus.New()
	e := NewEngine(db, b, notifier, zap.NewNop())

	e.Start(context.Background())
	defer e.Stop()

	b.Publish(bus.Event{
		Kind:      bus.KindTransportMessage,
		Timestamp: time.Now(),
		Payload:   message.Message{Sender: "0xsender", Kind: message.KindPlainText, Body: "hi"},
	})

	deadline := time.After(2 * time.Second)
	for notifier.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for engine to process transport event")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
