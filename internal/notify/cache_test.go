package notify

import (
	"sync"
	"testing"
)

func TestGetOrCreateSingleEntryPerKey(t *testing.T) {
	c := NewCache()

	a := c.GetOrCreate("k1", func() *ChatNotification {
		return NewChatNotification("k1", "Ada", "", false)
	})
	b := c.GetOrCreate("k1", func() *ChatNotification {
		t.Error("factory called for existing key")
		return nil
	})
	if a != b {
		t.Error("GetOrCreate returned different states for same key")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestGetOrCreateConcurrent(t *testing.T) {
	c := NewCache()
	const n = 50

	var wg sync.WaitGroup
	states := make([]*ChatNotification, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			states[i] = c.GetOrCreate("k1", func() *ChatNotification {
				return NewChatNotification("k1", "Ada", "", false)
			})
		}()
	}
	wg.Wait()

	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after %d concurrent GetOrCreate", c.Len(), n)
	}
	for i := 1; i < n; i++ {
		if states[i] != states[0] {
			t.Fatal("concurrent GetOrCreate returned distinct state objects")
		}
	}
}

func TestRemove(t *testing.T) {
	c := NewCache()
	c.GetOrCreate("k1", func() *ChatNotification {
		return NewChatNotification("k1", "Ada", "", false)
	})
	c.Remove("k1")
	if _, ok := c.Get("k1"); ok {
		t.Error("state still present after Remove")
	}
	// Removing an absent key is a no-op.
	c.Remove("k1")
}

func TestSuppressed(t *testing.T) {
	c := NewCache()

	if c.Suppressed("k1") {
		t.Error("no foreground set: nothing should be suppressed")
	}

	c.SetForeground("k1")
	if !c.Suppressed("k1") {
		t.Error("foregrounded key should be suppressed")
	}
	if c.Suppressed("k2") {
		t.Error("other keys should not be suppressed")
	}

	// Backgrounding the app lifts suppression even for the open conversation.
	c.SetBackgrounded(true)
	if c.Suppressed("k1") {
		t.Error("backgrounded app should not suppress")
	}
	c.SetBackgrounded(false)
	if !c.Suppressed("k1") {
		t.Error("suppression should resume when app returns to foreground")
	}

	c.SetForeground("")
	if c.Suppressed("k1") {
		t.Error("cleared foreground should not suppress")
	}
}

func TestUnreadOrderAndDuplicates(t *testing.T) {
	n := NewChatNotification("k1", "Ada", "", false)

	e := Entry{}
	e.Msg.ID = "m1"
	e.Msg.Body = "one"
	n.AddUnread(e)
	e.Msg.ID = "m2"
	e.Msg.Body = "two"
	n.AddUnread(e)
	// Replaying the same message appends again: no message-id dedup.
	n.AddUnread(e)

	unread := n.Unread()
	if len(unread) != 3 {
		t.Fatalf("len(unread) = %d, want 3", len(unread))
	}
	if unread[0].Msg.Body != "one" || unread[1].Msg.Body != "two" || unread[2].Msg.Body != "two" {
		t.Errorf("unread order wrong: %v", unread)
	}
}

func TestConcurrentAppendsAllRecorded(t *testing.T) {
	n := NewChatNotification("k1", "Ada", "", false)
	const count = 100

	var wg sync.WaitGroup
	for i := range count {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var e Entry
			e.Msg.ID = string(rune(i))
			n.AddUnread(e)
		}()
	}
	wg.Wait()

	if got := len(n.Unread()); got != count {
		t.Errorf("len(unread) = %d, want %d", got, count)
	}
}
