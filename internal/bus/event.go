package bus

import "time"

// Event kinds published by the daemon. Subscribers filter by namespace
// prefix, e.g. "notify." receives every notification lifecycle event.
const (
	KindTransportMessage = "transport.message"

	KindMessageIngested = "message.ingested"
	KindMessageDropped  = "message.dropped"

	KindNotifyDispatched = "notify.dispatched"
	KindNotifySuppressed = "notify.suppressed"
	KindNotifyDismissed  = "notify.dismissed"
	KindNotifyForeground = "notify.foreground_changed"

	KindStatusChanged = "session.status_changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
