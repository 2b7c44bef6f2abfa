package store

// Conversation represents a known conversation/thread with one sender.
type Conversation struct {
	ID          string
	RecipientID string
	Name        string
	AvatarURL   string
	Accepted    bool
}

// MessageRecord represents a persisted message.
type MessageRecord struct {
	ID             int64
	ConversationID string
	MsgID          string
	SenderName     string
	Kind           string
	Body           string
	RefKey         string
	Timestamp      int64
}
