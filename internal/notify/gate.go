package notify

import (
	"context"

	"github.com/mgaspar301/txtpay/internal/message"
	"go.uber.org/zap"
)

// Verdict is the gate's classification of one incoming message.
type Verdict struct {
	Key          string
	Accepted     bool
	Suppressed   bool
	Conversation Conversation
	Found        bool
}

// Gate decides, per incoming message, which key the message belongs to,
// whether its conversation is accepted, and whether rendering is currently
// suppressed.
type Gate struct {
	dir    ConversationDirectory
	cache  *Cache
	logger *zap.Logger
}

// NewGate creates a gate over the given directory and cache.
func NewGate(dir ConversationDirectory, cache *Cache, logger *zap.Logger) *Gate {
	return &Gate{dir: dir, cache: cache, logger: logger}
}

// Classify resolves the message's notification key and acceptance.
// Directory errors are swallowed and treated as "not accepted": a message
// must still surface as a generic notification rather than be dropped.
func (g *Gate) Classify(ctx context.Context, msg message.Message) Verdict {
	v := Verdict{Key: DefaultKey}

	if msg.Sender != "" {
		conv, found, err := g.dir.ConversationBySender(ctx, msg.Sender)
		if err != nil {
			g.logger.Warn("conversation lookup failed, treating as unaccepted",
				zap.String("sender", msg.Sender), zap.Error(err))
		} else if found {
			v.Conversation = conv
			v.Found = true
			v.Accepted = conv.Accepted
		}
		if v.Found {
			v.Key = conv.Key
		} else {
			v.Key = msg.Sender
		}
	}

	v.Suppressed = g.cache.Suppressed(v.Key)
	return v
}
