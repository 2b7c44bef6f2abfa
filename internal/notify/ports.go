package notify

import (
	"context"
	"image"
	"math/big"
)

// Conversation is the directory's view of a conversation, as needed by the
// notification pipeline.
type Conversation struct {
	Key         string
	DisplayName string
	AvatarURL   string
	Accepted    bool
}

// ConversationDirectory resolves the conversation owned by a sender.
// found=false is the normal answer for senders without a conversation;
// errors are treated the same way by the gate (never propagated).
type ConversationDirectory interface {
	ConversationBySender(ctx context.Context, senderID string) (conv Conversation, found bool, err error)
}

// PriceConverter turns an on-chain amount in wei into a local-currency
// price string.
type PriceConverter interface {
	Convert(ctx context.Context, wei *big.Int) (string, error)
}

// IconFetcher materializes a sender avatar.
type IconFetcher interface {
	Fetch(ctx context.Context, url string) (image.Image, error)
}

// Sink is the rendering collaborator that displays assembled payloads.
// Both calls are fire-and-forget from the pipeline's perspective.
type Sink interface {
	Render(key string, p *Payload)
	Dismiss(key string)
}
