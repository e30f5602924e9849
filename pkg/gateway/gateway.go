package gateway

import "context"

// Transport sends messages back into a conversation. Sends are
// fire-and-forget from the caller's perspective: errors are reported for
// logging but never retried here.
type Transport interface {
	SendText(ctx context.Context, conversationID, text string) error
	SendSticker(ctx context.Context, conversationID string, encoded []byte) error
}

// InboundMessage is a message received from the chat bridge.
type InboundMessage struct {
	ID               string `json:"id"`
	ConversationID   string `json:"conversation_id"`
	ConversationName string `json:"conversation_name,omitempty"`
	IsGroup          bool   `json:"is_group"`
	Caption          string `json:"caption,omitempty"`
	Image            []byte `json:"image,omitempty"`
}

// StickerMeta is the pack metadata attached to outbound stickers.
type StickerMeta struct {
	Pack   string `json:"pack"`
	Author string `json:"author"`
}
