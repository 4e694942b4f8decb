package chat

import (
	"context"
	"errors"
	"time"

	"petadopt/internal/domain/listings"
	"petadopt/internal/domain/user"
)

var (
	ErrSenderRequired = errors.New("chat: sender is required")
	ErrTextRequired   = errors.New("chat: message text is required")
	ErrNoMessages     = errors.New("chat: conversation has no messages")
)

type MessageID string

// Message is an immutable entry in a conversation. SentAt is assigned by the
// store at append time and is non-decreasing within a conversation.
type Message struct {
	ID             MessageID
	ConversationID ConversationID
	Sender         user.ID
	Text           string
	SentAt         time.Time
}

// Summary is the derived per-conversation view returned to a user: who the
// thread is with, which listing it concerns and what was said last.
type Summary struct {
	ConversationID ConversationID
	With           string
	ListingID      listings.ListingID
	ListingTitle   string
	LastMessage    string
	LastMessageAt  *time.Time
}

type MessageRepository interface {
	// Append stores the message and stamps SentAt.
	Append(ctx context.Context, message *Message) error
	// ByConversation lists all messages ascending by SentAt. An unknown
	// conversation yields an empty slice, not an error.
	ByConversation(ctx context.Context, id ConversationID) ([]*Message, error)
	// Last returns the most recent message or ErrNoMessages.
	Last(ctx context.Context, id ConversationID) (*Message, error)
}
