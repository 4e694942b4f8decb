package chat

import (
	"time"

	"petadopt/internal/domain/listings"
	"petadopt/internal/domain/user"
)

type ConversationStarted struct {
	ConversationID ConversationID
	ListingID      listings.ListingID
	ParticipantA   user.ID
	ParticipantB   user.ID
	At             time.Time
}

func (e ConversationStarted) EventName() string     { return "chat.conversation_started" }
func (e ConversationStarted) AggregateID() string   { return string(e.ConversationID) }
func (e ConversationStarted) OccurredAt() time.Time { return e.At }

type MessageSent struct {
	MessageID      MessageID
	ConversationID ConversationID
	Sender         user.ID
	At             time.Time
}

func (e MessageSent) EventName() string     { return "chat.message_sent" }
func (e MessageSent) AggregateID() string   { return string(e.ConversationID) }
func (e MessageSent) OccurredAt() time.Time { return e.At }
