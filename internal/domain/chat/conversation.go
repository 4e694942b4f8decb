package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"petadopt/internal/domain/listings"
	"petadopt/internal/domain/shared/events"
	"petadopt/internal/domain/user"
)

var (
	ErrConversationIDRequired = errors.New("chat: conversation id is required")
	ErrListingRequired        = errors.New("chat: listing id is required")
	ErrParticipantsRequired   = errors.New("chat: both participants are required")
	ErrConversationNotFound   = errors.New("chat: conversation not found")
	ErrConversationExists     = errors.New("chat: conversation already exists for this pair and listing")
)

type ConversationID string

// Conversation is the single thread between two users about one listing.
// Participant order is fixed at creation (the first requester is A) and never
// normalized afterwards; matching treats the pair as unordered.
type Conversation struct {
	ID           ConversationID
	ListingID    listings.ListingID
	ParticipantA user.ID
	ParticipantB user.ID
	CreatedAt    time.Time
	events.EventRecorder
}

// Involves reports whether the given user is a declared participant.
func (c *Conversation) Involves(id user.ID) bool {
	return c.ParticipantA == id || c.ParticipantB == id
}

// Counterpart returns the other participant, or false when the user is not a
// declared participant (the listing-owner-only case).
func (c *Conversation) Counterpart(id user.ID) (user.ID, bool) {
	switch id {
	case c.ParticipantA:
		return c.ParticipantB, true
	case c.ParticipantB:
		return c.ParticipantA, true
	}
	return "", false
}

// PairKey is the order-insensitive identity of a participant pair. The storage
// layer indexes (listing_id, pair_key) uniquely so concurrent creators cannot
// produce duplicate conversations.
func PairKey(a, b user.ID) string {
	if b < a {
		a, b = b, a
	}
	return string(a) + "|" + string(b)
}

type ConversationRepository interface {
	ByID(ctx context.Context, id ConversationID) (*Conversation, error)
	// FindByPair matches {a,b} in either stored order for the listing.
	FindByPair(ctx context.Context, listingID listings.ListingID, a, b user.ID) (*Conversation, error)
	// ForUser selects conversations where the user is a participant or the
	// conversation references one of the owned listings. Result order is the
	// store's natural order.
	ForUser(ctx context.Context, id user.ID, ownedListings []listings.ListingID) ([]*Conversation, error)
	// Insert appends a new conversation, failing with ErrConversationExists
	// when the (listing, pair) uniqueness constraint is violated.
	Insert(ctx context.Context, conversation *Conversation) error
}

type CreateConversationParams struct {
	ID           ConversationID
	ListingID    listings.ListingID
	ParticipantA user.ID
	ParticipantB user.ID
	CreatedAt    time.Time
}

func NewConversation(params CreateConversationParams) (*Conversation, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrConversationIDRequired
	}
	if strings.TrimSpace(string(params.ListingID)) == "" {
		return nil, ErrListingRequired
	}
	if params.ParticipantA == "" || params.ParticipantB == "" {
		return nil, ErrParticipantsRequired
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	conversation := &Conversation{
		ID:           ConversationID(id),
		ListingID:    params.ListingID,
		ParticipantA: params.ParticipantA,
		ParticipantB: params.ParticipantB,
		CreatedAt:    now.UTC(),
	}
	conversation.Record(ConversationStarted{
		ConversationID: conversation.ID,
		ListingID:      conversation.ListingID,
		ParticipantA:   conversation.ParticipantA,
		ParticipantB:   conversation.ParticipantB,
		At:             conversation.CreatedAt,
	})
	return conversation, nil
}
