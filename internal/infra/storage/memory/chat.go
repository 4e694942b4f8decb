package memory

import (
	"context"
	"sync"
	"time"

	domainchat "petadopt/internal/domain/chat"
	domainlistings "petadopt/internal/domain/listings"
	domainuser "petadopt/internal/domain/user"
)

// ConversationRepository keeps conversations in memory in insertion order and
// enforces the (listing, unordered pair) uniqueness constraint.
type ConversationRepository struct {
	mu      sync.RWMutex
	byID    map[domainchat.ConversationID]*domainchat.Conversation
	order   []domainchat.ConversationID
	pairIdx map[string]domainchat.ConversationID
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		byID:    make(map[domainchat.ConversationID]*domainchat.Conversation),
		pairIdx: make(map[string]domainchat.ConversationID),
	}
}

func pairIndexKey(listingID domainlistings.ListingID, a, b domainuser.ID) string {
	return string(listingID) + "#" + domainchat.PairKey(a, b)
}

func (r *ConversationRepository) ByID(ctx context.Context, id domainchat.ConversationID) (*domainchat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conversation, ok := r.byID[id]
	if !ok {
		return nil, domainchat.ErrConversationNotFound
	}
	return cloneConversation(conversation), nil
}

func (r *ConversationRepository) FindByPair(ctx context.Context, listingID domainlistings.ListingID, a, b domainuser.ID) (*domainchat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.pairIdx[pairIndexKey(listingID, a, b)]
	if !ok {
		return nil, domainchat.ErrConversationNotFound
	}
	return cloneConversation(r.byID[id]), nil
}

func (r *ConversationRepository) ForUser(ctx context.Context, id domainuser.ID, ownedListings []domainlistings.ListingID) ([]*domainchat.Conversation, error) {
	owned := make(map[domainlistings.ListingID]struct{}, len(ownedListings))
	for _, listingID := range ownedListings {
		owned[listingID] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainchat.Conversation, 0)
	for _, conversationID := range r.order {
		conversation := r.byID[conversationID]
		if conversation.Involves(id) {
			matches = append(matches, cloneConversation(conversation))
			continue
		}
		if _, ok := owned[conversation.ListingID]; ok {
			matches = append(matches, cloneConversation(conversation))
		}
	}
	return matches, nil
}

func (r *ConversationRepository) Insert(ctx context.Context, conversation *domainchat.Conversation) error {
	if conversation == nil {
		return domainchat.ErrConversationIDRequired
	}
	key := pairIndexKey(conversation.ListingID, conversation.ParticipantA, conversation.ParticipantB)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pairIdx[key]; ok {
		return domainchat.ErrConversationExists
	}
	if _, ok := r.byID[conversation.ID]; ok {
		return domainchat.ErrConversationExists
	}
	r.byID[conversation.ID] = cloneConversation(conversation)
	r.order = append(r.order, conversation.ID)
	r.pairIdx[key] = conversation.ID
	return nil
}

func cloneConversation(c *domainchat.Conversation) *domainchat.Conversation {
	if c == nil {
		return nil
	}
	return &domainchat.Conversation{
		ID:           c.ID,
		ListingID:    c.ListingID,
		ParticipantA: c.ParticipantA,
		ParticipantB: c.ParticipantB,
		CreatedAt:    c.CreatedAt,
	}
}

// MessageRepository is the in-memory message log. Append stamps send times
// and clamps them to be non-decreasing within a conversation.
type MessageRepository struct {
	mu      sync.RWMutex
	byConvo map[domainchat.ConversationID][]*domainchat.Message
	now     func() time.Time
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{
		byConvo: make(map[domainchat.ConversationID][]*domainchat.Message),
		now:     time.Now,
	}
}

func (r *MessageRepository) Append(ctx context.Context, message *domainchat.Message) error {
	if message == nil {
		return domainchat.ErrTextRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sentAt := r.now().UTC()
	log := r.byConvo[message.ConversationID]
	if n := len(log); n > 0 && sentAt.Before(log[n-1].SentAt) {
		sentAt = log[n-1].SentAt
	}
	message.SentAt = sentAt
	stored := *message
	r.byConvo[message.ConversationID] = append(log, &stored)
	return nil
}

func (r *MessageRepository) ByConversation(ctx context.Context, id domainchat.ConversationID) ([]*domainchat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	log := r.byConvo[id]
	out := make([]*domainchat.Message, 0, len(log))
	for _, message := range log {
		copyMessage := *message
		out = append(out, &copyMessage)
	}
	return out, nil
}

func (r *MessageRepository) Last(ctx context.Context, id domainchat.ConversationID) (*domainchat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	log := r.byConvo[id]
	if len(log) == 0 {
		return nil, domainchat.ErrNoMessages
	}
	copyMessage := *log[len(log)-1]
	return &copyMessage, nil
}
