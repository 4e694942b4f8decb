package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainchat "petadopt/internal/domain/chat"
	domainlistings "petadopt/internal/domain/listings"
	domainuser "petadopt/internal/domain/user"
)

// ConversationRepository persists conversations. The unique index on
// (listing_id, pair_key) closes the find-or-create race at the storage layer:
// concurrent creators of the same triple collide on the index and one of them
// retries the lookup.
type ConversationRepository struct {
	col *mongo.Collection
}

func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	col := db.Collection("conversations")
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "listing_id", Value: 1}, {Key: "pair_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &ConversationRepository{col: col}
}

func (r *ConversationRepository) ByID(ctx context.Context, id domainchat.ConversationID) (*domainchat.Conversation, error) {
	var doc conversationDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainchat.ErrConversationNotFound
		}
		return nil, err
	}
	return doc.toEntity(), nil
}

func (r *ConversationRepository) FindByPair(ctx context.Context, listingID domainlistings.ListingID, a, b domainuser.ID) (*domainchat.Conversation, error) {
	filter := bson.M{
		"listing_id": string(listingID),
		"pair_key":   domainchat.PairKey(a, b),
	}
	var doc conversationDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainchat.ErrConversationNotFound
		}
		return nil, err
	}
	return doc.toEntity(), nil
}

func (r *ConversationRepository) ForUser(ctx context.Context, id domainuser.ID, ownedListings []domainlistings.ListingID) ([]*domainchat.Conversation, error) {
	owned := make([]string, 0, len(ownedListings))
	for _, listingID := range ownedListings {
		owned = append(owned, string(listingID))
	}
	filter := bson.M{"$or": bson.A{
		bson.M{"participant_a": string(id)},
		bson.M{"participant_b": string(id)},
		bson.M{"listing_id": bson.M{"$in": owned}},
	}}
	cursor, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	conversations := make([]*domainchat.Conversation, 0)
	for cursor.Next(ctx) {
		var doc conversationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		conversations = append(conversations, doc.toEntity())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return conversations, nil
}

func (r *ConversationRepository) Insert(ctx context.Context, conversation *domainchat.Conversation) error {
	if conversation == nil {
		return domainchat.ErrConversationIDRequired
	}
	doc := newConversationDocument(conversation)
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainchat.ErrConversationExists
		}
		return err
	}
	return nil
}

type conversationDocument struct {
	ID           string `bson:"_id"`
	ListingID    string `bson:"listing_id"`
	ParticipantA string `bson:"participant_a"`
	ParticipantB string `bson:"participant_b"`
	PairKey      string `bson:"pair_key"`
	CreatedAt    int64  `bson:"created_at"`
}

func newConversationDocument(c *domainchat.Conversation) conversationDocument {
	return conversationDocument{
		ID:           string(c.ID),
		ListingID:    string(c.ListingID),
		ParticipantA: string(c.ParticipantA),
		ParticipantB: string(c.ParticipantB),
		PairKey:      domainchat.PairKey(c.ParticipantA, c.ParticipantB),
		CreatedAt:    c.CreatedAt.UnixMilli(),
	}
}

func (d conversationDocument) toEntity() *domainchat.Conversation {
	return &domainchat.Conversation{
		ID:           domainchat.ConversationID(d.ID),
		ListingID:    domainlistings.ListingID(d.ListingID),
		ParticipantA: domainuser.ID(d.ParticipantA),
		ParticipantB: domainuser.ID(d.ParticipantB),
		CreatedAt:    timestampToTime(d.CreatedAt),
	}
}

// MessageRepository is the append-only message log. Send timestamps are
// assigned here, at append time.
type MessageRepository struct {
	col *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	col := db.Collection("messages")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "sent_at", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &MessageRepository{col: col}
}

func (r *MessageRepository) Append(ctx context.Context, message *domainchat.Message) error {
	if message == nil {
		return domainchat.ErrTextRequired
	}
	message.SentAt = time.Now().UTC()
	_, err := r.col.InsertOne(ctx, newMessageDocument(message))
	return err
}

func (r *MessageRepository) ByConversation(ctx context.Context, id domainchat.ConversationID) ([]*domainchat.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sent_at", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{"conversation_id": string(id)}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := make([]*domainchat.Message, 0)
	for cursor.Next(ctx) {
		var doc messageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		messages = append(messages, doc.toEntity())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *MessageRepository) Last(ctx context.Context, id domainchat.ConversationID) (*domainchat.Message, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "sent_at", Value: -1}})
	var doc messageDocument
	if err := r.col.FindOne(ctx, bson.M{"conversation_id": string(id)}, opts).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainchat.ErrNoMessages
		}
		return nil, err
	}
	return doc.toEntity(), nil
}

type messageDocument struct {
	ID             string `bson:"_id"`
	ConversationID string `bson:"conversation_id"`
	SenderID       string `bson:"sender_id"`
	Text           string `bson:"text"`
	SentAt         int64  `bson:"sent_at"`
}

func newMessageDocument(m *domainchat.Message) messageDocument {
	return messageDocument{
		ID:             string(m.ID),
		ConversationID: string(m.ConversationID),
		SenderID:       string(m.Sender),
		Text:           m.Text,
		SentAt:         m.SentAt.UnixMilli(),
	}
}

func (d messageDocument) toEntity() *domainchat.Message {
	return &domainchat.Message{
		ID:             domainchat.MessageID(d.ID),
		ConversationID: domainchat.ConversationID(d.ConversationID),
		Sender:         domainuser.ID(d.SenderID),
		Text:           d.Text,
		SentAt:         timestampToTime(d.SentAt),
	}
}
