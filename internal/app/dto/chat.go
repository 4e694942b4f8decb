package dto

import "time"

// The chat wire format keeps the legacy PetAdopt field names so existing
// clients keep working: zwierze_id = listing id, tytul = listing title,
// tresc = message body, czas_wyslania = send time, nadawca_id = sender id.

// ConversationSummary is one row of GET /conversations.
type ConversationSummary struct {
	ConversationID string     `json:"conversation_id"`
	With           string     `json:"with"`
	ListingID      string     `json:"zwierze_id"`
	ListingTitle   string     `json:"tytul"`
	LastMessage    string     `json:"last_message"`
	LastMessageAt  *time.Time `json:"last_message_time"`
}

// ConversationsResponse is the GET /conversations envelope.
type ConversationsResponse struct {
	Success       bool                  `json:"success"`
	Conversations []ConversationSummary `json:"conversations"`
}

// CreateConversationRequest is the POST /conversations payload.
type CreateConversationRequest struct {
	User1Email string `json:"user1_email"`
	User2Email string `json:"user2_email"`
	ListingID  string `json:"zwierze_id"`
}

// ConversationCreatedResponse answers POST /conversations and POST /messages.
type ConversationCreatedResponse struct {
	Success        bool   `json:"success"`
	ConversationID string `json:"conversation_id"`
}

// Message is one row of GET /messages.
type Message struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"nadawca_id"`
	SenderEmail string    `json:"sender_email"`
	Text        string    `json:"tresc"`
	SentAt      time.Time `json:"czas_wyslania"`
}

// MessagesResponse is the GET /messages envelope.
type MessagesResponse struct {
	Success  bool      `json:"success"`
	Messages []Message `json:"messages"`
}

// SendMessageRequest is the POST /messages payload.
type SendMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	SenderEmail    string `json:"sender_email"`
	Text           string `json:"text"`
}

// ErrorResponse is the uniform failure envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
