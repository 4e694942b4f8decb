package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"petadopt/internal/app/dto"
	chatservice "petadopt/internal/app/services/chat"
	domainchat "petadopt/internal/domain/chat"
	domainlistings "petadopt/internal/domain/listings"
	domainuser "petadopt/internal/domain/user"
)

// ChatHandler bridges HTTP with the chat application service.
type ChatHandler struct {
	Chat   *chatservice.Service
	Logger *slog.Logger
}

// ListConversations returns conversation summaries for the given user email.
func (h ChatHandler) ListConversations(c *gin.Context) {
	email := strings.TrimSpace(c.Query("user_email"))
	if email == "" {
		respondFailure(c, http.StatusBadRequest, "user_email is required")
		return
	}
	summaries, err := h.Chat.ListConversationsForUser(c.Request.Context(), email)
	if err != nil {
		h.respondError(c, err, "list conversations", "user_email", email)
		return
	}
	out := make([]dto.ConversationSummary, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, dto.ConversationSummary{
			ConversationID: string(s.ConversationID),
			With:           s.With,
			ListingID:      string(s.ListingID),
			ListingTitle:   s.ListingTitle,
			LastMessage:    s.LastMessage,
			LastMessageAt:  s.LastMessageAt,
		})
	}
	c.JSON(http.StatusOK, dto.ConversationsResponse{Success: true, Conversations: out})
}

// CreateConversation finds or creates the thread for a participant pair and listing.
func (h ChatHandler) CreateConversation(c *gin.Context) {
	var req dto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, http.StatusBadRequest, "invalid payload")
		return
	}
	id, err := h.Chat.FindOrCreateConversation(
		c.Request.Context(),
		req.User1Email,
		req.User2Email,
		domainlistings.ListingID(strings.TrimSpace(req.ListingID)),
	)
	if err != nil {
		h.respondError(c, err, "create conversation", "listing_id", req.ListingID)
		return
	}
	c.JSON(http.StatusOK, dto.ConversationCreatedResponse{Success: true, ConversationID: string(id)})
}

// ListMessages returns the full message log of a conversation.
func (h ChatHandler) ListMessages(c *gin.Context) {
	conversationID := strings.TrimSpace(c.Query("conversation_id"))
	if conversationID == "" {
		respondFailure(c, http.StatusBadRequest, "conversation_id is required")
		return
	}
	views, err := h.Chat.ListMessages(c.Request.Context(), domainchat.ConversationID(conversationID))
	if err != nil {
		h.respondError(c, err, "list messages", "conversation_id", conversationID)
		return
	}
	out := make([]dto.Message, 0, len(views))
	for _, v := range views {
		out = append(out, dto.Message{
			ID:          string(v.ID),
			SenderID:    string(v.SenderID),
			SenderEmail: v.SenderEmail,
			Text:        v.Text,
			SentAt:      v.SentAt,
		})
	}
	c.JSON(http.StatusOK, dto.MessagesResponse{Success: true, Messages: out})
}

// SendMessage appends a message to an existing conversation.
func (h ChatHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, http.StatusBadRequest, "invalid payload")
		return
	}
	id, err := h.Chat.SendMessage(
		c.Request.Context(),
		domainchat.ConversationID(strings.TrimSpace(req.ConversationID)),
		req.SenderEmail,
		req.Text,
	)
	if err != nil {
		h.respondError(c, err, "send message", "conversation_id", req.ConversationID)
		return
	}
	c.JSON(http.StatusOK, dto.ConversationCreatedResponse{Success: true, ConversationID: string(id)})
}

var validationErrors = []error{
	domainuser.ErrEmailRequired,
	domainchat.ErrConversationIDRequired,
	domainchat.ErrListingRequired,
	domainchat.ErrParticipantsRequired,
	domainchat.ErrSenderRequired,
	domainchat.ErrTextRequired,
}

var notFoundErrors = []error{
	domainuser.ErrNotFound,
	domainchat.ErrConversationNotFound,
	domainlistings.ErrNotFound,
}

// respondError maps service errors onto the legacy envelope: validation → 400,
// unknown references → 404, everything else → 500 with an opaque message.
func (h ChatHandler) respondError(c *gin.Context, err error, action string, attrs ...any) {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			respondFailure(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			respondFailure(c, http.StatusNotFound, err.Error())
			return
		}
	}
	if h.Logger != nil {
		h.Logger.Error("chat request failed", append([]any{"action", action, "error", err}, attrs...)...)
	}
	respondFailure(c, http.StatusInternalServerError, "internal error")
}

func respondFailure(c *gin.Context, status int, message string) {
	c.JSON(status, dto.ErrorResponse{Success: false, Message: message})
}

var _ ChatHTTP = (*ChatHandler)(nil)
