package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"petadopt/internal/app/outbox"
	"petadopt/internal/app/uow"
	domainchat "petadopt/internal/domain/chat"
	domainlistings "petadopt/internal/domain/listings"
	"petadopt/internal/domain/shared/events"
	domainuser "petadopt/internal/domain/user"
)

var ErrNotConfigured = errors.New("chat: service missing unit of work factory")

// Service implements the messaging core: conversation resolution, the message
// log and per-user conversation summaries. Every operation runs inside a
// single unit of work committed on success and rolled back otherwise.
type Service struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

// MessageView is a message joined with its sender's email.
type MessageView struct {
	ID          domainchat.MessageID
	SenderID    domainuser.ID
	SenderEmail string
	Text        string
	SentAt      time.Time
}

// FindOrCreateConversation returns the one conversation between the two users
// about the listing, creating it when absent. The lookup matches the pair in
// either stored order; creation fixes the first requester as participant A.
func (s *Service) FindOrCreateConversation(ctx context.Context, user1Email, user2Email string, listingID domainlistings.ListingID) (domainchat.ConversationID, error) {
	user1Email = domainuser.NormalizeEmail(user1Email)
	user2Email = domainuser.NormalizeEmail(user2Email)
	if user1Email == "" || user2Email == "" {
		return "", domainuser.ErrEmailRequired
	}
	if strings.TrimSpace(string(listingID)) == "" {
		return "", domainchat.ErrListingRequired
	}

	id, err := s.resolveConversation(ctx, user1Email, user2Email, listingID)
	if errors.Is(err, domainchat.ErrConversationExists) {
		// Lost the creation race. The winner's row satisfies the lookup now.
		return s.lookupConversation(ctx, user1Email, user2Email, listingID)
	}
	return id, err
}

func (s *Service) resolveConversation(ctx context.Context, user1Email, user2Email string, listingID domainlistings.ListingID) (domainchat.ConversationID, error) {
	var id domainchat.ConversationID
	err := s.withUnit(ctx, false, func(ctx context.Context, unit uow.UnitOfWork) error {
		u1, err := unit.Users().ByEmail(ctx, user1Email)
		if err != nil {
			return err
		}
		u2, err := unit.Users().ByEmail(ctx, user2Email)
		if err != nil {
			return err
		}
		existing, err := unit.Conversations().FindByPair(ctx, listingID, u1.ID, u2.ID)
		if err == nil {
			id = existing.ID
			return nil
		}
		if !errors.Is(err, domainchat.ErrConversationNotFound) {
			return err
		}
		conversation, err := domainchat.NewConversation(domainchat.CreateConversationParams{
			ID:           domainchat.ConversationID(uuid.NewString()),
			ListingID:    listingID,
			ParticipantA: u1.ID,
			ParticipantB: u2.ID,
		})
		if err != nil {
			return err
		}
		if err := unit.Conversations().Insert(ctx, conversation); err != nil {
			return err
		}
		if err := outbox.RecordDomainEvents(ctx, s.Outbox, s.Encoder, conversation.PendingEvents()); err != nil {
			return err
		}
		conversation.ClearEvents()
		id = conversation.ID
		if s.Logger != nil {
			s.Logger.Info("conversation created", "conversation_id", id, "listing_id", listingID)
		}
		return nil
	})
	return id, err
}

func (s *Service) lookupConversation(ctx context.Context, user1Email, user2Email string, listingID domainlistings.ListingID) (domainchat.ConversationID, error) {
	var id domainchat.ConversationID
	err := s.withUnit(ctx, true, func(ctx context.Context, unit uow.UnitOfWork) error {
		u1, err := unit.Users().ByEmail(ctx, user1Email)
		if err != nil {
			return err
		}
		u2, err := unit.Users().ByEmail(ctx, user2Email)
		if err != nil {
			return err
		}
		existing, err := unit.Conversations().FindByPair(ctx, listingID, u1.ID, u2.ID)
		if err != nil {
			return err
		}
		id = existing.ID
		return nil
	})
	return id, err
}

// SendMessage appends one immutable message and echoes the conversation id.
// The sender must exist and the conversation must exist; whether the sender is
// actually a participant is not checked, matching the legacy behavior.
func (s *Service) SendMessage(ctx context.Context, conversationID domainchat.ConversationID, senderEmail, text string) (domainchat.ConversationID, error) {
	if strings.TrimSpace(string(conversationID)) == "" {
		return "", domainchat.ErrConversationIDRequired
	}
	senderEmail = domainuser.NormalizeEmail(senderEmail)
	if senderEmail == "" {
		return "", domainchat.ErrSenderRequired
	}
	if strings.TrimSpace(text) == "" {
		return "", domainchat.ErrTextRequired
	}

	err := s.withUnit(ctx, false, func(ctx context.Context, unit uow.UnitOfWork) error {
		sender, err := unit.Users().ByEmail(ctx, senderEmail)
		if err != nil {
			return err
		}
		conversation, err := unit.Conversations().ByID(ctx, conversationID)
		if err != nil {
			return err
		}
		message := &domainchat.Message{
			ID:             domainchat.MessageID(uuid.NewString()),
			ConversationID: conversation.ID,
			Sender:         sender.ID,
			Text:           text,
		}
		if err := unit.Messages().Append(ctx, message); err != nil {
			return err
		}
		event := domainchat.MessageSent{
			MessageID:      message.ID,
			ConversationID: conversation.ID,
			Sender:         sender.ID,
			At:             message.SentAt,
		}
		return outbox.RecordDomainEvents(ctx, s.Outbox, s.Encoder, []events.DomainEvent{event})
	})
	if err != nil {
		return "", err
	}
	return conversationID, nil
}

// ListMessages returns the full message log ascending by send time, each entry
// joined with the sender's email. An unknown conversation yields an empty
// slice, not an error.
func (s *Service) ListMessages(ctx context.Context, conversationID domainchat.ConversationID) ([]MessageView, error) {
	if strings.TrimSpace(string(conversationID)) == "" {
		return nil, domainchat.ErrConversationIDRequired
	}
	var views []MessageView
	err := s.withUnit(ctx, true, func(ctx context.Context, unit uow.UnitOfWork) error {
		messages, err := unit.Messages().ByConversation(ctx, conversationID)
		if err != nil {
			return err
		}
		emails := make(map[domainuser.ID]string, 2)
		views = make([]MessageView, 0, len(messages))
		for _, message := range messages {
			views = append(views, MessageView{
				ID:          message.ID,
				SenderID:    message.Sender,
				SenderEmail: s.emailFor(ctx, unit, emails, message.Sender),
				Text:        message.Text,
				SentAt:      message.SentAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// ListConversationsForUser builds summaries for every conversation the user
// participates in or owns the listing of. Order follows the store's natural
// order; no sorting by activity.
func (s *Service) ListConversationsForUser(ctx context.Context, email string) ([]domainchat.Summary, error) {
	email = domainuser.NormalizeEmail(email)
	if email == "" {
		return nil, domainuser.ErrEmailRequired
	}
	var summaries []domainchat.Summary
	err := s.withUnit(ctx, true, func(ctx context.Context, unit uow.UnitOfWork) error {
		usr, err := unit.Users().ByEmail(ctx, email)
		if err != nil {
			return err
		}
		owned, err := unit.Listings().IDsByOwner(ctx, usr.ID)
		if err != nil {
			return err
		}
		conversations, err := unit.Conversations().ForUser(ctx, usr.ID, owned)
		if err != nil {
			return err
		}
		emails := make(map[domainuser.ID]string, 4)
		summaries = make([]domainchat.Summary, 0, len(conversations))
		for _, conversation := range conversations {
			summary := domainchat.Summary{
				ConversationID: conversation.ID,
				ListingID:      conversation.ListingID,
				With:           s.counterpartLabel(ctx, unit, emails, conversation, usr.ID),
			}
			if listing, err := unit.Listings().ByID(ctx, conversation.ListingID); err == nil {
				summary.ListingTitle = listing.Title
			} else if !errors.Is(err, domainlistings.ErrNotFound) {
				return err
			}
			last, err := unit.Messages().Last(ctx, conversation.ID)
			switch {
			case err == nil:
				at := last.SentAt
				summary.LastMessage = last.Text
				summary.LastMessageAt = &at
			case !errors.Is(err, domainchat.ErrNoMessages):
				return err
			}
			summaries = append(summaries, summary)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *Service) counterpartLabel(ctx context.Context, unit uow.UnitOfWork, cache map[domainuser.ID]string, conversation *domainchat.Conversation, viewer domainuser.ID) string {
	if other, ok := conversation.Counterpart(viewer); ok {
		return s.emailFor(ctx, unit, cache, other)
	}
	// Listing owner watching a thread between two other parties.
	a := s.emailFor(ctx, unit, cache, conversation.ParticipantA)
	b := s.emailFor(ctx, unit, cache, conversation.ParticipantB)
	return a + " / " + b
}

func (s *Service) emailFor(ctx context.Context, unit uow.UnitOfWork, cache map[domainuser.ID]string, id domainuser.ID) string {
	if email, ok := cache[id]; ok {
		return email
	}
	email := ""
	if usr, err := unit.Users().ByID(ctx, id); err == nil {
		email = usr.Email
	}
	cache[id] = email
	return email
}

func (s *Service) withUnit(ctx context.Context, readOnly bool, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	if s.UoWFactory == nil {
		return ErrNotConfigured
	}
	unit, err := s.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: readOnly})
	if err != nil {
		return err
	}
	if injector, ok := unit.(uow.ContextInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()
	if err := fn(ctx, unit); err != nil {
		return err
	}
	if err := unit.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}
