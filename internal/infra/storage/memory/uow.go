package memory

import (
	"context"
	"errors"

	"petadopt/internal/app/uow"
	domainchat "petadopt/internal/domain/chat"
	domainlistings "petadopt/internal/domain/listings"
	domainuser "petadopt/internal/domain/user"
)

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	UsersRepo         domainuser.Repository
	ListingsRepo      domainlistings.Repository
	ConversationsRepo domainchat.ConversationRepository
	MessagesRepo      domainchat.MessageRepository
}

// Begin starts a lightweight transaction boundary. No isolation is provided but
// the abstraction matches the application ports.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.UsersRepo == nil || f.ListingsRepo == nil || f.ConversationsRepo == nil || f.MessagesRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		users:         f.UsersRepo,
		listings:      f.ListingsRepo,
		conversations: f.ConversationsRepo,
		messages:      f.MessagesRepo,
	}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	users         domainuser.Repository
	listings      domainlistings.Repository
	conversations domainchat.ConversationRepository
	messages      domainchat.MessageRepository
}

func (u *Unit) Users() domainuser.Repository {
	return u.users
}

func (u *Unit) Listings() domainlistings.Repository {
	return u.listings
}

func (u *Unit) Conversations() domainchat.ConversationRepository {
	return u.conversations
}

func (u *Unit) Messages() domainchat.MessageRepository {
	return u.messages
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}
