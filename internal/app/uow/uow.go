package uow

import (
	"context"

	domainchat "petadopt/internal/domain/chat"
	domainlistings "petadopt/internal/domain/listings"
	domainuser "petadopt/internal/domain/user"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Users() domainuser.Repository
	Listings() domainlistings.Repository
	Conversations() domainchat.ConversationRepository
	Messages() domainchat.MessageRepository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units that need their session visible to
// repositories through the context (the Mongo unit does).
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}
