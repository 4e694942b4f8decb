package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"petadopt/internal/domain/user"
)

var (
	ErrIDRequired    = errors.New("listings: id is required")
	ErrOwnerRequired = errors.New("listings: owner is required")
	ErrTitleRequired = errors.New("listings: title is required")
	ErrNotFound      = errors.New("listings: not found")
)

type ListingID string

// Listing is an adoption posting. The messaging core reads only the title and
// the owner; the rest travels along for fixtures and event payloads.
type Listing struct {
	ID          ListingID
	Owner       user.ID
	Title       string
	Species     string
	Breed       string
	PetName     string
	Age         int
	Description string
	PhotoURL    string
	CreatedAt   time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	IDsByOwner(ctx context.Context, owner user.ID) ([]ListingID, error)
	Save(ctx context.Context, listing *Listing) error
}

type CreateParams struct {
	ID          ListingID
	Owner       user.ID
	Title       string
	Species     string
	Breed       string
	PetName     string
	Age         int
	Description string
	PhotoURL    string
	CreatedAt   time.Time
}

func NewListing(params CreateParams) (*Listing, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	owner := strings.TrimSpace(string(params.Owner))
	if owner == "" {
		return nil, ErrOwnerRequired
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	return &Listing{
		ID:          ListingID(id),
		Owner:       user.ID(owner),
		Title:       title,
		Species:     strings.TrimSpace(params.Species),
		Breed:       strings.TrimSpace(params.Breed),
		PetName:     strings.TrimSpace(params.PetName),
		Age:         params.Age,
		Description: params.Description,
		PhotoURL:    params.PhotoURL,
		CreatedAt:   now.UTC(),
	}, nil
}
