package memory

import (
	"context"
	"sync"

	domainlistings "petadopt/internal/domain/listings"
	domainuser "petadopt/internal/domain/user"
)

// ListingRepository keeps adoption postings in memory, in insertion order.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlistings.ListingID]*domainlistings.Listing
	order []domainlistings.ListingID
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{
		items: make(map[domainlistings.ListingID]*domainlistings.Listing),
	}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return nil, domainlistings.ErrNotFound
	}
	return cloneListing(listing), nil
}

func (r *ListingRepository) IDsByOwner(ctx context.Context, owner domainuser.ID) ([]domainlistings.ListingID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]domainlistings.ListingID, 0)
	for _, id := range r.order {
		if r.items[id].Owner == owner {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	if listing == nil {
		return domainlistings.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[listing.ID]; !ok {
		r.order = append(r.order, listing.ID)
	}
	r.items[listing.ID] = cloneListing(listing)
	return nil
}

func cloneListing(l *domainlistings.Listing) *domainlistings.Listing {
	if l == nil {
		return nil
	}
	copyListing := *l
	return &copyListing
}
