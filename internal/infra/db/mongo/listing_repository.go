package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "petadopt/internal/domain/listings"
	domainuser "petadopt/internal/domain/user"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	col := db.Collection("listings")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "owner_id", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &ListingRepository{col: col}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainlistings.ErrNotFound
		}
		return nil, err
	}
	return doc.toEntity(), nil
}

func (r *ListingRepository) IDsByOwner(ctx context.Context, owner domainuser.ID) ([]domainlistings.ListingID, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.col.Find(ctx, bson.M{"owner_id": string(owner)}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	ids := make([]domainlistings.ListingID, 0)
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, domainlistings.ListingID(doc.ID))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	if listing == nil {
		return domainlistings.ErrIDRequired
	}
	doc := newListingDocument(listing)
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

type listingDocument struct {
	ID          string `bson:"_id"`
	OwnerID     string `bson:"owner_id"`
	Title       string `bson:"title"`
	Species     string `bson:"species"`
	Breed       string `bson:"breed"`
	PetName     string `bson:"pet_name"`
	Age         int    `bson:"age"`
	Description string `bson:"description"`
	PhotoURL    string `bson:"photo_url"`
	CreatedAt   int64  `bson:"created_at"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	return listingDocument{
		ID:          string(l.ID),
		OwnerID:     string(l.Owner),
		Title:       l.Title,
		Species:     l.Species,
		Breed:       l.Breed,
		PetName:     l.PetName,
		Age:         l.Age,
		Description: l.Description,
		PhotoURL:    l.PhotoURL,
		CreatedAt:   l.CreatedAt.UnixMilli(),
	}
}

func (d listingDocument) toEntity() *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:          domainlistings.ListingID(d.ID),
		Owner:       domainuser.ID(d.OwnerID),
		Title:       d.Title,
		Species:     d.Species,
		Breed:       d.Breed,
		PetName:     d.PetName,
		Age:         d.Age,
		Description: d.Description,
		PhotoURL:    d.PhotoURL,
		CreatedAt:   timestampToTime(d.CreatedAt),
	}
}
