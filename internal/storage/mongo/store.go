package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"realestate/internal/domain"
)

// Store keeps one collection per listing kind.
type Store struct{ db *mongo.Database }

func New(db *mongo.Database) *Store { return &Store{db: db} }

func (s *Store) col(k domain.Kind) *mongo.Collection { return s.db.Collection(k.Collection) }

// MaxSeq returns the highest numeric suffix among ids of this kind's prefix.
// propertySeq is compared as a number, so ...10000 ranks above ...9999.
func (s *Store) MaxSeq(ctx context.Context, k domain.Kind) (int64, error) {
	filter := bson.M{
		"propertyId":  bson.M{"$regex": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(k.Prefix) + `\d+$`}},
		"propertySeq": bson.M{"$gt": 0},
	}
	opts := options.FindOne().
		SetSort(bson.D{{Key: "propertySeq", Value: -1}}).
		SetProjection(bson.M{"propertySeq": 1})

	var d listingDoc
	err := s.col(k).FindOne(ctx, filter, opts).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("max seq %s: %w", k.Collection, err)
	}
	return d.PropertySeq, nil
}

func (s *Store) Exists(ctx context.Context, k domain.Kind, propertyID string) (bool, error) {
	n, err := s.col(k).CountDocuments(ctx, bson.M{"propertyId": propertyID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Insert(ctx context.Context, k domain.Kind, l *domain.Listing) error {
	d := toDoc(*l)
	d.ID = primitive.NewObjectID()
	if _, err := s.col(k).InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicatePropertyID
		}
		return err
	}
	l.ID = d.ID.Hex()
	l.Kind = k.Path
	return nil
}

// Replace writes the merged document with $set. Identity fields
// (_id, propertyId, propertySeq, __v) are never part of the update.
func (s *Store) Replace(ctx context.Context, k domain.Kind, l domain.Listing) error {
	oid, err := primitive.ObjectIDFromHex(l.ID)
	if err != nil {
		return domain.ErrNotFound
	}
	// identity comes from the stored document, never from l
	var cur listingDoc
	err = s.col(k).FindOne(ctx, bson.M{"_id": oid},
		options.FindOne().SetProjection(bson.M{"propertyId": 1, "propertySeq": 1, "__v": 1}),
	).Decode(&cur)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}

	d := toDoc(l)
	d.ID, d.PropertyID, d.PropertySeq, d.Version = oid, cur.PropertyID, cur.PropertySeq, cur.Version
	res, err := s.col(k).ReplaceOne(ctx, bson.M{"_id": oid, "propertyId": cur.PropertyID}, d)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, k domain.Kind, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}
	res, err := s.col(k).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, k domain.Kind, id string) (domain.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Listing{}, domain.ErrNotFound
	}
	return s.findOne(ctx, k, bson.M{"_id": oid})
}

func (s *Store) GetByPropertyID(ctx context.Context, k domain.Kind, propertyID string) (domain.Listing, error) {
	return s.findOne(ctx, k, bson.M{"propertyId": propertyID})
}

func (s *Store) findOne(ctx context.Context, k domain.Kind, filter bson.M) (domain.Listing, error) {
	var d listingDoc
	err := s.col(k).FindOne(ctx, filter).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Listing{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Listing{}, err
	}
	return fromDoc(k, d), nil
}

func (s *Store) List(ctx context.Context, k domain.Kind, q domain.ListQuery) (domain.ListingsPage, error) {
	total, err := s.col(k).CountDocuments(ctx, bson.M{})
	if err != nil {
		return domain.ListingsPage{}, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "metadata.createdAt", Value: -1}, {Key: "propertySeq", Value: -1}}).
		SetSkip(int64((q.Page - 1) * q.Limit)).
		SetLimit(int64(q.Limit))
	cur, err := s.col(k).Find(ctx, bson.M{}, opts)
	if err != nil {
		return domain.ListingsPage{}, err
	}
	defer cur.Close(ctx)

	out := domain.ListingsPage{Total: total, Page: q.Page, Limit: q.Limit, Items: []domain.Listing{}}
	for cur.Next(ctx) {
		var d listingDoc
		if err := cur.Decode(&d); err != nil {
			return domain.ListingsPage{}, err
		}
		out.Items = append(out.Items, fromDoc(k, d))
	}
	if err := cur.Err(); err != nil {
		return domain.ListingsPage{}, err
	}
	return out, nil
}

// EnsureIndexes creates the unique propertyId index plus the sort indexes
// for every kind. Safe to run on each start.
func (s *Store) EnsureIndexes(ctx context.Context, kinds []domain.Kind) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "propertyId", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uq_propertyId")},
		{Keys: bson.D{{Key: "propertySeq", Value: -1}}, Options: options.Index().SetName("ix_propertySeq")},
		{Keys: bson.D{{Key: "metadata.createdAt", Value: -1}}, Options: options.Index().SetName("ix_createdAt")},
	}
	for _, k := range kinds {
		if _, err := s.col(k).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("indexes %s: %w", k.Collection, err)
		}
	}
	return nil
}
