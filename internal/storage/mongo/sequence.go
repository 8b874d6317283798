package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Sequences keeps {_id: prefix, seq} counter documents.
type Sequences struct{ col *mongo.Collection }

func NewSequences(db *mongo.Database) *Sequences {
	return &Sequences{col: db.Collection(countersCollection)}
}

func (q *Sequences) Seed(ctx context.Context, prefix string, floor int64) error {
	_, err := q.col.UpdateOne(ctx,
		bson.M{"_id": prefix},
		bson.M{"$max": bson.M{"seq": floor}},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		// a concurrent upsert created the document first; apply $max to it
		_, err = q.col.UpdateOne(ctx, bson.M{"_id": prefix}, bson.M{"$max": bson.M{"seq": floor}})
	}
	return err
}

func (q *Sequences) Current(ctx context.Context, prefix string) (int64, error) {
	var c counterDoc
	err := q.col.FindOne(ctx, bson.M{"_id": prefix}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return c.Seq, nil
}

// Next increments and returns the counter in one round trip.
func (q *Sequences) Next(ctx context.Context, prefix string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var c counterDoc
	err := q.col.FindOneAndUpdate(ctx, bson.M{"_id": prefix}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&c)
	if mongo.IsDuplicateKeyError(err) {
		err = q.col.FindOneAndUpdate(ctx, bson.M{"_id": prefix}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&c)
	}
	if err != nil {
		return 0, err
	}
	return c.Seq, nil
}
