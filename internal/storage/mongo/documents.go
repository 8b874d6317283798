package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"realestate/internal/domain"
)

// listingDoc is the stored shape of a listing: the identity fields and the
// metadata block are typed, every other top-level group is inlined.
type listingDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	PropertyID  string             `bson:"propertyId"`
	PropertySeq int64              `bson:"propertySeq"`
	Version     int                `bson:"__v"`
	Metadata    metadataDoc        `bson:"metadata"`
	Attributes  bson.M             `bson:",inline"`
}

type metadataDoc struct {
	CreatedBy    string     `bson:"createdBy"`
	CreatedAt    time.Time  `bson:"createdAt"`
	UpdatedAt    *time.Time `bson:"updatedAt,omitempty"`
	Status       string     `bson:"status"`
	PropertyType string     `bson:"propertyType"`
	PropertyName string     `bson:"propertyName,omitempty"`
}

// counterDoc holds the last number handed out for one prefix.
type counterDoc struct {
	Prefix string `bson:"_id"`
	Seq    int64  `bson:"seq"`
}

const countersCollection = "counters"

func toDoc(l domain.Listing) listingDoc {
	d := listingDoc{
		PropertyID:  l.PropertyID,
		PropertySeq: l.Seq,
		Version:     l.Version,
		Metadata:    metadataDoc(l.Metadata),
		Attributes:  bson.M{},
	}
	for k, v := range l.Attributes {
		if !domain.IsReservedKey(k) {
			d.Attributes[k] = v
		}
	}
	if oid, err := primitive.ObjectIDFromHex(l.ID); err == nil {
		d.ID = oid
	}
	return d
}

func fromDoc(k domain.Kind, d listingDoc) domain.Listing {
	attrs := make(map[string]any, len(d.Attributes))
	for key, v := range d.Attributes {
		attrs[key] = normalize(v)
	}
	md := domain.Metadata(d.Metadata)
	md.CreatedAt = md.CreatedAt.UTC()
	if md.UpdatedAt != nil {
		t := md.UpdatedAt.UTC()
		md.UpdatedAt = &t
	}
	return domain.Listing{
		ID:         d.ID.Hex(),
		Kind:       k.Path,
		PropertyID: d.PropertyID,
		Seq:        d.PropertySeq,
		Version:    d.Version,
		Metadata:   md,
		Attributes: attrs,
	}
}

// normalize turns driver types into the plain Go values the rest of the
// code (deep merge, JSON) expects.
func normalize(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = normalize(x)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = normalize(x)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = normalize(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = normalize(x)
		}
		return out
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case int32:
		return int64(t)
	default:
		return v
	}
}
