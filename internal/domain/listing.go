package domain

import (
	"encoding/json"
	"time"
)

const DefaultStatus = "Available"

// Top-level keys owned by the server. Clients can send them but they never
// reach Attributes.
const (
	KeyID         = "_id"
	KeyVersion    = "__v"
	KeyPropertyID = "propertyId"
	KeySeq        = "propertySeq"
	KeyMetadata   = "metadata"
)

var reservedKeys = map[string]struct{}{
	KeyID: {}, KeyVersion: {}, KeyPropertyID: {}, KeySeq: {}, KeyMetadata: {},
}

func IsReservedKey(k string) bool {
	_, ok := reservedKeys[k]
	return ok
}

type Metadata struct {
	CreatedBy    string     `json:"createdBy"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	Status       string     `json:"status"`
	PropertyType string     `json:"propertyType"`
	PropertyName string     `json:"propertyName,omitempty"`
}

// Listing is one persisted property document. Attributes carries every
// category-specific group (basicInformation, propertyDetails, media, ...).
type Listing struct {
	ID         string
	Kind       string // Kind.Path
	PropertyID string
	Seq        int64
	Version    int
	Metadata   Metadata
	Attributes map[string]any
}

// Clone deep-copies the attribute tree so callers can mutate freely.
func (l Listing) Clone() Listing {
	out := l
	out.Attributes = CloneMap(l.Attributes)
	if l.Metadata.UpdatedAt != nil {
		t := *l.Metadata.UpdatedAt
		out.Metadata.UpdatedAt = &t
	}
	return out
}

func (l Listing) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(l.Attributes)+4)
	for k, v := range l.Attributes {
		m[k] = v
	}
	m[KeyID] = l.ID
	m[KeyPropertyID] = l.PropertyID
	m[KeyVersion] = l.Version
	m[KeyMetadata] = l.Metadata
	return json.Marshal(m)
}

// UnmarshalJSON restores what MarshalJSON wrote. Kind and Seq are not part
// of the wire form; callers that know the kind set them.
func (l *Listing) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*l = Listing{Attributes: make(map[string]any, len(raw))}
	for k, v := range raw {
		var err error
		switch k {
		case KeyID:
			err = json.Unmarshal(v, &l.ID)
		case KeyPropertyID:
			err = json.Unmarshal(v, &l.PropertyID)
		case KeyVersion:
			err = json.Unmarshal(v, &l.Version)
		case KeyMetadata:
			err = json.Unmarshal(v, &l.Metadata)
		case KeySeq:
			err = json.Unmarshal(v, &l.Seq)
		default:
			var a any
			err = json.Unmarshal(v, &a)
			l.Attributes[k] = a
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// CloneMap deep-copies nested maps and slices; scalars are shared.
func CloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		s := make([]any, len(t))
		for i := range t {
			s[i] = cloneValue(t[i])
		}
		return s
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

type ListQuery struct {
	Page  int
	Limit int
}

type ListingsPage struct {
	Items []Listing `json:"items"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}
