package app

import (
	"fmt"
	"strings"
	"time"

	"realestate/internal/domain"
)

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

/********** validation **********/

// groups that must be objects when present
var objectGroups = []string{domain.KeyMetadata, "basicInformation", "media"}

func validateBody(body map[string]any) error {
	if body == nil {
		return domain.Invalid("", "request body must be a JSON object")
	}
	if err := validateKeys("", body); err != nil {
		return err
	}
	for _, g := range objectGroups {
		if v, ok := body[g]; ok && v != nil {
			if _, ok := v.(map[string]any); !ok {
				return domain.Invalid(g, "must be an object")
			}
		}
	}
	if media, ok := body["media"].(map[string]any); ok {
		if err := validateMedia("media", media); err != nil {
			return err
		}
	}
	if md, ok := body[domain.KeyMetadata].(map[string]any); ok {
		for _, f := range []string{"status", "propertyName"} {
			if v, ok := md[f]; ok && v != nil {
				if _, ok := v.(string); !ok {
					return domain.Invalid("metadata."+f, "must be a string")
				}
			}
		}
	}
	return nil
}

// validateKeys rejects field names a document store would read as an
// operator or a path.
func validateKeys(path string, m map[string]any) error {
	for k, v := range m {
		p := k
		if path != "" {
			p = path + "." + k
		}
		if k == "" || strings.HasPrefix(k, "$") || strings.Contains(k, ".") {
			return domain.Invalid(p, "field names must be non-empty and may not start with '$' or contain '.'")
		}
		switch t := v.(type) {
		case map[string]any:
			if err := validateKeys(p, t); err != nil {
				return err
			}
		case []any:
			for _, it := range t {
				if sub, ok := it.(map[string]any); ok {
					if err := validateKeys(p, sub); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// media leaves are URL lists: media.photos.<category>, media.videoTour, media.documents.
func validateMedia(path string, m map[string]any) error {
	for k, v := range m {
		p := path + "." + k
		switch t := v.(type) {
		case nil, string:
		case map[string]any:
			if err := validateMedia(p, t); err != nil {
				return err
			}
		case []any:
			for _, it := range t {
				if _, ok := it.(string); !ok {
					return domain.Invalid(p, "must be an array of URL strings")
				}
			}
		default:
			return domain.Invalid(p, "must be a URL string or an array of URL strings")
		}
	}
	return nil
}

/********** body -> listing **********/

// splitBody drops server-owned keys and returns the metadata group separately.
func splitBody(body map[string]any) (attrs map[string]any, md map[string]any) {
	attrs = make(map[string]any, len(body))
	for k, v := range body {
		if k == domain.KeyMetadata {
			md, _ = v.(map[string]any)
			continue
		}
		if domain.IsReservedKey(k) {
			continue
		}
		attrs[k] = v
	}
	return attrs, md
}

func newListing(k domain.Kind, body map[string]any, actor string, now time.Time) (domain.Listing, error) {
	if err := validateBody(body); err != nil {
		return domain.Listing{}, err
	}
	attrs, md := splitBody(domain.CloneMap(body))
	if actor == "" {
		actor = "system"
	}
	l := domain.Listing{
		Kind:       k.Path,
		Attributes: attrs,
		Metadata: domain.Metadata{
			CreatedBy:    actor,
			CreatedAt:    now.UTC(),
			Status:       domain.DefaultStatus,
			PropertyType: k.Label,
		},
	}
	applyMetadataPatch(&l.Metadata, md)
	if l.Metadata.PropertyName == "" {
		l.Metadata.PropertyName = lookupStr(attrs, "basicInformation.title")
	}
	return l, nil
}

// applyMetadataPatch copies the client-editable metadata fields.
// createdAt, createdBy and propertyType are server-owned.
func applyMetadataPatch(dst *domain.Metadata, md map[string]any) {
	if md == nil {
		return
	}
	if s, ok := md["status"].(string); ok && strings.TrimSpace(s) != "" {
		dst.Status = strings.TrimSpace(s)
	}
	if s, ok := md["propertyName"].(string); ok {
		dst.PropertyName = strings.TrimSpace(s)
	}
}

// mergeListing deep-merges patch over cur. _id, __v and propertyId in the
// patch are ignored.
func mergeListing(cur domain.Listing, patch map[string]any, now time.Time) (domain.Listing, error) {
	if err := validateBody(patch); err != nil {
		return domain.Listing{}, err
	}
	out := cur.Clone()
	attrs, md := splitBody(domain.CloneMap(patch))
	if out.Attributes == nil {
		out.Attributes = map[string]any{}
	}
	deepMerge(out.Attributes, attrs)
	applyMetadataPatch(&out.Metadata, md)
	ts := now.UTC()
	out.Metadata.UpdatedAt = &ts
	return out, nil
}

// deepMerge writes src into dst. Nested objects merge key by key; any other
// value (scalars, arrays, null) replaces what was there.
func deepMerge(dst, src map[string]any) {
	for k, sv := range src {
		sm, sIsMap := sv.(map[string]any)
		dm, dIsMap := dst[k].(map[string]any)
		if sIsMap && dIsMap {
			deepMerge(dm, sm)
			continue
		}
		dst[k] = sv
	}
}

/********** legacy documents **********/

// legacyListing maps a document exported by the legacy API. It keeps the
// PropertyId and the original metadata where they can be read.
func legacyListing(k domain.Kind, doc map[string]any, now time.Time) (domain.Listing, error) {
	pid, _ := doc[domain.KeyPropertyID].(string)
	if _, ok := domain.ParsePropertyID(k.Prefix, pid); !ok {
		return domain.Listing{}, fmt.Errorf("%q under %s: %w", pid, k.Prefix, domain.ErrInvalidPropertyID)
	}
	attrs, md := splitBody(domain.CloneMap(doc))
	l := domain.Listing{
		Kind:       k.Path,
		PropertyID: pid,
		Seq:        domain.SeqOf(k.Prefix, pid),
		Attributes: attrs,
		Metadata: domain.Metadata{
			CreatedBy:    "legacy-import",
			CreatedAt:    now.UTC(),
			Status:       domain.DefaultStatus,
			PropertyType: k.Label,
		},
	}
	applyMetadataPatch(&l.Metadata, md)
	if md != nil {
		if s, ok := md["createdBy"].(string); ok && s != "" {
			l.Metadata.CreatedBy = s
		}
		if s, ok := md["createdAt"].(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				l.Metadata.CreatedAt = t.UTC()
			}
		}
	}
	if l.Metadata.PropertyName == "" {
		l.Metadata.PropertyName = lookupStr(attrs, "basicInformation.title")
	}
	return l, nil
}
