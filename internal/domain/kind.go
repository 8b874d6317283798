package domain

import (
	"sort"
	"strings"
)

// Kind is one property-type/transaction-type combination. Every kind owns
// its own collection and its own PropertyId prefix.
type Kind struct {
	Category    string `json:"category"`
	Transaction string `json:"transaction"`
	Subtype     string `json:"subtype"`
	Prefix      string `json:"prefix"`
	Path        string `json:"path"`
	Collection  string `json:"collection"`
	Label       string `json:"label"`
}

type code struct{ slug, code, label string }

var (
	categories = []code{
		{"commercial", "COM", "Commercial"},
		{"residential", "RES", "Residential"},
	}
	transactions = []code{
		{"rent", "RE", "Rent"},
		{"sell", "SE", "Sell"},
		{"lease", "LE", "Lease"},
	}
	subtypes = map[string][]code{
		"commercial": {
			{"office", "OF", "Office"},
			{"shop", "SH", "Shop"},
			{"warehouse", "WA", "Warehouse"},
			{"plot", "PL", "Plot"},
			{"showroom", "SR", "Showroom"},
			{"agriculture", "AG", "Agriculture"},
			{"industrial", "IN", "Industrial"},
			{"others", "OT", "Others"},
		},
		"residential": {
			{"apartment", "AP", "Apartment"},
			{"independent-house", "IH", "Independent House"},
			{"builder-floor", "BF", "Builder Floor"},
			{"plot", "PL", "Plot"},
			{"penthouse", "PH", "Penthouse"},
			{"villa", "VI", "Villa"},
			{"others", "OT", "Others"},
		},
	}
)

const prefixRoot = "RA-"

var (
	catalog      []Kind
	kindByPath   map[string]Kind
	kindByPrefix map[string]Kind
)

func init() {
	kindByPath = make(map[string]Kind)
	kindByPrefix = make(map[string]Kind)
	for _, c := range categories {
		for _, t := range transactions {
			for _, s := range subtypes[c.slug] {
				k := Kind{
					Category:    c.slug,
					Transaction: t.slug,
					Subtype:     s.slug,
					Prefix:      prefixRoot + c.code + t.code + s.code,
					Path:        c.slug + "/" + t.slug + "/" + s.slug,
					Collection:  strings.ReplaceAll(c.slug+"_"+t.slug+"_"+s.slug, "-", "_"),
					Label:       c.label + " " + t.label + " " + s.label,
				}
				catalog = append(catalog, k)
				kindByPath[k.Path] = k
				kindByPrefix[k.Prefix] = k
			}
		}
	}
	sort.Slice(catalog, func(i, j int) bool { return catalog[i].Path < catalog[j].Path })
}

// Kinds returns the catalog sorted by path. The slice is a copy.
func Kinds() []Kind {
	out := make([]Kind, len(catalog))
	copy(out, catalog)
	return out
}

// LookupKind resolves "commercial/lease/others" (leading/trailing slashes ignored).
func LookupKind(path string) (Kind, bool) {
	k, ok := kindByPath[strings.ToLower(strings.Trim(path, "/"))]
	return k, ok
}

func KindByPrefix(prefix string) (Kind, bool) {
	k, ok := kindByPrefix[prefix]
	return k, ok
}

// KindOfPropertyID finds the kind whose prefix starts id.
func KindOfPropertyID(id string) (Kind, bool) {
	n := len(prefixRoot) + 7 // category(3) + transaction(2) + subtype(2)
	if len(id) <= n {
		return Kind{}, false
	}
	k, ok := KindByPrefix(id[:n])
	if !ok {
		return Kind{}, false
	}
	if _, ok := ParsePropertyID(k.Prefix, id); !ok {
		return Kind{}, false
	}
	return k, true
}
