// Package filters compiles storefront filter and sort selections into search engine
// filter expressions. Nothing here returns an error: unknown or malformed input drops
// the affected dimension.
package filters

import (
	"fmt"
	"sort"
	"strings"
)

const (
	FieldCategory = "category_ids"
	FieldMaterial = "material"
	FieldDiameter = "diameter"
	FieldBrand    = "brand_id"
	FieldPrice    = "price"
)

// Selection is the storefront's filter state. Options is keyed by option name without
// the option_ prefix.
type Selection struct {
	Categories   []string            `json:"categories,omitempty"`
	Materials    []string            `json:"materials,omitempty"`
	Diameters    []string            `json:"diameters,omitempty"`
	Brands       []string            `json:"brands,omitempty"`
	PriceBuckets []string            `json:"price_buckets,omitempty"`
	Options      map[string][]string `json:"options,omitempty"`
	Sort         string              `json:"sort,omitempty"`
}

// Compiled is the engine-facing form of a Selection. An empty Filter means no filter
// and must be omitted from the engine request.
type Compiled struct {
	Filter string
	Sort   []string
}

func (c Compiled) HasFilter() bool {
	return c.Filter != ""
}

var priceBuckets = map[string]string{
	"under-100":      "price <= 100",
	"100-500":        "price 100 TO 500",
	"500-1000":       "price 500 TO 1000",
	"more-than-1000": "price >= 1000",
}

var sortTokens = map[string][]string{
	"price-asc":  {"price:asc"},
	"price-desc": {"price:desc"},
	"newest":     {"created_at:desc"},
	"oldest":     {"created_at:asc"},
	"title-asc":  {"title:asc"},
	"title-desc": {"title:desc"},
}

// Compile builds one parenthesized OR-group per non-empty dimension and joins the
// groups with AND. Dimension order is fixed so equal selections compile identically.
func Compile(sel Selection) Compiled {
	return compile(sel, nil)
}

// CompileFilterable is Compile for an index whose filterable attributes are known.
// Option keys whose option_<key> attribute is not in filterable produce no group, since
// the engine rejects the whole filter when any attribute in it is not filterable.
func CompileFilterable(sel Selection, filterable []string) Compiled {
	allowed := make(map[string]struct{}, len(filterable))
	for _, attr := range filterable {
		allowed[attr] = struct{}{}
	}
	return compile(sel, allowed)
}

// compile accepts every well-formed option key when allowed is nil.
func compile(sel Selection, allowed map[string]struct{}) Compiled {
	var groups []string

	groups = appendGroup(groups, equalityGroup(FieldCategory, sel.Categories))
	groups = appendGroup(groups, equalityGroup(FieldMaterial, sel.Materials))
	groups = appendGroup(groups, equalityGroup(FieldDiameter, sel.Diameters))
	groups = appendGroup(groups, equalityGroup(FieldBrand, sel.Brands))
	groups = appendGroup(groups, priceGroup(sel.PriceBuckets))

	keys := make([]string, 0, len(sel.Options))
	for key := range sel.Options {
		if !validOptionKey(key) {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[optionField(key)]; !ok {
				continue
			}
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		groups = appendGroup(groups, equalityGroup(optionField(key), sel.Options[key]))
	}

	return Compiled{
		Filter: strings.Join(groups, " AND "),
		Sort:   CompileSort(sel.Sort),
	}
}

// CompileSort maps a sort token to engine sort directives. Unknown tokens return nil,
// leaving relevance ordering to the engine.
func CompileSort(token string) []string {
	directives, ok := sortTokens[strings.ToLower(strings.TrimSpace(token))]
	if !ok {
		return nil
	}
	return append([]string(nil), directives...)
}

// PriceBucket returns the predicate for a bucket token.
func PriceBucket(token string) (string, bool) {
	predicate, ok := priceBuckets[strings.TrimSpace(token)]
	return predicate, ok
}

func appendGroup(groups []string, group string) []string {
	if group == "" {
		return groups
	}
	return append(groups, group)
}

func equalityGroup(field string, values []string) string {
	values = clean(values)
	if len(values) == 0 {
		return ""
	}
	terms := make([]string, len(values))
	for i, v := range values {
		terms[i] = fmt.Sprintf("%s = %s", field, quote(v))
	}
	return "(" + strings.Join(terms, " OR ") + ")"
}

func priceGroup(tokens []string) string {
	var terms []string
	for _, token := range clean(tokens) {
		if predicate, ok := PriceBucket(token); ok {
			terms = append(terms, predicate)
		}
	}
	if len(terms) == 0 {
		return ""
	}
	return "(" + strings.Join(terms, " OR ") + ")"
}

func optionField(key string) string {
	return OptionPrefix + key
}

// clean trims values, drops blanks and removes duplicates keeping first occurrence.
func clean(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(v string) string {
	return `"` + quoteReplacer.Replace(v) + `"`
}
