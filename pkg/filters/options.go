package filters

import (
	"net/url"
	"strings"
)

// OptionPrefix marks dynamic per-product option parameters and index attributes.
const OptionPrefix = "option_"

// ParseOptionFilters turns flat option_<key>=v1,v2 parameters into option lists.
// Keys without the prefix, with an empty or unsafe remainder, or whose values are all
// blank produce no entry.
func ParseOptionFilters(params map[string]string) map[string][]string {
	out := map[string][]string{}
	for rawKey, rawValue := range params {
		key, ok := optionKey(rawKey)
		if !ok {
			continue
		}
		values := clean(strings.Split(rawValue, ","))
		if len(values) == 0 {
			continue
		}
		out[key] = values
	}
	return out
}

// SelectionFromQuery reads a Selection from storefront query parameters. Every list
// parameter accepts comma-joined values, repeated parameters, or both.
func SelectionFromQuery(q url.Values) Selection {
	sel := Selection{
		Categories:   listParam(q, "category"),
		Materials:    listParam(q, "material"),
		Diameters:    listParam(q, "diameter"),
		Brands:       listParam(q, "brand"),
		PriceBuckets: listParam(q, "price"),
		Sort:         strings.TrimSpace(q.Get("sort")),
	}

	flat := map[string]string{}
	for key, values := range q {
		if strings.HasPrefix(key, OptionPrefix) {
			flat[key] = strings.Join(values, ",")
		}
	}
	if options := ParseOptionFilters(flat); len(options) > 0 {
		sel.Options = options
	}
	return sel
}

func listParam(q url.Values, name string) []string {
	var out []string
	for _, v := range q[name] {
		out = append(out, strings.Split(v, ",")...)
	}
	return clean(out)
}

func optionKey(rawKey string) (string, bool) {
	if !strings.HasPrefix(rawKey, OptionPrefix) {
		return "", false
	}
	key := strings.TrimPrefix(rawKey, OptionPrefix)
	return key, validOptionKey(key)
}

func validOptionKey(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
