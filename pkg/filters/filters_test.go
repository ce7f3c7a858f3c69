package filters

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompile_EmptySelection(t *testing.T) {
	compiled := Compile(Selection{})
	assert.Equal(t, "", compiled.Filter)
	assert.False(t, compiled.HasFilter())
	assert.Nil(t, compiled.Sort)
}

func TestCompile_SingleDimension(t *testing.T) {
	compiled := Compile(Selection{Materials: []string{"steel", "brass"}})
	assert.Equal(t, `(material = "steel" OR material = "brass")`, compiled.Filter)
	assert.True(t, compiled.HasFilter())
}

func TestCompile_MultipleDimensions(t *testing.T) {
	compiled := Compile(Selection{
		Categories:   []string{"pcat_1"},
		Diameters:    []string{"10mm", "12mm"},
		PriceBuckets: []string{"under-100", "more-than-1000"},
		Options:      map[string][]string{"size": {"M"}, "color": {"red", "blue"}},
	})

	assert.Equal(t,
		`(category_ids = "pcat_1") AND (diameter = "10mm" OR diameter = "12mm") AND (price <= 100 OR price >= 1000) AND (option_color = "red" OR option_color = "blue") AND (option_size = "M")`,
		compiled.Filter)
	assert.Equal(t, 5, strings.Count(compiled.Filter, "("))
	assert.Equal(t, 4, strings.Count(compiled.Filter, " AND "))
}

func TestCompile_GroupPerNonEmptyDimension(t *testing.T) {
	dims := []func(*Selection){
		func(s *Selection) { s.Categories = []string{"c"} },
		func(s *Selection) { s.Materials = []string{"m"} },
		func(s *Selection) { s.Diameters = []string{"d"} },
		func(s *Selection) { s.Brands = []string{"b"} },
		func(s *Selection) { s.PriceBuckets = []string{"100-500"} },
		func(s *Selection) { s.Options = map[string][]string{"finish": {"matte"}} },
	}

	// every subset of dimensions
	for mask := 0; mask < 1<<len(dims); mask++ {
		var sel Selection
		selected := 0
		for i, apply := range dims {
			if mask&(1<<i) != 0 {
				apply(&sel)
				selected++
			}
		}

		compiled := Compile(sel)
		if selected == 0 {
			assert.False(t, compiled.HasFilter())
			continue
		}
		groups := strings.Split(compiled.Filter, " AND ")
		assert.Len(t, groups, selected, "mask %b", mask)
		for _, g := range groups {
			assert.True(t, strings.HasPrefix(g, "(") && strings.HasSuffix(g, ")"), "group %q", g)
		}
	}
}

func TestCompile_PriceBuckets(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"under-100", "(price <= 100)"},
		{"100-500", "(price 100 TO 500)"},
		{"500-1000", "(price 500 TO 1000)"},
		{"more-than-1000", "(price >= 1000)"},
		{"between-2-and-3", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			compiled := Compile(Selection{PriceBuckets: []string{tt.token}})
			assert.Equal(t, tt.expected, compiled.Filter)
		})
	}
}

func TestCompile_UnknownPriceTokenIsIgnored(t *testing.T) {
	compiled := Compile(Selection{PriceBuckets: []string{"bogus", "100-500"}})
	assert.Equal(t, "(price 100 TO 500)", compiled.Filter)
}

func TestCompile_QuotesAndDedupes(t *testing.T) {
	compiled := Compile(Selection{Brands: []string{` acme `, `say "hi"`, `back\slash`, "acme", "  "}})
	assert.Equal(t, `(brand_id = "acme" OR brand_id = "say \"hi\"" OR brand_id = "back\\slash")`, compiled.Filter)
}

func TestCompile_InvalidOptionKeyDropped(t *testing.T) {
	compiled := Compile(Selection{Options: map[string][]string{
		"size OR 1=1": {"x"},
		"":            {"y"},
		"ok":          {"", " "},
	}})
	assert.False(t, compiled.HasFilter())
}

func TestCompile_Deterministic(t *testing.T) {
	sel := Selection{
		Options: map[string][]string{"a": {"1"}, "b": {"2"}, "c": {"3"}, "d": {"4"}},
		Brands:  []string{"x"},
	}
	first := Compile(sel).Filter
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Compile(sel).Filter)
	}
}

func TestCompileSort(t *testing.T) {
	assert.Equal(t, []string{"price:asc"}, CompileSort("price-asc"))
	assert.Equal(t, []string{"price:desc"}, CompileSort("PRICE-DESC"))
	assert.Equal(t, []string{"created_at:desc"}, CompileSort("newest"))
	assert.Equal(t, []string{"created_at:asc"}, CompileSort("oldest"))
	assert.Equal(t, []string{"title:asc"}, CompileSort("title-asc"))
	assert.Nil(t, CompileSort("relevance"))
	assert.Nil(t, CompileSort(""))
}

func TestParseOptionFilters(t *testing.T) {
	t.Run("parses prefixed keys", func(t *testing.T) {
		out := ParseOptionFilters(map[string]string{
			"option_size":  "S, M ,L",
			"option_color": "red",
			"material":     "steel",
		})
		assert.Equal(t, map[string][]string{
			"size":  {"S", "M", "L"},
			"color": {"red"},
		}, out)
	})

	t.Run("empty values produce no entry", func(t *testing.T) {
		out := ParseOptionFilters(map[string]string{
			"option_size":  "",
			"option_color": " , ,",
		})
		assert.Empty(t, out)
	})

	t.Run("unsafe keys are ignored", func(t *testing.T) {
		out := ParseOptionFilters(map[string]string{
			"option_":           "x",
			"option_a b":        "x",
			"option_a\"=1 OR":   "x",
			"option_fine-key_2": "x",
		})
		assert.Equal(t, map[string][]string{"fine-key_2": {"x"}}, out)
	})
}

func TestSelectionFromQuery(t *testing.T) {
	q, err := url.ParseQuery("category=c1,c2&category=c3&material=&brand=b1&price=under-100&sort=newest&option_size=M,L&option_=x&q=ignored")
	assert.NoError(t, err)

	sel := SelectionFromQuery(q)
	assert.Equal(t, []string{"c1", "c2", "c3"}, sel.Categories)
	assert.Empty(t, sel.Materials)
	assert.Equal(t, []string{"b1"}, sel.Brands)
	assert.Equal(t, []string{"under-100"}, sel.PriceBuckets)
	assert.Equal(t, "newest", sel.Sort)
	assert.Equal(t, map[string][]string{"size": {"M", "L"}}, sel.Options)

	compiled := Compile(sel)
	assert.Equal(t,
		`(category_ids = "c1" OR category_ids = "c2" OR category_ids = "c3") AND (brand_id = "b1") AND (price <= 100) AND (option_size = "M" OR option_size = "L")`,
		compiled.Filter)
	assert.Equal(t, []string{"created_at:desc"}, compiled.Sort)
}

func TestSelectionFromQuery_NoParams(t *testing.T) {
	sel := SelectionFromQuery(url.Values{})
	assert.Nil(t, sel.Options)
	assert.False(t, Compile(sel).HasFilter())
}

func TestCompileFilterable_DropsUndeclaredOptions(t *testing.T) {
	q, err := url.ParseQuery("option_weight=5kg&material=pla")
	assert.NoError(t, err)

	compiled := CompileFilterable(SelectionFromQuery(q), []string{"material", "option_size"})
	assert.Equal(t, `(material = "pla")`, compiled.Filter)
}

func TestCompileFilterable_KeepsDeclaredOptions(t *testing.T) {
	sel := Selection{
		Brands:  []string{"b1"},
		Options: map[string][]string{"size": {"M"}, "weight": {"5kg"}},
	}

	compiled := CompileFilterable(sel, []string{"brand_id", "option_size"})
	assert.Equal(t, `(brand_id = "b1") AND (option_size = "M")`, compiled.Filter)
}

func TestCompileFilterable_NothingDeclared(t *testing.T) {
	sel := Selection{Options: map[string][]string{"size": {"M"}}}

	compiled := CompileFilterable(sel, nil)
	assert.False(t, compiled.HasFilter())
}
