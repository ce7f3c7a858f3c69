package commerce

import (
	"strings"
	"unicode"

	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
)

const (
	productTable         = "product"
	categoryTable        = "product_category"
	categoryProductTable = "product_category_product"
	optionTable          = "product_option"
	optionValueTable     = "product_option_value"
	variantTable         = "product_variant"
	brandTable           = "brand"
)

// productPrice is the lowest live variant price.
const productPrice = "(SELECT MIN(pv.price) FROM " + variantTable + " pv WHERE pv.product_id = p.id AND pv.deleted_at IS NULL) AS price"

var productColumns = []string{
	"p.id", "p.handle", "p.title", "p.subtitle", "p.description", "p.status", "p.thumbnail",
	"p.material", "p.diameter", "p.brand_id", "p.specs", "p.metadata",
	"p.created_at", "p.updated_at", "p.deleted_at", productPrice,
}

var categoryColumns = []string{
	"c.id", "c.handle", "c.name", "c.description", "c.parent_category_id",
	"c.is_active", "c.is_internal", "c.rank", "c.created_at", "c.updated_at", "c.deleted_at",
}

var brandColumns = []string{
	"b.id", "b.handle", "b.name", "b.created_at", "b.updated_at", "b.deleted_at",
}

// applyFilters adds the ListFilters predicates for a table aliased as alias.
func applyFilters(sb *sqlbuilder.SelectBuilder, alias string, filters models.ListFilters) {
	col := func(name string) string {
		return alias + "." + name
	}
	if len(filters.IDs) > 0 {
		sb.Where(sb.In(col("id"), database.AnyArgs(filters.IDs)...))
	}
	if len(filters.Handles) > 0 {
		sb.Where(sb.In(col("handle"), database.AnyArgs(filters.Handles)...))
	}
	if filters.UpdatedSince != nil {
		// a deletion bumps deleted_at, not always updated_at
		sb.Where(sb.Or(
			sb.GreaterEqualThan(col("updated_at"), *filters.UpdatedSince),
			sb.GreaterEqualThan(col("deleted_at"), *filters.UpdatedSince),
		))
	}
	if !filters.WithDeleted() {
		sb.Where(sb.IsNull(col("deleted_at")))
	}
}

func listProductsQuery(filters models.ListFilters, limit, offset int) (string, []any) {
	sb := database.NewSelectBuilder()
	sb.Select(productColumns...)
	sb.From(productTable + " p")
	applyFilters(sb, "p", filters)
	sb.OrderBy("p.id")
	sb.Limit(limit)
	sb.Offset(offset)
	return sb.Build()
}

func getProductQuery(id string) (string, []any) {
	sb := database.NewSelectBuilder()
	sb.Select(productColumns...)
	sb.From(productTable + " p")
	sb.Where(sb.Equal("p.id", id))
	return sb.Build()
}

func productCategoriesQuery(productIDs []string) (string, []any) {
	sb := database.NewSelectBuilder()
	sb.Select("pcp.product_id", "pcp.product_category_id")
	sb.From(categoryProductTable + " pcp")
	sb.Where(sb.In("pcp.product_id", database.AnyArgs(productIDs)...))
	sb.OrderBy("pcp.product_id", "pcp.product_category_id")
	return sb.Build()
}

func productOptionsQuery(productIDs []string) (string, []any) {
	sb := database.NewSelectBuilder()
	sb.Select("o.product_id", "o.title", "v.value")
	sb.From(optionTable + " o")
	sb.Join(optionValueTable+" v", "v.option_id = o.id")
	sb.Where(
		sb.In("o.product_id", database.AnyArgs(productIDs)...),
		sb.IsNull("o.deleted_at"),
		sb.IsNull("v.deleted_at"),
	)
	sb.OrderBy("o.product_id", "o.title", "v.value")
	return sb.Build()
}

func listCategoriesQuery(filters models.ListFilters, limit, offset int) (string, []any) {
	sb := database.NewSelectBuilder()
	sb.Select(categoryColumns...)
	sb.From(categoryTable + " c")
	applyFilters(sb, "c", filters)
	sb.OrderBy("c.id")
	sb.Limit(limit)
	sb.Offset(offset)
	return sb.Build()
}

func getCategoryQuery(id string) (string, []any) {
	sb := database.NewSelectBuilder()
	sb.Select(categoryColumns...)
	sb.From(categoryTable + " c")
	sb.Where(sb.Equal("c.id", id))
	return sb.Build()
}

func allCategoriesQuery() (string, []any) {
	sb := database.NewSelectBuilder()
	sb.Select(categoryColumns...)
	sb.From(categoryTable + " c")
	sb.Where(sb.IsNull("c.deleted_at"))
	sb.OrderBy("c.rank", "c.id")
	return sb.Build()
}

func categoriesByIDsQuery(ids []string) (string, []any) {
	sb := database.NewSelectBuilder()
	sb.Select(categoryColumns...)
	sb.From(categoryTable + " c")
	sb.Where(sb.In("c.id", database.AnyArgs(ids)...))
	sb.OrderBy("c.id")
	return sb.Build()
}

// countByCategoryQuery counts published, undeleted products per category.
func countByCategoryQuery() (string, []any) {
	sb := database.NewSelectBuilder()
	sb.Select("pcp.product_category_id AS id", "COUNT(DISTINCT p.id) AS count")
	sb.From(categoryProductTable + " pcp")
	sb.Join(productTable+" p", "p.id = pcp.product_id")
	sb.Where(
		sb.Equal("p.status", models.ProductStatusPublished),
		sb.IsNull("p.deleted_at"),
	)
	sb.GroupBy("pcp.product_category_id")
	return sb.Build()
}

func countByBrandQuery(brandIDs []string) (string, []any) {
	sb := database.NewSelectBuilder()
	sb.Select("p.brand_id AS id", "COUNT(*) AS count")
	sb.From(productTable + " p")
	sb.Where(
		sb.In("p.brand_id", database.AnyArgs(brandIDs)...),
		sb.Equal("p.status", models.ProductStatusPublished),
		sb.IsNull("p.deleted_at"),
	)
	sb.GroupBy("p.brand_id")
	return sb.Build()
}

func listBrandsQuery(filters models.ListFilters, limit, offset int) (string, []any) {
	sb := database.NewSelectBuilder()
	sb.Select(brandColumns...)
	sb.From(brandTable + " b")
	applyFilters(sb, "b", filters)
	sb.OrderBy("b.id")
	sb.Limit(limit)
	sb.Offset(offset)
	return sb.Build()
}

func getBrandQuery(id string) (string, []any) {
	sb := database.NewSelectBuilder()
	sb.Select(brandColumns...)
	sb.From(brandTable + " b")
	sb.Where(sb.Equal("b.id", id))
	return sb.Build()
}

func brandsByIDsQuery(ids []string) (string, []any) {
	sb := database.NewSelectBuilder()
	sb.Select(brandColumns...)
	sb.From(brandTable + " b")
	sb.Where(sb.In("b.id", database.AnyArgs(ids)...))
	sb.OrderBy("b.id")
	return sb.Build()
}

// OptionKey normalizes an option title into an index attribute suffix: lower case,
// runs of other characters collapsed to a single underscore.
func OptionKey(title string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '-':
			b.WriteRune(r)
			underscore = false
		default:
			if !underscore && b.Len() > 0 {
				b.WriteByte('_')
				underscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}
