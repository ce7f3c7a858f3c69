// Package commerce reads canonical products, categories and brands from the commerce
// platform's Postgres schema. It never writes.
package commerce

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Repository handles canonical entity reads
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new commerce repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type countRow struct {
	ID    string `db:"id"`
	Count int    `db:"count"`
}

// ListProducts returns one page of products ordered by id, with categories and
// options attached.
func (r *Repository) ListProducts(ctx context.Context, filters models.ListFilters, limit, offset int) ([]models.Product, error) {
	ctx, span := tracing.StartSpan(ctx, "commerce.Repository.ListProducts")
	defer span.End()

	query, args := listProductsQuery(filters, limit, offset)
	var products []models.Product
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list products")
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	if err := r.attachRelations(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct returns the product, including soft-deleted rows, or nil when absent.
func (r *Repository) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	ctx, span := tracing.StartSpan(ctx, "commerce.Repository.GetProduct")
	defer span.End()

	query, args := getProductQuery(id)
	var product models.Product
	if err := r.db.GetContext(ctx, &product, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get product")
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}

	products := []models.Product{product}
	if err := r.attachRelations(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// attachRelations loads category memberships and option values for the products.
func (r *Repository) attachRelations(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]string, len(products))
	byID := make(map[string]*models.Product, len(products))
	for i := range products {
		ids[i] = products[i].ID
		byID[products[i].ID] = &products[i]
	}

	query, args := productCategoriesQuery(ids)
	var memberships []struct {
		ProductID  string `db:"product_id"`
		CategoryID string `db:"product_category_id"`
	}
	if err := r.db.SelectContext(ctx, &memberships, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load product categories")
		return fmt.Errorf("failed to load product categories: %w", err)
	}
	for _, m := range memberships {
		if p := byID[m.ProductID]; p != nil {
			p.CategoryIDs = append(p.CategoryIDs, m.CategoryID)
		}
	}

	query, args = productOptionsQuery(ids)
	var options []struct {
		ProductID string `db:"product_id"`
		Title     string `db:"title"`
		Value     string `db:"value"`
	}
	if err := r.db.SelectContext(ctx, &options, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load product options")
		return fmt.Errorf("failed to load product options: %w", err)
	}
	for _, o := range options {
		p := byID[o.ProductID]
		key := OptionKey(o.Title)
		if p == nil || key == "" || o.Value == "" {
			continue
		}
		if p.Options == nil {
			p.Options = map[string][]string{}
		}
		if !contains(p.Options[key], o.Value) {
			p.Options[key] = append(p.Options[key], o.Value)
		}
	}
	return nil
}

func (r *Repository) ListCategories(ctx context.Context, filters models.ListFilters, limit, offset int) ([]models.Category, error) {
	ctx, span := tracing.StartSpan(ctx, "commerce.Repository.ListCategories")
	defer span.End()

	query, args := listCategoriesQuery(filters, limit, offset)
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list categories")
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (r *Repository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	ctx, span := tracing.StartSpan(ctx, "commerce.Repository.GetCategory")
	defer span.End()

	query, args := getCategoryQuery(id)
	var category models.Category
	if err := r.db.GetContext(ctx, &category, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get category")
		return nil, fmt.Errorf("failed to get category %s: %w", id, err)
	}
	return &category, nil
}

// ListAllCategories returns every undeleted category; hierarchy computations need the
// whole tree.
func (r *Repository) ListAllCategories(ctx context.Context) ([]models.Category, error) {
	ctx, span := tracing.StartSpan(ctx, "commerce.Repository.ListAllCategories")
	defer span.End()

	query, args := allCategoriesQuery()
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list all categories")
		return nil, fmt.Errorf("failed to list all categories: %w", err)
	}
	return categories, nil
}

func (r *Repository) GetCategoriesByIDs(ctx context.Context, ids []string) ([]models.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ctx, span := tracing.StartSpan(ctx, "commerce.Repository.GetCategoriesByIDs")
	defer span.End()

	query, args := categoriesByIDsQuery(ids)
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get categories")
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

// CountProductsByCategory returns the direct live product count per category id.
func (r *Repository) CountProductsByCategory(ctx context.Context) (map[string]int, error) {
	ctx, span := tracing.StartSpan(ctx, "commerce.Repository.CountProductsByCategory")
	defer span.End()

	query, args := countByCategoryQuery()
	return r.counts(ctx, query, args, "category")
}

func (r *Repository) CountProductsByBrand(ctx context.Context, brandIDs []string) (map[string]int, error) {
	if len(brandIDs) == 0 {
		return map[string]int{}, nil
	}
	ctx, span := tracing.StartSpan(ctx, "commerce.Repository.CountProductsByBrand")
	defer span.End()

	query, args := countByBrandQuery(brandIDs)
	return r.counts(ctx, query, args, "brand")
}

func (r *Repository) counts(ctx context.Context, query string, args []any, kind string) (map[string]int, error) {
	var rows []countRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Errorf("Failed to count products by %s", kind)
		return nil, fmt.Errorf("failed to count products by %s: %w", kind, err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.ID] = row.Count
	}
	return counts, nil
}

func (r *Repository) ListBrands(ctx context.Context, filters models.ListFilters, limit, offset int) ([]models.Brand, error) {
	ctx, span := tracing.StartSpan(ctx, "commerce.Repository.ListBrands")
	defer span.End()

	query, args := listBrandsQuery(filters, limit, offset)
	var brands []models.Brand
	if err := r.db.SelectContext(ctx, &brands, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list brands")
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	return brands, nil
}

func (r *Repository) GetBrand(ctx context.Context, id string) (*models.Brand, error) {
	ctx, span := tracing.StartSpan(ctx, "commerce.Repository.GetBrand")
	defer span.End()

	query, args := getBrandQuery(id)
	var brand models.Brand
	if err := r.db.GetContext(ctx, &brand, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get brand")
		return nil, fmt.Errorf("failed to get brand %s: %w", id, err)
	}
	return &brand, nil
}

func (r *Repository) GetBrandsByIDs(ctx context.Context, ids []string) ([]models.Brand, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ctx, span := tracing.StartSpan(ctx, "commerce.Repository.GetBrandsByIDs")
	defer span.End()

	query, args := brandsByIDsQuery(ids)
	var brands []models.Brand
	if err := r.db.SelectContext(ctx, &brands, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get brands")
		return nil, fmt.Errorf("failed to get brands: %w", err)
	}
	return brands, nil
}

// Ping checks the connection for readiness probes.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
