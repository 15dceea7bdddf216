package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lamnguyen/vestika-backend/internal/inventory"
	"github.com/lamnguyen/vestika-backend/pkg/db"
	"github.com/lamnguyen/vestika-backend/pkg/db/models"
	pkgerrors "github.com/lamnguyen/vestika-backend/pkg/errors"
	"github.com/lamnguyen/vestika-backend/pkg/pagination"
)

// Service defines catalog operations for products, categories and variants.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	ListProducts(ctx context.Context, params ListProductsParams) (*ListProductsResult, error)

	CreateCategory(ctx context.Context, input CategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)

	AddVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*models.ProductVariant, error)
	UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, input UpdateVariantInput) (*models.ProductVariant, error)
	DeleteVariant(ctx context.Context, productID, variantID uuid.UUID) error
	ListVariants(ctx context.Context, productID uuid.UUID) ([]models.ProductVariant, error)
	RestockVariant(ctx context.Context, productID, variantID uuid.UUID, qty int) (*models.ProductVariant, error)
}

type service struct {
	repo      Repository
	inventory inventory.Repository
	tx        db.TxRunner
}

// CreateProductInput carries a new product plus its initial variants.
type CreateProductInput struct {
	Name          string
	Slug          string
	Description   string
	Price         decimal.Decimal
	OriginalPrice *decimal.Decimal
	Images        []string
	Featured      bool
	CategoryID    uuid.UUID
	Variants      []VariantInput
}

// UpdateProductInput applies partial updates; nil fields are left unchanged.
type UpdateProductInput struct {
	Name          *string
	Slug          *string
	Description   *string
	Price         *decimal.Decimal
	OriginalPrice *decimal.Decimal
	Images        []string
	Featured      *bool
	CategoryID    *uuid.UUID
}

type CategoryInput struct {
	Name        string
	Slug        string
	Description *string
	Image       *string
}

type VariantInput struct {
	Color string
	Size  string
	Stock int
	SKU   *string
}

type UpdateVariantInput struct {
	Color *string
	Size  *string
	Stock *int
	SKU   *string
}

type ListProductsParams struct {
	CategorySlug string
	Featured     *bool
	Search       string
	Limit        int
	Cursor       string
}

type ListProductsResult struct {
	Items  []models.Product `json:"items"`
	Cursor string           `json:"cursor"`
}

// NewService wires catalog dependencies.
func NewService(repo Repository, inventoryRepo inventory.Repository, tx db.TxRunner) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "products repository required")
	}
	if inventoryRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	return &service{repo: repo, inventory: inventoryRepo, tx: tx}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.CategoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id required")
	}
	if err := validateVariantSet(input.Variants); err != nil {
		return nil, err
	}

	category, err := s.repo.FindCategoryByID(ctx, input.CategoryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	if category == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}

	slug := input.Slug
	if slug == "" {
		slug = Slugify(input.Name)
	}

	product := &models.Product{
		Name:          input.Name,
		Slug:          slug,
		Description:   input.Description,
		Price:         input.Price,
		OriginalPrice: input.OriginalPrice,
		Images:        input.Images,
		Featured:      input.Featured,
		CategoryID:    input.CategoryID,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateProduct(ctx, product); err != nil {
			return err
		}
		variants := make([]models.ProductVariant, 0, len(input.Variants))
		for _, v := range input.Variants {
			variants = append(variants, models.ProductVariant{
				ProductID: product.ID,
				Color:     v.Color,
				Size:      v.Size,
				Stock:     v.Stock,
				SKU:       v.SKU,
			})
		}
		return repo.CreateVariants(ctx, variants)
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("product slug %q already exists", slug))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}

	return s.GetProductByID(ctx, product.ID)
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	product, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Slug != nil {
		product.Slug = *input.Slug
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		product.Price = *input.Price
	}
	if input.OriginalPrice != nil {
		product.OriginalPrice = input.OriginalPrice
	}
	if input.Images != nil {
		product.Images = input.Images
	}
	if input.Featured != nil {
		product.Featured = *input.Featured
	}
	if input.CategoryID != nil {
		category, err := s.repo.FindCategoryByID(ctx, *input.CategoryID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}
		if category == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		product.CategoryID = *input.CategoryID
	}

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("product slug %q already exists", product.Slug))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return s.GetProductByID(ctx, id)
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.DeleteProduct(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (s *service) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	product, err := s.repo.FindProductBySlug(ctx, slug)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %q not found", slug))
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, params ListProductsParams) (*ListProductsResult, error) {
	query := listProductsParams{
		Featured: params.Featured,
		Search:   strings.ToLower(strings.TrimSpace(params.Search)),
		Limit:    params.Limit,
	}

	if params.CategorySlug != "" {
		category, err := s.repo.FindCategoryBySlug(ctx, params.CategorySlug)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}
		if category == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("category %q not found", params.CategorySlug))
		}
		query.CategoryID = &category.ID
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListProducts(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListProductsResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) CreateCategory(ctx context.Context, input CategoryInput) (*models.Category, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name required")
	}
	slug := input.Slug
	if slug == "" {
		slug = Slugify(input.Name)
	}

	category := &models.Category{
		Name:        input.Name,
		Slug:        slug,
		Description: input.Description,
		Image:       input.Image,
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("category slug %q already exists", slug))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	return category, nil
}

func (s *service) UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*models.Category, error) {
	category, err := s.repo.FindCategoryByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	if category == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}

	if input.Name != "" {
		category.Name = input.Name
	}
	if input.Slug != "" {
		category.Slug = input.Slug
	}
	if input.Description != nil {
		category.Description = input.Description
	}
	if input.Image != nil {
		category.Image = input.Image
	}

	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("category slug %q already exists", category.Slug))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update category")
	}
	return category, nil
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.DeleteCategory(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	return nil
}

func (s *service) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return categories, nil
}

func (s *service) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	category, err := s.repo.FindCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	if category == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("category %q not found", slug))
	}
	return category, nil
}

func (s *service) AddVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*models.ProductVariant, error) {
	if err := validateVariantSet([]VariantInput{input}); err != nil {
		return nil, err
	}
	if _, err := s.GetProductByID(ctx, productID); err != nil {
		return nil, err
	}

	variant := models.ProductVariant{
		ProductID: productID,
		Color:     input.Color,
		Size:      input.Size,
		Stock:     input.Stock,
		SKU:       input.SKU,
	}
	if err := s.repo.CreateVariants(ctx, []models.ProductVariant{variant}); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(
				pkgerrors.CodeConflict,
				fmt.Sprintf("variant %s/%s already exists for this product", input.Color, input.Size),
			)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create variant")
	}
	return s.inventory.FindVariant(ctx, productID, input.Color, input.Size)
}

func (s *service) UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, input UpdateVariantInput) (*models.ProductVariant, error) {
	variant, err := s.repo.FindVariantByID(ctx, productID, variantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	if variant == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}

	if input.Color != nil {
		variant.Color = *input.Color
	}
	if input.Size != nil {
		variant.Size = *input.Size
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
		variant.Stock = *input.Stock
	}
	if input.SKU != nil {
		variant.SKU = input.SKU
	}

	if err := s.repo.UpdateVariant(ctx, variant); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(
				pkgerrors.CodeConflict,
				fmt.Sprintf("variant %s/%s already exists for this product", variant.Color, variant.Size),
			)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update variant")
	}
	return variant, nil
}

func (s *service) DeleteVariant(ctx context.Context, productID, variantID uuid.UUID) error {
	deleted, err := s.repo.DeleteVariant(ctx, productID, variantID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete variant")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}
	return nil
}

func (s *service) ListVariants(ctx context.Context, productID uuid.UUID) ([]models.ProductVariant, error) {
	if _, err := s.GetProductByID(ctx, productID); err != nil {
		return nil, err
	}
	variants, err := s.repo.ListVariants(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list variants")
	}
	return variants, nil
}

func (s *service) RestockVariant(ctx context.Context, productID, variantID uuid.UUID, qty int) (*models.ProductVariant, error) {
	return s.inventory.Restock(ctx, productID, variantID, qty)
}

func validateVariantSet(variants []VariantInput) error {
	seen := make(map[string]struct{}, len(variants))
	for _, v := range variants {
		if v.Color == "" || v.Size == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "variant color and size required")
		}
		if v.Stock < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "variant stock cannot be negative")
		}
		key := v.Color + "\x00" + v.Size
		if _, ok := seen[key]; ok {
			return pkgerrors.New(
				pkgerrors.CodeConflict,
				fmt.Sprintf("duplicate variant %s/%s in request", v.Color, v.Size),
			)
		}
		seen[key] = struct{}{}
	}
	return nil
}
