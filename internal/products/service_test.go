package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lamnguyen/vestika-backend/internal/inventory"
	"github.com/lamnguyen/vestika-backend/pkg/db"
	"github.com/lamnguyen/vestika-backend/pkg/db/models"
	pkgerrors "github.com/lamnguyen/vestika-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:products_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	categories := `
CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT,
  image TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL,
  original_price NUMERIC,
  images TEXT,
  featured INTEGER NOT NULL DEFAULT 0,
  rating NUMERIC NOT NULL DEFAULT 0,
  review_count INTEGER NOT NULL DEFAULT 0,
  category_id TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	variants := `
CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  color TEXT NOT NULL,
  size TEXT NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  sku TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE(product_id, color, size)
);`
	for _, stmt := range []string{categories, products, variants} {
		if err := gdb.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return gdb
}

func newService(t *testing.T, gdb *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(gdb), inventory.NewRepository(gdb), db.RunnerFor(gdb))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedCategory(t *testing.T, svc Service, name string) *models.Category {
	t.Helper()
	category, err := svc.CreateCategory(context.Background(), CategoryInput{Name: name})
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return category
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Áo Thun Nam":     "ao-thun-nam",
		"  Quần Jean  ":   "quan-jean",
		"Basic T-Shirt 2": "basic-t-shirt-2",
		"Đầm Dạ Hội":      "dam-da-hoi",
	}
	for input, want := range cases {
		if got := Slugify(input); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCreateProductWithVariants(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newService(t, gdb)
	category := seedCategory(t, svc, "Áo")

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:       "Áo Thun Nam",
		Price:      decimal.NewFromInt(199000),
		CategoryID: category.ID,
		Images:     []string{"https://img.example.com/1.jpg"},
		Variants: []VariantInput{
			{Color: "Đen", Size: "M", Stock: 5},
			{Color: "Trắng", Size: "L", Stock: 3},
		},
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if product.Slug != "ao-thun-nam" {
		t.Fatalf("unexpected slug %q", product.Slug)
	}
	if len(product.Variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(product.Variants))
	}
	if product.Category == nil || product.Category.Name != "Áo" {
		t.Fatal("expected category preloaded")
	}
}

func TestCreateProductDuplicateSlug(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newService(t, gdb)
	category := seedCategory(t, svc, "Áo khoác")

	input := CreateProductInput{
		Name:       "Áo Khoác Gió",
		Price:      decimal.NewFromInt(350000),
		CategoryID: category.ID,
	}
	if _, err := svc.CreateProduct(context.Background(), input); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := svc.CreateProduct(context.Background(), input)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	// nothing half-written: the duplicate attempt left exactly one product
	var count int64
	if err := gdb.Model(&models.Product{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 product, got %d", count)
	}
}

func TestCreateProductRejectsDuplicateVariantPair(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newService(t, gdb)
	category := seedCategory(t, svc, "Quần")

	_, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:       "Quần Jean",
		Price:      decimal.NewFromInt(450000),
		CategoryID: category.ID,
		Variants: []VariantInput{
			{Color: "Xanh", Size: "M", Stock: 2},
			{Color: "Xanh", Size: "M", Stock: 4},
		},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAddVariantDuplicatePair(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newService(t, gdb)
	category := seedCategory(t, svc, "Váy")

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:       "Váy Hoa",
		Price:      decimal.NewFromInt(280000),
		CategoryID: category.ID,
		Variants:   []VariantInput{{Color: "Đỏ", Size: "S", Stock: 1}},
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	_, err = svc.AddVariant(context.Background(), product.ID, VariantInput{Color: "Đỏ", Size: "S", Stock: 9})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	variant, err := svc.AddVariant(context.Background(), product.ID, VariantInput{Color: "Đỏ", Size: "M", Stock: 9})
	if err != nil {
		t.Fatalf("add distinct variant: %v", err)
	}
	if variant.Stock != 9 {
		t.Fatalf("unexpected stock %d", variant.Stock)
	}
}

func TestUpdateProductPartial(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newService(t, gdb)
	category := seedCategory(t, svc, "Giày")

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:       "Giày Sneaker",
		Price:      decimal.NewFromInt(900000),
		CategoryID: category.ID,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	featured := true
	newPrice := decimal.NewFromInt(790000)
	updated, err := svc.UpdateProduct(context.Background(), product.ID, UpdateProductInput{
		Featured: &featured,
		Price:    &newPrice,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Featured {
		t.Fatal("expected featured to be set")
	}
	if !updated.Price.Equal(newPrice) {
		t.Fatalf("expected price %s, got %s", newPrice, updated.Price)
	}
	if updated.Name != "Giày Sneaker" {
		t.Fatalf("name must be unchanged, got %q", updated.Name)
	}
}

func TestListProductsFiltersAndPagination(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newService(t, gdb)
	ctx := context.Background()
	category := seedCategory(t, svc, "Phụ kiện")

	for i, name := range []string{"Nón Lưỡi Trai", "Thắt Lưng Da", "Ví Da"} {
		_, err := svc.CreateProduct(ctx, CreateProductInput{
			Name:       name,
			Price:      decimal.NewFromInt(int64(100000 * (i + 1))),
			CategoryID: category.ID,
			Featured:   i == 0,
		})
		if err != nil {
			t.Fatalf("create %q: %v", name, err)
		}
	}

	featured := true
	result, err := svc.ListProducts(ctx, ListProductsParams{Featured: &featured})
	if err != nil {
		t.Fatalf("list featured: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].Name != "Nón Lưỡi Trai" {
		t.Fatalf("unexpected featured result: %+v", result.Items)
	}

	first, err := svc.ListProducts(ctx, ListProductsParams{CategorySlug: category.Slug, Limit: 2})
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	if len(first.Items) != 2 || first.Cursor == "" {
		t.Fatalf("expected full page with cursor, got %d items cursor=%q", len(first.Items), first.Cursor)
	}

	second, err := svc.ListProducts(ctx, ListProductsParams{CategorySlug: category.Slug, Limit: 2, Cursor: first.Cursor})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(second.Items) != 1 || second.Cursor != "" {
		t.Fatalf("expected final page, got %d items cursor=%q", len(second.Items), second.Cursor)
	}
}

func TestDeleteProductCascadesVariants(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newService(t, gdb)
	category := seedCategory(t, svc, "Đầm")

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:       "Đầm Dạ Hội",
		Price:      decimal.NewFromInt(1200000),
		CategoryID: category.ID,
		Variants:   []VariantInput{{Color: "Đen", Size: "S", Stock: 2}},
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	if err := svc.DeleteProduct(context.Background(), product.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var variantCount int64
	if err := gdb.Model(&models.ProductVariant{}).Where("product_id = ?", product.ID).Count(&variantCount).Error; err != nil {
		t.Fatalf("count variants: %v", err)
	}
	if variantCount != 0 {
		t.Fatalf("expected variants removed, got %d", variantCount)
	}

	err = svc.DeleteProduct(context.Background(), product.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestRestockVariant(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newService(t, gdb)
	category := seedCategory(t, svc, "Áo len")

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:       "Áo Len Cổ Lọ",
		Price:      decimal.NewFromInt(320000),
		CategoryID: category.ID,
		Variants:   []VariantInput{{Color: "Xám", Size: "M", Stock: 1}},
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	variant, err := svc.RestockVariant(context.Background(), product.ID, product.Variants[0].ID, 4)
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if variant.Stock != 5 {
		t.Fatalf("expected stock 5, got %d", variant.Stock)
	}
}
