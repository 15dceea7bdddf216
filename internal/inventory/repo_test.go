package inventory

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lamnguyen/vestika-backend/pkg/db/models"
	pkgerrors "github.com/lamnguyen/vestika-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.ProductVariant{}); err != nil {
		t.Fatalf("migrate variants: %v", err)
	}
	return db
}

func seedVariant(t *testing.T, db *gorm.DB, productID uuid.UUID, color, size string, stock int) *models.ProductVariant {
	t.Helper()
	variant := &models.ProductVariant{
		ProductID: productID,
		Color:     color,
		Size:      size,
		Stock:     stock,
	}
	if err := db.Create(variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	return variant
}

func TestCheckStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	productID := uuid.New()
	seedVariant(t, db, productID, "Đen", "M", 5)

	status, err := repo.CheckStock(ctx, productID, "Đen", "M")
	if err != nil {
		t.Fatalf("check stock: %v", err)
	}
	if status.VariantAbsent() {
		t.Fatal("expected variant to be found")
	}
	if !status.Sufficient(5) {
		t.Fatal("expected qty=5 against stock=5 to be sufficient")
	}
	if status.Sufficient(6) {
		t.Fatal("expected qty=6 against stock=5 to be insufficient")
	}

	absent, err := repo.CheckStock(ctx, productID, "Trắng", "L")
	if err != nil {
		t.Fatalf("check absent: %v", err)
	}
	if !absent.VariantAbsent() {
		t.Fatal("expected absent state for missing tuple")
	}
	if absent.Sufficient(1) {
		t.Fatal("absent variant must never report sufficient")
	}
}

func TestDecrement(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	productID := uuid.New()
	seedVariant(t, db, productID, "Đen", "M", 5)

	variant, err := repo.Decrement(ctx, productID, "Đen", "M", 2)
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if variant.Stock != 3 {
		t.Fatalf("expected stock 3, got %d", variant.Stock)
	}

	_, err = repo.Decrement(ctx, productID, "Đen", "M", 4)
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(typed.Message(), "3 available") {
		t.Fatalf("expected message to name available qty, got %q", typed.Message())
	}

	var reloaded models.ProductVariant
	if err := db.First(&reloaded, "product_id = ?", productID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Stock != 3 {
		t.Fatalf("failed decrement must not change stock, got %d", reloaded.Stock)
	}
}

func TestDecrementMissingVariant(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)

	_, err := repo.Decrement(context.Background(), uuid.New(), "Đen", "M", 1)
	if err == nil {
		t.Fatal("expected not found error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDecrementRejectsNonPositiveQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)

	_, err := repo.Decrement(context.Background(), uuid.New(), "Đen", "M", 0)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStockNeverNegative(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	productID := uuid.New()
	seedVariant(t, db, productID, "Xanh", "S", 5)

	for _, qty := range []int{2, 2, 2, 2} {
		_, _ = repo.Decrement(ctx, productID, "Xanh", "S", qty)
	}

	var variant models.ProductVariant
	if err := db.First(&variant, "product_id = ?", productID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if variant.Stock < 0 {
		t.Fatalf("stock went negative: %d", variant.Stock)
	}
	if variant.Stock != 1 {
		t.Fatalf("expected stock 1 after two successful decrements, got %d", variant.Stock)
	}
}

func TestRestock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	productID := uuid.New()
	variant := seedVariant(t, db, productID, "Đen", "L", 1)

	updated, err := repo.Restock(ctx, productID, variant.ID, 4)
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if updated.Stock != 5 {
		t.Fatalf("expected stock 5, got %d", updated.Stock)
	}

	if _, err := repo.Restock(ctx, productID, uuid.New(), 1); err == nil {
		t.Fatal("expected not found for unknown variant")
	}
}
