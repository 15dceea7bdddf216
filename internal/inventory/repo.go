package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamnguyen/vestika-backend/pkg/db/models"
	pkgerrors "github.com/lamnguyen/vestika-backend/pkg/errors"
)

// StockState tags the outcome of a stock check. Legacy products predate
// variants and have no variant rows at all, which is distinct from a variant
// that exists with insufficient stock.
type StockState int

const (
	StockFound StockState = iota
	StockVariantAbsent
)

// StockStatus is the tagged result of CheckStock.
type StockStatus struct {
	State     StockState
	Available int
}

func (s StockStatus) VariantAbsent() bool {
	return s.State == StockVariantAbsent
}

// Sufficient reports whether a found variant covers the requested quantity.
// It is always false for an absent variant; callers decide the policy there.
func (s StockStatus) Sufficient(qty int) bool {
	return s.State == StockFound && qty > 0 && qty <= s.Available
}

// Repository exposes variant stock reads and the conditional stock writes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindVariant(ctx context.Context, productID uuid.UUID, color, size string) (*models.ProductVariant, error)
	CheckStock(ctx context.Context, productID uuid.UUID, color, size string) (StockStatus, error)
	Decrement(ctx context.Context, productID uuid.UUID, color, size string, qty int) (*models.ProductVariant, error)
	Restock(ctx context.Context, productID, variantID uuid.UUID, qty int) (*models.ProductVariant, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindVariant(ctx context.Context, productID uuid.UUID, color, size string) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND color = ? AND size = ?", productID, color, size).
		First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &variant, nil
}

func (r *repositoryImpl) CheckStock(ctx context.Context, productID uuid.UUID, color, size string) (StockStatus, error) {
	variant, err := r.FindVariant(ctx, productID, color, size)
	if err != nil {
		return StockStatus{}, err
	}
	if variant == nil {
		return StockStatus{State: StockVariantAbsent}, nil
	}
	return StockStatus{State: StockFound, Available: variant.Stock}, nil
}

// Decrement applies a single conditional write: stock is reduced only when it
// covers the requested quantity, so stock can never go negative regardless of
// concurrent orders. RowsAffected distinguishes success from a lost race.
func (r *repositoryImpl) Decrement(ctx context.Context, productID uuid.UUID, color, size string, qty int) (*models.ProductVariant, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	result := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("product_id = ? AND color = ? AND size = ? AND stock >= ?", productID, color, size, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		variant, err := r.FindVariant(ctx, productID, color, size)
		if err != nil {
			return nil, err
		}
		if variant == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("variant %s/%s not found", color, size))
		}
		return nil, pkgerrors.New(
			pkgerrors.CodeValidation,
			fmt.Sprintf("insufficient stock for %s/%s: %d available", color, size, variant.Stock),
		)
	}

	variant, err := r.FindVariant(ctx, productID, color, size)
	if err != nil {
		return nil, err
	}
	return variant, nil
}

// Restock adds quantity back to a variant, used by admin stock edits.
func (r *repositoryImpl) Restock(ctx context.Context, productID, variantID uuid.UUID, qty int) (*models.ProductVariant, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	result := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ? AND product_id = ?", variantID, productID).
		Update("stock", gorm.Expr("stock + ?", qty))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}

	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).First(&variant, "id = ?", variantID).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}
