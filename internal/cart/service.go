package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamnguyen/vestika-backend/internal/inventory"
	"github.com/lamnguyen/vestika-backend/pkg/config"
	"github.com/lamnguyen/vestika-backend/pkg/db"
	"github.com/lamnguyen/vestika-backend/pkg/db/models"
	pkgerrors "github.com/lamnguyen/vestika-backend/pkg/errors"
	"github.com/lamnguyen/vestika-backend/pkg/logger"
)

// Service defines cart mutations and reads for the authenticated user.
type Service interface {
	Add(ctx context.Context, userID uuid.UUID, input ItemInput) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartItem, error)
	Remove(ctx context.Context, userID, itemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
	Sync(ctx context.Context, userID uuid.UUID, items []ItemInput) ([]models.CartItem, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
}

// ItemInput is one client-supplied cart line.
type ItemInput struct {
	ProductID uuid.UUID
	Color     string
	Size      string
	Quantity  int
}

type service struct {
	repo      Repository
	inventory inventory.Repository
	tx        db.TxRunner
	policy    config.InventoryConfig
	logg      *logger.Logger
}

// NewService wires cart dependencies.
func NewService(repo Repository, inventoryRepo inventory.Repository, tx db.TxRunner, policy config.InventoryConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart repository required")
	}
	if inventoryRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: repo, inventory: inventoryRepo, tx: tx, policy: policy, logg: logg}, nil
}

// checkStock applies the legacy missing-variant policy: an absent variant row
// is permitted when configured, with a warning, instead of failing the
// operation for products that predate variants.
func (s *service) checkStock(ctx context.Context, inv inventory.Repository, input ItemInput, requested int) error {
	status, err := inv.CheckStock(ctx, input.ProductID, input.Color, input.Size)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check stock")
	}

	if status.VariantAbsent() {
		if !s.policy.AllowMissingVariant {
			return pkgerrors.New(
				pkgerrors.CodeNotFound,
				fmt.Sprintf("variant %s/%s not found", input.Color, input.Size),
			)
		}
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"productId": input.ProductID.String(),
			"color":     input.Color,
			"size":      input.Size,
		}), "cart operation allowed for product without variant row")
		return nil
	}

	if !status.Sufficient(requested) {
		return pkgerrors.New(
			pkgerrors.CodeValidation,
			fmt.Sprintf("insufficient stock for %s/%s: %d available", input.Color, input.Size, status.Available),
		)
	}
	return nil
}

func validateItem(input ItemInput) error {
	if input.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return nil
}

func (s *service) Add(ctx context.Context, userID uuid.UUID, input ItemInput) (*models.CartItem, error) {
	if err := validateItem(input); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByTuple(ctx, userID, input.ProductID, input.Size, input.Color)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	merged := input.Quantity
	if existing != nil {
		merged += existing.Quantity
	}
	if err := s.checkStock(ctx, s.inventory, input, merged); err != nil {
		return nil, err
	}

	if existing != nil {
		if err := s.repo.UpdateQuantity(ctx, existing.ID, merged); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge cart quantity")
		}
		existing.Quantity = merged
		return existing, nil
	}

	item := &models.CartItem{
		UserID:    userID,
		ProductID: input.ProductID,
		Size:      input.Size,
		Color:     input.Color,
		Quantity:  input.Quantity,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		if db.IsUniqueViolation(err) {
			// concurrent add for the same tuple; fall back to the merge branch
			return s.Add(ctx, userID, input)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
	}
	return item, nil
}

func (s *service) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	item, err := s.repo.FindByID(ctx, userID, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}

	input := ItemInput{ProductID: item.ProductID, Color: item.Color, Size: item.Size, Quantity: quantity}
	if err := s.checkStock(ctx, s.inventory, input, quantity); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateQuantity(ctx, item.ID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart quantity")
	}
	item.Quantity = quantity
	return item, nil
}

func (s *service) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, userID, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.repo.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// Sync replaces the server cart with the client snapshot. Duplicate tuples in
// the payload are merged before writing.
func (s *service) Sync(ctx context.Context, userID uuid.UUID, items []ItemInput) ([]models.CartItem, error) {
	merged := make([]ItemInput, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		if err := validateItem(item); err != nil {
			return nil, err
		}
		key := item.ProductID.String() + "\x00" + item.Size + "\x00" + item.Color
		if at, ok := index[key]; ok {
			merged[at].Quantity += item.Quantity
			continue
		}
		index[key] = len(merged)
		merged = append(merged, item)
	}

	for _, item := range merged {
		if err := s.checkStock(ctx, s.inventory, item, item.Quantity); err != nil {
			return nil, err
		}
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Clear(ctx, userID); err != nil {
			return err
		}
		for _, item := range merged {
			row := &models.CartItem{
				UserID:    userID,
				ProductID: item.ProductID,
				Size:      item.Size,
				Color:     item.Color,
				Quantity:  item.Quantity,
			}
			if err := repo.Create(ctx, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync cart")
	}

	return s.List(ctx, userID)
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart")
	}
	return items, nil
}
