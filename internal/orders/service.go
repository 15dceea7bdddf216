package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lamnguyen/vestika-backend/internal/inventory"
	"github.com/lamnguyen/vestika-backend/internal/notifications"
	"github.com/lamnguyen/vestika-backend/internal/products"
	"github.com/lamnguyen/vestika-backend/pkg/config"
	"github.com/lamnguyen/vestika-backend/pkg/db"
	"github.com/lamnguyen/vestika-backend/pkg/db/models"
	"github.com/lamnguyen/vestika-backend/pkg/enums"
	pkgerrors "github.com/lamnguyen/vestika-backend/pkg/errors"
	"github.com/lamnguyen/vestika-backend/pkg/logger"
	"github.com/lamnguyen/vestika-backend/pkg/pagination"
)

// Service defines order placement and lifecycle operations.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*models.Order, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	FindByID(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*models.Order, error)
	Delete(ctx context.Context, orderID uuid.UUID) error
}

// Actor identifies the requester for ownership checks.
type Actor struct {
	UserID uuid.UUID
	Admin  bool
}

// PlaceOrderInput is the checkout payload.
type PlaceOrderInput struct {
	Items           []LineInput
	Total           decimal.Decimal
	ShippingAddress string
	PaymentMethod   string
}

// LineInput is one requested (product, color, size, quantity) line.
type LineInput struct {
	ProductID uuid.UUID
	Color     string
	Size      string
	Quantity  int
}

// ListParams configures order listing. A nil UserID lists every order and is
// reserved for admin callers.
type ListParams struct {
	UserID *uuid.UUID
	Status string
	Limit  int
	Cursor string
}

// ListResult wraps returned orders and the cursor for the next page.
type ListResult struct {
	Items  []models.Order `json:"items"`
	Cursor string         `json:"cursor"`
}

type service struct {
	repo          Repository
	inventory     inventory.Repository
	products      products.Repository
	notifications notifications.Repository
	tx            db.TxRunner
	policy        config.InventoryConfig
	logg          *logger.Logger
}

// NewService wires order dependencies.
func NewService(
	repo Repository,
	inventoryRepo inventory.Repository,
	productsRepo products.Repository,
	notificationsRepo notifications.Repository,
	tx db.TxRunner,
	policy config.InventoryConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if inventoryRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory repository required")
	}
	if productsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "products repository required")
	}
	if notificationsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:          repo,
		inventory:     inventoryRepo,
		products:      productsRepo,
		notifications: notificationsRepo,
		tx:            tx,
		policy:        policy,
		logg:          logg,
	}, nil
}

type checkedLine struct {
	input         LineInput
	product       *models.Product
	skipDecrement bool
}

// PlaceOrder validates every line, then creates the order, its items, the
// per-line conditional stock decrements and the PENDING notification inside a
// single transaction, so a lost stock race rolls back the whole order instead
// of leaving partially decremented siblings behind.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	if input.ShippingAddress == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}
	if input.PaymentMethod == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method required")
	}

	lines, err := s.checkLines(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	// The client total is trusted as-is; the server-side recomputation only
	// feeds a mismatch warning.
	serverTotal := decimal.Zero
	for _, line := range lines {
		serverTotal = serverTotal.Add(line.product.Price.Mul(decimal.NewFromInt(int64(line.input.Quantity))))
	}
	if !serverTotal.Equal(input.Total) {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"clientTotal": input.Total.String(),
			"serverTotal": serverTotal.String(),
		}), "order total mismatch between client and current prices")
	}

	order := &models.Order{
		UserID:          userID,
		Total:           input.Total,
		Status:          enums.OrderStatusPending,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
	}
	for _, line := range lines {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: line.input.ProductID,
			Quantity:  line.input.Quantity,
			Price:     line.product.Price,
			Size:      line.input.Size,
			Color:     line.input.Color,
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}

		inv := s.inventory.WithTx(tx)
		for _, line := range lines {
			if line.skipDecrement {
				continue
			}
			if _, err := inv.Decrement(ctx, line.input.ProductID, line.input.Color, line.input.Size, line.input.Quantity); err != nil {
				return err
			}
		}

		tpl, ok := notifications.OrderTemplate(enums.OrderStatusPending, orderRef(order.ID))
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInternal, "missing PENDING notification template")
		}
		orderID := order.ID
		return s.notifications.WithTx(tx).Create(ctx, &models.Notification{
			UserID:  userID,
			Type:    enums.NotificationTypeOrder,
			Title:   tpl.Title,
			Message: tpl.Message,
			OrderID: &orderID,
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place order")
	}

	placed, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load placed order")
	}
	return placed, nil
}

// checkLines runs the pre-persistence stock check for every line so an
// insufficient line aborts before any row is written. Lines whose variant row
// is absent are permitted under the legacy policy and skip the decrement.
func (s *service) checkLines(ctx context.Context, items []LineInput) ([]checkedLine, error) {
	lines := make([]checkedLine, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}

		product, err := s.products.FindProductByID(ctx, item.ProductID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if product == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", item.ProductID))
		}

		status, err := s.inventory.CheckStock(ctx, item.ProductID, item.Color, item.Size)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check stock")
		}

		line := checkedLine{input: item, product: product}
		switch {
		case status.VariantAbsent():
			if !s.policy.AllowMissingVariant {
				return nil, pkgerrors.New(
					pkgerrors.CodeNotFound,
					fmt.Sprintf("variant %s/%s not found for %s", item.Color, item.Size, product.Name),
				)
			}
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"productId": item.ProductID.String(),
				"color":     item.Color,
				"size":      item.Size,
			}), "order line allowed for product without variant row")
			line.skipDecrement = true
		case !status.Sufficient(item.Quantity):
			return nil, pkgerrors.New(
				pkgerrors.CodeValidation,
				fmt.Sprintf("insufficient stock for %s (%s/%s): %d available", product.Name, item.Color, item.Size, status.Available),
			)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listOrdersParams{
		UserID: params.UserID,
		Limit:  params.Limit,
	}
	if params.Status != "" {
		status, err := enums.ParseOrderStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.Status = &status
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) FindByID(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if !actor.Admin && order.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return order, nil
}

// UpdateStatus writes the raw status value even when it is not one of the
// five known lifecycle states; only the notification is skipped in that case.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*models.Order, error) {
	if status == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	next := enums.OrderStatus(status)
	if !allowedTransition(order.Status, next) {
		return nil, pkgerrors.New(
			pkgerrors.CodeValidation,
			fmt.Sprintf("transition %s -> %s not allowed", order.Status, next),
		)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.repo.WithTx(tx).UpdateStatus(ctx, orderID, next)
		if err != nil {
			return err
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}

		tpl, ok := notifications.OrderTemplate(next, orderRef(orderID))
		if !ok {
			// unrecognized status: row updated, no notification
			return nil
		}
		orderIDCopy := orderID
		return s.notifications.WithTx(tx).Create(ctx, &models.Notification{
			UserID:  order.UserID,
			Type:    enums.NotificationTypeOrder,
			Title:   tpl.Title,
			Message: tpl.Message,
			OrderID: &orderIDCopy,
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	return s.repo.FindByID(ctx, orderID)
}

func (s *service) Delete(ctx context.Context, orderID uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return nil
}

// orderRef is the short id shown to customers in notifications.
func orderRef(id uuid.UUID) string {
	return "#" + id.String()[:8]
}
