package orders

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
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
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	statements := []string{`
CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT,
  image TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
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
);`, `
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
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  total NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  shipping_address TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  price NUMERIC NOT NULL,
  size TEXT NOT NULL,
  color TEXT NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  is_read INTEGER NOT NULL DEFAULT 0,
  order_id TEXT,
  created_at DATETIME
);`}
	for _, stmt := range statements {
		if err := gdb.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return gdb
}

func newService(t *testing.T, gdb *gorm.DB, inv inventory.Repository, allowMissing bool) Service {
	t.Helper()
	if inv == nil {
		inv = inventory.NewRepository(gdb)
	}
	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
	svc, err := NewService(
		NewRepository(gdb),
		inv,
		products.NewRepository(gdb),
		notifications.NewRepository(gdb),
		db.RunnerFor(gdb),
		config.InventoryConfig{AllowMissingVariant: allowMissing},
		logg,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedProduct(t *testing.T, gdb *gorm.DB, name string, price int64) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:         uuid.New(),
		Name:       name,
		Slug:       strings.ToLower(strings.ReplaceAll(name, " ", "-")) + "-" + uuid.NewString()[:8],
		Price:      decimal.NewFromInt(price),
		CategoryID: uuid.New(),
	}
	if err := gdb.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func seedVariant(t *testing.T, gdb *gorm.DB, productID uuid.UUID, color, size string, stock int) {
	t.Helper()
	if err := gdb.Create(&models.ProductVariant{
		ProductID: productID,
		Color:     color,
		Size:      size,
		Stock:     stock,
	}).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
}

func variantStock(t *testing.T, gdb *gorm.DB, productID uuid.UUID, color, size string) int {
	t.Helper()
	var variant models.ProductVariant
	if err := gdb.First(&variant, "product_id = ? AND color = ? AND size = ?", productID, color, size).Error; err != nil {
		t.Fatalf("load variant: %v", err)
	}
	return variant.Stock
}

func countRows(t *testing.T, gdb *gorm.DB, model any) int64 {
	t.Helper()
	var count int64
	if err := gdb.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}

func TestPlaceOrderSuccess(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newService(t, gdb, nil, true)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, gdb, "Áo Thun Nam", 199000)
	seedVariant(t, gdb, product.ID, "Đen", "M", 5)

	order, err := svc.PlaceOrder(ctx, userID, PlaceOrderInput{
		Items:           []LineInput{{ProductID: product.ID, Color: "Đen", Size: "M", Quantity: 2}},
		Total:           decimal.NewFromInt(398000),
		ShippingAddress: "12 Nguyễn Huệ, Q1",
		PaymentMethod:   "COD",
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected PENDING, got %s", order.Status)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", order.Items)
	}
	if !order.Items[0].Price.Equal(decimal.NewFromInt(199000)) {
		t.Fatalf("expected price-at-purchase snapshot, got %s", order.Items[0].Price)
	}

	if got := variantStock(t, gdb, product.ID, "Đen", "M"); got != 3 {
		t.Fatalf("expected stock 3, got %d", got)
	}

	var notes []models.Notification
	if err := gdb.Find(&notes, "user_id = ?", userID).Error; err != nil {
		t.Fatalf("load notifications: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(notes))
	}
	if notes[0].Type != enums.NotificationTypeOrder || notes[0].Title != "Order placed" {
		t.Fatalf("unexpected notification: %+v", notes[0])
	}
	if notes[0].OrderID == nil || *notes[0].OrderID != order.ID {
		t.Fatal("expected notification linked to order")
	}
}

func TestPlaceOrderInsufficientLineCreatesNothing(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newService(t, gdb, nil, true)
	ctx := context.Background()
	userID := uuid.New()
	p1 := seedProduct(t, gdb, "Áo Sơ Mi", 250000)
	p2 := seedProduct(t, gdb, "Quần Tây", 400000)
	seedVariant(t, gdb, p1.ID, "Đen", "M", 5)
	seedVariant(t, gdb, p2.ID, "Trắng", "L", 3)

	_, err := svc.PlaceOrder(ctx, userID, PlaceOrderInput{
		Items: []LineInput{
			{ProductID: p1.ID, Color: "Đen", Size: "M", Quantity: 1},
			{ProductID: p2.ID, Color: "Trắng", Size: "L", Quantity: 10},
		},
		Total:           decimal.NewFromInt(4250000),
		ShippingAddress: "12 Nguyễn Huệ, Q1",
		PaymentMethod:   "COD",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, fragment := range []string{"Quần Tây", "Trắng", "L", "3 available"} {
		if !strings.Contains(typed.Message(), fragment) {
			t.Fatalf("expected %q in message %q", fragment, typed.Message())
		}
	}

	if n := countRows(t, gdb, &models.Order{}); n != 0 {
		t.Fatalf("expected zero orders, got %d", n)
	}
	if n := countRows(t, gdb, &models.OrderItem{}); n != 0 {
		t.Fatalf("expected zero order items, got %d", n)
	}
	if n := countRows(t, gdb, &models.Notification{}); n != 0 {
		t.Fatalf("expected zero notifications, got %d", n)
	}
	if got := variantStock(t, gdb, p1.ID, "Đen", "M"); got != 5 {
		t.Fatalf("stock must be untouched, got %d", got)
	}
}

// raceInventory forces the pre-check to pass so the transaction-time
// conditional decrement is the one that fails, as in a concurrent-order race.
type raceInventory struct {
	inventory.Repository
}

func (r raceInventory) WithTx(tx *gorm.DB) inventory.Repository {
	return raceInventory{Repository: r.Repository.WithTx(tx)}
}

func (r raceInventory) CheckStock(ctx context.Context, productID uuid.UUID, color, size string) (inventory.StockStatus, error) {
	return inventory.StockStatus{State: inventory.StockFound, Available: 1 << 20}, nil
}

func TestPlaceOrderRollsBackWhenDecrementLosesRace(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	inv := raceInventory{Repository: inventory.NewRepository(gdb)}
	svc := newService(t, gdb, inv, true)
	ctx := context.Background()
	p1 := seedProduct(t, gdb, "Áo Khoác", 500000)
	p2 := seedProduct(t, gdb, "Giày Sneaker", 900000)
	seedVariant(t, gdb, p1.ID, "Đen", "M", 5)
	seedVariant(t, gdb, p2.ID, "Trắng", "42", 1)

	_, err := svc.PlaceOrder(ctx, uuid.New(), PlaceOrderInput{
		Items: []LineInput{
			{ProductID: p1.ID, Color: "Đen", Size: "M", Quantity: 2},
			{ProductID: p2.ID, Color: "Trắng", Size: "42", Quantity: 5},
		},
		Total:           decimal.NewFromInt(5500000),
		ShippingAddress: "12 Nguyễn Huệ, Q1",
		PaymentMethod:   "COD",
	})
	if err == nil {
		t.Fatal("expected decrement failure")
	}

	// whole transaction rolled back: no order, and the first line's
	// already-applied decrement was undone
	if n := countRows(t, gdb, &models.Order{}); n != 0 {
		t.Fatalf("expected zero orders, got %d", n)
	}
	if got := variantStock(t, gdb, p1.ID, "Đen", "M"); got != 5 {
		t.Fatalf("sibling decrement must roll back, stock = %d", got)
	}
	if got := variantStock(t, gdb, p2.ID, "Trắng", "42"); got != 1 {
		t.Fatalf("failing line must leave stock untouched, stock = %d", got)
	}
}

func TestPlaceOrderMissingVariantPolicy(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, gdb, "Sản phẩm cũ", 120000)

	strict := newService(t, gdb, nil, false)
	_, err := strict.PlaceOrder(ctx, uuid.New(), PlaceOrderInput{
		Items:           []LineInput{{ProductID: product.ID, Color: "Đen", Size: "M", Quantity: 1}},
		Total:           decimal.NewFromInt(120000),
		ShippingAddress: "1 Lê Lợi",
		PaymentMethod:   "COD",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("strict policy must reject, got %v", err)
	}

	permissive := newService(t, gdb, nil, true)
	order, err := permissive.PlaceOrder(ctx, uuid.New(), PlaceOrderInput{
		Items:           []LineInput{{ProductID: product.ID, Color: "Đen", Size: "M", Quantity: 1}},
		Total:           decimal.NewFromInt(120000),
		ShippingAddress: "1 Lê Lợi",
		PaymentMethod:   "COD",
	})
	if err != nil {
		t.Fatalf("permissive policy must allow, got %v", err)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected PENDING, got %s", order.Status)
	}
}

func TestUpdateStatusNotification(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newService(t, gdb, nil, true)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, gdb, "Đầm Dạ Hội", 1200000)
	seedVariant(t, gdb, product.ID, "Đen", "S", 3)

	order, err := svc.PlaceOrder(ctx, userID, PlaceOrderInput{
		Items:           []LineInput{{ProductID: product.ID, Color: "Đen", Size: "S", Quantity: 1}},
		Total:           decimal.NewFromInt(1200000),
		ShippingAddress: "1 Lê Lợi",
		PaymentMethod:   "BANK",
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	updated, err := svc.UpdateStatus(ctx, order.ID, "DELIVERED")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != enums.OrderStatusDelivered {
		t.Fatalf("expected DELIVERED, got %s", updated.Status)
	}

	var notes []models.Notification
	if err := gdb.Order("created_at ASC").Find(&notes, "user_id = ?", userID).Error; err != nil {
		t.Fatalf("load notifications: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected placement + delivery notifications, got %d", len(notes))
	}
	if notes[1].Title != "Order delivered" {
		t.Fatalf("unexpected title %q", notes[1].Title)
	}
}

func TestUpdateStatusUnknownValueSkipsNotification(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newService(t, gdb, nil, true)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, gdb, "Nón Lưỡi Trai", 90000)
	seedVariant(t, gdb, product.ID, "Đen", "F", 2)

	order, err := svc.PlaceOrder(ctx, userID, PlaceOrderInput{
		Items:           []LineInput{{ProductID: product.ID, Color: "Đen", Size: "F", Quantity: 1}},
		Total:           decimal.NewFromInt(90000),
		ShippingAddress: "1 Lê Lợi",
		PaymentMethod:   "COD",
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	before := countRows(t, gdb, &models.Notification{})

	updated, err := svc.UpdateStatus(ctx, order.ID, "ARCHIVED")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if string(updated.Status) != "ARCHIVED" {
		t.Fatalf("row must carry the raw value, got %s", updated.Status)
	}
	if after := countRows(t, gdb, &models.Notification{}); after != before {
		t.Fatalf("unknown status must not notify: %d -> %d", before, after)
	}
}

func TestFindByIDOwnership(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newService(t, gdb, nil, true)
	ctx := context.Background()
	owner := uuid.New()
	product := seedProduct(t, gdb, "Ví Da", 300000)
	seedVariant(t, gdb, product.ID, "Nâu", "F", 4)

	order, err := svc.PlaceOrder(ctx, owner, PlaceOrderInput{
		Items:           []LineInput{{ProductID: product.ID, Color: "Nâu", Size: "F", Quantity: 1}},
		Total:           decimal.NewFromInt(300000),
		ShippingAddress: "1 Lê Lợi",
		PaymentMethod:   "COD",
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if _, err := svc.FindByID(ctx, Actor{UserID: owner}, order.ID); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := svc.FindByID(ctx, Actor{UserID: uuid.New(), Admin: true}, order.ID); err != nil {
		t.Fatalf("admin read: %v", err)
	}
	_, err = svc.FindByID(ctx, Actor{UserID: uuid.New()}, order.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestDeleteOrderRemovesItems(t *testing.T) {
	t.Parallel()

	gdb := newTestDB(t)
	svc := newService(t, gdb, nil, true)
	ctx := context.Background()
	product := seedProduct(t, gdb, "Thắt Lưng", 200000)
	seedVariant(t, gdb, product.ID, "Đen", "F", 5)

	order, err := svc.PlaceOrder(ctx, uuid.New(), PlaceOrderInput{
		Items:           []LineInput{{ProductID: product.ID, Color: "Đen", Size: "F", Quantity: 1}},
		Total:           decimal.NewFromInt(200000),
		ShippingAddress: "1 Lê Lợi",
		PaymentMethod:   "COD",
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if err := svc.Delete(ctx, order.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := countRows(t, gdb, &models.OrderItem{}); n != 0 {
		t.Fatalf("expected items removed, got %d", n)
	}
	err = svc.Delete(ctx, order.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
