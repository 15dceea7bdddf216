package notifications

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lamnguyen/vestika-backend/pkg/db/models"
	"github.com/lamnguyen/vestika-backend/pkg/enums"
	pkgerrors "github.com/lamnguyen/vestika-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:notifications_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Notification{}); err != nil {
		t.Fatalf("migrate notifications: %v", err)
	}
	return db
}

func newService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedNotification(t *testing.T, db *gorm.DB, userID uuid.UUID, read bool) *models.Notification {
	t.Helper()
	n := &models.Notification{
		UserID:  userID,
		Type:    enums.NotificationTypeOrder,
		Title:   "Order placed",
		Message: "Your order has been placed.",
		IsRead:  read,
	}
	if err := db.Create(n).Error; err != nil {
		t.Fatalf("seed notification: %v", err)
	}
	return n
}

func TestListScopedToUser(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newService(t, db)
	owner := uuid.New()
	other := uuid.New()
	seedNotification(t, db, owner, false)
	seedNotification(t, db, owner, true)
	seedNotification(t, db, other, false)

	result, err := svc.List(context.Background(), ListParams{UserID: owner})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(result.Items))
	}

	unread, err := svc.List(context.Background(), ListParams{UserID: owner, UnreadOnly: true})
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread.Items) != 1 {
		t.Fatalf("expected 1 unread notification, got %d", len(unread.Items))
	}
}

func TestMarkReadAndMarkAllRead(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newService(t, db)
	owner := uuid.New()
	first := seedNotification(t, db, owner, false)
	seedNotification(t, db, owner, false)

	if err := svc.MarkRead(context.Background(), owner, first.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	// second call is a no-op but the row still exists
	if err := svc.MarkRead(context.Background(), owner, first.ID); err != nil {
		t.Fatalf("mark read twice: %v", err)
	}

	if err := svc.MarkRead(context.Background(), uuid.New(), first.ID); err == nil {
		t.Fatal("expected not found for foreign user")
	}

	count, err := svc.MarkAllRead(context.Background(), owner)
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 remaining unread marked, got %d", count)
	}
}

func TestDeleteOwnerOnly(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newService(t, db)
	owner := uuid.New()
	n := seedNotification(t, db, owner, false)

	err := svc.Delete(context.Background(), uuid.New(), n.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign user, got %v", err)
	}

	if err := svc.Delete(context.Background(), owner, n.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var count int64
	if err := db.Model(&models.Notification{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no rows, got %d", count)
	}
}

func TestOrderTemplate(t *testing.T) {
	t.Parallel()

	tpl, ok := OrderTemplate(enums.OrderStatusPending, "ABC123")
	if !ok {
		t.Fatal("expected template for PENDING")
	}
	if tpl.Title != "Order placed" {
		t.Fatalf("unexpected title %q", tpl.Title)
	}
	if !strings.Contains(tpl.Message, "ABC123") {
		t.Fatalf("expected order ref in message, got %q", tpl.Message)
	}

	if _, ok := OrderTemplate(enums.OrderStatus("ARCHIVED"), "ABC123"); ok {
		t.Fatal("expected no template for unknown status")
	}
}
