package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamnguyen/vestika-backend/pkg/db"
	"github.com/lamnguyen/vestika-backend/pkg/db/models"
	pkgerrors "github.com/lamnguyen/vestika-backend/pkg/errors"
)

// Service defines review submission, eligibility and deletion.
type Service interface {
	CanReview(ctx context.Context, userID, productID uuid.UUID) (*Eligibility, error)
	Submit(ctx context.Context, userID uuid.UUID, input SubmitInput) (*models.Review, error)
	Delete(ctx context.Context, actor Actor, reviewID uuid.UUID) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error)
}

// Actor identifies the requester for ownership checks.
type Actor struct {
	UserID uuid.UUID
	Admin  bool
}

// SubmitInput carries a review for one delivered (order, product) pair.
type SubmitInput struct {
	ProductID uuid.UUID
	OrderID   uuid.UUID
	Rating    int
	Comment   *string
}

// Eligibility answers whether the user may review the product, and lists the
// delivered orders the review could attach to.
type Eligibility struct {
	CanReview       bool             `json:"canReview"`
	Reason          string           `json:"reason,omitempty"`
	DeliveredOrders []DeliveredOrder `json:"deliveredOrders"`
}

// DeliveredOrder is one reviewable (order, product) pair.
type DeliveredOrder struct {
	OrderID   uuid.UUID `json:"orderId"`
	HasReview bool      `json:"hasReview"`
}

type service struct {
	repo Repository
	tx   db.TxRunner
}

// NewService wires review dependencies.
func NewService(repo Repository, tx db.TxRunner) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "reviews repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) CanReview(ctx context.Context, userID, productID uuid.UUID) (*Eligibility, error) {
	if userID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and product id required")
	}

	orders, err := s.repo.DeliveredOrdersContaining(ctx, userID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivered orders")
	}

	if len(orders) == 0 {
		return &Eligibility{
			CanReview:       false,
			Reason:          "no delivered order contains this product",
			DeliveredOrders: []DeliveredOrder{},
		}, nil
	}

	result := &Eligibility{CanReview: true, DeliveredOrders: make([]DeliveredOrder, 0, len(orders))}
	for _, order := range orders {
		review, err := s.repo.FindByOrderAndProduct(ctx, order.ID, productID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load existing review")
		}
		result.DeliveredOrders = append(result.DeliveredOrders, DeliveredOrder{
			OrderID:   order.ID,
			HasReview: review != nil,
		})
	}
	return result, nil
}

// Submit creates a review for the (order, product) pair or updates the
// existing one in place, then recomputes the product's derived rating.
func (s *service) Submit(ctx context.Context, userID uuid.UUID, input SubmitInput) (*models.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	orders, err := s.repo.DeliveredOrdersContaining(ctx, userID, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivered orders")
	}
	eligible := false
	for _, order := range orders {
		if order.ID == input.OrderID {
			eligible = true
			break
		}
	}
	if !eligible {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not a delivered order containing this product")
	}

	existing, err := s.repo.FindByOrderAndProduct(ctx, input.OrderID, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load existing review")
	}

	var review *models.Review
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if existing != nil {
			existing.Rating = input.Rating
			existing.Comment = input.Comment
			if err := repo.Update(ctx, existing); err != nil {
				return err
			}
			review = existing
		} else {
			review = &models.Review{
				ProductID: input.ProductID,
				UserID:    userID,
				OrderID:   input.OrderID,
				Rating:    input.Rating,
				Comment:   input.Comment,
			}
			if err := repo.Create(ctx, review); err != nil {
				return err
			}
		}
		_, _, err := repo.RecomputeProductRating(ctx, input.ProductID)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit review")
	}
	return review, nil
}

func (s *service) Delete(ctx context.Context, actor Actor, reviewID uuid.UUID) error {
	review, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
	}
	if review == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}
	if !actor.Admin && review.UserID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "review belongs to another user")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		deleted, err := repo.Delete(ctx, reviewID)
		if err != nil {
			return err
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		_, _, err = repo.RecomputeProductRating(ctx, review.ProductID)
		return err
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete review")
	}
	return nil
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	reviews, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	return reviews, nil
}
