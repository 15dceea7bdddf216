package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/lamnguyen/vestika-backend/api/responses"
	"github.com/lamnguyen/vestika-backend/api/validators"
	productsvc "github.com/lamnguyen/vestika-backend/internal/products"
	"github.com/lamnguyen/vestika-backend/pkg/logger"
	"github.com/lamnguyen/vestika-backend/pkg/pagination"
)

type createProductRequest struct {
	Name          string                 `json:"name" validate:"required"`
	Slug          string                 `json:"slug,omitempty"`
	Description   string                 `json:"description,omitempty"`
	Price         decimal.Decimal        `json:"price" validate:"required"`
	OriginalPrice *decimal.Decimal       `json:"originalPrice,omitempty"`
	Images        []string               `json:"images,omitempty"`
	Featured      bool                   `json:"featured,omitempty"`
	CategoryID    string                 `json:"categoryId" validate:"required,uuid"`
	Variants      []createVariantRequest `json:"variants,omitempty" validate:"omitempty,dive"`
}

type updateProductRequest struct {
	Name          *string          `json:"name,omitempty"`
	Slug          *string          `json:"slug,omitempty"`
	Description   *string          `json:"description,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Images        []string         `json:"images,omitempty"`
	Featured      *bool            `json:"featured,omitempty"`
	CategoryID    *string          `json:"categoryId,omitempty" validate:"omitempty,uuid"`
}

type createVariantRequest struct {
	Color string  `json:"color" validate:"required"`
	Size  string  `json:"size" validate:"required"`
	Stock int     `json:"stock" validate:"gte=0"`
	SKU   *string `json:"sku,omitempty"`
}

func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		featured, err := validators.ParseQueryBool(r, "featured")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := productsvc.ListProductsParams{
			CategorySlug: strings.TrimSpace(r.URL.Query().Get("category")),
			Featured:     featured,
			Search:       strings.TrimSpace(r.URL.Query().Get("search")),
			Limit:        limit,
			Cursor:       strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		result, err := svc.ListProducts(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ProductDetail resolves the path segment as a uuid first and falls back to a
// slug lookup, so /products/ao-thun-nam and /products/<uuid> both work.
func ProductDetail(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "productID")

		if id, err := validators.ParsePathUUID(raw, "productID"); err == nil {
			product, err := svc.GetProductByID(r.Context(), id)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, product)
			return
		}

		product, err := svc.GetProductBySlug(r.Context(), raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func CreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		categoryID, err := validators.ParsePathUUID(payload.CategoryID, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := productsvc.CreateProductInput{
			Name:          payload.Name,
			Slug:          payload.Slug,
			Description:   payload.Description,
			Price:         payload.Price,
			OriginalPrice: payload.OriginalPrice,
			Images:        payload.Images,
			Featured:      payload.Featured,
			CategoryID:    categoryID,
		}
		for _, v := range payload.Variants {
			input.Variants = append(input.Variants, productsvc.VariantInput{
				Color: v.Color,
				Size:  v.Size,
				Stock: v.Stock,
				SKU:   v.SKU,
			})
		}

		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func UpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := productsvc.UpdateProductInput{
			Name:          payload.Name,
			Slug:          payload.Slug,
			Description:   payload.Description,
			Price:         payload.Price,
			OriginalPrice: payload.OriginalPrice,
			Images:        payload.Images,
			Featured:      payload.Featured,
		}
		if payload.CategoryID != nil {
			categoryID, err := validators.ParsePathUUID(*payload.CategoryID, "categoryId")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.CategoryID = &categoryID
		}

		product, err := svc.UpdateProduct(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func DeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"message": "product deleted"})
	}
}
