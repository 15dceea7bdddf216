package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/lamnguyen/vestika-backend/api/middleware"
	"github.com/lamnguyen/vestika-backend/pkg/enums"
	pkgerrors "github.com/lamnguyen/vestika-backend/pkg/errors"
)

// requestUserID extracts the authenticated user's id from the request context.
func requestUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

func requestIsAdmin(r *http.Request) bool {
	return middleware.RoleFromContext(r.Context()) == string(enums.UserRoleAdmin)
}
