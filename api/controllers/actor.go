package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/skyserve/skyserve-backend/api/middleware"
	"github.com/skyserve/skyserve-backend/internal/orders"
	"github.com/skyserve/skyserve-backend/pkg/enums"
	pkgerrors "github.com/skyserve/skyserve-backend/pkg/errors"
)

// actorFromRequest rebuilds the authenticated actor from the values the auth
// middleware seeded into the request context.
func actorFromRequest(r *http.Request) (orders.Actor, error) {
	userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return orders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	role, err := enums.ParseActorRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return orders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	actor := orders.Actor{UserID: userID, Role: role}
	if raw := middleware.ShopIDFromContext(r.Context()); raw != "" {
		shopID, err := uuid.Parse(raw)
		if err != nil {
			return orders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
		}
		actor.ShopID = &shopID
	}
	return actor, nil
}
