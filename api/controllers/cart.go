package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rigforge/rigforge-backend/api/responses"
	"github.com/rigforge/rigforge-backend/api/validators"
	"github.com/rigforge/rigforge-backend/internal/cart"
	"github.com/rigforge/rigforge-backend/pkg/enums"
	pkgerrors "github.com/rigforge/rigforge-backend/pkg/errors"
	"github.com/rigforge/rigforge-backend/pkg/logger"
)

func CartFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

type cartAddItemRequest struct {
	// Exactly one of product_id or build must be set.
	ProductID *string               `json:"product_id,omitempty" validate:"omitempty,uuid4"`
	Build     *cartCustomBuildInput `json:"build,omitempty"`
	Qty       int                   `json:"qty" validate:"required,min=1"`
}

type cartCustomBuildInput struct {
	Name  string            `json:"name" validate:"required"`
	Slots map[string]string `json:"slots" validate:"required"`
}

func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartAddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		switch {
		case payload.ProductID != nil && payload.Build != nil:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "provide either product_id or build, not both"))
			return
		case payload.ProductID != nil:
			productID, err := uuid.Parse(*payload.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
				return
			}
			summary, err := svc.AddProduct(r.Context(), userID, productID, payload.Qty)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccessStatus(w, http.StatusCreated, summary)
			return
		case payload.Build != nil:
			slots, err := parseBuildSlots(payload.Build.Slots)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			summary, err := svc.AddCustomBuild(r.Context(), userID, payload.Build.Name, slots, payload.Qty)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccessStatus(w, http.StatusCreated, summary)
			return
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product_id or build is required"))
			return
		}
	}
}

type cartUpdateItemRequest struct {
	Qty int `json:"qty" validate:"required,min=1"`
}

func CartUpdateItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := parseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload cartUpdateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.UpdateItemQty(r.Context(), userID, itemID, payload.Qty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := parseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.RemoveItem(r.Context(), userID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

type cartCouponRequest struct {
	Code string `json:"code" validate:"required"`
}

func CartApplyCoupon(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload cartCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.ApplyCoupon(r.Context(), userID, payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func CartRemoveCoupon(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.RemoveCoupon(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func parseBuildSlots(raw map[string]string) (map[enums.ComponentCategory]uuid.UUID, error) {
	slots := make(map[enums.ComponentCategory]uuid.UUID, len(raw))
	for key, value := range raw {
		category, err := enums.ParseComponentCategory(strings.TrimSpace(key))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid build slot").WithDetails(map[string]any{"slot": key})
		}
		componentID, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid component id").WithDetails(map[string]any{"slot": key})
		}
		slots[category] = componentID
	}
	return slots, nil
}
