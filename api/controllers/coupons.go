package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rigforge/rigforge-backend/api/responses"
	"github.com/rigforge/rigforge-backend/api/validators"
	"github.com/rigforge/rigforge-backend/internal/coupons"
	"github.com/rigforge/rigforge-backend/pkg/enums"
	pkgerrors "github.com/rigforge/rigforge-backend/pkg/errors"
	"github.com/rigforge/rigforge-backend/pkg/logger"
)

type createCouponRequest struct {
	Code             string   `json:"code" validate:"required"`
	Type             string   `json:"type" validate:"required"`
	Value            int      `json:"value" validate:"required,min=1"`
	MinOrderCents    int      `json:"min_order_cents" validate:"min=0"`
	MaxDiscountCents *int     `json:"max_discount_cents,omitempty"`
	ExpiresAt        string   `json:"expires_at" validate:"required"`
	UsageLimit       int      `json:"usage_limit" validate:"min=0"`
	AllowedUsers     []string `json:"allowed_users,omitempty"`
}

func AdminCreateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		couponType, err := enums.ParseCouponType(payload.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coupon type"))
			return
		}

		expiresAt, err := time.Parse(time.RFC3339, payload.ExpiresAt)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid expires_at"))
			return
		}

		allowed := make([]uuid.UUID, 0, len(payload.AllowedUsers))
		for _, raw := range payload.AllowedUsers {
			userID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid allowed user id"))
				return
			}
			allowed = append(allowed, userID)
		}

		coupon, err := svc.Create(r.Context(), coupons.CreateInput{
			Code:             payload.Code,
			Type:             couponType,
			Value:            payload.Value,
			MinOrderCents:    payload.MinOrderCents,
			MaxDiscountCents: payload.MaxDiscountCents,
			ExpiresAt:        expiresAt,
			UsageLimit:       payload.UsageLimit,
			AllowedUsers:     allowed,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, coupon)
	}
}

func AdminListCoupons(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := parsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminDeactivateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		couponID, err := parseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Deactivate(r.Context(), couponID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
