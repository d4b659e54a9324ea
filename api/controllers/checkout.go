package controllers

import (
	"net/http"

	"github.com/rigforge/rigforge-backend/api/responses"
	"github.com/rigforge/rigforge-backend/api/validators"
	"github.com/rigforge/rigforge-backend/internal/checkout"
	"github.com/rigforge/rigforge-backend/pkg/enums"
	pkgerrors "github.com/rigforge/rigforge-backend/pkg/errors"
	"github.com/rigforge/rigforge-backend/pkg/logger"
	"github.com/rigforge/rigforge-backend/pkg/types"
)

type checkoutRequest struct {
	PaymentMethod   string         `json:"payment_method" validate:"required"`
	ShippingAddress *types.Address `json:"shipping_address,omitempty"`
}

// Checkout converts the caller's cart into an order.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		order, err := svc.Place(r.Context(), userID, checkout.Input{
			PaymentMethod:   method,
			ShippingAddress: payload.ShippingAddress,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
