package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/rigforge/rigforge-backend/pkg/errors"
	"github.com/rigforge/rigforge-backend/pkg/logger"
	"github.com/rigforge/rigforge-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// passthroughCodes are safe to surface with their internal message; everything
// else falls back to the public message for the code.
var passthroughCodes = map[pkgerrors.Code]struct{}{
	pkgerrors.CodeValidation:            {},
	pkgerrors.CodeForbidden:             {},
	pkgerrors.CodeUnauthorized:          {},
	pkgerrors.CodeNotFound:              {},
	pkgerrors.CodeConflict:              {},
	pkgerrors.CodeStateConflict:         {},
	pkgerrors.CodeEmptyCart:             {},
	pkgerrors.CodeInsufficientStock:     {},
	pkgerrors.CodeInsufficientWallet:    {},
	pkgerrors.CodeCouponNotFound:        {},
	pkgerrors.CodeCouponInactive:        {},
	pkgerrors.CodeCouponExpired:         {},
	pkgerrors.CodeCouponUsageLimit:      {},
	pkgerrors.CodeCouponAlreadyUsed:     {},
	pkgerrors.CodeCouponBelowMinimum:    {},
	pkgerrors.CodeCouponMinimumViolated: {},
	pkgerrors.CodeCouponNotAllowed:      {},
	pkgerrors.CodeInvalidTransition:     {},
	pkgerrors.CodeAlreadyCancelled:      {},
	pkgerrors.CodeReturnReasonRequired:  {},
	pkgerrors.CodePaymentNotVerified:    {},
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	if _, ok := passthroughCodes[typed.Code()]; ok {
		if m := typed.Message(); m != "" {
			msg = m
		}
	}

	payload := types.ErrorEnvelope{
		Error: types.APIError{
			Code:    string(typed.Code()),
			Message: msg,
		},
	}

	if meta.DetailsAllowed {
		if details := typed.Details(); details != nil {
			payload.Error.Details = details
		}
	}

	if logg != nil {
		dump := pkgerrors.Dump(err)

		fields := map[string]any{
			"error":         dump.TopMessage,
			"error_code":    dump.Code,
			"error_chain":   dump.Chain,
			"pg_code":       dump.PGCode,
			"pg_detail":     dump.PGDetail,
			"pg_message":    dump.PGMessage,
			"pg_table":      dump.PGTable,
			"pg_column":     dump.PGColumn,
			"pg_constraint": dump.PGConstraint,
		}

		ctx = logg.WithFields(ctx, fields)
		logg.Error(ctx, "request.error", err)
	}

	writeJSON(w, meta.HTTPStatus, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
