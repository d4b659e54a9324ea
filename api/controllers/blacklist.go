package controllers

import (
	"net/http"

	"github.com/rigforge/rigforge-backend/api/responses"
	"github.com/rigforge/rigforge-backend/internal/blacklist"
	"github.com/rigforge/rigforge-backend/pkg/logger"
)

// AdminListBlacklist pages through withdrawn component entries.
func AdminListBlacklist(svc blacklist.Service, logg *logger.Logger) http.HandlerFunc {
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
