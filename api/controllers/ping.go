package controllers

import (
	"net/http"

	"github.com/propertyloyalty/points-backend/api/middleware"
	"github.com/propertyloyalty/points-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

// PrivatePing echoes the identity the caller's token was issued for.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"scope":    "private",
			"status":   "ok",
			"user_id":  middleware.UserIDFromContext(r.Context()),
			"identity": middleware.IdentityFromContext(r.Context()).String(),
		})
	}
}
