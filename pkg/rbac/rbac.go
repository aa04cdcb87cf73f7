// Package rbac gates routes on the authenticated principal. Every guard
// assumes middleware.Authenticate already ran.
package rbac

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/storefront-go/storefront/pkg/auth"
	"github.com/storefront-go/storefront/pkg/response"
)

// Admin allows only administrators.
func Admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFrom(r.Context())
		if !ok {
			response.Unauthorized(w, "")
			return
		}
		if !p.IsAdmin {
			response.Forbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AdminOrSelf allows administrators, or the user whose id is the named
// path parameter.
func AdminOrSelf(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFrom(r.Context())
			if !ok {
				response.Unauthorized(w, "")
				return
			}
			if p.IsAdmin {
				next.ServeHTTP(w, r)
				return
			}
			id, err := strconv.ParseUint(chi.URLParam(r, param), 10, 64)
			if err != nil || uint(id) != p.ID {
				response.Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
