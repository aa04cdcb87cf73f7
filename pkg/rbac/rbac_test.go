package rbac_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/storefront-go/storefront/pkg/auth"
	"github.com/storefront-go/storefront/pkg/rbac"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

func withPrincipal(p *auth.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p != nil {
				r = r.WithContext(auth.WithPrincipal(r.Context(), *p))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func do(p *auth.Principal, path string) int {
	r := chi.NewRouter()
	r.Use(withPrincipal(p))
	r.With(rbac.Admin).Get("/admin", ok)
	r.With(rbac.AdminOrSelf("id")).Get("/users/{id}", ok)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec.Code
}

func TestAdmin(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, do(nil, "/admin"))
	assert.Equal(t, http.StatusForbidden, do(&auth.Principal{ID: 2}, "/admin"))
	assert.Equal(t, http.StatusOK, do(&auth.Principal{ID: 1, IsAdmin: true}, "/admin"))
}

func TestAdminOrSelf(t *testing.T) {
	assert.Equal(t, http.StatusOK, do(&auth.Principal{ID: 2}, "/users/2"))
	assert.Equal(t, http.StatusForbidden, do(&auth.Principal{ID: 2}, "/users/3"))
	assert.Equal(t, http.StatusOK, do(&auth.Principal{ID: 1, IsAdmin: true}, "/users/3"))
	assert.Equal(t, http.StatusUnauthorized, do(nil, "/users/3"))
}
