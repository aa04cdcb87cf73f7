package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-go/storefront/pkg/router"
)

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func tag(v string) router.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Chain", v)
			next.ServeHTTP(w, r)
		})
	}
}

func TestGroupPrefixAndMiddlewareOrder(t *testing.T) {
	r := router.New()
	api := r.Group("/api", tag("group"))
	api.Group("sales/").Get("{id}", "sales.show", ok, tag("route"))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sales/7", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"group", "route"}, rec.Header().Values("X-Chain"))
}

func TestVerbs(t *testing.T) {
	r := router.New()
	g := r.Group("/")
	g.Put("/users/{id}", "users.update", ok)
	g.Patch("/products/{id}", "products.update", ok)
	g.Delete("/products/{id}", "products.delete", ok)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPut, "/users/1"},
		{http.MethodPatch, "/products/1"},
		{http.MethodDelete, "/products/1"},
	} {
		rec := httptest.NewRecorder()
		r.Handler().ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, tc.method+" "+tc.path)
	}
}

func TestNamedURL(t *testing.T) {
	r := router.New()
	r.Get("/sales/{id}", "sales.show", ok)

	url, err := r.URL("sales.show", map[string]string{"id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "/sales/42", url)

	_, err = r.URL("sales.show", nil)
	assert.Error(t, err)
	_, err = r.URL("nope", nil)
	assert.Error(t, err)
}

func TestRoutesAreSorted(t *testing.T) {
	r := router.New()
	r.Post("/sales/register-sale", "sales.register", ok)
	r.Get("/categories", "categories.index", ok)
	r.Group("/").Post("/categories", "categories.store", ok)

	routes := r.Routes()
	require.Len(t, routes, 3)
	assert.Equal(t, router.Route{Method: "GET", Path: "/categories", Name: "categories.index"}, routes[0])
	assert.Equal(t, "POST", routes[1].Method)
	assert.Equal(t, "/sales/register-sale", routes[2].Path)
}
