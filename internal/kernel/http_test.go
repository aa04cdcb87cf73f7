package kernel_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-go/storefront/config"
	"github.com/storefront-go/storefront/internal/kernel"
	"github.com/storefront-go/storefront/pkg/router"
	"github.com/storefront-go/storefront/pkg/testkit"
)

func newKernel(t *testing.T, cfg config.HTTPConfig) *kernel.HTTPKernel {
	t.Helper()
	k, err := kernel.NewHTTPKernel(cfg, func(r *router.Router) error {
		r.Get("/ping", "ping", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		r.Post("/boom", "boom", func(http.ResponseWriter, *http.Request) {
			panic("kaboom")
		})
		return nil
	})
	require.NoError(t, err)
	return k
}

func TestKernelJSONFallbacks(t *testing.T) {
	k := newKernel(t, config.HTTPConfig{RateLimit: 100, RateWindow: time.Minute})

	rec := testkit.Do(t, k.Handler(), http.MethodGet, "/nowhere", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", testkit.Decode(t, rec, nil).Message)

	rec = testkit.Do(t, k.Handler(), http.MethodDelete, "/ping", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestKernelStack(t *testing.T) {
	k := newKernel(t, config.HTTPConfig{RateLimit: 2, RateWindow: time.Hour})

	rec := testkit.Do(t, k.Handler(), http.MethodGet, "/ping", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = testkit.Do(t, k.Handler(), http.MethodPost, "/boom", "{}", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "kaboom")

	rec = testkit.Do(t, k.Handler(), http.MethodGet, "/ping", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
