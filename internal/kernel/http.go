// Package kernel builds the storefront's HTTP handler: the global middleware
// stack plus whatever routes the caller registers.
package kernel

import (
	"net/http"

	"github.com/storefront-go/storefront/config"
	"github.com/storefront-go/storefront/pkg/metrics"
	"github.com/storefront-go/storefront/pkg/middleware"
	"github.com/storefront-go/storefront/pkg/reqid"
	"github.com/storefront-go/storefront/pkg/response"
	"github.com/storefront-go/storefront/pkg/router"
)

// HTTPKernel owns the router and the per-IP limiter the scheduler evicts.
type HTTPKernel struct {
	Router  *router.Router
	Limiter *middleware.RateLimiter
}

// NewHTTPKernel installs the global middleware and then calls register.
func NewHTTPKernel(cfg config.HTTPConfig, register func(*router.Router) error) (*HTTPKernel, error) {
	r := router.New()
	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)

	// Global middleware stack (outermost → innermost):
	//  1. Prometheus metrics: outermost for accurate total latency
	//  2. Recovery: catches panics before they kill the goroutine
	//  3. Request ID: inject unique ID before anything logs
	//  4. Logger: logs request_id from context
	//  5. CORS
	//  6. Rate limiter: reject abusers early
	//  7. Body limit
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.DefaultCORSOptions(cfg.CORSOrigins)))
	r.Use(limiter.Middleware)
	if cfg.MaxBodyBytes > 0 {
		r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	if err := register(r); err != nil {
		return nil, err
	}
	return &HTTPKernel{Router: r, Limiter: limiter}, nil
}

func (k *HTTPKernel) Handler() http.Handler { return k.Router.Handler() }
