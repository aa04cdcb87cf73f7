// Package routes declares every HTTP endpoint. Route names are used by
// route:list and router.URL.
package routes

import (
	"net/http"

	"github.com/storefront-go/storefront/app/controllers"
	"github.com/storefront-go/storefront/app/services"
	"github.com/storefront-go/storefront/pkg/auth"
	"github.com/storefront-go/storefront/pkg/ctx"
	"github.com/storefront-go/storefront/pkg/metrics"
	"github.com/storefront-go/storefront/pkg/middleware"
	"github.com/storefront-go/storefront/pkg/rbac"
	"github.com/storefront-go/storefront/pkg/router"
	"github.com/storefront-go/storefront/pkg/storage"
	"github.com/storefront-go/storefront/pkg/ws"
)

// Deps is everything the handlers reach into.
type Deps struct {
	Issuer  *auth.Issuer
	Auth    *services.AuthService
	Users   *services.UserService
	Catalog *services.CatalogService
	Sales   *services.SaleService
	Disk    storage.Disk
	Hub     *ws.Hub
	Probes  map[string]controllers.Probe
}

// RegisterAPI mounts the public, authenticated and admin routes on r.
func RegisterAPI(r *router.Router, d Deps) error {
	authC := controllers.NewAuthController(d.Auth)
	userC := controllers.NewUserController(d.Users)
	catC := controllers.NewCategoryController(d.Catalog)
	prodC := controllers.NewProductController(d.Catalog)
	saleC := controllers.NewSaleController(d.Sales)
	healthC := controllers.NewHealthController(d.Probes)

	gql, err := controllers.CatalogGraphQL(d.Catalog)
	if err != nil {
		return err
	}

	// ─── Public ───────────────────────────────────────────────────────────
	r.Post("/login", "auth.login", ctx.Wrap(authC.Login))
	r.Post("/users/login", "users.login", ctx.Wrap(authC.Login))
	r.Post("/register", "auth.register", ctx.Wrap(authC.Register))
	r.Post("/users/register", "users.register", ctx.Wrap(authC.Register))
	r.Get("/healthz", "health", ctx.Wrap(healthC.Check))
	r.Get("/metrics", "metrics", metrics.Handler())

	if local, ok := d.Disk.(*storage.Local); ok {
		r.Mount("/storage", "storage", http.StripPrefix("/storage", http.FileServer(http.Dir(local.Root()))))
	}

	// ─── Authenticated ────────────────────────────────────────────────────
	api := r.Group("/", middleware.Authenticate(d.Issuer))
	admin := api.Group("/", rbac.Admin)

	admin.Get("/users", "users.index", ctx.Wrap(userC.Index))
	admin.Post("/users", "users.store", ctx.Wrap(userC.Store))
	api.Get("/users/{id}", "users.show", ctx.Wrap(userC.Show), rbac.AdminOrSelf("id"))
	api.Put("/users/{id}", "users.update", ctx.Wrap(userC.Update), rbac.AdminOrSelf("id"))
	admin.Delete("/users/{id}", "users.destroy", ctx.Wrap(userC.Destroy))

	api.Get("/categories", "categories.index", ctx.Wrap(catC.Index))
	api.Get("/categories/{id}", "categories.show", ctx.Wrap(catC.Show))
	admin.Post("/categories", "categories.store", ctx.Wrap(catC.Store))
	admin.Put("/categories/{id}", "categories.update", ctx.Wrap(catC.Update))
	admin.Delete("/categories/{id}", "categories.destroy", ctx.Wrap(catC.Destroy))

	api.Get("/products", "products.index", ctx.Wrap(prodC.Index))
	api.Get("/products/{id}", "products.show", ctx.Wrap(prodC.Show))
	api.Get("/products/name/{name}", "products.by-name", ctx.Wrap(prodC.ShowByName))
	api.Get("/products/category/{category}", "products.by-category", ctx.Wrap(prodC.ByCategory))
	api.Get("/products/price/{price}", "products.by-price", ctx.Wrap(prodC.ByPrice))
	admin.Post("/products", "products.store", ctx.Wrap(prodC.Store))
	admin.Post("/products/create", "products.create", ctx.Wrap(prodC.Store))
	admin.Patch("/products/{id}", "products.update", ctx.Wrap(prodC.Update))
	admin.Delete("/products/{id}", "products.destroy", ctx.Wrap(prodC.Destroy))

	api.Post("/sales/register-sale", "sales.register", ctx.Wrap(saleC.Register))
	api.Get("/sales", "sales.index", ctx.Wrap(saleC.Index))
	api.Get("/sales/{id}", "sales.show", ctx.Wrap(saleC.Show))
	api.Get("/sales/{id}/events", "sales.events", ctx.Wrap(saleC.Events))
	admin.Post("/sales/{id}/resume", "sales.resume", ctx.Wrap(saleC.Resume))

	api.Post("/graphql", "graphql", gql)
	if d.Hub != nil {
		admin.Get("/ws/sales", "sales.feed", d.Hub.Serve)
	}
	return nil
}
