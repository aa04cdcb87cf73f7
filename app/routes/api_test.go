package routes_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-go/storefront/app/models"
	"github.com/storefront-go/storefront/app/repositories"
	"github.com/storefront-go/storefront/app/routes"
	"github.com/storefront-go/storefront/app/services"
	"github.com/storefront-go/storefront/config"
	"github.com/storefront-go/storefront/pkg/auth"
	"github.com/storefront-go/storefront/pkg/router"
	"github.com/storefront-go/storefront/pkg/testkit"
)

type app struct {
	h      http.Handler
	disk   *testkit.MemoryDisk
	mailer *testkit.Mailer
	admin  string
	buyer  string
	other  string
	buyers [2]uint
}

func newApp(t *testing.T) *app {
	t.Helper()
	cfg := &config.Config{
		JWT:     config.JWTConfig{Secret: "routes-secret", TTL: time.Hour},
		Storage: config.StorageConfig{UploadTimeout: time.Second},
		Receipt: config.ReceiptConfig{StoreName: "Storefront", Prefix: "receipts"},
		Mail:    config.MailConfig{Timeout: time.Second},
		Sales:   config.SalesConfig{PricePolicy: config.PriceTrustClient},
	}
	db := testkit.DB(t)
	users := repositories.NewUserRepository(db)
	issuer := auth.NewIssuer(cfg.JWT)

	a := &app{disk: testkit.NewMemoryDisk(), mailer: testkit.NewMailer()}
	userSvc := services.NewUserService(users)
	catalog := services.NewCatalogService(repositories.NewCategoryRepository(db), repositories.NewProductRepository(db), nil)
	sales := services.NewSaleService(cfg, repositories.NewSaleRepository(db), repositories.NewProductRepository(db), a.disk, a.mailer)

	r := router.New()
	require.NoError(t, routes.RegisterAPI(r, routes.Deps{
		Issuer:  issuer,
		Auth:    services.NewAuthService(users, issuer),
		Users:   userSvc,
		Catalog: catalog,
		Sales:   sales,
		Disk:    a.disk,
	}))
	a.h = r.Handler()

	token := func(name string, admin bool) (string, uint) {
		u, err := userSvc.Create(context.Background(), services.CreateUserInput{
			Username: name, Email: name + "@shop.test", Password: "secret1", IsAdmin: admin,
		})
		require.NoError(t, err)
		role := auth.RoleUser
		if admin {
			role = auth.RoleAdmin
		}
		tok, err := issuer.Issue(u.ID, u.Email, role)
		require.NoError(t, err)
		return tok, u.ID
	}
	a.admin, _ = token("root", true)
	a.buyer, a.buyers[0] = token("ada", false)
	a.other, a.buyers[1] = token("bob", false)
	return a
}

func (a *app) do(t *testing.T, method, path string, body any, token string) *result {
	t.Helper()
	rec := testkit.Do(t, a.h, method, path, body, token)
	return &result{code: rec.Code, env: testkit.Decode(t, rec, nil), raw: rec.Body.String()}
}

type result struct {
	code int
	env  testkit.Envelope
	raw  string
}

// ─── Auth ─────────────────────────────────────────────────────────────────────

func TestLoginAndRegister(t *testing.T) {
	a := newApp(t)

	rec := testkit.Do(t, a.h, http.MethodPost, "/register", map[string]any{
		"username": "cy", "email": "cy@shop.test", "password": "secret1",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var user models.User
	testkit.Decode(t, rec, &user)
	assert.False(t, user.IsAdmin)

	rec = testkit.Do(t, a.h, http.MethodPost, "/users/login", map[string]any{"email": "cy@shop.test", "password": "secret1"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res services.LoginResult
	testkit.Decode(t, rec, &res)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, user.ID, res.UserID)

	bad := a.do(t, http.MethodPost, "/login", map[string]any{"email": "cy@shop.test", "password": "nope123"}, "")
	assert.Equal(t, http.StatusUnauthorized, bad.code)
	assert.Equal(t, "Invalid email or password", bad.env.Message)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	a := newApp(t)

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/products", nil, "").code)
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/products", nil, "garbage").code)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodPost, "/categories", map[string]any{"name": "Tools"}, a.buyer).code)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, "/users", nil, a.buyer).code)
}

func TestUserSelfAccess(t *testing.T) {
	a := newApp(t)
	self := fmt.Sprintf("/users/%d", a.buyers[0])
	other := fmt.Sprintf("/users/%d", a.buyers[1])

	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, self, nil, a.buyer).code)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, other, nil, a.buyer).code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodPut, self, map[string]any{"city": "Paris"}, a.buyer).code)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodPut, self, map[string]any{"isAdmin": true}, a.buyer).code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodPut, other, map[string]any{"isAdmin": true}, a.admin).code)
}

// ─── Catalog ──────────────────────────────────────────────────────────────────

func TestCatalogRoutes(t *testing.T) {
	a := newApp(t)

	rec := testkit.Do(t, a.h, http.MethodPost, "/categories", map[string]any{"name": "Tools"}, a.admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cat models.Category
	testkit.Decode(t, rec, &cat)

	dup := a.do(t, http.MethodPost, "/categories", map[string]any{"name": "Tools"}, a.admin)
	assert.Equal(t, http.StatusConflict, dup.code)

	rec = testkit.Do(t, a.h, http.MethodPost, "/products/create", map[string]any{
		"name": "Hammer", "price": "12.50", "categoryId": cat.ID, "stock": 3,
	}, a.admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	invalid := a.do(t, http.MethodPost, "/products", map[string]any{"name": "Nail", "price": "0", "categoryId": cat.ID}, a.admin)
	assert.Equal(t, http.StatusBadRequest, invalid.code)
	assert.Contains(t, invalid.env.Errors, "price")

	var list []models.Product
	testkit.Decode(t, testkit.Do(t, a.h, http.MethodGet, "/products/price/10", nil, a.buyer), &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Hammer", list[0].Name)

	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/products/price/20", nil, a.buyer).code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/products/price/cheap", nil, a.buyer).code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/products/name/Hammer", nil, a.buyer).code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, fmt.Sprintf("/products/category/%d", cat.ID), nil, a.buyer).code)

	blocked := a.do(t, http.MethodDelete, fmt.Sprintf("/categories/%d", cat.ID), nil, a.admin)
	assert.Equal(t, http.StatusConflict, blocked.code)
}

func TestCatalogGraphQL(t *testing.T) {
	a := newApp(t)
	rec := testkit.Do(t, a.h, http.MethodPost, "/categories", map[string]any{"name": "Tools"}, a.admin)
	var cat models.Category
	testkit.Decode(t, rec, &cat)
	testkit.Do(t, a.h, http.MethodPost, "/products", map[string]any{
		"name": "Hammer", "price": "12.5", "categoryId": cat.ID, "stock": 1,
	}, a.admin)

	query := fmt.Sprintf(`{ categories { name } products(categoryId: %d, minPrice: "10") { name price } }`, cat.ID)
	rec = testkit.Do(t, a.h, http.MethodPost, "/graphql", map[string]any{"query": query}, a.buyer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"data":{"categories":[{"name":"Tools"}],"products":[{"name":"Hammer","price":"12.50"}]}}`,
		rec.Body.String())
}

// ─── Sales ────────────────────────────────────────────────────────────────────

func saleBody(userID uint) map[string]any {
	return map[string]any{
		"userId": userID,
		"cart":   []map[string]any{{"name": "Widget", "price": "9.99", "quantity": 2}},
		"total":  "19.98",
		"email":  "a@b.com",
	}
}

func TestRegisterSaleRoute(t *testing.T) {
	a := newApp(t)

	rec := testkit.Do(t, a.h, http.MethodPost, "/sales/register-sale", saleBody(a.buyers[0]), a.buyer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sale models.Sale
	env := testkit.Decode(t, rec, &sale)
	assert.Equal(t, "Sale registered successfully", env.Message)
	assert.Equal(t, models.SaleNotified, sale.Status)
	require.NotNil(t, sale.PdfURL)
	assert.Equal(t, "https://files.test/receipts/sale-"+fmt.Sprint(sale.ID)+".pdf", *sale.PdfURL)
	assert.Len(t, a.mailer.Sent(), 1)
}

func TestRegisterSaleMissingFields(t *testing.T) {
	a := newApp(t)
	res := a.do(t, http.MethodPost, "/sales/register-sale", map[string]any{"userId": a.buyers[0]}, a.buyer)
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "Missing required fields", res.env.Message)
	assert.Equal(t, 0, a.disk.Puts())
}

func TestRegisterSaleForSomeoneElse(t *testing.T) {
	a := newApp(t)
	res := a.do(t, http.MethodPost, "/sales/register-sale", saleBody(a.buyers[1]), a.buyer)
	assert.Equal(t, http.StatusForbidden, res.code)

	res = a.do(t, http.MethodPost, "/sales/register-sale", saleBody(a.buyers[1]), a.admin)
	assert.Equal(t, http.StatusCreated, res.code, res.raw)
}

func TestRegisterSaleUploadFailureKeepsSale(t *testing.T) {
	a := newApp(t)
	a.disk.FailPut = errors.New("bucket offline")

	rec := testkit.Do(t, a.h, http.MethodPost, "/sales/register-sale", saleBody(a.buyers[0]), a.buyer)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var sale models.Sale
	env := testkit.Decode(t, rec, &sale)
	assert.Equal(t, "UpstreamFailure", env.Kind)
	assert.NotContains(t, rec.Body.String(), "bucket offline")
	assert.NotZero(t, sale.ID)
	assert.Nil(t, sale.PdfURL)

	// The stored cause stays server-side on reads too.
	for _, path := range []string{fmt.Sprintf("/sales/%d", sale.ID), "/sales"} {
		res := a.do(t, http.MethodGet, path, nil, a.buyer)
		require.Equal(t, http.StatusOK, res.code, res.raw)
		assert.NotContains(t, res.raw, "bucket offline")
		assert.NotContains(t, res.raw, "lastError")
	}

	// An admin retries once the store is back.
	a.disk.FailPut = nil
	rec = testkit.Do(t, a.h, http.MethodPost, fmt.Sprintf("/sales/%d/resume", sale.ID), nil, a.admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	testkit.Decode(t, rec, &sale)
	assert.Equal(t, models.SaleNotified, sale.Status)
	assert.NotNil(t, sale.PdfURL)
}

func TestSalesAreScopedToBuyer(t *testing.T) {
	a := newApp(t)
	rec := testkit.Do(t, a.h, http.MethodPost, "/sales/register-sale", saleBody(a.buyers[0]), a.buyer)
	var sale models.Sale
	testkit.Decode(t, rec, &sale)
	path := fmt.Sprintf("/sales/%d", sale.ID)

	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, path, nil, a.buyer).code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, path, nil, a.admin).code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, path, nil, a.other).code)

	var mine, theirs []models.Sale
	testkit.Decode(t, testkit.Do(t, a.h, http.MethodGet, "/sales", nil, a.buyer), &mine)
	testkit.Decode(t, testkit.Do(t, a.h, http.MethodGet, "/sales", nil, a.other), &theirs)
	assert.Len(t, mine, 1)
	assert.Empty(t, theirs)

	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/sales/999", nil, a.admin).code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/sales/abc", nil, a.admin).code)
}

func TestSaleEventsStreamEndsOnceNotified(t *testing.T) {
	a := newApp(t)
	rec := testkit.Do(t, a.h, http.MethodPost, "/sales/register-sale", saleBody(a.buyers[0]), a.buyer)
	var sale models.Sale
	testkit.Decode(t, rec, &sale)

	rec = testkit.Do(t, a.h, http.MethodGet, fmt.Sprintf("/sales/%d/events", sale.ID), nil, a.buyer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event: sale.status\n")
	assert.Contains(t, rec.Body.String(), `"status":"notified"`)

	other := testkit.Do(t, a.h, http.MethodGet, fmt.Sprintf("/sales/%d/events", sale.ID), nil, a.other)
	assert.Equal(t, http.StatusNotFound, other.Code)
}

func TestRouteNames(t *testing.T) {
	r := router.New()
	require.NoError(t, routes.RegisterAPI(r, routes.Deps{
		Issuer:  auth.NewIssuer(config.JWTConfig{Secret: "x", TTL: time.Minute}),
		Disk:    testkit.NewMemoryDisk(),
		Catalog: services.NewCatalogService(nil, nil, nil),
	}))
	url, err := r.URL("sales.resume", map[string]string{"id": "4"})
	require.NoError(t, err)
	assert.Equal(t, "/sales/4/resume", url)
}
