package ctx_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-go/storefront/pkg/apperr"
	"github.com/storefront-go/storefront/pkg/auth"
	appctx "github.com/storefront-go/storefront/pkg/ctx"
)

type envelope struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func serve(h appctx.HandlerFunc, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	rec := httptest.NewRecorder()
	appctx.Wrap(h)(rec, req)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestSuccess(t *testing.T) {
	rec, env := serve(func(c *appctx.Context) {
		c.Success(map[string]any{"id": 1})
	}, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 200, env.Status)
	assert.JSONEq(t, `{"id":1}`, string(env.Data))
}

func TestCreated(t *testing.T) {
	rec, env := serve(func(c *appctx.Context) {
		c.Created("Sale registered", map[string]any{"id": 9})
	}, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Sale registered", env.Message)
}

func TestBindJSONValid(t *testing.T) {
	body := `{"name":"John","email":"john@example.com"}`
	rec, _ := serve(func(c *appctx.Context) {
		var input struct {
			Name  string `json:"name"  validate:"required"`
			Email string `json:"email" validate:"required,email"`
		}
		require.True(t, c.BindJSON(&input))
		assert.Equal(t, "John", input.Name)
		c.Success(nil)
	}, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBindJSONValidationFails(t *testing.T) {
	rec, env := serve(func(c *appctx.Context) {
		var input struct {
			Name string `json:"name" validate:"required"`
		}
		assert.False(t, c.BindJSON(&input))
	}, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", env.Message)
	assert.Equal(t, "The name field is required.", env.Errors["name"])
}

func TestBindJSONMalformed(t *testing.T) {
	rec, _ := serve(func(c *appctx.Context) {
		var input struct{}
		assert.False(t, c.BindJSON(&input))
	}, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFailMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{apperr.NotFound("Sale not found"), 404, "Sale not found"},
		{apperr.Conflict("Category already exists"), 409, "Category already exists"},
		{apperr.Unauthorized("Invalid credentials"), 401, "Invalid credentials"},
		{apperr.Upstream("ReceiptUploadFailed", "Failed to upload receipt", errors.New("s3 down")), 500, "Failed to upload receipt"},
		{errors.New("raw database error"), 500, "Internal Server Error"},
	}
	for _, tc := range cases {
		rec, env := serve(func(c *appctx.Context) { c.Fail(tc.err) },
			httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, tc.status, rec.Code)
		assert.Equal(t, tc.msg, env.Message)
		assert.NotContains(t, rec.Body.String(), "s3 down")
		assert.NotContains(t, rec.Body.String(), "raw database error")
	}
}

func TestParamUint(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/sales/{id}", appctx.Wrap(func(c *appctx.Context) {
		id, ok := c.ParamUint("id")
		if !ok {
			return
		}
		c.Success(id)
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales/42", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":42`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPrincipal(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{ID: 5, IsAdmin: true}))

	serve(func(c *appctx.Context) {
		p, ok := c.Principal()
		require.True(t, ok)
		assert.Equal(t, uint(5), p.ID)
		c.Success(nil)
	}, req)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	assert.Equal(t, "1.2.3.4", appctx.ClientIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "9.8.7.6:5555"
	assert.Equal(t, "9.8.7.6", appctx.ClientIP(req))
}
