package testkit

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// Envelope mirrors response.Envelope with Data left raw so tests can decode
// it into the type they expect.
type Envelope struct {
	Status  int               `json:"status"`
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

// Do sends a request through h. body is JSON-encoded unless it is already a
// string or nil; token, when set, goes in the Authorization header.
func Do(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// Decode parses the JSON envelope and, when dest is non-nil, its data.
func Decode(t *testing.T, rec *httptest.ResponseRecorder, dest any) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	if dest != nil {
		require.NotEmpty(t, env.Data, "body: %s", rec.Body.String())
		require.NoError(t, json.Unmarshal(env.Data, dest))
	}
	return env
}
