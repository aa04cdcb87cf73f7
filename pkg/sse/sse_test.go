package sse_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-go/storefront/pkg/sse"
)

func TestStreamWritesEvents(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events", nil)

	s, err := sse.New(rec, req)
	require.NoError(t, err)
	require.NoError(t, s.Send("sale.status", map[string]any{"status": "linked"}))
	require.NoError(t, s.Comment("ping"))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "event: sale.status\ndata: {\"status\":\"linked\"}\n\n: ping\n\n", rec.Body.String())
	assert.True(t, rec.Flushed)
}

type plainWriter struct{ http.ResponseWriter }

func TestStreamNeedsFlusher(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	_, err := sse.New(plainWriter{httptest.NewRecorder()}, req)
	assert.Error(t, err)
}
