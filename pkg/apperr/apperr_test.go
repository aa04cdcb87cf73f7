package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/storefront-go/storefront/pkg/apperr"
)

func TestStatusIsTotal(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindInvalidRequest:  http.StatusBadRequest,
		apperr.KindUnauthorized:    http.StatusUnauthorized,
		apperr.KindForbidden:       http.StatusForbidden,
		apperr.KindNotFound:        http.StatusNotFound,
		apperr.KindConflict:        http.StatusConflict,
		apperr.KindUpstreamFailure: http.StatusInternalServerError,
		apperr.KindInternal:        http.StatusInternalServerError,
		apperr.Kind(200):           http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, apperr.Status(kind), kind.String())
	}
}

func TestUntaggedErrorsAreInternal(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, http.StatusInternalServerError, apperr.HTTPStatus(err))

	e := apperr.From(err)
	assert.Equal(t, "Internal Server Error", e.Message)
	assert.ErrorIs(t, e, err)
}

func TestKindSurvivesWrapping(t *testing.T) {
	base := apperr.NotFound("Sale not found")
	wrapped := fmt.Errorf("controller: show: %w", base)

	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(wrapped))
	assert.Same(t, base, apperr.From(wrapped))
}

func TestSentinelMatchingByCode(t *testing.T) {
	sentinel := apperr.Upstream("ReceiptUploadFailed", "Receipt upload failed", nil)
	occurred := apperr.Upstream("ReceiptUploadFailed", "Receipt upload failed", errors.New("timeout"))
	other := apperr.Upstream("EmailDeliveryFailed", "Email delivery failed", nil)

	assert.ErrorIs(t, occurred, sentinel)
	assert.NotErrorIs(t, other, sentinel)
}

func TestNilFrom(t *testing.T) {
	assert.Nil(t, apperr.From(nil))
}
