// Package repositories holds the GORM queries behind every service. Each
// method takes a context and returns apperr-tagged errors for the cases a
// client can act on (missing rows, unique clashes); anything else is wrapped
// and left for the translator to report as internal.
package repositories

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/storefront-go/storefront/pkg/apperr"
)

// translate maps driver errors onto the storefront's error kinds. what
// names the entity in client-facing messages ("Sale", "Category").
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(what + " not found")
	case isUniqueViolation(err):
		return apperr.Wrap(apperr.KindConflict, what+" already exists", err)
	}
	return fmt.Errorf("repositories: %s: %w", strings.ToLower(what), err)
}

// isUniqueViolation covers drivers that do not translate to
// gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
