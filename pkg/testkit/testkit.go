// Package testkit holds the fixtures storefront tests share: a migrated
// in-memory database, an in-memory disk, a testify-backed mailer and helpers
// for driving handlers through httptest.
//
//	db := testkit.DB(t)
//	disk := testkit.NewMemoryDisk()
//	mailer := testkit.NewMailer()
package testkit

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/storefront-go/storefront/config"
	_ "github.com/storefront-go/storefront/database/migrations"
	"github.com/storefront-go/storefront/pkg/database"
	"github.com/storefront-go/storefront/pkg/migration"
)

var dbSeq atomic.Int64

// DB opens a private shared-cache SQLite database, runs every registered
// migration and closes it when the test ends.
func DB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))

	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn, MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	_, err = migration.New(db).Run(context.Background())
	require.NoError(t, err)
	return db
}
