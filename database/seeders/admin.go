package seeders

import (
	"context"

	"github.com/storefront-go/storefront/app/repositories"
	"github.com/storefront-go/storefront/app/services"
)

func init() {
	Register("admin", SeedAdmin)
}

// SeedAdmin creates the bootstrap administrator from ADMIN_* unless an
// administrator already exists.
func SeedAdmin(ctx context.Context, d Deps) error {
	_, err := services.NewUserService(repositories.NewUserRepository(d.DB)).EnsureAdmin(ctx, d.Config.Admin)
	return err
}
