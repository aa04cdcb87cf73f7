package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/storefront-go/storefront/app/models"
	"github.com/storefront-go/storefront/pkg/apperr"
)

// UserRepository handles database operations for User.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail looks up a user by their email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, translate(err, "User")
	}
	return &user, nil
}

// FindByID looks up a user by primary key.
func (r *UserRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err, "User")
	}
	return &user, nil
}

// All returns every user ordered by id.
func (r *UserRepository) All(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, translate(err, "User")
	}
	return users, nil
}

// Taken reports whether another user already holds email or username.
// exceptID excludes the user being updated; pass 0 on create.
func (r *UserRepository) Taken(ctx context.Context, email, username string, exceptID uint) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.User{}).
		Where("(email = ? OR username = ?)", email, username)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, translate(err, "User")
	}
	return n > 0, nil
}

// AdminExists reports whether at least one administrator exists.
func (r *UserRepository) AdminExists(ctx context.Context) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("is_admin = ?", true).Count(&n).Error
	if err != nil {
		return false, translate(err, "User")
	}
	return n > 0, nil
}

// Create persists a new user record.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error, "User")
}

// Update persists changes to an existing user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Save(user).Error, "User")
}

// Delete hard-deletes the user.
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return translate(res.Error, "User")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}
