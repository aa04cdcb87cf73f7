package models

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an account. Rows are hard-deleted.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password     string    `gorm:"size:255;not null" json:"-"` // bcrypt hash, never serialised
	IsAdmin      bool      `gorm:"not null;default:false" json:"isAdmin"`
	Phone        string    `gorm:"size:50" json:"phone,omitempty"`
	AddressLine1 string    `gorm:"size:255" json:"addressLine1,omitempty"`
	AddressLine2 string    `gorm:"size:255" json:"addressLine2,omitempty"`
	City         string    `gorm:"size:100" json:"city,omitempty"`
	State        string    `gorm:"size:100" json:"state,omitempty"`
	PostalCode   string    `gorm:"size:20" json:"postalCode,omitempty"`
	Country      string    `gorm:"size:100" json:"country,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// Role is the claim value carried in access tokens.
func (u User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}
