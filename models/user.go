package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type UserRole string

const (
	RoleHost     UserRole = "host"
	RoleCustomer UserRole = "customer"
)

type User struct {
	ID       uint     `gorm:"primaryKey" json:"id"`
	Name     string   `gorm:"size:255;not null" json:"name"`
	Email    string   `gorm:"size:255;unique;not null" json:"email"`
	Password string   `gorm:"size:255;not null" json:"-"` // Exclude password hash from JSON
	Role     UserRole `gorm:"size:16;not null;default:'customer'" json:"role"`

	// One-time passcode for password recovery; cleared once used.
	OTPHash    *string    `gorm:"size:255" json:"-"`
	OTPExpires *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HashPassword hashes the plaintext password into u.Password.
func (u *User) HashPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	return nil
}

// CheckPassword reports whether the plaintext password matches u.Password.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}
