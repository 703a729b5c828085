package model

import (
	"time"
)

// User account record
type User struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement;comment:user ID" json:"id"`
	Username     string     `gorm:"type:varchar(80);uniqueIndex;not null;comment:username" json:"username"`
	Email        string     `gorm:"type:varchar(120);uniqueIndex;not null;comment:email" json:"email"`
	PasswordHash string     `gorm:"type:varchar(128);not null;comment:bcrypt hash" json:"-"`
	Salt         string     `gorm:"type:varchar(32);not null;comment:password salt" json:"-"`
	FirstName    string     `gorm:"type:varchar(50)" json:"first_name"`
	LastName     string     `gorm:"type:varchar(50)" json:"last_name"`
	Phone        string     `gorm:"type:varchar(20)" json:"phone"`
	IsActive     bool       `gorm:"not null;default:true;comment:disabled accounts cannot log in" json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName set name
func (User) TableName() string {
	return "users"
}

// DisplayName is the name used to greet the user
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}
