package models

import (
	"strings"
	"time"

	"equipment_lending/lending"
)

const UserTable = "el_users"

// User is a portal account. Role is fixed at creation.
type User struct {
	ID           string       `gorm:"primaryKey;type:uuid" json:"id"`
	Username     string       `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email        string       `gorm:"uniqueIndex;size:120;not null" json:"email"`
	PasswordHash string       `gorm:"size:100;not null" json:"-"`
	Role         lending.Role `gorm:"size:20;not null;index" json:"role"`
	FirstName    string       `gorm:"size:50" json:"firstName"`
	LastName     string       `gorm:"size:50" json:"lastName"`

	LastLoginAt *time.Time `gorm:"index" json:"lastLoginAt,omitempty"`
	LastSeenAt  *time.Time `gorm:"index" json:"lastSeenAt,omitempty"`
	LoginCount  int64      `gorm:"not null;default:0" json:"loginCount"`
	LastLoginIP string     `gorm:"size:45" json:"-"`
	LastLoginUA string     `gorm:"size:255" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string { return UserTable }

func (u User) DisplayName() string {
	if n := strings.TrimSpace(u.FirstName + " " + u.LastName); n != "" {
		return n
	}
	return u.Username
}

func (u User) Actor() lending.Actor { return lending.Actor{UserID: u.ID, Role: u.Role} }
