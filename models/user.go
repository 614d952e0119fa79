package models

import "gorm.io/gorm"

// User is an API caller. Capabilities come from the permissions of its roles.
type User struct {
	gorm.Model
	Username string `gorm:"unique;not null"`
	Password string `gorm:"not null" json:"-"` // Don't expose password hash
	Email    string `gorm:"unique"`
	Roles    []Role `gorm:"many2many:user_roles;"`
}
