package models

import "gorm.io/gorm"

// Permission is a capability identifier such as "custom_buttons:collection:read"
// or "custom_buttons:resource:edit".
type Permission struct {
	gorm.Model
	Name        string `gorm:"unique;not null"`
	Description string
	Roles       []Role `gorm:"many2many:role_permissions;"`
}
