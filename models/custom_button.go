package models

import (
	"time"
)

// CustomButton is a configurable automation trigger attached to a class of
// objects, or to a single instance of it when AppliesToID is set.
type CustomButton struct {
	ID             uint    `gorm:"primaryKey"`
	GUID           string  `gorm:"uniqueIndex;size:36;not null"`
	Name           string  `gorm:"not null;size:255"`
	Description    string  `gorm:"type:text"`
	AppliesToClass string  `gorm:"size:255;index:idx_custom_buttons_applies_to"`
	AppliesToID    *uint   `gorm:"index:idx_custom_buttons_applies_to"`
	Options        Options `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CustomButtonTypes maps each supported button kind to its display name.
var CustomButtonTypes = map[string]string{
	"default":          "Default",
	"ansible_playbook": "Ansible Playbook",
}
