package models

import "gorm.io/gorm"

// Dialog is a service dialog a button can open.
type Dialog struct {
	gorm.Model
	Label       string `gorm:"not null"`
	Description string
}

// AutomateDomain is a priority-ordered namespace of automation instances.
// When two enabled domains define the same instance the higher Priority wins.
type AutomateDomain struct {
	gorm.Model
	Name      string `gorm:"unique;not null"`
	Priority  int
	Enabled   bool `gorm:"default:true"`
	Instances []AutomateInstance
}

type AutomateInstance struct {
	gorm.Model
	Name             string `gorm:"not null"`
	ClassPath        string `gorm:"not null;index"` // e.g. "SYSTEM/PROCESS"
	AutomateDomainID uint
	AutomateDomain   AutomateDomain
}
