package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Username string `json:"username" gorm:"size:150;uniqueIndex;not null"`
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	FullName string `json:"name"`
	Password string `json:"-" gorm:"not null"`

	TierID uint `json:"tier_id" gorm:"not null;index"`
	Tier   Tier `json:"tier" gorm:"foreignKey:TierID"`
}
