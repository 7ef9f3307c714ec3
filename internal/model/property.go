package model

import (
	"time"

	"gorm.io/gorm"
)

type Property struct {
	ID         string         `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name       string         `gorm:"type:varchar(255);not null" json:"name"`
	LandlordID string         `gorm:"type:varchar(64);index;not null" json:"landlord_id"`
	Address    string         `gorm:"type:varchar(512)" json:"address,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Property) TableName() string { return "properties" }
