package models

import (
	"time"

	"github.com/google/uuid"
)

// Business is the vendor that owns products and employs the staff fulfilling its lines.
type Business struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Business) TableName() string { return "businesses" }
