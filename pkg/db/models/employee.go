package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
)

// Employee belongs to exactly one business and receives delivery tasks.
type Employee struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID uuid.UUID        `gorm:"column:business_id;type:uuid;not null"`
	Name       string           `gorm:"column:name;not null"`
	Role       enums.MemberRole `gorm:"column:role;type:member_role;not null;default:'employee'"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
