package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
)

// Order is a customer purchase spanning one or more vendors. ExternalID is the
// identifier tasks reference; ID is the internal key.
type Order struct {
	ID                uuid.UUID                    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ExternalID        string                       `gorm:"column:order_id;not null;uniqueIndex"`
	Status            enums.OrderStatus            `gorm:"column:status;type:order_status;not null;default:'active'"`
	FulfillmentStatus enums.OrderFulfillmentStatus `gorm:"column:fulfillment_status;type:order_fulfillment_status;not null;default:'pending'"`
	Lines             []OrderLine                  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ReconciledAt      *time.Time                   `gorm:"column:reconciled_at"`
	CreatedAt         time.Time                    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                    `gorm:"column:updated_at;autoUpdateTime"`
}
