package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
)

// OrderLine is one product line of an order. Its product decides which vendor
// scope it belongs to.
type OrderLine struct {
	ID                 uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID            uuid.UUID                   `gorm:"column:order_id;type:uuid;not null"`
	ProductID          uuid.UUID                   `gorm:"column:product_id;type:uuid;not null"`
	Position           int                         `gorm:"column:position;not null;default:0"`
	Quantity           int                         `gorm:"column:quantity;not null"`
	UnitPrice          decimal.Decimal             `gorm:"column:unit_price;type:numeric(12,2);not null"`
	DetailSnapshot     string                      `gorm:"column:detail_snapshot;not null;default:''"`
	Customization      *string                     `gorm:"column:customization"`
	OutForDelivery     bool                        `gorm:"column:out_for_delivery;not null;default:false"`
	OTP                *string                     `gorm:"column:otp"`
	FulfillmentStatus  enums.LineFulfillmentStatus `gorm:"column:fulfillment_status;type:line_fulfillment_status;not null;default:'pending'"`
	CancellationReason *string                     `gorm:"column:cancellation_reason"`
	FulfilledAt        *time.Time                  `gorm:"column:fulfilled_at"`
	CancelledAt        *time.Time                  `gorm:"column:cancelled_at"`
	CreatedAt          time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}
