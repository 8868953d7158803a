package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
)

// Task is one physical record of a delivery assignment. Reassignment appends a
// new record and marks the previous one reassigned.
type Task struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ExternalOrderID *string          `gorm:"column:external_order_id" json:"externalOrderId,omitempty"`
	Name            string           `gorm:"column:name;not null;default:''" json:"name"`
	EmployeeID      uuid.UUID        `gorm:"column:employee_id;type:uuid;not null" json:"employeeId"`
	Status          enums.TaskStatus `gorm:"column:status;type:task_status;not null;default:'pending'" json:"status"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
