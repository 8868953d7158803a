// Package testdb opens sqlite databases carrying the fulfillment schema for
// repository and service tests.
package testdb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/db/models"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/migrate"
)

// Open returns a private in-memory database with the schema applied.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrate.ApplySQLiteSchema(context.Background(), sqlDB))
	return conn
}

// Business creates a business row.
func Business(t testing.TB, db *gorm.DB, name string) models.Business {
	t.Helper()
	b := models.Business{ID: uuid.New(), Name: name}
	require.NoError(t, db.Create(&b).Error)
	return b
}

// Employee creates an employee of businessID.
func Employee(t testing.TB, db *gorm.DB, businessID uuid.UUID, role enums.MemberRole) models.Employee {
	t.Helper()
	e := models.Employee{ID: uuid.New(), BusinessID: businessID, Name: "employee-" + uuid.NewString()[:8], Role: role}
	require.NoError(t, db.Create(&e).Error)
	return e
}

// Product creates a product owned by businessID.
func Product(t testing.TB, db *gorm.DB, businessID uuid.UUID) models.Product {
	t.Helper()
	p := models.Product{ID: uuid.New(), BusinessID: businessID, Name: "product-" + uuid.NewString()[:8]}
	require.NoError(t, db.Create(&p).Error)
	return p
}

// LineSpec describes one order line to seed.
type LineSpec struct {
	ProductID uuid.UUID
	OTP       string
	Quantity  int
	Status    enums.LineFulfillmentStatus
	Reason    string
}

// Order creates an active order with the given lines, in position order.
func Order(t testing.TB, db *gorm.DB, externalID string, lines ...LineSpec) models.Order {
	t.Helper()
	now := time.Now().UTC().Add(-time.Hour)
	order := models.Order{
		ID:                uuid.New(),
		ExternalID:        externalID,
		Status:            enums.OrderStatusActive,
		FulfillmentStatus: enums.OrderFulfillmentPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, db.Omit("Lines").Create(&order).Error)

	for i, spec := range lines {
		line := models.OrderLine{
			ID:                uuid.New(),
			OrderID:           order.ID,
			ProductID:         spec.ProductID,
			Position:          i,
			Quantity:          spec.Quantity,
			UnitPrice:         decimal.RequireFromString("12.50"),
			DetailSnapshot:    "snapshot",
			FulfillmentStatus: spec.Status,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if line.Quantity == 0 {
			line.Quantity = 1
		}
		if line.FulfillmentStatus == "" {
			line.FulfillmentStatus = enums.LineFulfillmentPending
		}
		if spec.OTP != "" {
			otp := spec.OTP
			line.OTP = &otp
		}
		if spec.Reason != "" {
			reason := spec.Reason
			line.CancellationReason = &reason
		}
		require.NoError(t, db.Create(&line).Error)
		order.Lines = append(order.Lines, line)
	}
	return order
}

// Task creates a task record with explicit timestamps.
func Task(t testing.TB, db *gorm.DB, externalOrderID string, employeeID uuid.UUID, status enums.TaskStatus, at time.Time) models.Task {
	t.Helper()
	task := models.Task{
		ID:         uuid.New(),
		Name:       "deliver " + externalOrderID,
		EmployeeID: employeeID,
		Status:     status,
		CreatedAt:  at.UTC(),
		UpdatedAt:  at.UTC(),
	}
	if externalOrderID != "" {
		ext := externalOrderID
		task.ExternalOrderID = &ext
	}
	require.NoError(t, db.Create(&task).Error)
	return task
}
