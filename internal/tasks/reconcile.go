package tasks

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
)

// Record is one physical task row together with the lines of its scope.
type Record struct {
	ID              uuid.UUID
	ExternalOrderID *string
	Name            string
	EmployeeID      uuid.UUID
	BusinessID      uuid.UUID
	Status          enums.TaskStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Lines           []Line
}

// Line is a display row of a task. Rows that differ only in quantity are
// merged by Reconcile.
type Line struct {
	LineID            uuid.UUID                   `json:"lineId"`
	ProductID         uuid.UUID                   `json:"productId"`
	VendorID          uuid.UUID                   `json:"vendorId"`
	Quantity          int                         `json:"quantity"`
	UnitPrice         decimal.Decimal             `json:"unitPrice"`
	DetailSnapshot    string                      `json:"detailSnapshot"`
	Customization     *string                     `json:"customization,omitempty"`
	OutForDelivery    bool                        `json:"outForDelivery"`
	FulfillmentStatus enums.LineFulfillmentStatus `json:"fulfillmentStatus"`
}

// View is the single coherent task a consumer sees per logical key.
type View struct {
	Key             string           `json:"key"`
	TaskID          uuid.UUID        `json:"taskId"`
	ExternalOrderID *string          `json:"externalOrderId,omitempty"`
	Name            string           `json:"name"`
	EmployeeID      uuid.UUID        `json:"employeeId"`
	BusinessID      uuid.UUID        `json:"businessId"`
	Status          enums.TaskStatus `json:"status"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
	Lines           []Line           `json:"lines"`
}

// LogicalKey groups the physical records of one task: the external order id
// when present, the task name otherwise.
func LogicalKey(r Record) string {
	if r.ExternalOrderID != nil && *r.ExternalOrderID != "" {
		return "order:" + *r.ExternalOrderID
	}
	return "name:" + r.Name
}

func effectiveAt(r Record) time.Time {
	if !r.UpdatedAt.IsZero() {
		return r.UpdatedAt
	}
	return r.CreatedAt
}

// newer reports whether a supersedes b. Ties fall through to created_at, then
// to the record that is still current, then to the greater id.
func newer(a, b Record) bool {
	ea, eb := effectiveAt(a), effectiveAt(b)
	if !ea.Equal(eb) {
		return ea.After(eb)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	if a.Status.IsCurrent() != b.Status.IsCurrent() {
		return a.Status.IsCurrent()
	}
	return a.ID.String() > b.ID.String()
}

// Reconcile collapses a task history into one view per logical key. The
// result does not depend on the order of records.
func Reconcile(records []Record) []View {
	latest := make(map[string]Record, len(records))
	for _, r := range records {
		key := LogicalKey(r)
		current, ok := latest[key]
		if !ok || newer(r, current) {
			latest[key] = r
		}
	}

	views := make([]View, 0, len(latest))
	for key, r := range latest {
		views = append(views, View{
			Key:             key,
			TaskID:          r.ID,
			ExternalOrderID: r.ExternalOrderID,
			Name:            r.Name,
			EmployeeID:      r.EmployeeID,
			BusinessID:      r.BusinessID,
			Status:          r.Status,
			CreatedAt:       r.CreatedAt,
			UpdatedAt:       r.UpdatedAt,
			Lines:           MergeLines(r.Lines),
		})
	}

	sort.Slice(views, func(i, j int) bool {
		ti := effectiveAt(Record{CreatedAt: views[i].CreatedAt, UpdatedAt: views[i].UpdatedAt})
		tj := effectiveAt(Record{CreatedAt: views[j].CreatedAt, UpdatedAt: views[j].UpdatedAt})
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return views[i].Key < views[j].Key
	})
	return views
}

// MergeLines sums the quantity of lines with the same shape, keeping the
// first-seen row of each shape in input order.
func MergeLines(lines []Line) []Line {
	merged := make([]Line, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, line := range lines {
		key := lineShape(line)
		if i, ok := index[key]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[key] = len(merged)
		merged = append(merged, line)
	}
	return merged
}

func lineShape(l Line) string {
	customization := "-"
	if l.Customization != nil {
		customization = "+" + *l.Customization
	}
	return strings.Join([]string{
		l.ProductID.String(),
		l.VendorID.String(),
		l.UnitPrice.String(),
		strconv.Quote(l.DetailSnapshot),
		strconv.Quote(customization),
		strconv.FormatBool(l.OutForDelivery),
		l.FulfillmentStatus.String(),
	}, "|")
}
