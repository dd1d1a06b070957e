// internal/models/employee.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day serialised as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v)
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		return d.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

type EmployeeStatus string

const (
	EmployeeActive   EmployeeStatus = "active"
	EmployeeInactive EmployeeStatus = "inactive"
	EmployeeOnLeave  EmployeeStatus = "on_leave"
)

type Employee struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	Role           string         `json:"role"`
	Department     string         `json:"department"`
	LeaveRemaining int            `json:"leave_remaining"`
	Status         EmployeeStatus `json:"status"`
	JoinDate       Date           `json:"join_date"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// EmployeeCreate is the payload for a manually added employee.
type EmployeeCreate struct {
	Name           string         `json:"name" binding:"required,min=2,max=100"`
	Email          string         `json:"email" binding:"required,email"`
	Role           string         `json:"role" binding:"required"`
	Department     string         `json:"department" binding:"required"`
	LeaveRemaining *int           `json:"leave_remaining" binding:"omitempty,min=0"`
	Status         EmployeeStatus `json:"status" binding:"omitempty,oneof=active inactive on_leave"`
	JoinDate       *Date          `json:"join_date"`
}

// EmployeeUpdate carries the fields HR may change; nil fields are left alone.
type EmployeeUpdate struct {
	Name           *string         `json:"name" binding:"omitempty,min=2,max=100"`
	Email          *string         `json:"email" binding:"omitempty,email"`
	Role           *string         `json:"role"`
	Department     *string         `json:"department"`
	LeaveRemaining *int            `json:"leave_remaining" binding:"omitempty,min=0"`
	Status         *EmployeeStatus `json:"status" binding:"omitempty,oneof=active inactive on_leave"`
	JoinDate       *Date           `json:"join_date"`
}

// HireRequest holds the employee fields used when an applicant is hired.
type HireRequest struct {
	Role           string `json:"role" binding:"required"`
	Department     string `json:"department" binding:"required"`
	LeaveRemaining int    `json:"leave_remaining" binding:"min=0"`
	JoinDate       *Date  `json:"join_date"`
}

// DefaultHire is used by the convert path, which takes no HR input.
func DefaultHire(today time.Time) HireRequest {
	d := NewDate(today)
	return HireRequest{
		Role:           "New Hire (Junior)",
		Department:     "Unassigned",
		LeaveRemaining: 12,
		JoinDate:       &d,
	}
}
