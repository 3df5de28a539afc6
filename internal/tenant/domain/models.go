// Package domain contains persistence models for tenants and rooms. The
// billing core reads these; profile management lives outside this service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// TenantStatus represents tenant lifecycle states.
type TenantStatus string

const (
	TenantStatusActive   TenantStatus = "ACTIVE"
	TenantStatusArchived TenantStatus = "ARCHIVED"
)

// Tenant is an occupant with an optional room assignment.
type Tenant struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	Name      string        `gorm:"type:text;not null" json:"name"`
	Phone     string        `gorm:"type:text" json:"phone"`
	RoomID    *snowflake.ID `gorm:"index" json:"room_id"`
	Status    TenantStatus  `gorm:"type:text;not null;default:'ACTIVE'" json:"status"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// Room is a rentable unit with its monthly rent in minor currency units.
type Room struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Code      string       `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Rent      int64        `gorm:"not null" json:"rent"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Room) TableName() string { return "rooms" }
