// Package models contains domain entities and business models for the platform
package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/casaflow/casaflow/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant represents an isolated customer account; all business data is scoped to one tenant
type Tenant struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_tenants_uuid" json:"uuid"`
	Name      string     `gorm:"size:255;not null" json:"name"`
	Slug      string     `gorm:"size:100;not null;uniqueIndex:uk_tenants_slug" json:"slug"`
	IsActive  *bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Members []TenantMember `gorm:"foreignKey:TenantID" json:"members,omitempty"`
}

// TableName returns the table name for the model
func (Tenant) TableName() string {
	return "tenants"
}

// BeforeCreate is called before creating a new record
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = utils.UTCNow()
	}
	return nil
}

// TenantFilter represents filter criteria for tenant queries
type TenantFilter struct {
	ID       *uint
	UUID     *uuid.UUID
	Slug     *string
	IsActive *bool
}

// MemberRole represents the role a user holds inside a tenant
type MemberRole string

const (
	MemberRoleOwner MemberRole = "owner"
	MemberRoleAdmin MemberRole = "admin"
	MemberRoleAgent MemberRole = "agent"
)

// String returns the string representation of the role
func (r MemberRole) String() string {
	return string(r)
}

// Valid checks if the role is valid
func (r MemberRole) Valid() bool {
	switch r {
	case MemberRoleOwner, MemberRoleAdmin, MemberRoleAgent:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for MemberRole
func (r *MemberRole) Scan(value any) error {
	if value == nil {
		*r = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*r = MemberRole(v)
	case []byte:
		*r = MemberRole(string(v))
	default:
		return fmt.Errorf("cannot scan %T into MemberRole", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for MemberRole
func (r MemberRole) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid MemberRole: %s", r)
	}
	return string(r), nil
}

// TenantMember links a user to a tenant with a role
type TenantMember struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	TenantID  uint       `gorm:"not null;uniqueIndex:uk_tenant_members_tenant_user;index:idx_tenant_members_tenant_id" json:"tenant_id"`
	UserID    uint       `gorm:"not null;uniqueIndex:uk_tenant_members_tenant_user;index:idx_tenant_members_user_id" json:"user_id"`
	Role      MemberRole `gorm:"type:member_role;not null;default:'agent'" json:"role"`
	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Tenant *Tenant `gorm:"foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
	User   *User   `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// TableName returns the table name for the model
func (TenantMember) TableName() string {
	return "tenant_members"
}

// BeforeCreate is called before creating a new record
func (m *TenantMember) BeforeCreate(tx *gorm.DB) error {
	if m.Role == "" {
		m.Role = MemberRoleAgent
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = utils.UTCNow()
	}
	return nil
}

// TenantMemberFilter represents filter criteria for tenant membership queries
type TenantMemberFilter struct {
	ID       *uint
	TenantID *uint
	UserID   *uint
	Role     *MemberRole
}
