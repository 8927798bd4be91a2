package models

import (
	"time"

	"github.com/casaflow/casaflow/utils"
	"gorm.io/gorm"
)

// Interaction channel constants
const (
	InteractionChannelEmail    = "email"
	InteractionChannelPhone    = "phone"
	InteractionChannelWhatsApp = "whatsapp"
	InteractionChannelVisit    = "visit"
	InteractionChannelNote     = "note"
)

// Interaction direction constants
const (
	InteractionDirectionInbound  = "inbound"
	InteractionDirectionOutbound = "outbound"
)

// LeadInteraction is a single recorded touchpoint with a lead. The most
// recent interactions are embedded into qualification prompts.
type LeadInteraction struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	LeadID     uint      `gorm:"not null;index:idx_lead_interactions_lead_id" json:"lead_id"`
	TenantID   uint      `gorm:"not null;index:idx_lead_interactions_tenant_id" json:"tenant_id"`
	Channel    string    `gorm:"size:50;not null" json:"channel"`
	Direction  string    `gorm:"size:20;not null;default:'inbound'" json:"direction"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	AuthorID   *uint     `json:"author_id,omitempty"`
	OccurredAt time.Time `gorm:"not null;index:idx_lead_interactions_occurred_at" json:"occurred_at"`
	CreatedAt  time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Lead *Lead `gorm:"foreignKey:LeadID;references:ID" json:"lead,omitempty"`
}

// TableName returns the table name for the model
func (LeadInteraction) TableName() string {
	return "lead_interactions"
}

// BeforeCreate is called before creating a new record
func (i *LeadInteraction) BeforeCreate(tx *gorm.DB) error {
	if i.OccurredAt.IsZero() {
		i.OccurredAt = utils.UTCNow()
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = utils.UTCNow()
	}
	return nil
}

// LeadInteractionFilter represents filter criteria for interaction queries
type LeadInteractionFilter struct {
	ID        *uint
	LeadID    *uint
	TenantID  *uint
	Channel   *string
	Direction *string
}
