package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/casaflow/casaflow/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContentItemStatus represents the lifecycle of a content item
type ContentItemStatus string

const (
	ContentItemStatusAIGenerated     ContentItemStatus = "ai_generated"
	ContentItemStatusImageGenerating ContentItemStatus = "image_generating"
	ContentItemStatusImageGenerated  ContentItemStatus = "image_generated"
	ContentItemStatusPublished       ContentItemStatus = "published"
)

// String returns the string representation of the status
func (s ContentItemStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s ContentItemStatus) Valid() bool {
	switch s {
	case ContentItemStatusAIGenerated, ContentItemStatusImageGenerating,
		ContentItemStatusImageGenerated, ContentItemStatusPublished:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for ContentItemStatus
func (s *ContentItemStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = ContentItemStatus(v)
	case []byte:
		*s = ContentItemStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ContentItemStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for ContentItemStatus
func (s ContentItemStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid ContentItemStatus: %s", s)
	}
	return string(s), nil
}

// Content type constants
const (
	ContentTypePost      = "post"
	ContentTypeReel      = "reel"
	ContentTypeStory     = "story"
	ContentTypeCarousel  = "carousel"
	ContentTypeAdCopy    = "ad_copy"
	ContentTypeListingAd = "listing_ad"
)

// ContentItem is a single piece of generated content owned by a calendar
type ContentItem struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:uk_content_items_uuid" json:"uuid"`
	TenantID    uint              `gorm:"not null;index:idx_content_items_tenant_id" json:"tenant_id"`
	CalendarID  uint              `gorm:"not null;index:idx_content_items_calendar_id" json:"calendar_id"`
	Topic       string            `gorm:"size:500;not null" json:"topic"`
	ContentType string            `gorm:"size:50;not null;default:'post'" json:"content_type"`
	BaseCopy    string            `gorm:"type:text;not null" json:"base_copy"`
	CTA         *string           `gorm:"size:500" json:"cta,omitempty"`
	Hashtags    StringSlice       `gorm:"type:jsonb" json:"hashtags,omitempty"`
	ImageURL    *string           `gorm:"size:1000" json:"image_url,omitempty"`
	Status      ContentItemStatus `gorm:"type:content_item_status;not null;default:'ai_generated';index:idx_content_items_status" json:"status"`
	AIRequestID *uint             `gorm:"index:idx_content_items_ai_request_id" json:"ai_request_id,omitempty"`
	CreatedAt   time.Time         `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt   *time.Time        `json:"updated_at,omitempty"`

	// Relations
	Calendar  *ContentCalendar `gorm:"foreignKey:CalendarID;references:ID" json:"calendar,omitempty"`
	AIRequest *AIRequest       `gorm:"foreignKey:AIRequestID;references:ID" json:"ai_request,omitempty"`
	Variants  []ContentVariant `gorm:"foreignKey:ItemID" json:"variants,omitempty"`
}

// TableName returns the table name for the model
func (ContentItem) TableName() string {
	return "content_items"
}

// BeforeCreate is called before creating a new record
func (i *ContentItem) BeforeCreate(tx *gorm.DB) error {
	if i.UUID == uuid.Nil {
		i.UUID = uuid.New()
	}
	if i.Status == "" {
		i.Status = ContentItemStatusAIGenerated
	}
	if i.ContentType == "" {
		i.ContentType = ContentTypePost
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = utils.UTCNow()
	}
	return nil
}

// ContentItemFilter represents filter criteria for content item queries
type ContentItemFilter struct {
	ID         *uint
	UUID       *uuid.UUID
	TenantID   *uint
	CalendarID *uint
	Topic      *string
	Status     *ContentItemStatus
}
