package models

import (
	"time"
	"unicode/utf8"

	"github.com/casaflow/casaflow/utils"
	"gorm.io/gorm"
)

// Target platform constants
const (
	PlatformInstagramFeed  = "instagram_feed"
	PlatformInstagramStory = "instagram_story"
	PlatformFacebook       = "facebook"
	PlatformLinkedIn       = "linkedin"
	PlatformTikTok         = "tiktok"
)

// DefaultPlatforms is the platform set used when a generation request does
// not name its targets.
var DefaultPlatforms = []string{PlatformInstagramFeed, PlatformFacebook}

// ValidPlatform checks whether the given platform identifier is known
func ValidPlatform(p string) bool {
	switch p {
	case PlatformInstagramFeed, PlatformInstagramStory, PlatformFacebook,
		PlatformLinkedIn, PlatformTikTok:
		return true
	default:
		return false
	}
}

// ContentVariant is the per-platform adaptation of a content item
type ContentVariant struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ItemID         uint      `gorm:"not null;uniqueIndex:uk_content_variants_item_platform;index:idx_content_variants_item_id" json:"item_id"`
	TenantID       uint      `gorm:"not null;index:idx_content_variants_tenant_id" json:"tenant_id"`
	Platform       string    `gorm:"size:50;not null;uniqueIndex:uk_content_variants_item_platform" json:"platform"`
	Copy           string    `gorm:"type:text;not null" json:"copy"`
	CharacterCount int       `gorm:"not null;default:0" json:"character_count"`
	CreatedAt      time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Item *ContentItem `gorm:"foreignKey:ItemID;references:ID" json:"item,omitempty"`
}

// TableName returns the table name for the model
func (ContentVariant) TableName() string {
	return "content_variants"
}

// BeforeCreate is called before creating a new record
func (v *ContentVariant) BeforeCreate(tx *gorm.DB) error {
	if v.CharacterCount == 0 {
		v.CharacterCount = utf8.RuneCountInString(v.Copy)
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = utils.UTCNow()
	}
	return nil
}

// ContentVariantFilter represents filter criteria for variant queries
type ContentVariantFilter struct {
	ID       *uint
	ItemID   *uint
	TenantID *uint
	Platform *string
}
