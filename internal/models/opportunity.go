package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DonationOpportunity is a chapter call for specific items or helpers.
type DonationOpportunity struct {
	ID              string      `gorm:"primaryKey;type:uuid" json:"id"`
	Title           string      `gorm:"not null" json:"title"`
	Description     string      `json:"description"`
	NeededItems     []string    `gorm:"serializer:json" json:"needed_items"`
	Deadline        *time.Time  `json:"deadline,omitempty"`
	ChapterLocation string      `gorm:"index;not null" json:"chapter_location"`
	CreatedBy       string      `json:"created_by"`
	Volunteers      []Volunteer `gorm:"foreignKey:OpportunityID" json:"volunteers"`
	Timestamp       time.Time   `gorm:"index" json:"timestamp"`
}

func (o *DonationOpportunity) BeforeCreate(tx *gorm.DB) (err error) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return
}

func (o *DonationOpportunity) DocumentID() string { return o.ID }

func (DonationOpportunity) TableName() string {
	return "donation_opportunities"
}

// Volunteer rows form a set per opportunity: (opportunity_id, uid) is the key.
type Volunteer struct {
	OpportunityID string    `gorm:"primaryKey;type:uuid" json:"-"`
	UID           string    `gorm:"primaryKey;column:uid" json:"uid"`
	Email         string    `json:"email"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Volunteer) TableName() string {
	return "donation_opportunity_volunteers"
}
