package models

import "time"

const (
	DocAadhaar        = "aadhaar"
	DocPAN            = "pan"
	DocPassport       = "passport"
	DocDrivingLicense = "driving_license"
)

// KYCDocument is one submission. A rejected user submits a new row; the
// latest row is the current one.
type KYCDocument struct {
	Base
	UserID          string     `gorm:"index;not null" json:"user_id"`
	DocumentType    string     `gorm:"type:varchar(32);not null" json:"document_type"`
	DocumentNumber  string     `gorm:"not null" json:"document_number"`
	FrontImageURL   string     `gorm:"type:text;not null" json:"front_image_url"`
	BackImageURL    string     `gorm:"type:text" json:"back_image_url,omitempty"`
	SelfieURL       string     `gorm:"type:text" json:"selfie_url,omitempty"`
	Status          KYCStatus  `gorm:"type:varchar(16);not null;default:'PENDING'" json:"status"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	ReviewedBy      string     `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
}
