package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type KYCStatus string

const (
	KYCNotSubmitted KYCStatus = "NOT_SUBMITTED"
	KYCPending      KYCStatus = "PENDING"
	KYCApproved     KYCStatus = "APPROVED"
	KYCRejected     KYCStatus = "REJECTED"
)

// CanSubmit reports whether documents may be (re)submitted in this state.
func (s KYCStatus) CanSubmit() bool {
	return s == KYCNotSubmitted || s == KYCRejected || s == ""
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the player profile. ID is the uid issued by the auth provider.
type User struct {
	ID            string          `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Email         string          `gorm:"index;not null" json:"email"`
	Username      string          `gorm:"uniqueIndex;not null" json:"username"`
	GameID        string          `json:"game_id"`
	Country       string          `gorm:"type:varchar(64)" json:"country"`
	Currency      string          `gorm:"type:varchar(3);not null;default:'INR'" json:"currency"`
	WalletBalance decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"wallet_balance"`
	KYCStatus     KYCStatus       `gorm:"type:varchar(16);not null;default:'NOT_SUBMITTED'" json:"kyc_status"`
	EmailVerified bool            `gorm:"default:false" json:"email_verified"`
	// Role is informational (admin listings). Authorization reads the token's roles claim.
	Role          string          `gorm:"type:varchar(16);not null;default:'user'" json:"role"`
	CreatedAt     time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"autoUpdateTime"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
