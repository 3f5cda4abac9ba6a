package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Base gives a record a Go-generated UUID primary key.
type Base struct {
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Timestamps
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// All lists every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Tournament{},
		&TournamentRegistration{},
		&UserMatch{},
		&WalletTransaction{},
		&PendingDeposit{},
		&PendingWithdrawal{},
		&Notification{},
		&KYCDocument{},
		&SupportTicket{},
		&PlayerStats{},
	}
}
