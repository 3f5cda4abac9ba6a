package models

type NotificationType string

const (
	NotifyTournament NotificationType = "tournament"
	NotifyWallet     NotificationType = "wallet"
	NotifyKYC        NotificationType = "kyc"
	NotifyResult     NotificationType = "result"
	NotifySupport    NotificationType = "support"
	NotifySystem     NotificationType = "system"
)

type Notification struct {
	Base
	UserID  string           `gorm:"index;not null" json:"user_id"`
	Type    NotificationType `gorm:"type:varchar(16);not null" json:"type"`
	Title   string           `gorm:"not null" json:"title"`
	Message string           `gorm:"type:text" json:"message"`
	Read    bool             `gorm:"default:false;index" json:"read"`
}
