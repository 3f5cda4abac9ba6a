package models

type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketResolved, TicketClosed:
		return true
	}
	return false
}

type SupportTicket struct {
	Base
	UserID        string       `gorm:"index;not null" json:"user_id"`
	Subject       string       `gorm:"not null" json:"subject"`
	Category      string       `gorm:"type:varchar(32);not null;default:'general'" json:"category"`
	Message       string       `gorm:"type:text;not null" json:"message"`
	Status        TicketStatus `gorm:"type:varchar(16);not null;default:'open';index" json:"status"`
	AdminResponse string       `gorm:"type:text" json:"admin_response,omitempty"`
}
