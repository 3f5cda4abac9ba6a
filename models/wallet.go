package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TxStatus string

const (
	TxPending  TxStatus = "PENDING"
	TxApproved TxStatus = "APPROVED"
	TxRejected TxStatus = "REJECTED"
)

type TxType string

const (
	TxDeposit    TxType = "deposit"
	TxWithdrawal TxType = "withdrawal"
	TxEntryFee   TxType = "entry_fee"
	TxWinning    TxType = "winning"
	TxRefund     TxType = "refund"
)

// WalletTransaction is an append-only ledger entry. Only Status, BalanceBefore
// and BalanceAfter change, and only once, on PENDING → APPROVED/REJECTED.
type WalletTransaction struct {
	Base
	UserID        string          `json:"user_id" gorm:"not null;index"`
	Type          TxType          `json:"type" gorm:"type:varchar(16);not null;index"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:numeric(14,2);not null"`
	Currency      string          `json:"currency" gorm:"type:varchar(3);not null"`
	Status        TxStatus        `json:"status" gorm:"type:varchar(16);not null;index"`
	Description   string          `json:"description"`
	ReferenceID   string          `json:"reference_id,omitempty" gorm:"index"` // deposit/withdrawal/registration id
	BalanceBefore decimal.Decimal `json:"balance_before" gorm:"type:numeric(14,2);not null;default:0"`
	BalanceAfter  decimal.Decimal `json:"balance_after" gorm:"type:numeric(14,2);not null;default:0"`
}

func (WalletTransaction) TableName() string { return "transactions" }

// PendingDeposit is a manual top-up request awaiting admin review.
type PendingDeposit struct {
	Base
	UserID        string          `json:"user_id" gorm:"not null;index"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:numeric(14,2);not null"`
	Currency      string          `json:"currency" gorm:"type:varchar(3);not null"`
	UTR           string          `json:"utr" gorm:"column:utr;not null;index"`
	ScreenshotURL string          `json:"screenshot_url,omitempty"`
	TransactionID string          `json:"transaction_id"`
	Status        TxStatus        `json:"status" gorm:"type:varchar(16);not null;default:'PENDING';index"`
	AdminNote     string          `json:"admin_note,omitempty"`
	ReviewedBy    string          `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time      `json:"reviewed_at,omitempty"`
}

const (
	WithdrawUPI  = "upi"
	WithdrawBank = "bank"
)

// PendingWithdrawal is a payout request awaiting admin review.
type PendingWithdrawal struct {
	Base
	UserID        string          `json:"user_id" gorm:"not null;index"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:numeric(14,2);not null"`
	Currency      string          `json:"currency" gorm:"type:varchar(3);not null"`
	Method        string          `json:"method" gorm:"type:varchar(8);not null"`
	UPIID         string          `json:"upi_id,omitempty" gorm:"column:upi_id"`
	AccountName   string          `json:"account_name,omitempty"`
	AccountNumber string          `json:"account_number,omitempty"`
	IFSC          string          `json:"ifsc,omitempty" gorm:"column:ifsc"`
	TransactionID string          `json:"transaction_id"`
	Status        TxStatus        `json:"status" gorm:"type:varchar(16);not null;default:'PENDING';index"`
	AdminNote     string          `json:"admin_note,omitempty"`
	ReviewedBy    string          `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time      `json:"reviewed_at,omitempty"`
}
