package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"netwin-backend/apperrors"
	"netwin-backend/models"
	"netwin-backend/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrKYCRequired      = apperrors.Forbidden("KYC verification is required before withdrawing")
	ErrRequestNotFound  = apperrors.NotFound("Request not found")
	ErrRequestReviewed  = apperrors.Conflict("Request has already been reviewed")
	ErrWalletCurrency   = apperrors.InvalidInput("Currency does not match your wallet currency")
	ErrMissingUTR       = apperrors.InvalidInput("UTR / payment reference is required")
	ErrMissingPayoutUPI = apperrors.InvalidInput("UPI ID is required")
	ErrMissingBankInfo  = apperrors.InvalidInput("Account name, account number and IFSC are required")
)

// AmountRange bounds a request amount in one currency. A zero Max means no upper bound.
type AmountRange struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

var (
	DepositLimits = map[string]AmountRange{
		"INR": {Min: decimal.NewFromInt(100), Max: decimal.NewFromInt(100000)},
		"USD": {Min: decimal.NewFromInt(2), Max: decimal.NewFromInt(1500)},
	}
	WithdrawalLimits = map[string]AmountRange{
		"INR": {Min: decimal.NewFromInt(200)},
		"USD": {Min: decimal.NewFromInt(5)},
	}
)

func checkAmount(limits map[string]AmountRange, currency string, amount decimal.Decimal) error {
	r, ok := limits[currency]
	if !ok {
		return ErrUnsupportedCurr
	}
	if amount.LessThan(r.Min) {
		return apperrors.InvalidInput(fmt.Sprintf("Minimum amount is %s %s", r.Min.String(), currency))
	}
	if !r.Max.IsZero() && amount.GreaterThan(r.Max) {
		return apperrors.InvalidInput(fmt.Sprintf("Maximum amount is %s %s", r.Max.String(), currency))
	}
	if !amount.Equal(amount.Round(2)) {
		return apperrors.InvalidInput("Amount can have at most 2 decimal places")
	}
	return nil
}

type WalletService struct {
	DB       *gorm.DB
	Store    utils.ObjectStore
	Notifier *NotificationService
	Events   EventPublisher
}

func NewWalletService(db *gorm.DB, store utils.ObjectStore, notifier *NotificationService, events EventPublisher) *WalletService {
	return &WalletService{DB: db, Store: store, Notifier: notifier, Events: events}
}

type DepositInput struct {
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency" validate:"omitempty,len=3"`
	UTR        string          `json:"utr" validate:"required,max=64"`
	Screenshot string          `json:"screenshot,omitempty"`
}

type DepositResult struct {
	Deposit     models.PendingDeposit    `json:"deposit"`
	Transaction models.WalletTransaction `json:"transaction"`
}

// RequestDeposit records a manual top-up for admin review. The balance is
// untouched until approval.
func (s *WalletService) RequestDeposit(ctx context.Context, userID string, in DepositInput) (*DepositResult, error) {
	res, err := s.requestDeposit(ctx, userID, in)
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(string(apperrors.From(err).Code))
	}
	walletRequests.WithLabelValues("deposit", outcome).Inc()
	return res, err
}

func (s *WalletService) requestDeposit(ctx context.Context, userID string, in DepositInput) (*DepositResult, error) {
	utr := strings.TrimSpace(in.UTR)
	if utr == "" {
		return nil, ErrMissingUTR
	}
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	cur, err := s.currency(user, in.Currency)
	if err != nil {
		return nil, err
	}
	if err := checkAmount(DepositLimits, cur, in.Amount); err != nil {
		return nil, err
	}

	var screenshotURL string
	if in.Screenshot != "" {
		url, err := uploadBlob(ctx, s.Store, fmt.Sprintf("deposits/%s/%s", userID, utr), in.Screenshot)
		if err != nil {
			return nil, err
		}
		screenshotURL = url
	}

	var out DepositResult
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dep := models.PendingDeposit{
			UserID:        userID,
			Amount:        in.Amount,
			Currency:      cur,
			UTR:           utr,
			ScreenshotURL: screenshotURL,
			Status:        models.TxPending,
		}
		dep.ID = newID()
		ledger := models.WalletTransaction{
			UserID:        userID,
			Type:          models.TxDeposit,
			Amount:        in.Amount,
			Currency:      cur,
			Status:        models.TxPending,
			Description:   "Deposit request (UTR " + utr + ")",
			ReferenceID:   dep.ID,
			BalanceBefore: user.WalletBalance,
			BalanceAfter:  user.WalletBalance,
		}
		if err := tx.Create(&ledger).Error; err != nil {
			return err
		}
		dep.TransactionID = ledger.ID
		if err := tx.Create(&dep).Error; err != nil {
			return err
		}
		out = DepositResult{Deposit: dep, Transaction: ledger}
		return nil
	})
	if err != nil {
		return nil, apperrors.Database(err, "failed to create deposit request")
	}

	s.Notifier.Notify(ctx, userID, models.NotifyWallet, "Deposit submitted",
		fmt.Sprintf("Your deposit of %s %s is pending review.", in.Amount.StringFixed(2), cur))
	publish(ctx, s.Events, EventDepositRequested, map[string]interface{}{
		"deposit_id": out.Deposit.ID, "user_id": userID, "amount": in.Amount.String(), "currency": cur,
	})
	return &out, nil
}

type WithdrawalInput struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency" validate:"omitempty,len=3"`
	Method        string          `json:"method" validate:"required,oneof=upi bank"`
	UPIID         string          `json:"upi_id" validate:"omitempty,max=64"`
	AccountName   string          `json:"account_name" validate:"omitempty,max=128"`
	AccountNumber string          `json:"account_number" validate:"omitempty,max=34"`
	IFSC          string          `json:"ifsc" validate:"omitempty,max=16"`
}

type WithdrawalResult struct {
	Withdrawal  models.PendingWithdrawal `json:"withdrawal"`
	Transaction models.WalletTransaction `json:"transaction"`
}

// RequestWithdrawal records a payout request. Funds are checked up front and
// again under lock at approval; the balance only moves on approval.
func (s *WalletService) RequestWithdrawal(ctx context.Context, userID string, in WithdrawalInput) (*WithdrawalResult, error) {
	res, err := s.requestWithdrawal(ctx, userID, in)
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(string(apperrors.From(err).Code))
	}
	walletRequests.WithLabelValues("withdrawal", outcome).Inc()
	return res, err
}

func (s *WalletService) requestWithdrawal(ctx context.Context, userID string, in WithdrawalInput) (*WithdrawalResult, error) {
	switch in.Method {
	case models.WithdrawUPI:
		if strings.TrimSpace(in.UPIID) == "" {
			return nil, ErrMissingPayoutUPI
		}
	case models.WithdrawBank:
		if strings.TrimSpace(in.AccountName) == "" || strings.TrimSpace(in.AccountNumber) == "" || strings.TrimSpace(in.IFSC) == "" {
			return nil, ErrMissingBankInfo
		}
	default:
		return nil, apperrors.InvalidInput("method must be upi or bank")
	}

	var out WithdrawalResult
	var cur string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		c, err := s.currency(&user, in.Currency)
		if err != nil {
			return err
		}
		cur = c
		if err := checkAmount(WithdrawalLimits, cur, in.Amount); err != nil {
			return err
		}
		if in.Amount.GreaterThan(user.WalletBalance) {
			return ErrInsufficientBalance
		}
		if user.KYCStatus != models.KYCApproved {
			return ErrKYCRequired
		}

		wd := models.PendingWithdrawal{
			UserID:   userID,
			Amount:   in.Amount,
			Currency: cur,
			Method:   in.Method,
			Status:   models.TxPending,
		}
		wd.ID = newID()
		if in.Method == models.WithdrawUPI {
			wd.UPIID = strings.TrimSpace(in.UPIID)
		} else {
			wd.AccountName = strings.TrimSpace(in.AccountName)
			wd.AccountNumber = strings.TrimSpace(in.AccountNumber)
			wd.IFSC = strings.ToUpper(strings.TrimSpace(in.IFSC))
		}
		ledger := models.WalletTransaction{
			UserID:        userID,
			Type:          models.TxWithdrawal,
			Amount:        in.Amount,
			Currency:      cur,
			Status:        models.TxPending,
			Description:   "Withdrawal request via " + strings.ToUpper(in.Method),
			ReferenceID:   wd.ID,
			BalanceBefore: user.WalletBalance,
			BalanceAfter:  user.WalletBalance,
		}
		if err := tx.Create(&ledger).Error; err != nil {
			return err
		}
		wd.TransactionID = ledger.ID
		if err := tx.Create(&wd).Error; err != nil {
			return err
		}
		out = WithdrawalResult{Withdrawal: wd, Transaction: ledger}
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "failed to create withdrawal request")
	}

	s.Notifier.Notify(ctx, userID, models.NotifyWallet, "Withdrawal requested",
		fmt.Sprintf("Your withdrawal of %s %s is pending review.", in.Amount.StringFixed(2), cur))
	publish(ctx, s.Events, EventWithdrawalRequested, map[string]interface{}{
		"withdrawal_id": out.Withdrawal.ID, "user_id": userID, "amount": in.Amount.String(), "currency": cur,
	})
	return &out, nil
}

type BalanceView struct {
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

func (s *WalletService) Balance(ctx context.Context, userID string) (*BalanceView, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &BalanceView{Balance: user.WalletBalance, Currency: user.Currency}, nil
}

// ListDeposits returns deposit requests newest first. An empty userID lists
// every user's requests (admin).
func (s *WalletService) ListDeposits(ctx context.Context, userID string, status models.TxStatus) ([]models.PendingDeposit, error) {
	q := s.DB.WithContext(ctx).Model(&models.PendingDeposit{})
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.PendingDeposit
	if err := q.Order("created_at DESC").Limit(200).Find(&out).Error; err != nil {
		return nil, apperrors.Database(err, "failed to fetch deposits")
	}
	return out, nil
}

func (s *WalletService) ListWithdrawals(ctx context.Context, userID string, status models.TxStatus) ([]models.PendingWithdrawal, error) {
	q := s.DB.WithContext(ctx).Model(&models.PendingWithdrawal{})
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.PendingWithdrawal
	if err := q.Order("created_at DESC").Limit(200).Find(&out).Error; err != nil {
		return nil, apperrors.Database(err, "failed to fetch withdrawals")
	}
	return out, nil
}

type TransactionFilter struct {
	Type   models.TxType
	Status models.TxStatus
	Limit  int
	Offset int
}

// ListTransactions returns the user's ledger, newest first.
func (s *WalletService) ListTransactions(ctx context.Context, userID string, f TransactionFilter) ([]models.WalletTransaction, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	q := s.DB.WithContext(ctx).Where("user_id = ?", userID)
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var out []models.WalletTransaction
	if err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&out).Error; err != nil {
		return nil, apperrors.Database(err, "failed to fetch transactions")
	}
	return out, nil
}

// Review is an admin decision on a pending wallet request.
type Review struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note" validate:"max=500"`
}

func (r Review) decision() string {
	if r.Approve {
		return "approved"
	}
	return "rejected"
}

// ReviewDeposit approves (crediting the balance) or rejects a pending deposit.
func (s *WalletService) ReviewDeposit(ctx context.Context, adminID, depositID string, r Review) (*models.PendingDeposit, error) {
	var dep models.PendingDeposit
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&dep, "id = ?", depositID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		if dep.Status != models.TxPending {
			return ErrRequestReviewed
		}
		return s.settle(tx, adminID, dep.UserID, dep.TransactionID, dep.Amount, r, &models.PendingDeposit{}, dep.ID)
	})
	if err != nil {
		return nil, asAppError(err, "failed to review deposit")
	}
	if err := s.DB.WithContext(ctx).First(&dep, "id = ?", depositID).Error; err != nil {
		return nil, apperrors.Database(err, "failed to fetch deposit")
	}

	walletReviews.WithLabelValues("deposit", r.decision()).Inc()
	s.Notifier.Notify(ctx, dep.UserID, models.NotifyWallet, "Deposit "+r.decision(),
		fmt.Sprintf("Your deposit of %s %s was %s.", dep.Amount.StringFixed(2), dep.Currency, r.decision()))
	publish(ctx, s.Events, EventWalletReviewed, map[string]interface{}{
		"kind": "deposit", "id": dep.ID, "user_id": dep.UserID, "decision": r.decision(), "by": adminID,
	})
	return &dep, nil
}

// ReviewWithdrawal approves (debiting the balance) or rejects a pending
// withdrawal. Approval re-checks funds under the user row lock.
func (s *WalletService) ReviewWithdrawal(ctx context.Context, adminID, withdrawalID string, r Review) (*models.PendingWithdrawal, error) {
	var wd models.PendingWithdrawal
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&wd, "id = ?", withdrawalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		if wd.Status != models.TxPending {
			return ErrRequestReviewed
		}
		return s.settle(tx, adminID, wd.UserID, wd.TransactionID, wd.Amount.Neg(), r, &models.PendingWithdrawal{}, wd.ID)
	})
	if err != nil {
		return nil, asAppError(err, "failed to review withdrawal")
	}
	if err := s.DB.WithContext(ctx).First(&wd, "id = ?", withdrawalID).Error; err != nil {
		return nil, apperrors.Database(err, "failed to fetch withdrawal")
	}

	walletReviews.WithLabelValues("withdrawal", r.decision()).Inc()
	s.Notifier.Notify(ctx, wd.UserID, models.NotifyWallet, "Withdrawal "+r.decision(),
		fmt.Sprintf("Your withdrawal of %s %s was %s.", wd.Amount.StringFixed(2), wd.Currency, r.decision()))
	publish(ctx, s.Events, EventWalletReviewed, map[string]interface{}{
		"kind": "withdrawal", "id": wd.ID, "user_id": wd.UserID, "decision": r.decision(), "by": adminID,
	})
	return &wd, nil
}

// settle applies a review to the request row, its ledger entry and, on
// approval, the user's balance. delta is signed: positive credits.
func (s *WalletService) settle(tx *gorm.DB, adminID, userID, ledgerID string, delta decimal.Decimal, r Review, request interface{}, requestID string) error {
	var user models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	status := models.TxRejected
	after := user.WalletBalance
	if r.Approve {
		status = models.TxApproved
		after = user.WalletBalance.Add(delta)
		if after.IsNegative() {
			return ErrInsufficientBalance
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Update("wallet_balance", after).Error; err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	res := tx.Model(request).Where("id = ? AND status = ?", requestID, models.TxPending).Updates(map[string]interface{}{
		"status":      status,
		"admin_note":  r.Note,
		"reviewed_by": adminID,
		"reviewed_at": now,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRequestReviewed
	}

	if ledgerID != "" {
		if err := tx.Model(&models.WalletTransaction{}).Where("id = ? AND status = ?", ledgerID, models.TxPending).Updates(map[string]interface{}{
			"status":         status,
			"balance_before": user.WalletBalance,
			"balance_after":  after,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *WalletService) user(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperrors.Database(err, "failed to fetch user")
	}
	return &user, nil
}

// currency resolves the request currency, defaulting to and requiring the
// user's wallet currency.
func (s *WalletService) currency(user *models.User, requested string) (string, error) {
	cur := user.Currency
	if cur == "" {
		cur = "INR"
	}
	if requested == "" {
		return cur, nil
	}
	c, err := NormalizeCurrency(requested)
	if err != nil {
		return "", err
	}
	if c != cur {
		return "", ErrWalletCurrency
	}
	return c, nil
}
