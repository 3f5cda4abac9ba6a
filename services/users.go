package services

import (
	"context"
	"errors"
	"strings"

	"netwin-backend/apperrors"
	"netwin-backend/models"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound    = apperrors.NotFound("User not found")
	ErrProfileExists   = apperrors.Conflict("Profile already exists")
	ErrUsernameTaken   = apperrors.Conflict("Username is already taken")
	ErrUnsupportedCurr = apperrors.InvalidInput("Unsupported currency")
)

// SupportedCurrencies are the wallet currencies deposits and fees are accepted in.
var SupportedCurrencies = map[string]bool{"INR": true, "USD": true}

// NormalizeCurrency validates an ISO 4217 code and checks it is supported.
func NormalizeCurrency(code string) (string, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", ErrUnsupportedCurr
	}
	iso := unit.String()
	if !SupportedCurrencies[iso] {
		return "", ErrUnsupportedCurr
	}
	return iso, nil
}

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

type CreateProfileInput struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	GameID   string `json:"game_id" validate:"omitempty,max=64"`
	Country  string `json:"country" validate:"omitempty,max=64"`
	Currency string `json:"currency" validate:"omitempty,len=3"`
}

// CreateProfile creates the profile for an authenticated uid. The wallet
// always starts at zero.
func (s *UserService) CreateProfile(ctx context.Context, uid, email string, in CreateProfileInput) (*models.User, error) {
	cur := "INR"
	if in.Currency != "" {
		c, err := NormalizeCurrency(in.Currency)
		if err != nil {
			return nil, err
		}
		cur = c
	}

	user := &models.User{
		ID:            uid,
		Email:         strings.ToLower(strings.TrimSpace(email)),
		Username:      strings.TrimSpace(in.Username),
		GameID:        strings.TrimSpace(in.GameID),
		Country:       in.Country,
		Currency:      cur,
		WalletBalance: decimal.Zero,
		KYCStatus:     models.KYCNotSubmitted,
		Role:          models.RoleUser,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", uid).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrProfileExists
		}
		if err := tx.Model(&models.User{}).Where("LOWER(username) = ?", strings.ToLower(user.Username)).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrUsernameTaken
		}
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrUsernameTaken
			}
			return err
		}
		return tx.Create(&models.PlayerStats{UserID: uid, TotalWinnings: decimal.Zero}).Error
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.Database(err, "failed to create profile")
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperrors.Database(err, "failed to fetch user")
	}
	return &user, nil
}

type UpdateProfileInput struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=32"`
	GameID   *string `json:"game_id" validate:"omitempty,max=64"`
	Country  *string `json:"country" validate:"omitempty,max=64"`
}

// UpdateProfile changes profile fields only. Balance, KYC status and role
// have their own flows and are never written here.
func (s *UserService) UpdateProfile(ctx context.Context, uid string, in UpdateProfileInput) (*models.User, error) {
	updates := map[string]interface{}{}
	if in.GameID != nil {
		updates["game_id"] = strings.TrimSpace(*in.GameID)
	}
	if in.Country != nil {
		updates["country"] = *in.Country
	}
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.User{}).
			Where("LOWER(username) = ? AND id <> ?", strings.ToLower(name), uid).
			Count(&count).Error; err != nil {
			return nil, apperrors.Database(err, "failed to check username")
		}
		if count > 0 {
			return nil, ErrUsernameTaken
		}
		updates["username"] = name
	}

	if len(updates) > 0 {
		res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", uid).Updates(updates)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return nil, ErrUsernameTaken
			}
			return nil, apperrors.Database(res.Error, "failed to update profile")
		}
		if res.RowsAffected == 0 {
			return nil, ErrUserNotFound
		}
	}
	return s.Get(ctx, uid)
}

// UpdateGameID is the best-effort game id refresh used during joins.
func (s *UserService) UpdateGameID(ctx context.Context, uid, gameID string) error {
	return s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", uid).
		Update("game_id", strings.TrimSpace(gameID)).Error
}

// SearchUsers searches profiles by username or email (admin tooling).
func (s *UserService) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	db := s.DB.WithContext(ctx).Model(&models.User{}).Limit(limit).Order("created_at DESC")
	if query != "" {
		term := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
		db = db.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", term, term)
	}
	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		return nil, apperrors.Database(err, "search failed")
	}
	return users, nil
}

// MarkEmailVerified flags every profile registered with email as verified.
func (s *UserService) MarkEmailVerified(ctx context.Context, email string) error {
	return s.DB.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Update("email_verified", true).Error
}
