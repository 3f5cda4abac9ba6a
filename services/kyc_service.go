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

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrKYCPending     = apperrors.Conflict("KYC already submitted")
	ErrKYCApproved    = apperrors.Conflict("KYC already approved")
	ErrKYCNotFound    = apperrors.NotFound("KYC submission not found")
	ErrKYCNotReviewed = apperrors.Conflict("KYC submission is not pending review")
)

type KYCService struct {
	DB       *gorm.DB
	Store    utils.ObjectStore
	Notifier *NotificationService
	Events   EventPublisher
}

func NewKYCService(db *gorm.DB, store utils.ObjectStore, notifier *NotificationService, events EventPublisher) *KYCService {
	return &KYCService{DB: db, Store: store, Notifier: notifier, Events: events}
}

type KYCInput struct {
	DocumentType   string `json:"document_type" validate:"required,oneof=aadhaar pan passport driving_license"`
	DocumentNumber string `json:"document_number" validate:"required,max=32"`
	FrontImage     string `json:"front_image" validate:"required"`
	BackImage      string `json:"back_image,omitempty"`
	Selfie         string `json:"selfie,omitempty"`
}

// Submit uploads the document images and moves the user to PENDING. Only
// users who never submitted or were rejected may submit.
func (s *KYCService) Submit(ctx context.Context, userID string, in KYCInput) (*models.KYCDocument, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperrors.Database(err, "failed to fetch user")
	}
	if err := kycGate(user.KYCStatus); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.FrontImage) == "" {
		return nil, apperrors.InvalidInput("Front image is required")
	}

	stamp := time.Now().Unix()
	doc := models.KYCDocument{
		UserID:         userID,
		DocumentType:   in.DocumentType,
		DocumentNumber: strings.ToUpper(strings.TrimSpace(in.DocumentNumber)),
		Status:         models.KYCPending,
	}
	var err error
	if doc.FrontImageURL, err = uploadBlob(ctx, s.Store, fmt.Sprintf("kyc/%s/%d-front", userID, stamp), in.FrontImage); err != nil {
		return nil, err
	}
	if in.BackImage != "" {
		if doc.BackImageURL, err = uploadBlob(ctx, s.Store, fmt.Sprintf("kyc/%s/%d-back", userID, stamp), in.BackImage); err != nil {
			return nil, err
		}
	}
	if in.Selfie != "" {
		if doc.SelfieURL, err = uploadBlob(ctx, s.Store, fmt.Sprintf("kyc/%s/%d-selfie", userID, stamp), in.Selfie); err != nil {
			return nil, err
		}
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, "id = ?", userID).Error; err != nil {
			return err
		}
		// Status may have changed while the images were uploading.
		if err := kycGate(locked.KYCStatus); err != nil {
			return err
		}
		if err := tx.Create(&doc).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).Update("kyc_status", models.KYCPending).Error
	})
	if err != nil {
		return nil, asAppError(err, "failed to submit KYC")
	}

	s.Notifier.Notify(ctx, userID, models.NotifyKYC, "KYC submitted", "Your documents were received and are under review.")
	publish(ctx, s.Events, EventKYCSubmitted, map[string]interface{}{"user_id": userID, "document_id": doc.ID, "document_type": doc.DocumentType})
	utils.Log.Infow("[KYC] submitted", "user_id", userID, "document_id", doc.ID)
	return &doc, nil
}

func kycGate(status models.KYCStatus) error {
	if status.CanSubmit() {
		return nil
	}
	if status == models.KYCApproved {
		return ErrKYCApproved
	}
	return ErrKYCPending
}

type KYCView struct {
	Status   models.KYCStatus    `json:"status"`
	Document *models.KYCDocument `json:"document,omitempty"`
}

// Get returns the user's KYC status and latest submission, if any.
func (s *KYCService) Get(ctx context.Context, userID string) (*KYCView, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperrors.Database(err, "failed to fetch user")
	}
	view := &KYCView{Status: user.KYCStatus}
	var doc models.KYCDocument
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").First(&doc).Error
	switch {
	case err == nil:
		view.Document = &doc
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperrors.Database(err, "failed to fetch KYC document")
	}
	return view, nil
}

func (s *KYCService) ListPending(ctx context.Context) ([]models.KYCDocument, error) {
	var docs []models.KYCDocument
	if err := s.DB.WithContext(ctx).Where("status = ?", models.KYCPending).Order("created_at ASC").Find(&docs).Error; err != nil {
		return nil, apperrors.Database(err, "failed to fetch KYC submissions")
	}
	return docs, nil
}

// Review approves or rejects a pending submission and mirrors the outcome
// onto the user.
func (s *KYCService) Review(ctx context.Context, adminID, documentID string, approve bool, reason string) (*models.KYCDocument, error) {
	if !approve && strings.TrimSpace(reason) == "" {
		return nil, apperrors.InvalidInput("A rejection reason is required")
	}
	status := models.KYCRejected
	if approve {
		status = models.KYCApproved
		reason = ""
	}

	var doc models.KYCDocument
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&doc, "id = ?", documentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrKYCNotFound
			}
			return err
		}
		if doc.Status != models.KYCPending {
			return ErrKYCNotReviewed
		}
		now := time.Now().UTC()
		if err := tx.Model(&models.KYCDocument{}).Where("id = ?", doc.ID).Updates(map[string]interface{}{
			"status":           status,
			"rejection_reason": reason,
			"reviewed_by":      adminID,
			"reviewed_at":      now,
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", doc.UserID).Update("kyc_status", status).Error; err != nil {
			return err
		}
		return tx.First(&doc, "id = ?", doc.ID).Error
	})
	if err != nil {
		return nil, asAppError(err, "failed to review KYC")
	}

	title, msg := "KYC approved", "Your identity has been verified. Withdrawals are now enabled."
	if !approve {
		title, msg = "KYC rejected", "Your KYC submission was rejected: "+reason+". You can submit again."
	}
	s.Notifier.Notify(ctx, doc.UserID, models.NotifyKYC, title, msg)
	utils.Log.Infow("[KYC] reviewed", "document_id", doc.ID, "status", status, "by", adminID)
	return &doc, nil
}
