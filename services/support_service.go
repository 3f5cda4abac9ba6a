package services

import (
	"context"
	"errors"
	"strings"

	"netwin-backend/apperrors"
	"netwin-backend/models"

	"gorm.io/gorm"
)

var ErrTicketNotFound = apperrors.NotFound("Ticket not found")

type SupportService struct {
	DB       *gorm.DB
	Notifier *NotificationService
}

func NewSupportService(db *gorm.DB, notifier *NotificationService) *SupportService {
	return &SupportService{DB: db, Notifier: notifier}
}

type TicketInput struct {
	Subject  string `json:"subject" validate:"required,max=140"`
	Category string `json:"category" validate:"omitempty,oneof=general payment tournament kyc account technical"`
	Message  string `json:"message" validate:"required,max=5000"`
}

func (s *SupportService) Create(ctx context.Context, userID string, in TicketInput) (*models.SupportTicket, error) {
	category := in.Category
	if category == "" {
		category = "general"
	}
	t := &models.SupportTicket{
		UserID:   userID,
		Subject:  strings.TrimSpace(in.Subject),
		Category: category,
		Message:  strings.TrimSpace(in.Message),
		Status:   models.TicketOpen,
	}
	if err := s.DB.WithContext(ctx).Create(t).Error; err != nil {
		return nil, apperrors.Database(err, "failed to create ticket")
	}
	return t, nil
}

func (s *SupportService) List(ctx context.Context, userID string) ([]models.SupportTicket, error) {
	var out []models.SupportTicket
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, apperrors.Database(err, "failed to fetch tickets")
	}
	return out, nil
}

// Get returns a ticket owned by userID. Other users' tickets read as not found.
func (s *SupportService) Get(ctx context.Context, userID, id string) (*models.SupportTicket, error) {
	var t models.SupportTicket
	if err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, apperrors.Database(err, "failed to fetch ticket")
	}
	return &t, nil
}

func (s *SupportService) ListAll(ctx context.Context, status models.TicketStatus) ([]models.SupportTicket, error) {
	q := s.DB.WithContext(ctx).Model(&models.SupportTicket{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.SupportTicket
	if err := q.Order("created_at ASC").Limit(200).Find(&out).Error; err != nil {
		return nil, apperrors.Database(err, "failed to fetch tickets")
	}
	return out, nil
}

type TicketResponse struct {
	Response string              `json:"response" validate:"required,max=5000"`
	Status   models.TicketStatus `json:"status"`
}

// Respond records the admin reply and moves the ticket to the given status
// (resolved when none is given).
func (s *SupportService) Respond(ctx context.Context, id string, in TicketResponse) (*models.SupportTicket, error) {
	status := in.Status
	if status == "" {
		status = models.TicketResolved
	}
	if !status.Valid() {
		return nil, apperrors.InvalidInput("Invalid ticket status")
	}

	res := s.DB.WithContext(ctx).Model(&models.SupportTicket{}).Where("id = ?", id).Updates(map[string]interface{}{
		"admin_response": strings.TrimSpace(in.Response),
		"status":         status,
	})
	if res.Error != nil {
		return nil, apperrors.Database(res.Error, "failed to update ticket")
	}
	if res.RowsAffected == 0 {
		return nil, ErrTicketNotFound
	}

	var t models.SupportTicket
	if err := s.DB.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, apperrors.Database(err, "failed to fetch ticket")
	}
	s.Notifier.Notify(ctx, t.UserID, models.NotifySupport, "Support replied", "There is a new response on your ticket: "+t.Subject)
	return &t, nil
}
