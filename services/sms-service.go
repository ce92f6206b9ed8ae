package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"contact-manager/auth"
	"contact-manager/model"
)

// PricePerSMS is the flat per-contact rate in CLP.
const PricePerSMS = 10

const maxSMSLength = 160

// SMSService runs the bulk-send request workflow. Requests are a
// three-state machine: pending, then either completed (admin) or
// cancelled (owner or admin). Terminal states stay terminal unless an
// admin explicitly overrides.
type SMSService struct {
	DB       *gorm.DB
	Contacts *ContactService
	Log      *zap.Logger
}

type SMSRequestInput struct {
	Message     string `json:"message"`
	ContactsQty int    `json:"contacts_qty"`
}

// CreateRequest validates the message and quantity, re-checks the
// quantity against the requester's live contact count, and prices the
// request server-side. Client-supplied prices are ignored.
func (s *SMSService) CreateRequest(ctx context.Context, userID string, in SMSRequestInput) (*model.SMSRequest, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing requester", ErrValidation)
	}
	if in.Message == "" || len(in.Message) > maxSMSLength {
		return nil, fmt.Errorf("%w: message must be 1-%d characters", ErrValidation, maxSMSLength)
	}
	if in.ContactsQty <= 0 {
		return nil, fmt.Errorf("%w: contact quantity must be positive", ErrValidation)
	}

	total, err := s.Contacts.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if int64(in.ContactsQty) > total {
		return nil, fmt.Errorf("%w: requested %d contacts but only %d registered", ErrValidation, in.ContactsQty, total)
	}

	req := &model.SMSRequest{
		UserID:      userID,
		Message:     in.Message,
		ContactsQty: in.ContactsQty,
		Price:       in.ContactsQty * PricePerSMS,
		Status:      model.SMSStatusPending,
	}
	if err := s.DB.WithContext(ctx).Create(req).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.Log.Info("sms request created",
		zap.String("request_id", req.ID),
		zap.String("user_id", userID),
		zap.Int("contacts_qty", in.ContactsQty))
	return req, nil
}

// ListByUser returns the user's requests, newest first.
func (s *SMSService) ListByUser(ctx context.Context, userID string) ([]model.SMSRequest, error) {
	var requests []model.SMSRequest
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return requests, nil
}

// AdminList returns every request across users, newest first.
func (s *SMSService) AdminList(ctx context.Context, caller auth.Identity) ([]model.SMSRequest, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: admin role required", ErrUnauthorized)
	}
	var requests []model.SMSRequest
	err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return requests, nil
}

// Cancel moves the caller's own pending request to cancelled. The
// guard sits in the WHERE clause, so a request that is absent, foreign
// or already processed fails identically with a not-found/conflict.
func (s *SMSService) Cancel(ctx context.Context, userID, requestID string) error {
	if requestID == "" {
		return fmt.Errorf("%w: missing request id", ErrValidation)
	}

	res := s.DB.WithContext(ctx).Model(&model.SMSRequest{}).
		Where("id = ? AND user_id = ? AND status = ?", requestID, userID, model.SMSStatusPending).
		Update("status", model.SMSStatusCancelled)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", ErrStorage, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: sms request not found or already processed", ErrNotFound)
	}

	s.Log.Info("sms request cancelled", zap.String("request_id", requestID), zap.String("user_id", userID))
	return nil
}

// SetStatus is the admin transition: pending requests may move to
// completed or cancelled. Terminal requests only move when override is
// set.
func (s *SMSService) SetStatus(ctx context.Context, caller auth.Identity, requestID, status string, override bool) (*model.SMSRequest, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: admin role required", ErrUnauthorized)
	}
	if status != model.SMSStatusCompleted && status != model.SMSStatusCancelled {
		return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, status)
	}

	q := s.DB.WithContext(ctx).Model(&model.SMSRequest{}).Where("id = ?", requestID)
	if !override {
		q = q.Where("status = ?", model.SMSStatusPending)
	}
	res := q.Update("status", status)
	if res.Error != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: sms request not found or already processed", ErrConflict)
	}

	var req model.SMSRequest
	if err := s.DB.WithContext(ctx).First(&req, "id = ?", requestID).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.Log.Info("sms request status changed",
		zap.String("request_id", requestID),
		zap.String("status", status),
		zap.Bool("override", override),
		zap.String("admin", caller.UserID))
	return &req, nil
}
