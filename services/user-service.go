package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"contact-manager/auth"
	"contact-manager/model"
)

// UserService mirrors identity-provider accounts into the users table
// so contacts and SMS requests have a stable owner row to reference.
type UserService struct {
	DB  *gorm.DB
	Log *zap.Logger
}

// Ensure upserts the account row for an authenticated identity. Role
// and email follow the provider's claims on every request.
func (s *UserService) Ensure(ctx context.Context, id auth.Identity) error {
	role := id.Role
	if role == "" {
		role = auth.RoleUser
	}
	u := model.User{ID: id.UserID, Email: id.Email, Role: role}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "role"}),
		}).
		Create(&u).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}
