package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"contact-manager/auth"
	"contact-manager/model"
	"contact-manager/rut"
)

// countCacheTTL bounds staleness of the per-user contact counters kept
// in redis. Mutations invalidate eagerly; the TTL is the backstop.
const countCacheTTL = 5 * time.Minute

type ContactService struct {
	DB    *gorm.DB
	Redis *redis.Client
	Log   *zap.Logger
}

// ContactInput carries the form fields. Everything is optional at this
// boundary; validation beyond RUT canonicalization is the caller's job.
type ContactInput struct {
	RUT         string `json:"rut"`
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	Comuna      string `json:"comuna"`
	Region      string `json:"region"`
	Nationality string `json:"nationality"`
	Email       string `json:"email"`
	Instagram   string `json:"instagram"`
	Facebook    string `json:"facebook"`
	Twitter     string `json:"twitter"`
	Tag1        string `json:"tag1"`
	Tag2        string `json:"tag2"`
	Tag3        string `json:"tag3"`
	Comment     string `json:"comment"`
	PadronID    *uint  `json:"padron_id"`
}

// ContactPage is one page of a contact listing plus the unpaginated
// total for the same predicate.
type ContactPage struct {
	Contacts []model.Contact `json:"contacts"`
	Total    int64           `json:"total_contacts"`
}

// UserWithCount is one row of the admin user list.
type UserWithCount struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	ContactCount int64  `json:"contact_count"`
}

func (s *ContactService) Create(ctx context.Context, ownerID string, in ContactInput) (*model.Contact, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: missing owner", ErrValidation)
	}

	c := contactFromInput(ownerID, in)
	if c.RUT != "" {
		var n int64
		if err := s.DB.WithContext(ctx).Model(&model.Contact{}).
			Where("user_id = ? AND rut = ?", ownerID, c.RUT).
			Count(&n).Error; err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		if n > 0 {
			return nil, fmt.Errorf("%w: contact with rut %s already exists", ErrConflict, c.RUT)
		}
	}

	if err := s.DB.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	s.invalidateCount(ctx, ownerID)
	return c, nil
}

// Update rewrites the contact's field set. The owner reference is never
// part of the update map, so a contact cannot be reassigned through
// this path. Non-admin callers can only touch their own contacts.
func (s *ContactService) Update(ctx context.Context, caller auth.Identity, id string, in ContactInput) (*model.Contact, error) {
	existing, err := s.getOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	normalized := rut.Normalize(in.RUT)
	if normalized != "" && normalized != existing.RUT {
		var n int64
		if err := s.DB.WithContext(ctx).Model(&model.Contact{}).
			Where("user_id = ? AND rut = ? AND id <> ?", existing.UserID, normalized, id).
			Count(&n).Error; err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		if n > 0 {
			return nil, fmt.Errorf("%w: contact with rut %s already exists", ErrConflict, normalized)
		}
	}

	updates := map[string]interface{}{
		"rut":         normalized,
		"full_name":   in.FullName,
		"phone":       in.Phone,
		"address":     in.Address,
		"comuna":      in.Comuna,
		"region":      in.Region,
		"nationality": in.Nationality,
		"email":       in.Email,
		"instagram":   in.Instagram,
		"facebook":    in.Facebook,
		"twitter":     in.Twitter,
		"tag1":        in.Tag1,
		"tag2":        in.Tag2,
		"tag3":        in.Tag3,
		"comment":     in.Comment,
		"padron_id":   in.PadronID,
	}
	if err := s.DB.WithContext(ctx).Model(&model.Contact{}).
		Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	var updated model.Contact
	if err := s.DB.WithContext(ctx).First(&updated, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &updated, nil
}

func (s *ContactService) Delete(ctx context.Context, caller auth.Identity, id string) error {
	existing, err := s.getOwned(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(&model.Contact{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	s.invalidateCount(ctx, existing.UserID)
	return nil
}

// List returns one page of the owner's contacts. A non-empty search
// matches any of full name, rut, address, comuna or region,
// case-insensitively. Pages are 1-based; a page past the end returns an
// empty list with the correct total.
func (s *ContactService) List(ctx context.Context, ownerID, search string, page, limit int) (*ContactPage, error) {
	return s.list(ctx, ownerID, search, page, limit)
}

// AdminList is List without the ownership restriction. ownerID narrows
// the listing to one user when non-empty.
func (s *ContactService) AdminList(ctx context.Context, caller auth.Identity, search string, page, limit int, ownerID string) (*ContactPage, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: admin role required", ErrUnauthorized)
	}
	return s.list(ctx, ownerID, search, page, limit)
}

func (s *ContactService) list(ctx context.Context, ownerID, search string, page, limit int) (*ContactPage, error) {
	if page < 1 || limit < 1 {
		return nil, fmt.Errorf("%w: page and limit must be positive", ErrValidation)
	}

	base := s.DB.WithContext(ctx).Model(&model.Contact{})
	if ownerID != "" {
		base = base.Where("user_id = ?", ownerID)
	}
	base = applyContactSearch(base, search)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	var contacts []model.Contact
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&contacts).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return &ContactPage{Contacts: contacts, Total: total}, nil
}

// ListAll returns every contact of one owner, oldest first. Feeds the
// export generator.
func (s *ContactService) ListAll(ctx context.Context, ownerID string) ([]model.Contact, error) {
	var contacts []model.Contact
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at ASC").
		Find(&contacts).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return contacts, nil
}

// ListByIDs returns the subset of the owner's contacts matching ids.
// IDs belonging to other owners are silently dropped.
func (s *ContactService) ListByIDs(ctx context.Context, ownerID string, ids []string) ([]model.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var contacts []model.Contact
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND id IN ?", ownerID, ids).
		Find(&contacts).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return contacts, nil
}

// CountByUser returns the user's total contact count, served from redis
// when warm.
func (s *ContactService) CountByUser(ctx context.Context, userID string) (int64, error) {
	if s.Redis != nil {
		if v, err := s.Redis.Get(ctx, countKey(userID)).Result(); err == nil {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n, nil
			}
		}
	}

	var n int64
	err := s.DB.WithContext(ctx).Model(&model.Contact{}).
		Where("user_id = ?", userID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if s.Redis != nil {
		if err := s.Redis.Set(ctx, countKey(userID), n, countCacheTTL).Err(); err != nil {
			s.Log.Warn("failed to cache contact count", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return n, nil
}

// UsersWithCounts backs the admin user list: every account with its
// contact total.
func (s *ContactService) UsersWithCounts(ctx context.Context, caller auth.Identity) ([]UserWithCount, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: admin role required", ErrUnauthorized)
	}

	var users []model.User
	if err := s.DB.WithContext(ctx).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	out := make([]UserWithCount, 0, len(users))
	for _, u := range users {
		n, err := s.CountByUser(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, UserWithCount{ID: u.ID, Email: u.Email, ContactCount: n})
	}
	return out, nil
}

// RefreshAllCounts recomputes every user's cached contact count. Run
// from the scheduled cache-refresh event.
func (s *ContactService) RefreshAllCounts(ctx context.Context) error {
	if s.Redis == nil {
		return nil
	}

	var users []model.User
	if err := s.DB.WithContext(ctx).Find(&users).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	for _, u := range users {
		var n int64
		if err := s.DB.WithContext(ctx).Model(&model.Contact{}).
			Where("user_id = ?", u.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
		if err := s.Redis.Set(ctx, countKey(u.ID), n, countCacheTTL).Err(); err != nil {
			s.Log.Warn("failed to refresh contact count", zap.String("user_id", u.ID), zap.Error(err))
		}
	}
	s.Log.Info("contact count cache refreshed", zap.Int("users", len(users)))
	return nil
}

func (s *ContactService) getOwned(ctx context.Context, caller auth.Identity, id string) (*model.Contact, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: missing contact id", ErrValidation)
	}
	var c model.Contact
	err := s.DB.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: contact %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !caller.IsAdmin() && c.UserID != caller.UserID {
		// Not distinguishable from absent: don't leak other users' ids.
		return nil, fmt.Errorf("%w: contact %s", ErrNotFound, id)
	}
	return &c, nil
}

func (s *ContactService) invalidateCount(ctx context.Context, userID string) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, countKey(userID)).Err(); err != nil {
		s.Log.Warn("failed to invalidate contact count", zap.String("user_id", userID), zap.Error(err))
	}
}

func countKey(userID string) string { return "contact-count:" + userID }

// applyContactSearch adds the listing predicate: substring match on any
// of the five searchable columns. LOWER(...) LIKE keeps the predicate
// identical on postgres and sqlite.
func applyContactSearch(q *gorm.DB, search string) *gorm.DB {
	if search == "" {
		return q
	}
	pattern := "%" + search + "%"
	return q.Where(
		"LOWER(full_name) LIKE LOWER(?) OR LOWER(rut) LIKE LOWER(?) OR LOWER(address) LIKE LOWER(?) OR LOWER(comuna) LIKE LOWER(?) OR LOWER(region) LIKE LOWER(?)",
		pattern, pattern, pattern, pattern, pattern,
	)
}

func contactFromInput(ownerID string, in ContactInput) *model.Contact {
	return &model.Contact{
		UserID:      ownerID,
		RUT:         rut.Normalize(in.RUT),
		FullName:    in.FullName,
		Phone:       in.Phone,
		Address:     in.Address,
		Comuna:      in.Comuna,
		Region:      in.Region,
		Nationality: in.Nationality,
		Email:       in.Email,
		Instagram:   in.Instagram,
		Facebook:    in.Facebook,
		Twitter:     in.Twitter,
		Tag1:        in.Tag1,
		Tag2:        in.Tag2,
		Tag3:        in.Tag3,
		Comment:     in.Comment,
		PadronID:    in.PadronID,
	}
}
