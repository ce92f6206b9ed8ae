package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"contact-manager/model"
	"contact-manager/rut"
)

// padronCacheTTL is short: the registry itself never changes between
// loads, but the cache is keyed by free-typed prefixes and would grow
// without bound otherwise.
const padronCacheTTL = 10 * time.Minute

// PadronService answers read-only lookups against the pre-loaded
// national registry. The contact form uses it to prefill fields from a
// typed RUT.
type PadronService struct {
	DB    *gorm.DB
	Redis *redis.Client
	Log   *zap.Logger
}

// SearchByRUT matches registry rows whose RUN starts with the cleaned
// query, or contains it when useContains is set.
func (s *PadronService) SearchByRUT(ctx context.Context, query string, useContains bool) ([]model.PadronRow, error) {
	cleaned := rut.Clean(query)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty rut query", ErrValidation)
	}

	mode := "prefix"
	pattern := cleaned + "%"
	if useContains {
		mode = "contains"
		pattern = "%" + cleaned + "%"
	}

	if rows, ok := s.cached(ctx, mode, cleaned); ok {
		return rows, nil
	}

	var rows []model.PadronRow
	if err := s.DB.WithContext(ctx).Where("run LIKE ?", pattern).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	s.cache(ctx, mode, cleaned, rows)
	return rows, nil
}

// SearchByRUTStrict matches on the RUT body alone: the query is
// normalized, split on the dash, and compared exactly, so the check
// digit never participates.
func (s *PadronService) SearchByRUTStrict(ctx context.Context, query string) ([]model.PadronRow, error) {
	body := rut.Body(query)
	if body == "" {
		return nil, fmt.Errorf("%w: empty rut query", ErrValidation)
	}

	if rows, ok := s.cached(ctx, "strict", body); ok {
		return rows, nil
	}

	var rows []model.PadronRow
	if err := s.DB.WithContext(ctx).Where("run = ?", body).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	s.cache(ctx, "strict", body, rows)
	return rows, nil
}

func (s *PadronService) cached(ctx context.Context, mode, query string) ([]model.PadronRow, bool) {
	if s.Redis == nil {
		return nil, false
	}
	raw, err := s.Redis.Get(ctx, padronKey(mode, query)).Bytes()
	if err != nil {
		return nil, false
	}
	var rows []model.PadronRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

func (s *PadronService) cache(ctx context.Context, mode, query string, rows []model.PadronRow) {
	if s.Redis == nil {
		return
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, padronKey(mode, query), raw, padronCacheTTL).Err(); err != nil {
		s.Log.Warn("failed to cache padron lookup", zap.String("query", query), zap.Error(err))
	}
}

func padronKey(mode, query string) string { return "padron:" + mode + ":" + query }
