package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ajramos/inboxpilot/internal/db"
)

// CacheServiceImpl implements CacheService
type CacheServiceImpl struct {
	store *db.CacheStore
	now   func() time.Time
}

// NewCacheService creates a new cache service
func NewCacheService(store *db.CacheStore) *CacheServiceImpl {
	return &CacheServiceImpl{
		store: store,
		now:   time.Now,
	}
}

func (s *CacheServiceImpl) check(accountEmail, messageID string) error {
	if s.store == nil {
		return fmt.Errorf("cache store not available: %w", ErrCacheUnavailable)
	}
	if strings.TrimSpace(accountEmail) == "" || strings.TrimSpace(messageID) == "" {
		return fmt.Errorf("accountEmail and messageID cannot be empty: %w", ErrInvalidInput)
	}
	return nil
}

func (s *CacheServiceImpl) load(ctx context.Context, kind db.Kind, accountEmail, messageID string) (string, bool, error) {
	if err := s.check(accountEmail, messageID); err != nil {
		return "", false, err
	}
	text, found, err := s.store.Load(ctx, kind, accountEmail, messageID)
	if err != nil {
		return "", false, fmt.Errorf("failed to load %s from cache: %w", kind, err)
	}
	return text, found, nil
}

func (s *CacheServiceImpl) save(ctx context.Context, kind db.Kind, accountEmail, messageID, text string) error {
	if err := s.check(accountEmail, messageID); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%s cannot be empty: %w", kind, ErrInvalidInput)
	}
	if err := s.store.Save(ctx, kind, accountEmail, messageID, text, s.now().Unix()); err != nil {
		return fmt.Errorf("failed to save %s to cache: %w", kind, err)
	}
	return nil
}

func (s *CacheServiceImpl) GetSummary(ctx context.Context, accountEmail, messageID string) (string, bool, error) {
	return s.load(ctx, db.KindSummary, accountEmail, messageID)
}

func (s *CacheServiceImpl) SaveSummary(ctx context.Context, accountEmail, messageID, summary string) error {
	return s.save(ctx, db.KindSummary, accountEmail, messageID, summary)
}

func (s *CacheServiceImpl) GetReply(ctx context.Context, accountEmail, messageID string) (string, bool, error) {
	return s.load(ctx, db.KindReply, accountEmail, messageID)
}

func (s *CacheServiceImpl) SaveReply(ctx context.Context, accountEmail, messageID, reply string) error {
	return s.save(ctx, db.KindReply, accountEmail, messageID, reply)
}

// Invalidate forgets both the summary and the reply of a message
func (s *CacheServiceImpl) Invalidate(ctx context.Context, accountEmail, messageID string) error {
	if err := s.check(accountEmail, messageID); err != nil {
		return err
	}
	if err := s.store.Forget(ctx, accountEmail, messageID); err != nil {
		return fmt.Errorf("failed to invalidate cache entry: %w", err)
	}
	return nil
}
