package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultStatusCacheTTL = 5 * time.Second

type UserStatusReader interface {
	GetStatus(ctx context.Context, id uuid.UUID) (string, error)
}

// StatusCache кэш статусов аккаунтов для проверки блокировки на каждом
// изменяющем запросе. Модерация сбрасывает запись сразу после смены статуса.
type StatusCache struct {
	users UserStatusReader
	ttl   time.Duration
	now   func() time.Time

	mu      sync.RWMutex
	entries map[uuid.UUID]statusEntry
}

type statusEntry struct {
	status    string
	expiresAt time.Time
}

func NewStatusCache(users UserStatusReader, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = DefaultStatusCacheTTL
	}
	return &StatusCache{
		users:   users,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[uuid.UUID]statusEntry),
	}
}

// Status статус аккаунта из кэша или из базы.
func (c *StatusCache) Status(ctx context.Context, userID uuid.UUID) (string, error) {
	now := c.now()

	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()
	if ok && now.Before(entry.expiresAt) {
		return entry.status, nil
	}

	status, err := c.users.GetStatus(ctx, userID)
	if err != nil {
		return "", mapRepoError(err)
	}

	c.mu.Lock()
	c.entries[userID] = statusEntry{status: status, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()
	return status, nil
}

func (c *StatusCache) Invalidate(userID uuid.UUID) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

// RunCleanup периодически удаляет протухшие записи до отмены ctx.
func (c *StatusCache) RunCleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := c.now()
			c.mu.Lock()
			for id, entry := range c.entries {
				if !now.Before(entry.expiresAt) {
					delete(c.entries, id)
				}
			}
			c.mu.Unlock()
		}
	}
}
