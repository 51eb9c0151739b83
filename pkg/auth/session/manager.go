package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	redisclient "github.com/angelmondragon/folio-backend/pkg/redis"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error
	AddToSet(ctx context.Context, key string, ttl time.Duration, members ...string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	RemoveFromSet(ctx context.Context, key string, members ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
	AdminSessionsKey(adminID string) string
}

// Manager tracks which issued access tokens are still live so logout and
// account deactivation take effect before the token expires.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &Manager{store: client, keyer: client}, nil
}

// Register records accessID as a live session for adminID until ttl elapses.
func (m *Manager) Register(ctx context.Context, adminID uuid.UUID, accessID string, ttl time.Duration) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), adminID.String(), ttl); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if err := m.store.AddToSet(ctx, m.keyer.AdminSessionsKey(adminID.String()), ttl, accessID); err != nil {
		return fmt.Errorf("index session: %w", err)
	}
	return nil
}

// HasSession reports whether the provided access ID is still live.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	return m.store.Exists(ctx, m.keyer.AccessSessionKey(accessID))
}

// Revoke ends a single session.
func (m *Manager) Revoke(ctx context.Context, adminID uuid.UUID, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return multierr.Append(
		m.store.Del(ctx, m.keyer.AccessSessionKey(accessID)),
		m.store.RemoveFromSet(ctx, m.keyer.AdminSessionsKey(adminID.String()), accessID),
	)
}

// RevokeAll ends every session issued to adminID.
func (m *Manager) RevokeAll(ctx context.Context, adminID uuid.UUID) error {
	indexKey := m.keyer.AdminSessionsKey(adminID.String())
	ids, err := m.store.SetMembers(ctx, indexKey)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, m.keyer.AccessSessionKey(id))
	}
	keys = append(keys, indexKey)
	return m.store.Del(ctx, keys...)
}
