// Package session keeps server side login sessions. The browser only holds an
// opaque id in a cookie; the id maps to a user id with a fixed expiry.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/ai-assistant/internal/common"
)

var ErrNotFound = errors.New("session not found")

type Store interface {
	Save(ctx context.Context, id string, userID uint64, ttl time.Duration) error
	// Load returns ErrNotFound for unknown or expired ids.
	Load(ctx context.Context, id string) (uint64, error)
	Delete(ctx context.Context, id string) error
}

const DefaultCookieName = "sid"

type Manager struct {
	store      Store
	ttl        time.Duration
	cookieName string
	secure     bool
}

func NewManager(store Store, ttl time.Duration, secure bool) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{store: store, ttl: ttl, cookieName: DefaultCookieName, secure: secure}
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// Start creates a session for userID and sets the cookie. Any session the
// request already carried is dropped first.
func (m *Manager) Start(c *gin.Context, userID uint64) error {
	if old, err := c.Cookie(m.cookieName); err == nil && old != "" {
		_ = m.store.Delete(c.Request.Context(), old)
	}

	id, err := common.NewULID()
	if err != nil {
		return err
	}
	if err := m.store.Save(c.Request.Context(), id, userID, m.ttl); err != nil {
		return err
	}
	m.setCookie(c, id, int(m.ttl/time.Second))
	return nil
}

// UserID resolves the request's session. ok is false when there is none.
func (m *Manager) UserID(c *gin.Context) (uint64, bool, error) {
	id, err := c.Cookie(m.cookieName)
	if err != nil || id == "" {
		return 0, false, nil
	}
	uid, err := m.store.Load(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return uid, true, nil
}

// Destroy removes the server side session and clears the cookie.
func (m *Manager) Destroy(c *gin.Context) error {
	id, err := c.Cookie(m.cookieName)
	if err == nil && id != "" {
		if err := m.store.Delete(c.Request.Context(), id); err != nil {
			return err
		}
	}
	m.setCookie(c, "", -1)
	return nil
}

func (m *Manager) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, value, maxAge, "/", "", m.secure, true)
}

type memoryEntry struct {
	userID    uint64
	expiresAt time.Time
}

// MemoryStore keeps sessions in process. Expired entries are pruned lazily
// on Load and by the janitor started with StartJanitor.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Save(ctx context.Context, id string, userID uint64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = memoryEntry{userID: userID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, id string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return 0, ErrNotFound
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.sessions, id)
		return 0, ErrNotFound
	}
	return e.userID, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) prune() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, e := range s.sessions {
		if !now.Before(e.expiresAt) {
			delete(s.sessions, id)
		}
	}
}

// StartJanitor prunes expired sessions every interval until ctx is done.
func (s *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.prune()
			case <-ctx.Done():
				return
			}
		}
	}()
}
