package directory

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/intervox/intervox/internal/model"
	"github.com/intervox/intervox/internal/storage"
)

const sessionTTL = 24 * time.Hour

// Sessions manages API login sessions in the AUTH_SESSIONS_v1 document.
type Sessions struct {
	mu sync.Mutex
	kv *storage.Store
}

// NewSessions creates a session store backed by the given store.
func NewSessions(kv *storage.Store) *Sessions {
	return &Sessions{kv: kv}
}

func (s *Sessions) load() []model.AuthSession {
	doc, ok, err := s.kv.Get(storage.KeyAuthSessions)
	if err != nil {
		slog.Warn("read auth sessions failed, treating as empty", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var sessions []model.AuthSession
	if err := json.Unmarshal([]byte(doc), &sessions); err != nil {
		slog.Warn("corrupt auth sessions document, treating as empty", "error", err)
		return nil
	}
	return sessions
}

func (s *Sessions) save(sessions []model.AuthSession) error {
	doc, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("marshal auth sessions: %w", err)
	}
	if err := s.kv.Set(storage.KeyAuthSessions, string(doc)); err != nil {
		return fmt.Errorf("write auth sessions: %w", err)
	}
	return nil
}

// Create issues a new session token for a user.
func (s *Sessions) Create(userID string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	sessions := append(s.load(), model.AuthSession{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(sessionTTL),
	})
	if err := s.save(sessions); err != nil {
		return "", err
	}
	return token, nil
}

// Get returns the session for the given token, or nil when the token is
// unknown or expired. Expired sessions are removed on access.
func (s *Sessions) Get(token string) *model.AuthSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load()
	for i, sess := range sessions {
		if sess.Token != token {
			continue
		}
		if time.Now().After(sess.ExpiresAt) {
			if err := s.save(append(sessions[:i], sessions[i+1:]...)); err != nil {
				slog.Warn("drop expired session failed", "error", err)
			}
			return nil
		}
		return &sess
	}
	return nil
}

// Delete removes a session token. Deleting an unknown token succeeds.
func (s *Sessions) Delete(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load()
	kept := sessions[:0]
	for _, sess := range sessions {
		if sess.Token != token {
			kept = append(kept, sess)
		}
	}
	return s.save(kept)
}

// Sweep removes all expired sessions and returns how many were dropped.
func (s *Sessions) Sweep() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	sessions := s.load()
	kept := sessions[:0]
	for _, sess := range sessions {
		if now.Before(sess.ExpiresAt) {
			kept = append(kept, sess)
		}
	}
	removed := len(sessions) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.save(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
