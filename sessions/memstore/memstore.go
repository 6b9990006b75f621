// Package memstore is an in-process session store for development and tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	errs "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/sessions"
)

var _ sessions.Store = (*Store)(nil)

// Store keeps sessions in a map. Callers only ever see copies, so a returned
// session cannot be mutated behind the lock.
type Store struct {
	sessions map[string]sessions.Session
	byUser   map[string][]string // userID -> session ids in creation order
	lock     sync.RWMutex
}

func New() *Store {
	return &Store{
		sessions: make(map[string]sessions.Session),
		byUser:   make(map[string][]string),
	}
}

func (s *Store) Create(ctx context.Context, userID, userAgent string) (*sessions.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStorageUnavailable, err)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	id := uuid.NewString()
	for _, taken := s.sessions[id]; taken; _, taken = s.sessions[id] {
		id = uuid.NewString()
	}

	now := time.Now().UTC()
	sess := sessions.Session{
		ID:        id,
		UserID:    userID,
		UserAgent: userAgent,
		Valid:     true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[id] = sess
	s.byUser[userID] = append(s.byUser[userID], id)
	return &sess, nil
}

func (s *Store) Get(ctx context.Context, sessionID string) (*sessions.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStorageUnavailable, err)
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrSessionNotFound, sessionID)
	}
	return &sess, nil
}

func (s *Store) Invalidate(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStorageUnavailable, err)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrSessionNotFound, sessionID)
	}
	if !sess.Valid {
		return nil
	}
	sess.Valid = false
	sess.UpdatedAt = time.Now().UTC()
	s.sessions[sessionID] = sess
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]*sessions.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStorageUnavailable, err)
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	list := make([]*sessions.Session, 0, len(s.byUser[userID]))
	for _, id := range s.byUser[userID] {
		sess := s.sessions[id]
		if sess.Valid {
			list = append(list, &sess)
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}
