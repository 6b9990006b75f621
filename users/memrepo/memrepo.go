package memrepo

import (
	"context"
	"sync"

	"github.com/google/uuid"
	errs "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
)

var _ users.UserRepo = (*Repo)(nil)

// Repo keeps users in process memory. Records are copied on the way in and
// out so callers never share a pointer with the map.
type Repo struct {
	users    map[string]users.User
	emailIds map[string]string // email to user id
	lock     sync.RWMutex
}

func New() *Repo {
	return &Repo{
		users:    make(map[string]users.User),
		emailIds: make(map[string]string),
	}
}

func (ur *Repo) Upsert(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = users.NormalizeEmail(user.Email)

	if previous, ok := ur.users[user.ID]; ok && previous.Email != user.Email {
		delete(ur.emailIds, previous.Email)
	}
	ur.users[user.ID] = *user
	ur.emailIds[user.Email] = user.ID
	return nil
}

func (ur *Repo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[users.NormalizeEmail(email)]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	u := ur.users[id]
	return &u, nil
}

func (ur *Repo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	return &u, nil
}
