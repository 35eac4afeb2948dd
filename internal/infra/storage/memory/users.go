package memory

import (
	"context"
	"strings"
	"sync"

	domainauth "rentboard/internal/domain/auth"
	domainuser "rentboard/internal/domain/user"
)

// UserRepository keeps users by id with a unique email index.
type UserRepository struct {
	mu     sync.RWMutex
	users  map[domainuser.ID]domainuser.User
	emails map[string]domainuser.ID
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:  make(map[domainuser.ID]domainuser.User),
		emails: make(map[string]domainuser.ID),
	}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyOf(id)
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyOf(r.emails[domainuser.NormalizeEmail(email)])
}

// Save inserts or replaces a user. Changing the email moves the index entry.
func (r *UserRepository) Save(ctx context.Context, user *domainuser.User) error {
	switch {
	case user == nil || strings.TrimSpace(string(user.ID)) == "":
		return domainuser.ErrIDRequired
	case domainuser.NormalizeEmail(user.Email) == "":
		return domainuser.ErrEmailRequired
	}
	stored := *user
	stored.Email = domainuser.NormalizeEmail(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, taken := r.emails[stored.Email]; taken && owner != stored.ID {
		return domainuser.ErrEmailAlreadyUsed
	}
	if prev, ok := r.users[stored.ID]; ok {
		delete(r.emails, prev.Email)
	}
	r.users[stored.ID] = stored
	r.emails[stored.Email] = stored.ID
	return nil
}

func (r *UserRepository) copyOf(id domainuser.ID) (*domainuser.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return &u, nil
}

// SessionStore keeps bearer sessions by token. Expiry is judged by the caller.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[domainauth.Token]domainauth.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[domainauth.Token]domainauth.Session)}
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	if session == nil || session.Token == "" {
		return domainauth.ErrTokenRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = *session
	return nil
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[token]
	if !ok {
		return nil, domainauth.ErrSessionNotFound
	}
	return &session, nil
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID domainuser.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, token)
		}
	}
	return nil
}

var (
	_ domainuser.Repository   = (*UserRepository)(nil)
	_ domainauth.SessionStore = (*SessionStore)(nil)
)
