// Package auth owns the current-user slot and its lifecycle.
//
// This is a demo identity model, not a security boundary: Login accepts any
// password, never checks it against a stored credential, and fabricates a
// user from the email address.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"socialconnect/internal/delay"
	"socialconnect/internal/models"

	"go.uber.org/zap"
)

var (
	ErrInvalidEmail     = errors.New("email is required")
	ErrBusy             = errors.New("another session operation is in progress")
	ErrNotAuthenticated = errors.New("not logged in")
)

type State int

const (
	StateUnknown State = iota
	StateRestoring
	StateAnonymous
	StateLoggingIn
	StateAuthenticated
	StateLoggingOut
)

func (s State) String() string {
	switch s {
	case StateRestoring:
		return "restoring"
	case StateAnonymous:
		return "anonymous"
	case StateLoggingIn:
		return "logging_in"
	case StateAuthenticated:
		return "authenticated"
	case StateLoggingOut:
		return "logging_out"
	default:
		return "unknown"
	}
}

// UserStore is the slice of the repository the session needs.
type UserStore interface {
	GetUser(ctx context.Context) (models.User, bool)
	SaveUser(ctx context.Context, u models.User) error
	RemoveUser(ctx context.Context) error
}

// Listener is called after every state change, outside the manager's lock.
// user is a copy of the current user, or nil when there is none.
type Listener func(state State, user *models.User)

type Manager struct {
	users        UserStore
	log          *zap.Logger
	restoreDelay time.Duration
	loginDelay   time.Duration
	newID        func() string

	mu        sync.Mutex
	state     State
	user      *models.User
	pending   *delay.Task
	listeners []Listener
}

type Option func(*Manager)

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithDelays sets the simulated pauses before restore and login complete.
func WithDelays(restore, login time.Duration) Option {
	return func(m *Manager) {
		m.restoreDelay = restore
		m.loginDelay = login
	}
}

func WithIDFunc(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

func NewManager(users UserStore, opts ...Option) *Manager {
	m := &Manager{users: users, log: zap.NewNop(), newID: models.NewID}
	for _, o := range opts {
		o(m)
	}
	m.log = m.log.Named("auth")
	return m
}

// Subscribe registers fn for state changes.
func (m *Manager) Subscribe(fn Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentUser returns a copy of the logged-in user.
func (m *Manager) CurrentUser() (models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return models.User{}, false
	}
	return *m.user, true
}

// IsLoading reports whether a restore or login is still pending.
func (m *Manager) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateUnknown || m.state == StateRestoring || m.state == StateLoggingIn
}

// transition sets the state under the lock and notifies listeners after
// releasing it. fn may veto by returning false.
func (m *Manager) transition(fn func() bool) {
	m.mu.Lock()
	if !fn() {
		m.mu.Unlock()
		return
	}
	state := m.state
	var user *models.User
	if m.user != nil {
		u := *m.user
		user = &u
	}
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	m.log.Debug("session state", zap.Stringer("state", state))
	for _, l := range listeners {
		l(state, user)
	}
}

// ----------------------------
// Restore
// ----------------------------

// Start enters Restoring and schedules the lookup of a saved user. ctx must
// outlive the returned task.
func (m *Manager) Start(ctx context.Context) *delay.Task {
	started := false
	m.transition(func() bool {
		if m.state != StateUnknown {
			return false
		}
		m.state = StateRestoring
		started = true
		return true
	})
	if !started {
		return delay.Completed(nil)
	}
	return m.track(delay.After(m.restoreDelay, func() error {
		m.restore(ctx)
		return nil
	}))
}

func (m *Manager) restore(ctx context.Context) {
	u, ok := m.users.GetUser(ctx)
	m.transition(func() bool {
		if m.state != StateRestoring {
			return false
		}
		if ok {
			m.user = &u
			m.state = StateAuthenticated
		} else {
			m.state = StateAnonymous
		}
		return true
	})
	if ok {
		m.log.Info("auth.Restore: session restored", zap.String("user_id", u.ID))
	}
}

func (m *Manager) track(t *delay.Task) *delay.Task {
	m.mu.Lock()
	if t.Pending() {
		m.pending = t
	}
	m.mu.Unlock()
	return t
}

// ----------------------------
// Login (simulated)
// ----------------------------

var wordStart = regexp.MustCompile(`\b\w`)

// DisplayNameFromEmail turns "mary_jane.doe@x.io" into "Mary Jane Doe":
// the local part with dots and underscores as spaces, each word capitalised.
func DisplayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = strings.NewReplacer(".", " ", "_", " ").Replace(local)
	return wordStart.ReplaceAllStringFunc(local, strings.ToUpper)
}

const avatarURL = "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=150&h=150&fit=crop&crop=face&sig=%s"

// Login fabricates a user for email after the login delay and persists it.
// The password is ignored. ctx must outlive the returned task; the task's
// error reports a persistence failure, in which case the previous state is
// kept.
func (m *Manager) Login(ctx context.Context, email, password string) (*delay.Task, error) {
	email = strings.TrimSpace(email)
	if local, _, _ := strings.Cut(email, "@"); strings.TrimSpace(local) == "" {
		return nil, ErrInvalidEmail
	}

	var prev State
	busy := false
	m.transition(func() bool {
		switch m.state {
		case StateUnknown, StateRestoring, StateLoggingIn, StateLoggingOut:
			busy = true
			return false
		}
		prev = m.state
		m.state = StateLoggingIn
		return true
	})
	if busy {
		return nil, ErrBusy
	}

	return m.track(delay.After(m.loginDelay, func() error {
		id := m.newID()
		u := models.User{
			ID:          id,
			DisplayName: DisplayNameFromEmail(email),
			Email:       email,
			AvatarURL:   fmt.Sprintf(avatarURL, id),
			IsOnline:    true,
		}
		if err := m.users.SaveUser(ctx, u); err != nil {
			m.log.Error("auth.Login: save user failed", zap.String("email", email), zap.Error(err))
			m.transition(func() bool {
				if m.state != StateLoggingIn {
					return false
				}
				m.state = prev
				return true
			})
			return fmt.Errorf("auth.Login: %w", err)
		}
		m.transition(func() bool {
			if m.state != StateLoggingIn {
				return false
			}
			m.user = &u
			m.state = StateAuthenticated
			return true
		})
		m.log.Info("auth.Login: OK", zap.String("email", email), zap.String("user_id", u.ID))
		return nil
	})), nil
}

// ----------------------------
// Logout
// ----------------------------

// Logout removes the persisted user. If that fails the session stays
// authenticated and the error is returned.
func (m *Manager) Logout(ctx context.Context) error {
	ok := false
	m.transition(func() bool {
		if m.state != StateAuthenticated {
			return false
		}
		m.state = StateLoggingOut
		ok = true
		return true
	})
	if !ok {
		return ErrNotAuthenticated
	}

	err := m.users.RemoveUser(ctx)
	m.transition(func() bool {
		if err != nil {
			m.state = StateAuthenticated
			return true
		}
		m.user = nil
		m.state = StateAnonymous
		return true
	})
	if err != nil {
		m.log.Error("auth.Logout: remove user failed", zap.Error(err))
		return fmt.Errorf("auth.Logout: %w", err)
	}
	return nil
}

// ----------------------------
// Profile
// ----------------------------

// ProfileUpdate holds the mutable profile fields; nil means unchanged.
// Id and email are fixed for the life of a user.
type ProfileUpdate struct {
	DisplayName *string
	AvatarURL   *string
	IsOnline    *bool
}

// UpdateProfile persists the patched user, then reflects it in memory.
func (m *Manager) UpdateProfile(ctx context.Context, p ProfileUpdate) (models.User, error) {
	cur, ok := m.CurrentUser()
	if !ok {
		return models.User{}, ErrNotAuthenticated
	}
	if p.DisplayName != nil {
		cur.DisplayName = strings.TrimSpace(*p.DisplayName)
	}
	if p.AvatarURL != nil {
		cur.AvatarURL = strings.TrimSpace(*p.AvatarURL)
	}
	if p.IsOnline != nil {
		cur.IsOnline = *p.IsOnline
	}

	if err := m.users.SaveUser(ctx, cur); err != nil {
		m.log.Error("auth.UpdateProfile: save user failed", zap.Error(err))
		return models.User{}, fmt.Errorf("auth.UpdateProfile: %w", err)
	}
	m.transition(func() bool {
		if m.user == nil || m.user.ID != cur.ID {
			return false
		}
		m.user = &cur
		return true
	})
	return cur, nil
}

// Reset forgets the in-memory user without touching the store, for when the
// store was cleared underneath the manager. Listeners see StateAnonymous.
func (m *Manager) Reset() {
	m.Close()
	m.transition(func() bool {
		m.user = nil
		m.state = StateAnonymous
		return true
	})
}

// Close cancels a pending restore or login.
func (m *Manager) Close() {
	m.mu.Lock()
	t := m.pending
	m.pending = nil
	m.mu.Unlock()
	if t != nil && t.Cancel() {
		m.log.Debug("cancelled pending session task")
	}
}
