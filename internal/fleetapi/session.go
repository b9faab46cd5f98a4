package fleetapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/fleetwave/fleetwave/internal/common/apperrors"
)

// Session is an immutable snapshot of the active authentication state: the
// selected workspace and the token scoped to it.
type Session struct {
	WorkspaceID   string    `json:"workspaceId"`
	WorkspaceName string    `json:"workspaceName,omitempty"`
	Token         string    `json:"token"`
	Expiry        time.Time `json:"expiry"`
}

// ValidAt reports whether the session token is usable at the given time,
// treating tokens that expire within skew as already expired.
func (s Session) ValidAt(t time.Time, skew time.Duration) bool {
	if s.Token == "" || s.Expiry.IsZero() {
		return false
	}
	return t.Add(skew).Before(s.Expiry)
}

// TokenIssuer obtains workspace-scoped tokens from the control plane.
// SessionStore calls it for refreshes and workspace switches.
type TokenIssuer interface {
	IssueToken(ctx context.Context, workspaceID string) (Session, error)
}

var (
	// ErrNoSession indicates no workspace has been selected.
	ErrNoSession = apperrors.New("no active session; select a workspace first").
			SetStatusCode(http.StatusUnauthorized).
			SetCode(CodeNoSession)
	// ErrSessionRefresh indicates a token refresh was attempted and failed.
	ErrSessionRefresh = apperrors.New("unable to refresh session").
				SetStatusCode(http.StatusUnauthorized).
				SetCode(CodeAuthFailed)
	// ErrWorkspaceSwitch indicates a workspace switch failed; the previous
	// session remains active.
	ErrWorkspaceSwitch = apperrors.New("unable to switch workspace").
				SetStatusCode(http.StatusUnauthorized).
				SetCode(CodeAuthFailed)
)

// StoreOptions configures a SessionStore.
type StoreOptions struct {
	// RefreshSkew treats tokens expiring within this window as expired, so a
	// request never starts with a token about to lapse mid-flight.
	RefreshSkew time.Duration
	// OnUpdate is invoked after the active session changes. The CLI uses it
	// to write the new token through to the config file.
	OnUpdate func(Session)
}

// SessionStore holds the single active session and keeps it usable. All
// methods are safe for concurrent use; concurrent refreshes collapse into
// one issuer call whose result every caller shares.
type SessionStore struct {
	issuer   TokenIssuer
	skew     time.Duration
	onUpdate func(Session)

	mu      sync.RWMutex
	current Session

	sfGroup singleflight.Group // collapses concurrent refreshes
}

// NewSessionStore creates a session store backed by the given issuer.
func NewSessionStore(issuer TokenIssuer, opts StoreOptions) *SessionStore {
	return &SessionStore{
		issuer:   issuer,
		skew:     opts.RefreshSkew,
		onUpdate: opts.OnUpdate,
	}
}

// Current returns a snapshot of the active session. The zero Session means
// no workspace is selected.
func (s *SessionStore) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set installs a session obtained out of band, such as one restored from the
// config file at startup.
func (s *SessionStore) Set(sess Session) {
	s.swap(sess)
}

// Clear removes the active session.
func (s *SessionStore) Clear() {
	s.swap(Session{})
}

// Resolve returns a usable session: the active one when its token is still
// valid, or the result of a refresh when it has expired. Returns ErrNoSession
// when no workspace is selected.
func (s *SessionStore) Resolve(ctx context.Context) (Session, error) {
	s.mu.RLock()
	sess := s.current
	s.mu.RUnlock()

	if sess.WorkspaceID == "" {
		return Session{}, ErrNoSession
	}
	if sess.ValidAt(time.Now(), s.skew) {
		return sess, nil
	}

	log.Ctx(ctx).Debug().Str("workspace", sess.WorkspaceID).Msg("session expired, refreshing")
	return s.Refresh(ctx)
}

// Refresh obtains a fresh token for the active workspace and atomically
// replaces the session. Concurrent callers share a single issuer call. On
// failure the previous session is left in place.
func (s *SessionStore) Refresh(ctx context.Context) (Session, error) {
	s.mu.RLock()
	workspaceID := s.current.WorkspaceID
	s.mu.RUnlock()

	if workspaceID == "" {
		return Session{}, ErrNoSession
	}

	v, err, _ := s.sfGroup.Do("refresh:"+workspaceID, func() (any, error) {
		sess, err := s.issuer.IssueToken(ctx, workspaceID)
		if err != nil {
			return Session{}, ErrSessionRefresh.Err(err)
		}
		s.swap(sess)
		return sess, nil
	})
	if err != nil {
		return Session{}, err
	}
	return v.(Session), nil
}

// SwitchWorkspace obtains a token for the given workspace and makes it the
// active session. The switch is atomic: on failure the previous session,
// including its workspace, remains active.
func (s *SessionStore) SwitchWorkspace(ctx context.Context, workspaceID string) (Session, error) {
	if workspaceID == "" {
		return Session{}, ErrWorkspaceSwitch.Msg("workspace is required")
	}

	sess, err := s.issuer.IssueToken(ctx, workspaceID)
	if err != nil {
		return Session{}, ErrWorkspaceSwitch.Err(err)
	}
	s.swap(sess)
	return sess, nil
}

// swap replaces the active session and notifies the update hook. The hook
// runs outside the lock so it may call back into the store.
func (s *SessionStore) swap(sess Session) {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	if s.onUpdate != nil {
		s.onUpdate(sess)
	}
}
