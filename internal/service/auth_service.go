// Package service holds the business logic: the authentication and
// session lifecycle, and the seat inventory rules for tickets.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

// PasswordHasher is the one-way hash used for stored passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

// Authenticator checks a username/password pair and returns the account.
// It fails with ErrAuthFailed on bad credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*model.UserAccount, error)
}

// TokenPair is the envelope returned by login and refresh.  Lifetimes are
// in seconds.
type TokenPair struct {
	AccessToken           string `json:"accessToken"`
	RefreshToken          string `json:"refreshToken"`
	TokenType             string `json:"tokenType"`
	AccessTokenExpiresIn  int64  `json:"accessTokenExpiresIn"`
	RefreshTokenExpiresIn int64  `json:"refreshTokenExpiresIn"`
}

// AuthService orchestrates registration, login, refresh-token rotation and
// logout over the user and session stores.
type AuthService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	tokens   *utils.TokenCodec
	hasher   PasswordHasher
	authn    Authenticator
	now      func() time.Time
}

// NewAuthService wires the service with a PasswordAuthenticator over the
// same user store and hasher.
func NewAuthService(users repository.UserRepository, sessions repository.SessionRepository,
	tokens *utils.TokenCodec, hasher PasswordHasher) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		hasher:   hasher,
		authn:    &PasswordAuthenticator{Users: users, Hasher: hasher},
		now:      time.Now,
	}
}

// WithAuthenticator replaces the credential check used by Login.
func (s *AuthService) WithAuthenticator(a Authenticator) *AuthService {
	s.authn = a
	return s
}

// WithClock sets the time source used for session timestamps.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// NormalizeUsername trims and lower-cases a username.
func NormalizeUsername(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}

// Register creates an enabled ROLE_USER account.  It never issues tokens.
func (s *AuthService) Register(ctx context.Context, username, password string) (*model.UserAccount, error) {
	name := NormalizeUsername(username)
	if name == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if _, err := s.users.GetByUsername(ctx, name); err == nil {
		return nil, ErrDuplicateUser
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if err := utils.CheckPasswordStrength(password); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, err)
	}
	return s.create(ctx, name, password, []model.Role{model.RoleUser})
}

func (s *AuthService) create(ctx context.Context, name, password string, roles []model.Role) (*model.UserAccount, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.UserAccount{
		Username:     name,
		PasswordHash: hash,
		Enabled:      true,
		Roles:        roles,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateUser
		}
		return nil, err
	}
	return u, nil
}

// EnsureUser creates the account with the given roles unless the username
// is already taken.  It reports whether an account was created.  Seed
// accounts skip the registration password policy.
func (s *AuthService) EnsureUser(ctx context.Context, username, password string, roles ...model.Role) (bool, error) {
	name := NormalizeUsername(username)
	if name == "" || password == "" {
		return false, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if _, err := s.users.GetByUsername(ctx, name); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}
	if _, err := s.create(ctx, name, password, roles); err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Login checks the credentials and opens a new ACTIVE session bound to
// the client's address and user agent.
func (s *AuthService) Login(ctx context.Context, username, password, ip, userAgent string) (*TokenPair, error) {
	u, err := s.authn.Authenticate(ctx, NormalizeUsername(username), password)
	if err != nil {
		return nil, err
	}
	pair, sess, err := s.issue(u, ip, userAgent)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return pair, nil
}

// Refresh rotates a refresh token: the session it belongs to moves to
// REFRESHED and a new ACTIVE session with a new token pair replaces it.
// Every refresh token can be exchanged once; replays fail with
// ErrSessionNotFound.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if _, err := s.tokens.ParseRefresh(refreshToken); err != nil {
		return nil, ErrInvalidToken
	}
	old, err := s.sessions.FindActiveByHash(ctx, utils.HashRefreshToken(refreshToken))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, old.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if !u.Enabled {
		return nil, ErrAuthFailed
	}

	pair, next, err := s.issue(u, old.IPAddress, old.UserAgent)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Rotate(ctx, old.ID, next); err != nil {
		// Lost the race against a concurrent refresh or logout.
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("rotate session: %w", err)
	}
	return pair, nil
}

// issue mints an access/refresh pair for u and the session row that backs
// the refresh token.
func (s *AuthService) issue(u *model.UserAccount, ip, userAgent string) (*TokenPair, *model.UserSession, error) {
	sessionID := utils.NewSessionID()
	access, err := s.tokens.MintAccess(u.Username, u.Roles, u.ID)
	if err != nil {
		return nil, nil, err
	}
	refresh, err := s.tokens.MintRefresh(u.Username, u.ID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	now := s.now().UTC()
	sess := &model.UserSession{
		UserID:           u.ID,
		SessionID:        sessionID,
		RefreshTokenHash: utils.HashRefreshToken(refresh),
		CreatedAt:        now,
		IssuedAt:         now,
		ExpiresAt:        now.Add(s.tokens.RefreshTTL()),
		Status:           model.SessionActive,
		IPAddress:        ip,
		UserAgent:        userAgent,
	}
	pair := &TokenPair{
		AccessToken:           access,
		RefreshToken:          refresh,
		TokenType:             "Bearer",
		AccessTokenExpiresIn:  int64(s.tokens.AccessTTL() / time.Second),
		RefreshTokenExpiresIn: int64(s.tokens.RefreshTTL() / time.Second),
	}
	return pair, sess, nil
}

// Logout revokes the session of refreshToken if it is still ACTIVE.
// Unknown, empty or already-terminal tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	sess, err := s.sessions.FindByHash(ctx, utils.HashRefreshToken(refreshToken))
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if sess.Status.Terminal() {
		return nil
	}
	_, err = s.sessions.Transition(ctx, sess.ID, model.SessionActive, model.SessionRevoked)
	return err
}

// LogoutAll revokes every ACTIVE session of the user and returns how many
// were revoked.
func (s *AuthService) LogoutAll(ctx context.Context, username string) (int64, error) {
	u, err := s.users.GetByUsername(ctx, NormalizeUsername(username))
	if errors.Is(err, repository.ErrNotFound) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, err
	}
	return s.sessions.RevokeAllActiveForUser(ctx, u.ID)
}

// Sessions lists the user's ACTIVE sessions together with their count.
func (s *AuthService) Sessions(ctx context.Context, userID uint64) ([]model.UserSession, int64, error) {
	list, err := s.sessions.FindAllActiveForUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	n, err := s.sessions.CountActiveForUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return list, n, nil
}

// SweepExpired marks ACTIVE sessions past their expiry as EXPIRED.
func (s *AuthService) SweepExpired(ctx context.Context) (int64, error) {
	return s.sessions.SweepExpired(ctx, s.now().UTC())
}

// PasswordAuthenticator authenticates against the user store with the
// password hasher.
type PasswordAuthenticator struct {
	Users  repository.UserRepository
	Hasher PasswordHasher
}

// Authenticate fails with ErrAuthFailed for unknown users, disabled
// accounts and wrong passwords alike.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, username, password string) (*model.UserAccount, error) {
	u, err := a.Users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAuthFailed
	}
	if err != nil {
		return nil, err
	}
	if !u.Enabled || !a.Hasher.Verify(u.PasswordHash, password) {
		return nil, ErrAuthFailed
	}
	return u, nil
}
