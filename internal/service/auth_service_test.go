package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/service"
	"github.com/iliyamo/cinema-ticketing/internal/testutil"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = time.Hour
)

type authEnv struct {
	svc   *service.AuthService
	repos *repository.Repositories
	db    *testutil.DB
	codec *utils.TokenCodec
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	repos, db := testutil.NewRepositories()
	codec := utils.NewTokenCodec("auth-service-test-secret", accessTTL, refreshTTL)
	hasher := utils.BcryptHasher{Cost: bcrypt.MinCost}
	return &authEnv{
		svc:   service.NewAuthService(repos.User, repos.Session, codec, hasher),
		repos: repos,
		db:    db,
		codec: codec,
	}
}

func (e *authEnv) register(t *testing.T, name string) {
	t.Helper()
	_, err := e.svc.Register(context.Background(), name, "Pass@1234")
	require.NoError(t, err)
}

func (e *authEnv) login(t *testing.T, name string) *service.TokenPair {
	t.Helper()
	pair, err := e.svc.Login(context.Background(), name, "Pass@1234", "10.1.2.3", "test-agent/1.0")
	require.NoError(t, err)
	return pair
}

func TestAuthService_Register(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.register(t, "existing")

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"valid", "bob", "Pass@123", nil},
		{"too short", "carol", "short1", service.ErrWeakPassword},
		{"no special character", "dave", "Password1", service.ErrWeakPassword},
		{"no digit", "erin", "Password!", service.ErrWeakPassword},
		{"duplicate after normalization", "  EXISTING ", "Pass@1234", service.ErrDuplicateUser},
		{"blank username", "   ", "Pass@1234", service.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := env.svc.Register(ctx, tt.username, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "bob", u.Username)
			assert.Equal(t, []model.Role{model.RoleUser}, u.Roles)
			assert.True(t, u.Enabled)
			assert.NotEqual(t, tt.password, u.PasswordHash)
		})
	}
}

func TestAuthService_RegisterErrorKinds(t *testing.T) {
	env := newAuthEnv(t)
	_, err := env.svc.Register(context.Background(), "bob", "short1")
	assert.Equal(t, service.KindValidation, service.KindOf(err))
	assert.Contains(t, err.Error(), "at least 8 characters")

	env.register(t, "bob")
	_, err = env.svc.Register(context.Background(), "Bob", "Pass@1234")
	assert.Equal(t, service.KindConflict, service.KindOf(err))
}

func TestAuthService_Login(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.register(t, "alice")

	pair := env.login(t, "  Alice ")
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(900), pair.AccessTokenExpiresIn)
	assert.Equal(t, int64(3600), pair.RefreshTokenExpiresIn)
	assert.True(t, env.codec.IsAccessValid(pair.AccessToken))
	assert.True(t, env.codec.IsRefreshValid(pair.RefreshToken))

	claims, err := env.codec.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, []string{"ROLE_USER"}, claims.Roles)

	sess, err := env.repos.Session.FindByHash(ctx, utils.HashRefreshToken(pair.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, sess.Status)
	assert.Equal(t, "10.1.2.3", sess.IPAddress)
	assert.Equal(t, "test-agent/1.0", sess.UserAgent)
	assert.Equal(t, claims.UserID, sess.UserID)
	assert.WithinDuration(t, sess.IssuedAt.Add(refreshTTL), sess.ExpiresAt, time.Second)

	refreshClaims, err := env.codec.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, sess.SessionID, refreshClaims.SessionID)
}

func TestAuthService_LoginFailures(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.register(t, "alice")
	u, err := env.repos.User.GetByUsername(ctx, "alice")
	require.NoError(t, err)

	_, err = env.svc.Login(ctx, "alice", "wrong@pass1", "", "")
	assert.ErrorIs(t, err, service.ErrAuthFailed)

	_, err = env.svc.Login(ctx, "nobody", "Pass@1234", "", "")
	assert.ErrorIs(t, err, service.ErrAuthFailed)

	env.db.SetEnabled(u.ID, false)
	_, err = env.svc.Login(ctx, "alice", "Pass@1234", "", "")
	assert.ErrorIs(t, err, service.ErrAuthFailed)
	assert.Empty(t, env.db.Sessions())
}

type staticAuthenticator struct{ user *model.UserAccount }

func (a staticAuthenticator) Authenticate(context.Context, string, string) (*model.UserAccount, error) {
	if a.user == nil {
		return nil, service.ErrAuthFailed
	}
	return a.user, nil
}

func TestAuthService_LoginUsesAuthenticator(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.register(t, "sso")
	u, err := env.repos.User.GetByUsername(ctx, "sso")
	require.NoError(t, err)

	env.svc.WithAuthenticator(staticAuthenticator{user: u})
	pair, err := env.svc.Login(ctx, "sso", "any password", "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshToken)

	env.svc.WithAuthenticator(staticAuthenticator{})
	_, err = env.svc.Login(ctx, "sso", "Pass@1234", "", "")
	assert.ErrorIs(t, err, service.ErrAuthFailed)
}

func TestAuthService_RefreshRotatesOnce(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.register(t, "alice")
	first := env.login(t, "alice")

	second, err := env.svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)

	_, err = env.svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, service.ErrSessionNotFound)

	old, err := env.repos.Session.FindByHash(ctx, utils.HashRefreshToken(first.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, model.SessionRefreshed, old.Status)

	next, err := env.repos.Session.FindByHash(ctx, utils.HashRefreshToken(second.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, next.Status)
	assert.Equal(t, old.IPAddress, next.IPAddress)
	assert.Equal(t, old.UserAgent, next.UserAgent)
	assert.NotEqual(t, old.SessionID, next.SessionID)

	// The successor can itself be rotated exactly once.
	_, err = env.svc.Refresh(ctx, second.RefreshToken)
	require.NoError(t, err)
	_, err = env.svc.Refresh(ctx, second.RefreshToken)
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestAuthService_RefreshRejectsBadTokens(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.register(t, "alice")
	pair := env.login(t, "alice")

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "abc.def.ghi",
		"access token": pair.AccessToken,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := env.svc.Refresh(ctx, token)
			assert.ErrorIs(t, err, service.ErrInvalidToken)
			assert.Equal(t, service.KindAuth, service.KindOf(err))
		})
	}

	other := utils.NewTokenCodec("a-completely-different-secret-value", accessTTL, refreshTTL)
	forged, err := other.MintRefresh("alice", 1, utils.NewSessionID())
	require.NoError(t, err)
	_, err = env.svc.Refresh(ctx, forged)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestAuthService_RefreshExpiredToken(t *testing.T) {
	repos, _ := testutil.NewRepositories()
	hasher := utils.BcryptHasher{Cost: bcrypt.MinCost}
	base := utils.NewTokenCodec("auth-service-test-secret", accessTTL, refreshTTL)
	past := func() time.Time { return time.Now().Add(-2 * refreshTTL) }
	ctx := context.Background()

	then := service.NewAuthService(repos.User, repos.Session, base.WithClock(past), hasher).WithClock(past)
	_, err := then.Register(ctx, "alice", "Pass@1234")
	require.NoError(t, err)
	pair, err := then.Login(ctx, "alice", "Pass@1234", "", "")
	require.NoError(t, err)

	now := service.NewAuthService(repos.User, repos.Session, base, hasher)
	_, err = now.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestAuthService_ConcurrentRefreshHasOneWinner(t *testing.T) {
	env := newAuthEnv(t)
	env.register(t, "alice")
	pair := env.login(t, "alice")

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		losers    int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Refresh(context.Background(), pair.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, service.ErrSessionNotFound):
				losers++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, losers)
	active := 0
	for _, s := range env.db.Sessions() {
		if s.Status == model.SessionActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestAuthService_Logout(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.register(t, "alice")
	pair := env.login(t, "alice")

	require.NoError(t, env.svc.Logout(ctx, pair.RefreshToken))
	sess, err := env.repos.Session.FindByHash(ctx, utils.HashRefreshToken(pair.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, model.SessionRevoked, sess.Status)

	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, service.ErrSessionNotFound)

	// Idempotent, and silent for empty or unknown tokens.
	assert.NoError(t, env.svc.Logout(ctx, pair.RefreshToken))
	assert.NoError(t, env.svc.Logout(ctx, ""))
	assert.NoError(t, env.svc.Logout(ctx, "never-issued"))
}

func TestAuthService_LogoutKeepsTerminalStates(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.register(t, "alice")
	first := env.login(t, "alice")
	_, err := env.svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, first.RefreshToken))
	sess, err := env.repos.Session.FindByHash(ctx, utils.HashRefreshToken(first.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, model.SessionRefreshed, sess.Status)
}

func TestAuthService_LogoutAll(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.register(t, "alice")
	env.register(t, "bob")
	a1 := env.login(t, "alice")
	a2 := env.login(t, "alice")
	b1 := env.login(t, "bob")

	n, err := env.svc.LogoutAll(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for _, p := range []*service.TokenPair{a1, a2} {
		_, err := env.svc.Refresh(ctx, p.RefreshToken)
		assert.ErrorIs(t, err, service.ErrSessionNotFound)
	}
	_, err = env.svc.Refresh(ctx, b1.RefreshToken)
	assert.NoError(t, err)

	n, err = env.svc.LogoutAll(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = env.svc.LogoutAll(ctx, "ghost")
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestAuthService_Sessions(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.register(t, "alice")
	env.login(t, "alice")
	p := env.login(t, "alice")
	require.NoError(t, env.svc.Logout(ctx, p.RefreshToken))
	env.login(t, "alice")

	u, err := env.repos.User.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	list, n, err := env.svc.Sessions(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Len(t, list, 2)
	for _, s := range list {
		assert.Equal(t, model.SessionActive, s.Status)
	}
}

func TestAuthService_SweepExpired(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.register(t, "alice")
	pair := env.login(t, "alice")

	n, err := env.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.svc.WithClock(func() time.Time { return time.Now().Add(2 * refreshTTL) })
	n, err = env.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sess, err := env.repos.Session.FindByHash(ctx, utils.HashRefreshToken(pair.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, model.SessionExpired, sess.Status)
}

func TestAuthService_EnsureUser(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	created, err := env.svc.EnsureUser(ctx, "Admin", "admin", model.RoleAdmin, model.RoleUser)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = env.svc.EnsureUser(ctx, "admin", "other", model.RoleUser)
	require.NoError(t, err)
	assert.False(t, created)

	u, err := env.repos.User.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, u.HasRole(model.RoleAdmin))
	assert.True(t, u.HasRole(model.RoleUser))

	pair, err := env.svc.Login(ctx, "admin", "admin", "", "")
	require.NoError(t, err)
	claims, err := env.codec.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ROLE_ADMIN", "ROLE_USER"}, claims.Roles)

	_, err = env.svc.EnsureUser(ctx, "", "x")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}
