package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrotrade/agrotrade/internal/shared"
)

type stubRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*User
}

func newStubRepo() *stubRepo {
	return &stubRepo{users: make(map[int64]*User)}
}

func (s *stubRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) FindByID(_ context.Context, id int64) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *stubRepo) Create(_ context.Context, user User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return nil, shared.ErrConflict
		}
	}
	s.nextID++
	user.ID = s.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = &user
	cp := user
	return &cp, nil
}

func (s *stubRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

type recordingNotifier struct {
	to   string
	link string
}

func (n *recordingNotifier) PasswordReset(_ context.Context, to, _ string, link string) error {
	n.to = to
	n.link = link
	return nil
}

type stubProvider struct {
	identity Identity
}

func (p stubProvider) AuthCodeURL(state string) string {
	return "https://idp.test/authorize?state=" + state
}

func (p stubProvider) Exchange(context.Context, string) (Identity, error) {
	return p.identity, nil
}

type fixture struct {
	service  *Service
	repo     *stubRepo
	notifier *recordingNotifier
	redis    *miniredis.Miniredis
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := newStubRepo()
	notifier := &recordingNotifier{}
	sessions := shared.NewSessionStore(client, "test-session", time.Hour)
	svc := NewService(repo, sessions, NewTokenIssuer("secret", time.Hour), client, notifier, ServiceConfig{
		ResetTTL: time.Hour,
		ResetURL: "https://agrotrade.test/reset",
	})
	return fixture{service: svc, repo: repo, notifier: notifier, redis: mr}
}

func signUpInput(email, role string) SignUpInput {
	return SignUpInput{Email: email, Password: "cashew-w320", FullName: "Asha Traders", Role: role}
}

func TestSignUpIssuesVerifiableToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token, err := f.service.SignUp(ctx, signUpInput("asha@example.com", "buyer"), "127.0.0.1", "test")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, shared.RoleBuyer, token.User.Role)
	assert.NotEqual(t, "cashew-w320", f.repo.users[token.User.ID].PasswordHash)

	p, err := f.service.Verify(ctx, token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, token.User.ID, p.UserID)
	assert.Equal(t, shared.RoleBuyer, p.Role)
}

func TestSignUpRejectsStaffRoles(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.SignUp(context.Background(), signUpInput("boss@example.com", "admin"), "", "")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.service.SignUp(ctx, signUpInput("dup@example.com", "seller"), "", "")
	require.NoError(t, err)
	_, err = f.service.SignUp(ctx, signUpInput("DUP@example.com", "buyer"), "", "")
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestSignInFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token, err := f.service.SignUp(ctx, signUpInput("seller@example.com", "seller"), "", "")
	require.NoError(t, err)

	_, err = f.service.SignIn(ctx, SignInInput{Email: "seller@example.com", Password: "wrong-pass"}, "", "")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = f.service.SignIn(ctx, SignInInput{Email: "nobody@example.com", Password: "cashew-w320"}, "", "")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	f.repo.users[token.User.ID].IsActive = false
	_, err = f.service.SignIn(ctx, SignInInput{Email: "seller@example.com", Password: "cashew-w320"}, "", "")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSignOutRevokesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token, err := f.service.SignUp(ctx, signUpInput("out@example.com", "buyer"), "", "")
	require.NoError(t, err)
	p, err := f.service.Verify(ctx, token.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.service.SignOut(ctx, p))
	_, err = f.service.Verify(ctx, token.AccessToken)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token, err := f.service.SignUp(ctx, signUpInput("reset@example.com", "buyer"), "", "")
	require.NoError(t, err)

	require.NoError(t, f.service.RequestPasswordReset(ctx, "reset@example.com"))
	require.Equal(t, "reset@example.com", f.notifier.to)
	require.True(t, strings.HasPrefix(f.notifier.link, "https://agrotrade.test/reset?token="))
	resetToken := strings.TrimPrefix(f.notifier.link, "https://agrotrade.test/reset?token=")

	require.NoError(t, f.service.ResetPassword(ctx, ResetPasswordInput{Token: resetToken, Password: "new-password"}))
	_, err = f.service.Verify(ctx, token.AccessToken)
	assert.ErrorIs(t, err, shared.ErrUnauthorized, "existing sessions are revoked")

	_, err = f.service.SignIn(ctx, SignInInput{Email: "reset@example.com", Password: "new-password"}, "", "")
	require.NoError(t, err)

	err = f.service.ResetPassword(ctx, ResetPasswordInput{Token: resetToken, Password: "another-one"})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials, "tokens are single use")
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.service.RequestPasswordReset(context.Background(), "ghost@example.com"))
	assert.Empty(t, f.notifier.to)
}

func TestOAuthCallbackCreatesBuyer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.service.RegisterProvider(ProviderGoogle, stubProvider{identity: Identity{
		Provider: ProviderGoogle, Email: "g@example.com", Name: "G User",
	}})

	target, err := f.service.OAuthStart(ctx, ProviderGoogle)
	require.NoError(t, err)
	state := strings.TrimPrefix(target, "https://idp.test/authorize?state=")

	token, err := f.service.OAuthCallback(ctx, ProviderGoogle, state, "code", "", "")
	require.NoError(t, err)
	assert.Equal(t, shared.RoleBuyer, token.User.Role)
	assert.Equal(t, ProviderGoogle, token.User.Provider)

	_, err = f.service.OAuthCallback(ctx, ProviderGoogle, state, "code", "", "")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials, "state is consumed")

	_, err = f.service.SignIn(ctx, SignInInput{Email: "g@example.com", Password: "anything"}, "", "")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials, "oauth accounts have no password")
}

func TestOAuthUnknownProvider(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.OAuthStart(context.Background(), "github")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
