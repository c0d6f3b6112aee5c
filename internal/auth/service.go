package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/agrotrade/agrotrade/internal/shared"
)

const (
	resetKeyPrefix = "auth:reset:"
	stateKeyPrefix = "auth:oauth_state:"
	stateTTL       = 10 * time.Minute
)

// Notifier delivers auth related messages out of band.
type Notifier interface {
	PasswordReset(ctx context.Context, to, name, link string) error
}

// OAuthProvider abstracts an external identity provider.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (Identity, error)
}

// ServiceConfig tunes password reset behaviour.
type ServiceConfig struct {
	ResetTTL time.Duration
	ResetURL string
}

// Service wraps authentication business rules.
type Service struct {
	repo      Repository
	sessions  *shared.SessionStore
	tokens    *TokenIssuer
	redis     *redis.Client
	notifier  Notifier
	providers map[string]OAuthProvider
	cfg       ServiceConfig
}

// NewService constructs a new Service.
func NewService(repo Repository, sessions *shared.SessionStore, tokens *TokenIssuer, client *redis.Client, notifier Notifier, cfg ServiceConfig) *Service {
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	return &Service{
		repo:      repo,
		sessions:  sessions,
		tokens:    tokens,
		redis:     client,
		notifier:  notifier,
		providers: make(map[string]OAuthProvider),
		cfg:       cfg,
	}
}

// RegisterProvider enables OAuth sign-in through provider.
func (s *Service) RegisterProvider(name string, provider OAuthProvider) {
	if provider != nil {
		s.providers[name] = provider
	}
}

// SignUp registers a buyer or seller and signs them in.
func (s *Service) SignUp(ctx context.Context, in SignUpInput, ip, ua string) (*Token, error) {
	role, ok := shared.ParseRole(in.Role)
	if !ok || (role != shared.RoleBuyer && role != shared.RoleSeller) {
		return nil, fmt.Errorf("%w: role must be buyer or seller", shared.ErrValidation)
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.Create(ctx, User{
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         role,
		CompanyName:  strings.TrimSpace(in.CompanyName),
		Provider:     ProviderPassword,
		IsActive:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	return s.issue(ctx, user, ip, ua)
}

// SignIn validates email/password credentials.
func (s *Service) SignIn(ctx context.Context, in SignInInput, ip, ua string) (*Token, error) {
	user, err := s.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user, ip, ua)
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive || user.PasswordHash == "" {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// SignOut revokes the session behind the principal's token.
func (s *Service) SignOut(ctx context.Context, p *shared.Principal) error {
	if p == nil {
		return shared.ErrUnauthorized
	}
	return s.sessions.Destroy(ctx, p.TokenID)
}

// Me returns the account of the principal.
func (s *Service) Me(ctx context.Context, p *shared.Principal) (*User, error) {
	if p == nil {
		return nil, shared.ErrUnauthorized
	}
	return s.repo.FindByID(ctx, p.UserID)
}

// Verify resolves a raw bearer token into a live principal.
func (s *Service) Verify(ctx context.Context, raw string) (*shared.Principal, error) {
	p, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Load(ctx, p.TokenID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != p.UserID {
		return nil, shared.ErrUnauthorized
	}
	return p, nil
}

// RequestPasswordReset issues a single-use reset token when the account exists.
// It never reports whether the email is registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if !user.IsActive {
		return nil
	}
	token, err := randomToken()
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, resetKeyPrefix+token, strconv.FormatInt(user.ID, 10), s.cfg.ResetTTL).Err(); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	if s.notifier == nil {
		return nil
	}
	return s.notifier.PasswordReset(ctx, user.Email, user.FullName, s.resetLink(token))
}

// ResetPassword consumes a reset token and replaces the password.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	raw, err := s.redis.GetDel(ctx, resetKeyPrefix+in.Token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.ErrInvalidCredentials
		}
		return err
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return shared.ErrInvalidCredentials
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return s.sessions.DestroyUser(ctx, userID)
}

// OAuthStart returns the provider redirect URL with a fresh state value.
func (s *Service) OAuthStart(ctx context.Context, provider string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", fmt.Errorf("%w: oauth provider %q", shared.ErrNotFound, provider)
	}
	state, err := randomToken()
	if err != nil {
		return "", err
	}
	if err := s.redis.Set(ctx, stateKeyPrefix+state, provider, stateTTL).Err(); err != nil {
		return "", err
	}
	return p.AuthCodeURL(state), nil
}

// OAuthCallback completes the OAuth flow, creating a buyer account on first sign-in.
func (s *Service) OAuthCallback(ctx context.Context, provider, state, code, ip, ua string) (*Token, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: oauth provider %q", shared.ErrNotFound, provider)
	}
	stored, err := s.redis.GetDel(ctx, stateKeyPrefix+state).Result()
	if err != nil || stored != provider {
		return nil, shared.ErrInvalidCredentials
	}
	identity, err := p.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Join(shared.ErrInvalidCredentials, err)
	}
	if identity.Email == "" {
		return nil, shared.ErrInvalidCredentials
	}
	user, err := s.repo.FindByEmail(ctx, identity.Email)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		name := identity.Name
		if name == "" {
			name = identity.Email
		}
		user, err = s.repo.Create(ctx, User{
			Email:     identity.Email,
			FullName:  name,
			AvatarURL: identity.AvatarURL,
			Role:      shared.RoleBuyer,
			Provider:  provider,
			IsActive:  true,
		})
		if err != nil {
			return nil, fmt.Errorf("oauth create user: %w", err)
		}
	case err != nil:
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInactiveUser
	}
	return s.issue(ctx, user, ip, ua)
}

func (s *Service) issue(ctx context.Context, user *User, ip, ua string) (*Token, error) {
	sess, err := s.sessions.Create(ctx, user.ID, user.Role, ip, ua)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	signed, expires, err := s.tokens.Issue(user, sess.ID)
	if err != nil {
		_ = s.sessions.Destroy(ctx, sess.ID)
		return nil, err
	}
	return &Token{AccessToken: signed, TokenType: "Bearer", ExpiresAt: expires, User: user}, nil
}

func (s *Service) resetLink(token string) string {
	base := s.cfg.ResetURL
	if base == "" {
		return token
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// HashPassword exposes the bcrypt hashing used for account passwords.
func HashPassword(password string) (string, error) {
	return hashPassword(password)
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
