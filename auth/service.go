package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xraph/gatehouse"
	"github.com/xraph/gatehouse/user"
)

// Token is the result of a login or refresh.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	ExpiresIn   int64     `json:"expires_in"`
}

// Service implements the account flows.
type Service struct {
	eng    *gatehouse.Engine
	issuer *Issuer
	hash   gatehouse.PasswordHasher
	logger *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithHasher overrides the password hasher.
func WithHasher(h gatehouse.PasswordHasher) ServiceOption {
	return func(s *Service) { s.hash = h }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates an account service.
func NewService(eng *gatehouse.Engine, issuer *Issuer, opts ...ServiceOption) *Service {
	s := &Service{
		eng:    eng,
		issuer: issuer,
		hash:   HashPassword,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issuer returns the token issuer.
func (s *Service) Issuer() *Issuer { return s.issuer }

// Register creates an account and, when roleName is set, grants it that
// role. It returns false when the username is taken.
func (s *Service) Register(ctx context.Context, username, password, roleName string) (bool, error) {
	if strings.TrimSpace(username) == "" {
		return false, fmt.Errorf("auth: register: %w", gatehouse.ErrInvalidName)
	}
	if roleName != "" {
		ok, err := s.eng.RoleExists(ctx, roleName)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, fmt.Errorf("auth: register: %w", gatehouse.ErrRoleNotFound)
		}
	}

	h, err := s.hash(password)
	if err != nil {
		return false, err
	}
	id, err := s.eng.CreateUser(ctx, username, h)
	if err != nil {
		return false, err
	}
	if id == -1 {
		return false, nil
	}

	if roleName != "" {
		if _, err := s.eng.AssignRoleToUser(ctx, roleName, id); err != nil {
			return true, err
		}
	}
	s.logger.Info("auth: registered", slog.String("username", username), slog.Int64("user_id", id))
	return true, nil
}

// Login verifies credentials, marks the user logged in and issues a token.
func (s *Service) Login(ctx context.Context, username, password string) (*Token, error) {
	u, err := s.eng.FindUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil || !CheckPassword(u.PasswordHash, password) {
		s.logger.Info("auth: login failed", slog.String("username", username))
		return nil, gatehouse.ErrInvalidCredentials
	}
	if _, err := s.eng.MarkLoggedIn(ctx, u.ID); err != nil {
		return nil, err
	}
	return s.issue(ctx, u)
}

// Logout ends every session of a user: the user is marked logged out and
// tokens issued up to now stop passing the session gate. It returns false
// when the user does not exist.
func (s *Service) Logout(ctx context.Context, userID int64) (bool, error) {
	return s.eng.MarkLoggedOut(ctx, userID, s.issuer.Now())
}

// Refresh issues a new token carrying the user's current roles and
// permissions.
func (s *Service) Refresh(ctx context.Context, userID int64) (*Token, error) {
	u, err := s.eng.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, gatehouse.ErrUserNotFound
	}
	if !u.LoggedIn {
		return nil, gatehouse.ErrSessionExpired
	}
	return s.issue(ctx, u)
}

func (s *Service) issue(ctx context.Context, u *user.User) (*Token, error) {
	roles, err := s.eng.GetRolesOfUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	perms, err := s.eng.GetPermissionsOfUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	tenant, err := s.eng.Tenant(ctx)
	if err != nil {
		return nil, err
	}

	signed, expires, err := s.issuer.Issue(&gatehouse.Principal{
		UserID:      u.ID,
		TenantID:    tenant,
		Username:    u.Username,
		Roles:       roles,
		Permissions: perms,
	})
	if err != nil {
		return nil, err
	}
	return &Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresAt:   expires,
		ExpiresIn:   int64(s.issuer.TTL() / time.Second),
	}, nil
}
