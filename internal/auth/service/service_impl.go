package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/glazeops/internal/audit/domain"
	"github.com/smallbiznis/glazeops/internal/auth/domain"
	"github.com/smallbiznis/glazeops/internal/auth/password"
	"github.com/smallbiznis/glazeops/internal/auth/token"
	"github.com/smallbiznis/glazeops/internal/clock"
	"github.com/smallbiznis/glazeops/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const minPasswordLength = 8

// dummyHash keeps unknown-email logins as slow as wrong-password ones.
var dummyHash, _ = password.Hash("glazeops-dummy-password")

type Params struct {
	fx.In

	Log      *zap.Logger
	Repo     domain.Repository
	GenID    *snowflake.Node
	Clock    clock.Clock
	Tokens   *token.Issuer
	Cfg      config.Config
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	repo      domain.Repository
	genID     *snowflake.Node
	clock     clock.Clock
	tokens    *token.Issuer
	bootstrap config.BootstrapConfig
	auditSvc  auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		log:       p.Log.Named("auth.service"),
		repo:      p.Repo,
		genID:     p.GenID,
		clock:     p.Clock,
		tokens:    p.Tokens,
		bootstrap: p.Cfg.Bootstrap,
		auditSvc:  p.AuditSvc,
	}
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if len(strings.TrimSpace(req.Password)) < minPasswordLength {
		return nil, domain.ErrWeakPassword
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = domain.RoleStaff
	}
	if !domain.ValidRole(role) {
		return nil, domain.ErrInvalidRole
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultDisplayName(email)
	}
	user := &domain.User{
		ID:           s.genID.Generate(),
		Email:        email,
		Name:         name,
		PasswordHash: hashed,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	if s.auditSvc != nil {
		if err := s.auditSvc.AuditLog(ctx, nil, "user.created", "admin_user", user.ID.String(), map[string]any{
			"email": user.Email,
			"role":  user.Role,
		}); err != nil {
			s.log.Warn("failed to audit user creation", zap.Error(err))
		}
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.repo.List(ctx)
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil || strings.TrimSpace(req.Password) == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			password.Verify(req.Password, dummyHash)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	ok, rehash := password.Check(req.Password, user.PasswordHash)
	if !ok {
		s.log.Info("login rejected", zap.String("user_id", user.ID.String()))
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}
	if rehash {
		s.upgradeHash(ctx, user.ID, req.Password)
	}

	accessToken, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := s.repo.TouchLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("failed to record login time", zap.String("user_id", user.ID.String()), zap.Error(err))
	} else {
		user.LastLoginAt = &now
	}

	return &domain.LoginResult{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

// upgradeHash replaces a hash made with older parameters. Failure only costs
// another attempt on the next login.
func (s *Service) upgradeHash(ctx context.Context, userID snowflake.ID, plain string) {
	hashed, err := password.Hash(plain)
	if err == nil {
		err = s.repo.UpdateFields(ctx, userID, map[string]any{"password_hash": hashed})
	}
	if err != nil {
		s.log.Warn("failed to upgrade password hash", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

// Authenticate resolves an access token to its user. Deactivated users are
// refused even while their token is still valid.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*domain.Principal, error) {
	raw := strings.TrimSpace(accessToken)
	if raw == "" {
		return nil, domain.ErrInvalidToken
	}
	principal, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}
	principal.Role = user.Role
	principal.Email = user.Email
	return principal, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID string, newPassword string) error {
	if len(strings.TrimSpace(newPassword)) < minPasswordLength {
		return domain.ErrWeakPassword
	}
	id, err := snowflake.ParseString(strings.TrimSpace(userID))
	if err != nil {
		return domain.ErrUserNotFound
	}
	hashed, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdateFields(ctx, id, map[string]any{
		"password_hash": hashed,
		"updated_at":    s.clock.Now(),
	})
}

func (s *Service) SetActive(ctx context.Context, userID string, active bool) error {
	id, err := snowflake.ParseString(strings.TrimSpace(userID))
	if err != nil {
		return domain.ErrUserNotFound
	}
	if err := s.repo.UpdateFields(ctx, id, map[string]any{
		"is_active":  active,
		"updated_at": s.clock.Now(),
	}); err != nil {
		return err
	}
	if s.auditSvc != nil {
		if err := s.auditSvc.AuditLog(ctx, nil, "user.status_changed", "admin_user", id.String(), map[string]any{
			"is_active": active,
		}); err != nil {
			s.log.Warn("failed to audit user status change", zap.Error(err))
		}
	}
	return nil
}

func (s *Service) EnsureBootstrapAdmin(ctx context.Context) error {
	email := strings.TrimSpace(s.bootstrap.AdminEmail)
	if email == "" || s.bootstrap.AdminPassword == "" {
		return nil
	}
	count, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	user, err := s.CreateUser(ctx, domain.CreateUserRequest{
		Email:    email,
		Name:     "Administrator",
		Password: s.bootstrap.AdminPassword,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil
		}
		return err
	}
	s.log.Info("bootstrap admin created", zap.String("user_id", user.ID.String()))
	return nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func defaultDisplayName(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) > 0 && strings.TrimSpace(parts[0]) != "" {
		return strings.TrimSpace(parts[0])
	}
	return email
}
