package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shabdpress/blog_cms/internal/events"
	"github.com/shabdpress/blog_cms/internal/lockout"
	"github.com/shabdpress/blog_cms/internal/models"
	"github.com/shabdpress/blog_cms/internal/repo"
	pkg_hash "github.com/shabdpress/blog_cms/pkg/hash"
	"github.com/shabdpress/blog_cms/pkg/logging"
	"github.com/shabdpress/blog_cms/pkg/metrics"
	"github.com/shabdpress/blog_cms/pkg/tokens"
)

type AuthService struct {
	Repo    *repo.GormRepo
	Issuer  *tokens.Issuer
	Events  events.Publisher
	Guard   lockout.Guard
	Metrics *metrics.Metrics
}

type LoginResult struct {
	AccountID    uuid.UUID
	Role         models.Role
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

func (s *AuthService) issuePair(a *models.Account) (*LoginResult, error) {
	access, accessExp, err := s.Issuer.IssueAccessToken(a.ID.String(), string(a.Role))
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.Issuer.IssueRefreshToken(a.ID.String(), string(a.Role))
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccountID:    a.ID,
		Role:         a.Role,
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Login checks the password, then the active flag, and stores a fresh refresh
// token. intendedRole is advisory; the returned role is the stored one.
func (s *AuthService) Login(ctx context.Context, username, password, intendedRole string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)
	if username == "" || password == "" {
		return nil, validation("username and password are required")
	}

	locked, left, err := s.guard().Locked(ctx, username)
	if err != nil {
		l.Warn("lockout_check_failed", "error", err)
	}
	if locked {
		l.Warn("login_failed", "status", 429, "reason", "locked out", "retry_after_s", int(left.Seconds()))
		s.Metrics.Login("locked")
		return nil, ErrTooManyAttempts
	}

	acc, err := s.Repo.AccountByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			pkg_hash.CompareDummy(password)
			s.recordFailure(ctx, l, username)
			l.Warn("login_failed", "status", 401, "reason", "unknown username")
			return nil, ErrInvalidCredentials
		}
		return nil, storeErr("find account", err)
	}
	if !pkg_hash.CheckPassword(acc.PasswordHash, password) {
		s.recordFailure(ctx, l, username)
		l.Warn("login_failed", "status", 401, "reason", "wrong password")
		return nil, ErrInvalidCredentials
	}
	if !acc.IsActive {
		s.Metrics.Login("deactivated")
		l.Warn("login_failed", "status", 401, "reason", "account deactivated")
		return nil, ErrAccountDeactivated
	}
	if intendedRole != "" && intendedRole != string(acc.Role) {
		l.Warn("login_role_mismatch", "requested", intendedRole, "stored", acc.Role)
	}

	res, err := s.issuePair(acc)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot sign tokens", "error", err)
		return nil, err
	}
	if err := s.Repo.SetRefreshHash(ctx, acc.ID, pkg_hash.Sha256Hex(res.RefreshToken)); err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot store refresh token", "error", err)
		return nil, storeErr("store refresh token", err)
	}
	if err := s.guard().Reset(ctx, username); err != nil {
		l.Warn("lockout_reset_failed", "error", err)
	}

	s.Metrics.Login("success")
	s.publish(ctx, acc.ID, map[string]any{"type": "account_login", "accountID": acc.ID.String(), "role": acc.Role})
	l.Info("login_success", "account_id", acc.ID, "role", acc.Role)
	return res, nil
}

func (s *AuthService) recordFailure(ctx context.Context, l *slog.Logger, username string) {
	s.Metrics.Login("invalid")
	if err := s.guard().Fail(ctx, username); err != nil {
		l.Warn("lockout_record_failed", "error", err)
	}
}

// VerifyRefreshToken checks the signature and expiry, then that the token is
// the one currently stored for its account.
func (s *AuthService) VerifyRefreshToken(ctx context.Context, raw string) (*models.Account, error) {
	ident, err := s.Issuer.VerifyRefreshToken(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefreshInvalid, err)
	}
	id, err := uuid.Parse(ident.AccountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefreshInvalid, tokens.ErrTokenMalformed)
	}
	acc, err := s.Repo.AccountByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %w", ErrRefreshInvalid, tokens.ErrTokenRevoked)
		}
		return nil, storeErr("find account", err)
	}
	if acc.RefreshTokenHash == "" || acc.RefreshTokenHash != pkg_hash.Sha256Hex(raw) {
		return nil, fmt.Errorf("%w: %w", ErrRefreshInvalid, tokens.ErrTokenRevoked)
	}
	return acc, nil
}

// Refresh exchanges a live refresh token for a new pair. The stored token is
// swapped with a compare-and-set, so of two concurrent refreshes with the same
// token exactly one succeeds.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")
	if raw == "" {
		s.Metrics.Refresh("missing")
		return nil, fmt.Errorf("%w: missing", ErrRefreshInvalid)
	}

	acc, err := s.VerifyRefreshToken(ctx, raw)
	if err != nil {
		s.Metrics.Refresh("invalid")
		l.Warn("refresh_failed", "status", 401, "error", err)
		return nil, err
	}
	if !acc.IsActive {
		s.Metrics.Refresh("deactivated")
		l.Warn("refresh_failed", "status", 401, "reason", "account deactivated", "account_id", acc.ID)
		return nil, ErrAccountDeactivated
	}

	res, err := s.issuePair(acc)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "reason", "cannot sign tokens", "error", err)
		return nil, err
	}
	ok, err := s.Repo.RotateRefreshHash(ctx, acc.ID, acc.RefreshTokenHash, pkg_hash.Sha256Hex(res.RefreshToken))
	if err != nil {
		return nil, storeErr("rotate refresh token", err)
	}
	if !ok {
		s.Metrics.Refresh("superseded")
		l.Warn("refresh_failed", "status", 401, "reason", "token superseded", "account_id", acc.ID)
		return nil, fmt.Errorf("%w: %w", ErrRefreshInvalid, tokens.ErrTokenRevoked)
	}

	s.Metrics.Refresh("rotated")
	l.Info("refresh_success", "account_id", acc.ID)
	return res, nil
}

// Logout clears the stored refresh token. Logging out twice is not an error.
func (s *AuthService) Logout(ctx context.Context, accountID uuid.UUID) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout", "account_id", accountID)
	if err := s.Repo.SetRefreshHash(ctx, accountID, ""); err != nil {
		if isNotFound(err) {
			return nil
		}
		l.Error("logout_failed", "status", 500, "error", err)
		return storeErr("clear refresh token", err)
	}
	s.publish(ctx, accountID, map[string]any{"type": "account_logout", "accountID": accountID.String()})
	l.Info("logout_success")
	return nil
}

// LogoutWithRefreshToken serves clients whose access token has already
// expired. An invalid or superseded token is silently ignored.
func (s *AuthService) LogoutWithRefreshToken(ctx context.Context, raw string) error {
	acc, err := s.VerifyRefreshToken(ctx, raw)
	if err != nil {
		if errors.Is(err, ErrRefreshInvalid) {
			return nil
		}
		return err
	}
	return s.Logout(ctx, acc.ID)
}

// UpdateCredentials changes the username and/or password after re-checking
// the current password. Existing sessions stay valid.
func (s *AuthService) UpdateCredentials(ctx context.Context, accountID uuid.UUID, currentPassword string, newUsername, newPassword *string) (*models.Account, error) {
	l := logging.FromContext(ctx).With("svc", "auth.update_credentials", "account_id", accountID)

	acc, err := s.Repo.AccountByID(ctx, accountID)
	if err != nil {
		return nil, storeErr("find account", err)
	}
	if !pkg_hash.CheckPassword(acc.PasswordHash, currentPassword) {
		l.Warn("update_credentials_failed", "status", 401, "reason", "wrong current password")
		return nil, ErrInvalidCredentials
	}

	fields := map[string]any{}
	if newUsername != nil {
		u := strings.TrimSpace(*newUsername)
		if u == "" {
			return nil, validation("username must not be blank")
		}
		if u != acc.Username {
			fields["username"] = u
		}
	}
	if newPassword != nil && *newPassword != "" {
		h, err := hashPassword(*newPassword)
		if err != nil {
			return nil, err
		}
		fields["password_hash"] = h
	}
	if len(fields) == 0 {
		return nil, ErrNoChangeRequested
	}

	if err := s.Repo.UpdateAccount(ctx, acc.ID, fields); err != nil {
		l.Warn("update_credentials_failed", "error", err)
		return nil, storeErr("update credentials", err)
	}
	s.publish(ctx, acc.ID, map[string]any{"type": "account_credentials_updated", "accountID": acc.ID.String()})
	l.Info("update_credentials_success")
	return s.Repo.AccountByID(ctx, acc.ID)
}

// EnsureAdmin creates an admin account unless the username is already taken.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	l := logging.FromContext(ctx).With("svc", "auth.ensure_admin", "username", username)
	if strings.TrimSpace(username) == "" || password == "" {
		return false, validation("admin username and password are required")
	}
	_, err := s.Repo.AccountByUsername(ctx, username)
	if err == nil {
		l.Info("admin_exists")
		return false, nil
	}
	if !isNotFound(err) {
		return false, storeErr("find account", err)
	}
	if _, err := s.createAccount(ctx, username, password, models.RoleAdmin); err != nil {
		if errors.Is(err, ErrConflict) {
			return false, nil
		}
		return false, err
	}
	l.Info("admin_created")
	return true, nil
}

func (s *AuthService) createAccount(ctx context.Context, username, password string, role models.Role) (*models.Account, error) {
	h, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	acc := &models.Account{
		Username:     strings.TrimSpace(username),
		PasswordHash: h,
		Role:         role,
		IsActive:     true,
	}
	if err := s.Repo.CreateAccount(ctx, acc); err != nil {
		return nil, storeErr("create account", err)
	}
	s.publish(ctx, acc.ID, map[string]any{"type": "account_created", "accountID": acc.ID.String(), "role": role})
	return acc, nil
}

func (s *AuthService) CreateOperator(ctx context.Context, username, password string) (*models.Account, error) {
	l := logging.FromContext(ctx).With("svc", "auth.create_operator", "username", username)
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, validation("username and password are required")
	}
	acc, err := s.createAccount(ctx, username, password, models.RoleOperator)
	if err != nil {
		l.Warn("create_operator_failed", "error", err)
		return nil, err
	}
	l.Info("create_operator_success", "account_id", acc.ID)
	return acc, nil
}

func (s *AuthService) ListOperators(ctx context.Context) ([]models.Account, error) {
	items, err := s.Repo.ListAccounts(ctx, models.RoleOperator)
	if err != nil {
		return nil, storeErr("list operators", err)
	}
	return items, nil
}

// ToggleActive flips an operator's active flag. Deactivating also drops the
// stored refresh token so the next refresh fails.
func (s *AuthService) ToggleActive(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	l := logging.FromContext(ctx).With("svc", "auth.toggle_active", "account_id", id)

	acc, err := s.Repo.AccountByID(ctx, id)
	if err != nil {
		return nil, storeErr("find account", err)
	}
	if acc.Role != models.RoleOperator {
		return nil, fmt.Errorf("only operators can be toggled: %w", ErrForbidden)
	}

	fields := map[string]any{"is_active": !acc.IsActive}
	if acc.IsActive {
		fields["refresh_token_hash"] = ""
	}
	if err := s.Repo.UpdateAccount(ctx, id, fields); err != nil {
		return nil, storeErr("toggle active", err)
	}
	acc.IsActive = !acc.IsActive

	s.publish(ctx, id, map[string]any{"type": "account_active_changed", "accountID": id.String(), "isActive": acc.IsActive})
	l.Info("toggle_active_success", "is_active", acc.IsActive)
	return acc, nil
}

func (s *AuthService) DeleteOperator(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.DeleteAccount(ctx, id, models.RoleOperator); err != nil {
		return storeErr("delete operator", err)
	}
	s.publish(ctx, id, map[string]any{"type": "account_deleted", "accountID": id.String()})
	logging.FromContext(ctx).Info("delete_operator_success", "svc", "auth.delete_operator", "account_id", id)
	return nil
}

func (s *AuthService) guard() lockout.Guard {
	if s.Guard == nil {
		return lockout.Nop{}
	}
	return s.Guard
}

func (s *AuthService) publish(ctx context.Context, accountID uuid.UUID, event map[string]any) {
	if s.Events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Events.PublishEvent(pctx, events.TopicAccount, accountID.String(), event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_failed", "topic", events.TopicAccount, "error", err)
	}
}

func hashPassword(password string) (string, error) {
	h, err := pkg_hash.HashPassword(password)
	if errors.Is(err, pkg_hash.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return h, err
}
