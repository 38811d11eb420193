package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_api/internal/events"
	"github.com/Skotchmaster/shop_api/internal/hash"
	"github.com/Skotchmaster/shop_api/internal/logging"
	"github.com/Skotchmaster/shop_api/internal/models"
	"github.com/Skotchmaster/shop_api/internal/repo"
	"github.com/Skotchmaster/shop_api/internal/tokens"
	"github.com/Skotchmaster/shop_api/internal/transport"
)

const (
	maxUsernameLen = 150
	minPasswordLen = 8
)

type AuthService struct {
	Repo   *repo.GormRepo
	Tokens *tokens.Issuer
	Events EventPublisher
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	Role         models.Role
}

func validUsernameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("@.+-_", r)
}

func validateRegistration(req transport.RegisterRequest) error {
	fe := &FieldErrors{Kind: ErrValidation}

	switch {
	case strings.TrimSpace(req.Username) == "":
		fe.Add("username", msgRequired)
	case utf8.RuneCountInString(req.Username) > maxUsernameLen:
		fe.Add("username", fmt.Sprintf("Ensure this field has no more than %d characters.", maxUsernameLen))
	case strings.IndexFunc(req.Username, func(r rune) bool { return !validUsernameRune(r) }) >= 0:
		fe.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}

	if req.Email != "" {
		addr, err := mail.ParseAddress(req.Email)
		if err != nil || addr.Address != req.Email {
			fe.Add("email", "Enter a valid email address.")
		}
	}

	switch {
	case req.Password == "":
		fe.Add("password", msgRequired)
	case utf8.RuneCountInString(req.Password) < minPasswordLen:
		fe.Add("password", fmt.Sprintf("Ensure this field has at least %d characters.", minPasswordLen))
	}

	return fe.orNil()
}

// Register creates a customer account. Admins are never created here.
func (s *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if err := validateRegistration(req); err != nil {
		l.Warn("register_error", "status", 400, "reason", "invalid input", "error", err)
		return nil, err
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: pwHash,
		Role:         models.RoleCustomer,
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_error", "status", 400, "reason", "user already exist")
			return nil, invalid("username", "A user with that username already exists.")
		}
		l.Error("register_error", "status", 500, "reason", "cannot create user", "error", err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	publish(ctx, l, s.Events, events.TopicUser, strconv.FormatUint(uint64(user.ID), 10),
		events.New("user_registered", map[string]any{"user_id": user.ID, "username": user.Username}))

	l.Info("register_success", "user_id", user.ID)
	return user, nil
}

var errBadCredentials = fmt.Errorf("%w: No active account found with the given credentials", ErrUnauthenticated)

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	if username == "" || password == "" {
		fe := &FieldErrors{Kind: ErrValidation}
		if username == "" {
			fe.Add("username", msgRequired)
		}
		if password == "" {
			fe.Add("password", msgRequired)
		}
		return nil, fe
	}

	user, err := s.Repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown username")
			return nil, errBadCredentials
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password")
		return nil, errBadCredentials
	}

	access, accessExp, err := s.Tokens.NewAccessToken(user.ID, user.Role)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot sign access token", "error", err)
		return nil, err
	}

	refresh, claims, err := s.Tokens.NewRefreshToken(user.ID)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot sign refresh token", "error", err)
		return nil, err
	}

	stored := &models.RefreshToken{
		UserID:    user.ID,
		JTI:       claims.ID,
		TokenHash: hash.Sha256Hex(refresh),
		ExpiresAt: claims.ExpiresAt.Unix(),
	}
	if err := s.Repo.SaveRefreshToken(ctx, stored); err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot store refresh token", "error", err)
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	publish(ctx, l, s.Events, events.TopicUser, strconv.FormatUint(uint64(user.ID), 10),
		events.New("user_logged_in", map[string]any{"user_id": user.ID}))

	l.Info("login_success", "user_id", user.ID)
	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   claims.ExpiresAt.Time,
		Role:         user.Role,
	}, nil
}

var errBadRefresh = fmt.Errorf("%w: Token is invalid or expired", ErrUnauthenticated)

// Refresh issues a new access token. The role is read from the store, not
// from the presented token.
func (s *AuthService) Refresh(ctx context.Context, refresh string) (string, time.Time, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if refresh == "" {
		return "", time.Time{}, invalid("refresh", msgRequired)
	}

	claims, err := s.Tokens.ParseRefresh(refresh)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "reason", "cannot parse token", "error", err)
		return "", time.Time{}, errBadRefresh
	}

	stored, err := s.Repo.FindRefreshByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "token not found")
			return "", time.Time{}, errBadRefresh
		}
		return "", time.Time{}, fmt.Errorf("load refresh token: %w", err)
	}
	if stored.Revoked || stored.TokenHash != hash.Sha256Hex(refresh) || time.Now().Unix() > stored.ExpiresAt {
		l.Warn("refresh_failed", "status", 401, "reason", "token revoked or expired")
		return "", time.Time{}, errBadRefresh
	}

	user, err := s.Repo.GetUserByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "user is gone")
			return "", time.Time{}, errBadRefresh
		}
		return "", time.Time{}, fmt.Errorf("load user: %w", err)
	}

	access, exp, err := s.Tokens.NewAccessToken(user.ID, user.Role)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "reason", "cannot sign access token", "error", err)
		return "", time.Time{}, err
	}
	return access, exp, nil
}

// Logout revokes the refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refresh string) error {
	if refresh == "" {
		return invalid("refresh", msgRequired)
	}
	if err := s.Repo.RevokeRefreshToken(ctx, hash.Sha256Hex(refresh)); err != nil {
		logging.FromContext(ctx).Error("logout_failed", "svc", "auth.logout", "error", err)
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// EnsureAdmin creates the bootstrap admin unless the username is taken. It
// reports whether a user was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	if username == "" {
		return false, nil
	}
	if password == "" {
		return false, fmt.Errorf("%w: admin password is empty", ErrValidation)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return false, err
	}

	admin := &models.User{Username: username, Email: email, PasswordHash: pwHash, Role: models.RoleAdmin}
	if err := s.Repo.CreateUserIfNotExists(ctx, admin); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}

	logging.FromContext(ctx).Info("admin_created", "user_id", admin.ID, "username", username)
	return true, nil
}
