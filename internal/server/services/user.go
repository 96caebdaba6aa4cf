// Package services contains server-side business logic. UserService drives
// the account lifecycle: registration, login, token refresh, profile lookup,
// password change and logout.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// RegisterInput is the payload of a registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// LoginResult carries the authenticated profile and a fresh credential pair.
type LoginResult struct {
	User    *models.Profile
	Access  *auth.Token
	Refresh *auth.Token
}

// RefreshResult carries the profile and the newly issued access credential.
type RefreshResult struct {
	User   *models.Profile
	Access *auth.Token
}

// UserService implements the account operations on top of a user store,
// a password hasher and a token manager. Credentials are stateless: nothing
// about issued tokens is persisted.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.PasswordHasher
	tokens      *auth.TokenManager
	logger      logging.Logger
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher *auth.PasswordHasher,
	tokens *auth.TokenManager, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
		logger:      logger.With("module", "users"),
		now:         time.Now,
	}
}

// Register creates a user and returns its profile. A used email wins over
// any other validation failure and yields common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.Profile, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)

	_, err := repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: user with this email already exists", common.ErrorAlreadyExists)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	name := strings.TrimSpace(in.Name)
	if utf8.RuneCountInString(name) < common.MinNameLength {
		return nil, fmt.Errorf("%w: name must be at least %d characters", common.ErrorValidation, common.MinNameLength)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password is required", common.ErrorValidation)
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// the unique index settles races between concurrent registrations
	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, fmt.Errorf("%w: user with this email already exists", common.ErrorAlreadyExists)
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", u.ID)
	return u.Profile(), nil
}

// Login checks the credentials and issues an access and a refresh token.
// Every failure is reported as common.ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrorUnauthorized)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("error searching user: %w", err)
		}
		// keep the response time of unknown emails close to known ones
		if _, err := s.hasher.Verify(ctx, in.Password, s.dummy(ctx)); err != nil && ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: invalid email or password", common.ErrorUnauthorized)
	}

	ok, err := s.hasher.Verify(ctx, in.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("error verifying password: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: invalid email or password", common.ErrorUnauthorized)
	}

	access, err := s.tokens.Issue(user.ID, auth.KindAccess)
	if err != nil {
		return nil, fmt.Errorf("error issuing access token: %w", err)
	}
	refresh, err := s.tokens.Issue(user.ID, auth.KindRefresh)
	if err != nil {
		return nil, fmt.Errorf("error issuing refresh token: %w", err)
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return &LoginResult{User: user.Profile(), Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token is missing", common.ErrorUnauthorized)
	}

	userID, err := s.tokens.Verify(refreshToken, auth.KindRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	access, err := s.tokens.Issue(user.ID, auth.KindAccess)
	if err != nil {
		return nil, fmt.Errorf("error issuing access token: %w", err)
	}

	return &RefreshResult{User: user.Profile(), Access: access}, nil
}

// Authenticate resolves an access token to the profile of its subject.
func (s *UserService) Authenticate(ctx context.Context, accessToken string) (*models.Profile, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: access token is missing", common.ErrorUnauthorized)
	}

	userID, err := s.tokens.Verify(accessToken, auth.KindAccess)
	if err != nil {
		return nil, err
	}

	return s.GetProfile(ctx, userID)
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

// ChangePassword replaces the password of userID after checking the current
// one. The write happens in a transaction that re-reads the stored hash and
// fails with common.ErrVersionConflict if it changed in the meantime.
func (s *UserService) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	if in.CurrentPassword == "" || in.NewPassword == "" {
		return fmt.Errorf("%w: current and new password are required", common.ErrorValidation)
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.NewPassword)) < common.MinPasswordLength {
		return fmt.Errorf("%w: new password must be at least %d characters", common.ErrorValidation, common.MinPasswordLength)
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(ctx, in.CurrentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("error verifying password: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: current password is incorrect", common.ErrorForbidden)
	}

	hash, err := s.hasher.Hash(ctx, in.NewPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		current, err := repo.GetUserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("%w: user no longer exists", common.ErrorUnauthorized)
			}
			return fmt.Errorf("error searching user: %w", err)
		}
		if current.PasswordHash != user.PasswordHash {
			return fmt.Errorf("%w: password was changed concurrently", common.ErrVersionConflict)
		}

		if err := repo.UpdatePassword(ctx, userID, user.PasswordHash, hash); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("%w: user no longer exists", common.ErrorUnauthorized)
			}
			if errors.Is(err, common.ErrVersionConflict) {
				return fmt.Errorf("%w: password was changed concurrently", common.ErrVersionConflict)
			}
			return fmt.Errorf("error updating password: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "password changed", "user_id", userID)
	return nil
}

// Logout reports whether the caller presented any credential to discard.
// Tokens are not tracked server-side, so there is nothing to revoke.
func (s *UserService) Logout(ctx context.Context, hasAccess, hasRefresh bool) bool {
	had := hasAccess || hasRefresh
	if had {
		s.logger.Debug(ctx, "credentials discarded")
	}
	return had
}

// --- helpers below ---

// getUser loads a token subject. A subject that no longer exists is treated
// as an authentication failure.
func (s *UserService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", common.ErrorUnauthorized)
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	return user, nil
}

func (s *UserService) dummy(ctx context.Context) string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(context.WithoutCancel(ctx), uuid.NewString())
		if err != nil {
			s.logger.Warn(ctx, "dummy hash generation failed", "error", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
