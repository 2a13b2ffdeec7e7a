// Package services contains server-side business logic. This file implements
// UserService, which handles signup with email verification, role-split
// login, and issuing session JWTs.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/apetrenko/filevault/internal/common"
	"github.com/apetrenko/filevault/internal/dbx"
	"github.com/apetrenko/filevault/internal/logging"
	"github.com/apetrenko/filevault/internal/server/auth"
	"github.com/apetrenko/filevault/internal/server/config"
	"github.com/apetrenko/filevault/internal/server/mail"
	"github.com/apetrenko/filevault/internal/server/models"
	"github.com/apetrenko/filevault/internal/server/repositories/repomanager"
)

// UserService provides identity operations:
// - Signup: create client users and send the verification mail
// - VerifyEmail: redeem a verification token
// - Login: verify credentials, role and verification state, mint a JWT
type UserService struct {
	db                  *sql.DB
	repomanager         repomanager.RepositoryManager
	mailer              mail.Mailer
	logger              logging.Logger
	jwtSecret           []byte
	accessTokenValidity time.Duration
	publicBaseURL       string
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, mailer mail.Mailer, logger logging.Logger, cfg *config.Config) *UserService {
	return &UserService{
		db:                  db,
		repomanager:         m,
		mailer:              mailer,
		logger:              logger.With("module", "user_service"),
		jwtSecret:           []byte(cfg.SecretKey),
		accessTokenValidity: cfg.AccessTokenValidity,
		publicBaseURL:       cfg.PublicBaseURL,
	}
}

// Signup registers a client account. Username and email uniqueness is checked
// and the row inserted inside one transaction. The verification mail is sent
// after commit; a delivery failure is logged but does not fail the signup.
func (s *UserService) Signup(ctx context.Context, username, email, password string) (*models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	token, err := auth.NewVerificationToken()
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		Username:          username,
		Email:             email,
		PasswordHash:      hash,
		Role:              models.RoleClient,
		Verified:          false,
		VerificationToken: token,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		if _, err := repo.GetByEmail(ctx, email); err == nil {
			return common.ErrorEmailTaken
		} else if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		if _, err := repo.GetByUsername(ctx, username); err == nil {
			return common.ErrorUsernameTaken
		} else if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		created, err := repo.Create(ctx, user)
		if err != nil {
			return fmt.Errorf("error creating user: %w", err)
		}
		user = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendVerification(ctx, email, username, s.VerificationURL(token)); err != nil {
		s.logger.Warn(ctx, "verification mail not sent", "email", email, "error", err.Error())
	}

	return user, nil
}

// VerificationURL builds the link embedded in the verification mail.
func (s *UserService) VerificationURL(token string) string {
	return s.publicBaseURL + "/verify-email?token=" + url.QueryEscape(token)
}

// VerifyEmail redeems a verification token, flipping the user to verified
// exactly once. An unknown token yields ErrInvalidToken.
func (s *UserService) VerifyEmail(ctx context.Context, token string) error {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidToken
		}
		return common.ErrorInternal
	}

	if err := repo.MarkVerified(ctx, user.ID); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// Login verifies the password and role for the named account and returns a
// signed session token. Unknown users and wrong passwords are
// indistinguishable (ErrorUnauthorized); a role mismatch is ErrorForbidden;
// an unverified client is ErrorNotVerified.
func (s *UserService) Login(ctx context.Context, username, password, role string) (string, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", common.ErrorInternal
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		return "", common.ErrorUnauthorized
	}

	if user.Role != role {
		return "", common.ErrorForbidden
	}

	if user.Role == models.RoleClient && !user.Verified {
		return "", common.ErrorNotVerified
	}

	token, err := auth.GenerateToken(user.Username, s.jwtSecret, s.accessTokenValidity)
	if err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

// GetByUsername resolves a username (typically a verified JWT subject) to
// its identity record.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByUsername(ctx, username)
}

// EnsureOpsUser creates the named operations account if it does not exist,
// pre-verified. Returns the user and whether it was created by this call.
func (s *UserService) EnsureOpsUser(ctx context.Context, username, email, password string) (*models.User, bool, error) {
	repo := s.repomanager.Users(s.db)

	if existing, err := repo.GetByUsername(ctx, username); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, false, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, false, err
	}

	user, err := repo.Create(ctx, &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleOps,
		Verified:     true,
	})
	if err != nil {
		return nil, false, fmt.Errorf("error creating ops user: %w", err)
	}
	return user, true, nil
}
