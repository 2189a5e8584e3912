package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"titlehub/internal/api/models"
	"titlehub/internal/api/repository"
	"titlehub/internal/api/validation"
	"titlehub/internal/config"
	"titlehub/internal/mail"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrIdentityConflict = errors.New("username or email already registered to a different identity")
	ErrInvalidCode      = errors.New("invalid confirmation code")
	ErrInvalidToken     = errors.New("invalid token")
)

const confirmationCodeLength = 16

const codeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Claims is the JWT payload issued on a successful code exchange.
type Claims struct {
	UserID   string      `json:"user_id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

type AuthService interface {
	// Signup creates (or re-confirms) the user for the username/email pair and
	// dispatches a fresh confirmation code by mail.
	Signup(ctx context.Context, username, email string) error
	// IssueToken exchanges a confirmation code for a signed access token.
	IssueToken(ctx context.Context, username, code string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type authService struct {
	userRepo       repository.UserRepository
	mailer         mail.Sender
	logger         *slog.Logger
	jwtSecret      string
	accessTokenTTL time.Duration
}

func NewAuthService(userRepo repository.UserRepository, mailer mail.Sender, logger *slog.Logger, cfg *config.Config) AuthService {
	return &authService{
		userRepo:       userRepo,
		mailer:         mailer,
		logger:         logger,
		jwtSecret:      cfg.JWTSecret,
		accessTokenTTL: cfg.AccessTokenTTL,
	}
}

// Signup implements the registration state machine. Resubmitting the exact
// username/email pair is an idempotent resend: a fresh code is generated and
// mailed, invalidating the previous one. A username or email already bound to
// a different pair is an identity conflict.
func (s *authService) Signup(ctx context.Context, username, email string) error {
	var v validation.Violations
	validation.CheckUsername(&v, username)
	if email == "" {
		v.Add("email", "email is required")
	}
	if !v.Empty() {
		return v
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	switch {
	case err == nil:
		if user.Email != email {
			return ErrIdentityConflict
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if _, emailErr := s.userRepo.FindByEmail(ctx, email); emailErr == nil {
			return ErrIdentityConflict
		} else if !errors.Is(emailErr, gorm.ErrRecordNotFound) {
			return emailErr
		}
		user = &models.User{Username: username, Email: email, Role: models.RoleUser}
		if err := s.userRepo.Create(ctx, user); err != nil {
			// a concurrent signup for the same identity won the insert race
			if errors.Is(err, repository.ErrDuplicateKey) {
				return ErrIdentityConflict
			}
			return err
		}
	default:
		return err
	}

	code, err := generateConfirmationCode(confirmationCodeLength)
	if err != nil {
		return err
	}

	// only the bcrypt hash is persisted; rotating it invalidates earlier codes
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.ConfirmationHash = string(hash)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	// delivery failures must not fail the signup response
	go func(to, username, code string) {
		if err := s.mailer.SendConfirmationCode(to, username, code); err != nil {
			s.logger.Warn("confirmation mail delivery failed",
				"username", username, "error", err)
		}
	}(user.Email, user.Username, code)

	return nil
}

// IssueToken verifies the confirmation code for the named user and returns a
// signed access token. A wrong or stale code is reported without revealing
// anything beyond the mismatch.
func (s *authService) IssueToken(ctx context.Context, username, code string) (string, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	if user.ConfirmationHash == "" {
		return "", ErrInvalidCode
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.ConfirmationHash), []byte(code)); err != nil {
		return "", ErrInvalidCode
	}

	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// generateConfirmationCode draws an unpredictable alphanumeric code from
// crypto/rand. Weak small-integer generators are not acceptable here.
func generateConfirmationCode(length int) (string, error) {
	b := make([]byte, length)
	max := big.NewInt(int64(len(codeChars)))
	for i := range b {
		val, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate confirmation code: %w", err)
		}
		b[i] = codeChars[val.Int64()]
	}
	return string(b), nil
}
