package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/tripdesk/internal/domain/entity"
	repo "github.com/oksasatya/tripdesk/internal/domain/repository"
	"github.com/oksasatya/tripdesk/pkg/helpers"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("forbidden")
	ErrTokenExpired       = helpers.ErrTokenExpired
	ErrTokenInvalid       = helpers.ErrTokenInvalid
)

// Revoker is the optional server-side denylist consulted on validation.
type Revoker interface {
	Revoke(ctx context.Context, jti string, exp time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Token is a signed session token and its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

type AuthService struct {
	Users  repo.UserRepository
	JWT    *helpers.JWTManager
	Logger *logrus.Logger
	// Revoker is nil by default: logout only expires the client cookie.
	Revoker Revoker
}

func NewAuthService(users repo.UserRepository, jwt *helpers.JWTManager, logger *logrus.Logger, revoker Revoker) *AuthService {
	return &AuthService{Users: users, JWT: jwt, Logger: logger, Revoker: revoker}
}

// Authenticate checks uid/password and issues a session token.
// Unknown uid and wrong password are indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, uid, password string) (*entity.User, Token, error) {
	u, err := s.Users.GetByUID(ctx, uid)
	if err != nil {
		if !errors.Is(err, entity.ErrNotFound) {
			return nil, Token{}, err
		}
		return nil, Token{}, ErrInvalidCredentials
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, Token{}, ErrInvalidCredentials
	}
	value, claims, err := s.JWT.Generate(u.UID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("uid", u.UID).Error("sign token failed")
		}
		return nil, Token{}, err
	}
	return u, Token{Value: value, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Validate resolves the user behind a token.
func (s *AuthService) Validate(ctx context.Context, token string) (*entity.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := s.JWT.Parse(token)
	if err != nil {
		return nil, err
	}
	if s.Revoker != nil {
		revoked, rErr := s.Revoker.IsRevoked(ctx, claims.ID)
		if rErr != nil && s.Logger != nil {
			s.Logger.WithError(rErr).Warn("denylist lookup failed")
		}
		if revoked {
			return nil, fmt.Errorf("%w: revoked", ErrTokenInvalid)
		}
	}
	u, err := s.Users.GetByUID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// Invalidate replaces the session with an already-expired token for the same uid.
// Without a Revoker, copies of the old token stay usable until their own expiry.
func (s *AuthService) Invalidate(ctx context.Context, token string) (Token, error) {
	claims, err := s.JWT.Parse(token)
	if err != nil {
		return Token{}, err
	}
	value, expired, err := s.JWT.GenerateExpired(claims.UID)
	if err != nil {
		return Token{}, err
	}
	if s.Revoker != nil {
		if err := s.Revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("uid", claims.UID).Warn("revoke token failed")
		}
	}
	return Token{Value: value, ExpiresAt: expired.ExpiresAt.Time}, nil
}

// Authorize is true when required is empty or the user's role matches it exactly.
func Authorize(u *entity.User, required entity.Role) bool {
	if u == nil {
		return required == ""
	}
	return u.Role.Satisfies(required)
}
