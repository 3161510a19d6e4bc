package auth

import (
	"context"
	"errors"

	"github.com/scanearn/coinvault/internal/apperror"
	"github.com/scanearn/coinvault/internal/clock"
	"github.com/scanearn/coinvault/internal/config"
	"github.com/scanearn/coinvault/internal/identity"
)

// Service issues and verifies tokens. Bumping a user's token version revokes
// every token issued before.
type Service struct {
	cfg    config.Config
	idRepo identity.Repository
	clock  clock.Clock
}

func NewService(cfg config.Config, idRepo identity.Repository, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Service{cfg: cfg, idRepo: idRepo, clock: clk}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Principal is the verified caller of a request.
type Principal struct {
	UserID  string
	Role    string
	Version int
}

// Login issues a token pair for an authenticated user.
func (s *Service) Login(user identity.User) (TokenPair, error) {
	now := s.clock.Now()
	access, err := signToken(s.cfg.JWTSecret, user.ID, user.Role, tokenTypeAccess, user.TokenVersion, now, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := signToken(s.cfg.RefreshSecret, user.ID, user.Role, tokenTypeRefresh, user.TokenVersion, now, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(s.cfg.AccessTokenTTL.Seconds())}, nil
}

// Verify validates an access token against the current token version. The
// role is read from the user record so role changes apply immediately.
func (s *Service) Verify(ctx context.Context, accessToken string) (Principal, error) {
	claims, err := parseToken(s.cfg.JWTSecret, accessToken, tokenTypeAccess, s.clock.Now())
	if err != nil {
		return Principal{}, err
	}
	user, err := s.current(ctx, claims)
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: user.ID, Role: user.Role, Version: user.TokenVersion}, nil
}

// Refresh verifies the refresh token and returns a new access token if valid.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := parseToken(s.cfg.RefreshSecret, refreshToken, tokenTypeRefresh, s.clock.Now())
	if err != nil {
		return "", 0, err
	}
	user, err := s.current(ctx, claims)
	if err != nil {
		return "", 0, err
	}
	signed, err := signToken(s.cfg.JWTSecret, user.ID, user.Role, tokenTypeAccess, user.TokenVersion, s.clock.Now(), s.cfg.AccessTokenTTL)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

// Logout increments token version so older tokens become invalid.
func (s *Service) Logout(ctx context.Context, userID string) error {
	user, err := s.idRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.idRepo.UpdateTokenVersion(ctx, user.ID, user.TokenVersion+1)
}

func (s *Service) current(ctx context.Context, claims *Claims) (identity.User, error) {
	user, err := s.idRepo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return identity.User{}, ErrInvalidToken
		}
		return identity.User{}, apperror.Backend("load token subject", err)
	}
	if user.TokenVersion != claims.Version {
		return identity.User{}, apperror.New(apperror.KindUnauthorized, "token invalidated")
	}
	return user, nil
}
