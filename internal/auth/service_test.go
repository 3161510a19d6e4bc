package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/scanearn/coinvault/internal/apperror"
	"github.com/scanearn/coinvault/internal/clock"
	"github.com/scanearn/coinvault/internal/config"
	"github.com/scanearn/coinvault/internal/identity"
	"github.com/scanearn/coinvault/internal/logging"
)

func newTestService(t *testing.T) (*Service, *identity.Service, identity.Repository, *clock.Fixed) {
	t.Helper()
	cfg := config.Config{
		JWTSecret:       "access-secret",
		RefreshSecret:   "refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	}
	repo := identity.NewMemoryRepository()
	clk := clock.NewFixed(time.Now())
	return NewService(cfg, repo, clk), identity.NewService(repo, []string{"9000000001"}, logging.Discard()), repo, clk
}

func TestLoginVerifyAndRefresh(t *testing.T) {
	svc, ids, _, _ := newTestService(t)
	ctx := context.Background()

	user, err := ids.Register(ctx, identity.Credentials{Phone: "9000000001", PIN: "1234"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.ExpiresIn != 900 {
		t.Fatalf("expected 900s expiry, got %d", pair.ExpiresIn)
	}

	p, err := svc.Verify(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if p.UserID != user.ID || p.Role != identity.RoleAdmin {
		t.Fatalf("unexpected principal: %+v", p)
	}

	if _, err := svc.Verify(ctx, pair.RefreshToken); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("refresh tokens must not authenticate requests, got %v", err)
	}

	access, exp, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil || exp != 900 {
		t.Fatalf("refresh: exp=%d err=%v", exp, err)
	}
	if _, err := svc.Verify(ctx, access); err != nil {
		t.Fatalf("verify refreshed token: %v", err)
	}
}

func TestLogoutRevokesTokens(t *testing.T) {
	svc, ids, _, _ := newTestService(t)
	ctx := context.Background()

	user, _ := ids.Register(ctx, identity.Credentials{CTRCode: "0918611", PIN: "1234"})
	pair, _ := svc.Login(user)

	if err := svc.Logout(ctx, user.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Verify(ctx, pair.AccessToken); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("expected revoked access token, got %v", err)
	}
	if _, _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("expected revoked refresh token, got %v", err)
	}
}

func TestVerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	svc, ids, _, clk := newTestService(t)
	ctx := context.Background()

	user, _ := ids.Register(ctx, identity.Credentials{Phone: "9000000002", PIN: "1234"})
	pair, _ := svc.Login(user)

	clk.Advance(16 * time.Minute)
	if _, err := svc.Verify(ctx, pair.AccessToken); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected expired token, got %v", err)
	}

	forged, err := signToken("other-secret", user.ID, identity.RoleAdmin, tokenTypeAccess, 0, clk.Now(), time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := svc.Verify(ctx, forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
	if _, err := svc.Verify(ctx, "not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}
