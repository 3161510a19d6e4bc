package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/scanearn/coinvault/internal/apperror"
	"github.com/scanearn/coinvault/internal/logging"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil, logging.Discard())
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Phone: "+91 98765-43210", PIN: "1234"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Phone != "9876543210" {
		t.Fatalf("expected normalized phone, got %s", user.Phone)
	}
	if user.Role != RoleUser {
		t.Fatalf("expected user role, got %s", user.Role)
	}

	authed, err := svc.Authenticate(ctx, Credentials{Phone: "9876543210", PIN: "1234"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.ID != user.ID || authed.LastLogin.IsZero() {
		t.Fatalf("unexpected authenticated user: %+v", authed)
	}

	if _, err := svc.Authenticate(ctx, Credentials{Phone: "9876543210", PIN: "9999"}); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestRegisterWithCTRAndAdminBootstrap(t *testing.T) {
	svc := NewService(NewMemoryRepository(), []string{"9000000001"}, logging.Discard())
	ctx := context.Background()

	ctrUser, err := svc.Register(ctx, Credentials{CTRCode: "0918611", PIN: "1234"})
	if err != nil {
		t.Fatalf("register ctr: %v", err)
	}
	if ctrUser.CTRCode != "0918611" || ctrUser.Phone != "" {
		t.Fatalf("unexpected contact binding: %+v", ctrUser)
	}

	admin, err := svc.Register(ctx, Credentials{Phone: "9000000001", PIN: "1234"})
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}
	if !admin.IsAdmin() {
		t.Fatalf("expected admin role for bootstrap phone")
	}

	if _, err := svc.Register(ctx, Credentials{CTRCode: "0918611", PIN: "5555"}); !errors.Is(err, ErrContactTaken) {
		t.Fatalf("expected contact taken, got %v", err)
	}
	if _, err := svc.Register(ctx, Credentials{Phone: "9000000002", CTRCode: "12345", PIN: "1234"}); !errors.Is(err, apperror.ErrValidationFailed) {
		t.Fatalf("expected validation error for two contacts, got %v", err)
	}
}

func TestLinkContactAndProfile(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil, logging.Discard())
	ctx := context.Background()

	user, _ := svc.Register(ctx, Credentials{CTRCode: "55555", PIN: "1234"})
	linked, err := svc.LinkContact(ctx, user.ID, "9876543210", "")
	if err != nil {
		t.Fatalf("link contact: %v", err)
	}
	if linked.ID != user.ID || linked.Phone != "9876543210" || linked.CTRCode != "55555" {
		t.Fatalf("unexpected link result: %+v", linked)
	}

	if err := svc.SaveProfile(ctx, user.ID, Profile{Name: "  Asha "}); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	profile, err := svc.Profile(ctx, user.ID)
	if err != nil || profile.Name != "Asha" {
		t.Fatalf("unexpected profile %+v err=%v", profile, err)
	}
	if err := svc.SaveProfile(ctx, user.ID, Profile{Name: " "}); !errors.Is(err, apperror.ErrValidationFailed) {
		t.Fatalf("expected empty name rejection, got %v", err)
	}
}

func TestBlockedSet(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil, logging.Discard())
	ctx := context.Background()
	user, _ := svc.Register(ctx, Credentials{Phone: "9876543210", PIN: "1234"})

	if blocked, _ := svc.IsBlocked(ctx, user.ID); blocked {
		t.Fatalf("new user must not be blocked")
	}
	if err := svc.SetBlocked(ctx, user.ID, true); err != nil {
		t.Fatalf("block: %v", err)
	}
	if blocked, _ := svc.IsBlocked(ctx, user.ID); !blocked {
		t.Fatalf("expected blocked")
	}
	list, _ := svc.ListBlocked(ctx)
	if len(list) != 1 || list[0].ID != user.ID {
		t.Fatalf("unexpected blocked list: %+v", list)
	}
	if err := svc.SetBlocked(ctx, user.ID, false); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if blocked, _ := svc.IsBlocked(ctx, user.ID); blocked {
		t.Fatalf("expected unblocked")
	}
	if blocked, _ := svc.IsBlocked(ctx, "missing"); !blocked {
		t.Fatalf("unknown users must be treated as blocked")
	}
}
