package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/scanearn/coinvault/internal/apperror"
)

const (
	minPINLength  = 4
	maxNameLength = 64
)

// ErrInvalidCredentials hides whether the contact or the PIN was wrong.
var ErrInvalidCredentials = apperror.New(apperror.KindUnauthorized, "invalid credentials")

// Service manages identity lifecycle.
type Service struct {
	repo        Repository
	adminPhones map[string]struct{}
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates a new identity service. Phones listed in adminPhones receive
// the admin role when they register.
func NewService(repo Repository, adminPhones []string, logger *slog.Logger) *Service {
	admins := make(map[string]struct{}, len(adminPhones))
	for _, p := range adminPhones {
		if normalized, err := NormalizePhone(p); err == nil {
			admins[normalized] = struct{}{}
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, adminPhones: admins, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// NormalizePhone reduces a phone number to its 10 national digits.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 12 && strings.HasPrefix(digits, "91") {
		digits = digits[2:]
	}
	if len(digits) != 10 {
		return "", apperror.Validation("phone number must have 10 digits")
	}
	return digits, nil
}

// NormalizeCTR validates a CTR code.
func NormalizeCTR(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	if len(code) < 5 || len(code) > 12 {
		return "", apperror.Validation("CTR code must be 5 to 12 digits")
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return "", apperror.Validation("CTR code must be numeric")
		}
	}
	return code, nil
}

func normalizeContact(phone, ctr string) (string, string, error) {
	if (phone == "") == (ctr == "") {
		return "", "", apperror.Validation("exactly one of phone or ctr_code is required")
	}
	if phone != "" {
		p, err := NormalizePhone(phone)
		return p, "", err
	}
	c, err := NormalizeCTR(ctr)
	return "", c, err
}

// Register creates a new user bound to a phone number or CTR code and stores a hashed PIN.
func (s *Service) Register(ctx context.Context, creds Credentials) (User, error) {
	phone, ctr, err := normalizeContact(creds.Phone, creds.CTRCode)
	if err != nil {
		return User{}, err
	}
	if len(creds.PIN) < minPINLength {
		return User{}, apperror.Validation("PIN must be at least %d digits", minPINLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.PIN), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	role := RoleUser
	if _, ok := s.adminPhones[phone]; ok && phone != "" {
		role = RoleAdmin
	}

	user := User{
		ID:        uuid.New().String(),
		Phone:     phone,
		CTRCode:   ctr,
		Role:      role,
		PINHash:   hash,
		CreatedAt: s.now(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	s.logger.Info("identity registered", slog.String("user_id", user.ID), slog.String("role", role))
	return user, nil
}

// Authenticate verifies the PIN for the identity bound to the given contact.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	phone, ctr, err := normalizeContact(creds.Phone, creds.CTRCode)
	if err != nil {
		return User{}, err
	}

	var user User
	if phone != "" {
		user, err = s.repo.FindByPhone(ctx, phone)
	} else {
		user, err = s.repo.FindByCTR(ctx, ctr)
	}
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PINHash, []byte(creds.PIN)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	user.LastLogin = s.now()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, user.LastLogin); err != nil {
		s.logger.Warn("record last login", slog.String("user_id", user.ID), slog.Any("error", err))
	}
	return user, nil
}

// Get fetches a user by id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// LinkContact binds a phone number or CTR code to the identity. The identity itself never changes.
func (s *Service) LinkContact(ctx context.Context, id, phone, ctr string) (User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	p, c, err := normalizeContact(phone, ctr)
	if err != nil {
		return User{}, err
	}
	if p != "" {
		user.Phone = p
	} else {
		user.CTRCode = c
	}
	if err := s.repo.UpdateContact(ctx, id, user.Phone, user.CTRCode); err != nil {
		return User{}, err
	}
	return user, nil
}

// Profile returns the user's profile.
func (s *Service) Profile(ctx context.Context, id string) (Profile, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	return Profile{Name: user.Name}, nil
}

// SaveProfile validates and stores the profile.
func (s *Service) SaveProfile(ctx context.Context, id string, profile Profile) error {
	profile.Name = strings.TrimSpace(profile.Name)
	if profile.Name == "" || len([]rune(profile.Name)) > maxNameLength {
		return apperror.Validation("name must be 1 to %d characters", maxNameLength)
	}
	return s.repo.UpdateProfile(ctx, id, profile)
}

// IsBlocked reports membership in the blocked set. Unknown users are treated as blocked.
func (s *Service) IsBlocked(ctx context.Context, id string) (bool, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return true, nil
		}
		return false, err
	}
	return user.Blocked, nil
}

// SetBlocked adds or removes the user from the blocked set.
func (s *Service) SetBlocked(ctx context.Context, id string, blocked bool) error {
	if err := s.repo.UpdateBlocked(ctx, id, blocked); err != nil {
		return err
	}
	s.logger.Info("identity block toggled", slog.String("user_id", id), slog.Bool("blocked", blocked))
	return nil
}

// AssignRole sets the user's role.
func (s *Service) AssignRole(ctx context.Context, id, role string) error {
	if role != RoleUser && role != RoleAdmin {
		return apperror.Validation("unknown role %q", role)
	}
	return s.repo.UpdateRole(ctx, id, role)
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// ListBlocked returns the blocked set.
func (s *Service) ListBlocked(ctx context.Context) ([]User, error) {
	return s.repo.ListBlocked(ctx)
}
