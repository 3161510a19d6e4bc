package support

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/scanearn/coinvault/internal/apperror"
	"github.com/scanearn/coinvault/internal/clock"
	"github.com/scanearn/coinvault/internal/notification"
)

const maxBodyLength = 2000

// Service manages support threads between users and admins.
type Service struct {
	repo     Repository
	notifier notification.Notifier
	clock    clock.Clock
	logger   *slog.Logger
}

// NewService constructs a support service. notifier may be nil.
func NewService(repo Repository, notifier notification.Notifier, clk clock.Clock, logger *slog.Logger) *Service {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, notifier: notifier, clock: clk, logger: logger}
}

// Sent is the result of a user message: the stored message plus a canned
// suggestion that is not persisted.
type Sent struct {
	Message    Message `json:"message"`
	Suggestion string  `json:"suggestion"`
}

// Send appends a user authored message to the user's thread.
func (s *Service) Send(ctx context.Context, userID, body string) (Sent, error) {
	m, err := s.append(ctx, Message{UserID: userID, Author: AuthorUser, Body: body})
	if err != nil {
		return Sent{}, err
	}
	return Sent{Message: m, Suggestion: Suggest(m.Body)}, nil
}

// Reply appends an admin authored message to userID's thread and notifies the user.
func (s *Service) Reply(ctx context.Context, adminID, userID, body string) (Message, error) {
	if strings.TrimSpace(userID) == "" {
		return Message{}, apperror.Validation("user id is required")
	}
	m, err := s.append(ctx, Message{UserID: userID, Author: AuthorAdmin, AdminID: adminID, Body: body})
	if err != nil {
		return Message{}, err
	}
	s.logger.Info("support reply", slog.String("user_id", userID), slog.String("admin_id", adminID))
	if s.notifier != nil {
		if err := s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindSupportReply,
			Destination: userID,
			Body:        m.Body,
		}); err != nil {
			s.logger.Warn("notification failed", slog.String("error", err.Error()))
		}
	}
	return m, nil
}

// Messages returns a thread oldest first.
func (s *Service) Messages(ctx context.Context, userID string) ([]Message, error) {
	return s.repo.Messages(ctx, userID)
}

// Threads returns one summary per user, most recently active first.
func (s *Service) Threads(ctx context.Context) ([]Thread, error) {
	return s.repo.Threads(ctx)
}

func (s *Service) append(ctx context.Context, m Message) (Message, error) {
	m.Body = strings.TrimSpace(m.Body)
	if m.Body == "" {
		return Message{}, apperror.Validation("message is empty")
	}
	if len([]rune(m.Body)) > maxBodyLength {
		return Message{}, apperror.Validation("message exceeds %d characters", maxBodyLength)
	}
	m.ID = uuid.NewString()
	m.CreatedAt = s.clock.Now()
	if err := s.repo.Append(ctx, m); err != nil {
		return Message{}, err
	}
	return m, nil
}
