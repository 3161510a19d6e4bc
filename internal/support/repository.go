package support

import (
	"context"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scanearn/coinvault/internal/apperror"
)

// Repository persists support messages. Threads are derived from messages.
type Repository interface {
	Append(ctx context.Context, m Message) error
	Messages(ctx context.Context, userID string) ([]Message, error)
	Threads(ctx context.Context) ([]Thread, error)
}

// PostgresRepository stores messages in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, m Message) error {
	_, err := r.db.Exec(ctx, `INSERT INTO support_messages (id, user_id, author, admin_id, body, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, m.ID, m.UserID, m.Author, m.AdminID, m.Body, m.CreatedAt.UTC())
	return apperror.Backend("append support message", err)
}

func (r *PostgresRepository) Messages(ctx context.Context, userID string) ([]Message, error) {
	rows, err := r.db.Query(ctx, `SELECT id, user_id, author, admin_id, body, created_at
        FROM support_messages WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, apperror.Backend("list support messages", err)
	}
	defer rows.Close()

	out := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.Author, &m.AdminID, &m.Body, &m.CreatedAt); err != nil {
			return nil, apperror.Backend("scan support message", err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		out = append(out, m)
	}
	return out, apperror.Backend("iterate support messages", rows.Err())
}

func (r *PostgresRepository) Threads(ctx context.Context) ([]Thread, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT ON (user_id) user_id, author, body, created_at,
            COUNT(*) OVER (PARTITION BY user_id)
        FROM support_messages
        ORDER BY user_id, created_at DESC, id DESC`)
	if err != nil {
		return nil, apperror.Backend("list support threads", err)
	}
	defer rows.Close()

	out := make([]Thread, 0)
	for rows.Next() {
		var t Thread
		if err := rows.Scan(&t.UserID, &t.LastAuthor, &t.LastBody, &t.LastMessageAt, &t.Messages); err != nil {
			return nil, apperror.Backend("scan support thread", err)
		}
		t.LastMessageAt = t.LastMessageAt.UTC()
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Backend("iterate support threads", err)
	}
	sortThreads(out)
	return out, nil
}

func sortThreads(threads []Thread) {
	sort.Slice(threads, func(i, j int) bool {
		return threads[i].LastMessageAt.After(threads[j].LastMessageAt)
	})
}

type memoryRepository struct {
	mu       sync.RWMutex
	messages map[string][]Message
}

// NewMemoryRepository constructs an in-memory repository for tests and development.
func NewMemoryRepository() Repository {
	return &memoryRepository{messages: make(map[string][]Message)}
}

func (r *memoryRepository) Append(_ context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[m.UserID] = append(r.messages[m.UserID], m)
	return nil
}

func (r *memoryRepository) Messages(_ context.Context, userID string) ([]Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Message{}, r.messages[userID]...), nil
}

func (r *memoryRepository) Threads(_ context.Context) ([]Thread, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Thread, 0, len(r.messages))
	for userID, msgs := range r.messages {
		if len(msgs) == 0 {
			continue
		}
		last := msgs[len(msgs)-1]
		out = append(out, Thread{
			UserID:        userID,
			Messages:      len(msgs),
			LastAuthor:    last.Author,
			LastBody:      last.Body,
			LastMessageAt: last.CreatedAt,
		})
	}
	sortThreads(out)
	return out, nil
}
