package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scanearn/coinvault/internal/apperror"
)

var (
	// ErrUserNotFound is returned when no identity matches a lookup.
	ErrUserNotFound = apperror.New(apperror.KindNotFound, "user not found")
	// ErrContactTaken is returned when a phone or CTR code is bound to another identity.
	ErrContactTaken = apperror.Validation("contact already linked to another user")
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByPhone(ctx context.Context, phone string) (User, error)
	FindByCTR(ctx context.Context, code string) (User, error)
	List(ctx context.Context) ([]User, error)
	ListBlocked(ctx context.Context) ([]User, error)
	UpdateContact(ctx context.Context, id, phone, ctrCode string) error
	UpdateProfile(ctx context.Context, id string, profile Profile) error
	UpdateRole(ctx context.Context, id, role string) error
	UpdateBlocked(ctx context.Context, id string, blocked bool) error
	UpdateTokenVersion(ctx context.Context, id string, version int) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, COALESCE(phone, ''), COALESCE(ctr_code, ''), name, role, pin_hash, blocked, token_version, created_at, last_login`

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func mapWriteErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrContactTaken
	}
	return apperror.Backend(op, err)
}

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return apperror.Validation("invalid user id: %v", err)
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, phone, ctr_code, name, role, pin_hash, blocked, token_version, created_at, last_login)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		userID, nullable(user.Phone), nullable(user.CTRCode), user.Name, user.Role, user.PINHash,
		user.Blocked, user.TokenVersion, user.CreatedAt.UTC(), user.LastLogin.UTC())
	if err != nil {
		return mapWriteErr("create user", err)
	}
	return nil
}

func (r *PostgresRepository) findOne(ctx context.Context, where string, arg any) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, apperror.Backend("load user", err)
	}
	return user, nil
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrUserNotFound
	}
	return r.findOne(ctx, `id = $1`, userID)
}

// FindByPhone fetches a user by phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (User, error) {
	return r.findOne(ctx, `phone = $1`, phone)
}

// FindByCTR fetches a user by CTR code.
func (r *PostgresRepository) FindByCTR(ctx context.Context, code string) (User, error) {
	return r.findOne(ctx, `ctr_code = $1`, code)
}

// List returns every user ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
}

// ListBlocked returns users currently barred from claims and withdrawals.
func (r *PostgresRepository) ListBlocked(ctx context.Context) ([]User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE blocked ORDER BY created_at`)
}

func (r *PostgresRepository) list(ctx context.Context, query string) ([]User, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperror.Backend("list users", err)
	}
	defer rows.Close()
	out := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, apperror.Backend("scan user", err)
		}
		out = append(out, user)
	}
	return out, apperror.Backend("iterate users", rows.Err())
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id        uuid.UUID
		user      User
		createdAt time.Time
		lastLogin time.Time
	)
	if err := row.Scan(&id, &user.Phone, &user.CTRCode, &user.Name, &user.Role, &user.PINHash,
		&user.Blocked, &user.TokenVersion, &createdAt, &lastLogin); err != nil {
		return User{}, err
	}
	user.ID = id.String()
	user.CreatedAt = createdAt.UTC()
	user.LastLogin = lastLogin.UTC()
	return user, nil
}

func (r *PostgresRepository) update(ctx context.Context, op, id, query string, args ...any) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrUserNotFound
	}
	cmd, err := r.db.Exec(ctx, query, append(args, userID)...)
	if err != nil {
		return mapWriteErr(op, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateContact stores the linked phone number and CTR code.
func (r *PostgresRepository) UpdateContact(ctx context.Context, id, phone, ctrCode string) error {
	return r.update(ctx, "update contact", id, `UPDATE users SET phone = $1, ctr_code = $2 WHERE id = $3`, nullable(phone), nullable(ctrCode))
}

// UpdateProfile stores the user editable profile.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, profile Profile) error {
	return r.update(ctx, "update profile", id, `UPDATE users SET name = $1 WHERE id = $2`, profile.Name)
}

// UpdateRole changes the user's role.
func (r *PostgresRepository) UpdateRole(ctx context.Context, id, role string) error {
	return r.update(ctx, "update role", id, `UPDATE users SET role = $1 WHERE id = $2`, role)
}

// UpdateBlocked toggles membership in the blocked set.
func (r *PostgresRepository) UpdateBlocked(ctx context.Context, id string, blocked bool) error {
	return r.update(ctx, "update blocked", id, `UPDATE users SET blocked = $1 WHERE id = $2`, blocked)
}

// UpdateTokenVersion bumps the version used to invalidate issued tokens.
func (r *PostgresRepository) UpdateTokenVersion(ctx context.Context, id string, version int) error {
	return r.update(ctx, "update token version", id, `UPDATE users SET token_version = $1 WHERE id = $2`, version)
}

// UpdateLastLogin records a successful authentication.
func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, "update last login", id, `UPDATE users SET last_login = $1 WHERE id = $2`, at.UTC())
}
