package repo

import (
	"context"

	dom "todoapp/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepo provides user persistence.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (dom.User, error)
	GetByID(ctx context.Context, id string) (dom.User, error)
	Create(ctx context.Context, email, hashedPassword string) (dom.User, error)
}

// PGUserRepo implements UserRepo with Postgres.
type PGUserRepo struct {
	db *pgxpool.Pool
}

// NewPGUserRepo returns a new PGUserRepo.
func NewPGUserRepo(db *pgxpool.Pool) *PGUserRepo {
	return &PGUserRepo{db: db}
}

// GetByEmail returns the user by exact email match (case-sensitive).
func (r *PGUserRepo) GetByEmail(ctx context.Context, email string) (dom.User, error) {
	var u dom.User
	err := r.db.QueryRow(ctx,
		`SELECT id, email, hashed_password, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&u.ID, &u.Email, &u.HashedPassword, &u.CreatedAt)
	return u, err
}

// GetByID returns the user by id.
func (r *PGUserRepo) GetByID(ctx context.Context, id string) (dom.User, error) {
	var u dom.User
	err := r.db.QueryRow(ctx,
		`SELECT id, email, hashed_password, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Email, &u.HashedPassword, &u.CreatedAt)
	return u, err
}

// Create inserts a new user and returns it.
func (r *PGUserRepo) Create(ctx context.Context, email, hashedPassword string) (dom.User, error) {
	query := `
		INSERT INTO users (email, hashed_password)
		VALUES ($1, $2)
		RETURNING id, email, hashed_password, created_at`
	var u dom.User
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query, email, hashedPassword).Scan(
			&u.ID, &u.Email, &u.HashedPassword, &u.CreatedAt,
		)
	})
	return u, err
}
