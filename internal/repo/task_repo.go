package repo

import (
	"context"

	dom "todoapp/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskRepo provides task persistence. Every method is scoped to the owning user:
// a row belonging to another user behaves exactly like an absent row.
type TaskRepo interface {
	Create(ctx context.Context, userID, title string, description *string) (dom.Task, error)
	GetByID(ctx context.Context, userID, id string) (dom.Task, error)
	List(ctx context.Context, userID string, offset, limit int) ([]dom.Task, int64, error)
	Count(ctx context.Context, userID string) (int64, error)
	Update(ctx context.Context, userID, id string, title, description *string) (dom.Task, error)
	ToggleCompletion(ctx context.Context, userID, id string) (dom.Task, error)
	Delete(ctx context.Context, userID, id string) (bool, error)
}

// PGTaskRepo implements TaskRepo with Postgres.
type PGTaskRepo struct {
	db *pgxpool.Pool
}

func NewPGTaskRepo(db *pgxpool.Pool) *PGTaskRepo {
	return &PGTaskRepo{db: db}
}

const taskColumns = `id, title, description, user_id, is_completed, created_at, updated_at`

func scanTask(row pgx.Row) (dom.Task, error) {
	var t dom.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.UserID, &t.IsCompleted,
		&t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *PGTaskRepo) Create(ctx context.Context, userID, title string, description *string) (dom.Task, error) {
	query := `
		INSERT INTO tasks (title, description, user_id)
		VALUES ($1, $2, $3)
		RETURNING ` + taskColumns
	var t dom.Task
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		t, err = scanTask(tx.QueryRow(ctx, query, title, description, userID))
		return err
	})
	return t, err
}

func (r *PGTaskRepo) GetByID(ctx context.Context, userID, id string) (dom.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND user_id = $2`
	return scanTask(r.db.QueryRow(ctx, query, id, userID))
}

// List returns one page ordered newest-first plus the owner's full task count.
// Both statements run in one transaction so the page and the count are consistent.
// id is the secondary sort key: created_at ties get a stable, deterministic order.
func (r *PGTaskRepo) List(ctx context.Context, userID string, offset, limit int) ([]dom.Task, int64, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3`
	var (
		list  []dom.Task
		total int64
	)
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, userID, offset, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return err
			}
			list = append(list, t)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE user_id = $1`, userID).Scan(&total)
	})
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *PGTaskRepo) Count(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE user_id = $1`, userID).Scan(&total)
	return total, err
}

// Update applies a partial update in one statement. Absent fields keep their
// current value; updated_at is refreshed even when nothing else changed.
func (r *PGTaskRepo) Update(ctx context.Context, userID, id string, title, description *string) (dom.Task, error) {
	query := `
		UPDATE tasks
		SET title = COALESCE($3, title),
		    description = COALESCE($4, description),
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + taskColumns
	var t dom.Task
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		t, err = scanTask(tx.QueryRow(ctx, query, id, userID, title, description))
		return err
	})
	return t, err
}

func (r *PGTaskRepo) ToggleCompletion(ctx context.Context, userID, id string) (dom.Task, error) {
	query := `
		UPDATE tasks
		SET is_completed = NOT is_completed, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + taskColumns
	var t dom.Task
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		t, err = scanTask(tx.QueryRow(ctx, query, id, userID))
		return err
	})
	return t, err
}

// Delete removes the row and reports whether one matched.
func (r *PGTaskRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	var deleted bool
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected() > 0
		return nil
	})
	return deleted, err
}
