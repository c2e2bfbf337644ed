package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the users, tasks and deals tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			external_id TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS tasks (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			title VARCHAR(255) NOT NULL,
			scheduled_time VARCHAR(50) NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'done')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks(user_id);
		CREATE TABLE IF NOT EXISTS deals (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			title VARCHAR(255) NOT NULL,
			amount BIGINT NOT NULL CHECK (amount >= 0),
			status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'in_progress', 'closed')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_deals_user_id ON deals(user_id);
	`)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(pgTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindUserByExternalID(ctx context.Context, externalID string) (*User, error) {
	return pgFindUser(ctx, s.pool, externalID)
}

func (s *PostgresStore) GetTask(ctx context.Context, id int64) (*Task, error) {
	return pgGetTask(ctx, s.pool, id)
}

func (s *PostgresStore) GetDeal(ctx context.Context, id int64) (*Deal, error) {
	return pgGetDeal(ctx, s.pool, id)
}

func (s *PostgresStore) ListTasksByOwner(ctx context.Context, userID int64) ([]Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, title, scheduled_time, status, created_at
		 FROM tasks WHERE user_id = $1 ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.ScheduledTime, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *PostgresStore) ListDealsByOwner(ctx context.Context, userID int64) ([]Deal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, title, amount, status, created_at
		 FROM deals WHERE user_id = $1 ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query deals: %w", err)
	}
	defer rows.Close()

	var deals []Deal
	for rows.Next() {
		var d Deal
		if err := rows.Scan(&d.ID, &d.UserID, &d.Title, &d.Amount, &d.Status, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan deal row: %w", err)
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

func (s *PostgresStore) CountCompletedTasks(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks WHERE user_id = $1 AND status = $2`,
		userID, TaskDone,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count completed tasks: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) SumClosedDeals(ctx context.Context, userID int64) (int64, int64, error) {
	var count, total int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM deals WHERE user_id = $1 AND status = $2`,
		userID, DealClosed,
	).Scan(&count, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("sum closed deals: %w", err)
	}
	return count, total, nil
}

type pgTx struct {
	q querier
}

func (t pgTx) FindUserByExternalID(ctx context.Context, externalID string) (*User, error) {
	return pgFindUser(ctx, t.q, externalID)
}

func (t pgTx) CreateUser(ctx context.Context, externalID, displayName string) (*User, error) {
	var u User
	err := t.q.QueryRow(ctx,
		`INSERT INTO users (external_id, display_name) VALUES ($1, $2)
		 RETURNING id, external_id, display_name, created_at`,
		externalID, displayName,
	).Scan(&u.ID, &u.ExternalID, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (t pgTx) CreateTask(ctx context.Context, userID int64, title, scheduledTime string, status TaskStatus) (*Task, error) {
	var task Task
	err := t.q.QueryRow(ctx,
		`INSERT INTO tasks (user_id, title, scheduled_time, status) VALUES ($1, $2, $3, $4)
		 RETURNING id, user_id, title, scheduled_time, status, created_at`,
		userID, title, scheduledTime, status,
	).Scan(&task.ID, &task.UserID, &task.Title, &task.ScheduledTime, &task.Status, &task.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (t pgTx) CreateDeal(ctx context.Context, userID int64, title string, amount int64, status DealStatus) (*Deal, error) {
	var deal Deal
	err := t.q.QueryRow(ctx,
		`INSERT INTO deals (user_id, title, amount, status) VALUES ($1, $2, $3, $4)
		 RETURNING id, user_id, title, amount, status, created_at`,
		userID, title, amount, status,
	).Scan(&deal.ID, &deal.UserID, &deal.Title, &deal.Amount, &deal.Status, &deal.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (t pgTx) GetTask(ctx context.Context, id int64) (*Task, error) {
	return pgGetTask(ctx, t.q, id)
}

func (t pgTx) GetDeal(ctx context.Context, id int64) (*Deal, error) {
	return pgGetDeal(ctx, t.q, id)
}

func (t pgTx) SetTaskStatus(ctx context.Context, id int64, status TaskStatus) error {
	result, err := t.q.Exec(ctx, `UPDATE tasks SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t pgTx) SetDealStatus(ctx context.Context, id int64, status DealStatus) error {
	result, err := t.q.Exec(ctx, `UPDATE deals SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t pgTx) DeleteTask(ctx context.Context, id int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return err
}

func (t pgTx) DeleteDeal(ctx context.Context, id int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM deals WHERE id = $1`, id)
	return err
}

func pgFindUser(ctx context.Context, q querier, externalID string) (*User, error) {
	var u User
	err := q.QueryRow(ctx,
		`SELECT id, external_id, display_name, created_at FROM users WHERE external_id = $1`,
		externalID,
	).Scan(&u.ID, &u.ExternalID, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func pgGetTask(ctx context.Context, q querier, id int64) (*Task, error) {
	var t Task
	err := q.QueryRow(ctx,
		`SELECT id, user_id, title, scheduled_time, status, created_at FROM tasks WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.UserID, &t.Title, &t.ScheduledTime, &t.Status, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func pgGetDeal(ctx context.Context, q querier, id int64) (*Deal, error) {
	var d Deal
	err := q.QueryRow(ctx,
		`SELECT id, user_id, title, amount, status, created_at FROM deals WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.UserID, &d.Title, &d.Amount, &d.Status, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}
