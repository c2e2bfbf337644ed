package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// sqlQuerier is satisfied by both *sql.DB and *sql.Tx.
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// WAL keeps readers from blocking the single writer.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		external_id TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		scheduled_time TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'done')),
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks(user_id);
	CREATE TABLE IF NOT EXISTS deals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		amount INTEGER NOT NULL CHECK (amount >= 0),
		status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'in_progress', 'closed')),
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_deals_user_id ON deals(user_id);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(sqliteTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindUserByExternalID(ctx context.Context, externalID string) (*User, error) {
	return sqliteFindUser(ctx, s.db, externalID)
}

func (s *SQLiteStore) GetTask(ctx context.Context, id int64) (*Task, error) {
	return sqliteGetTask(ctx, s.db, id)
}

func (s *SQLiteStore) GetDeal(ctx context.Context, id int64) (*Deal, error) {
	return sqliteGetDeal(ctx, s.db, id)
}

func (s *SQLiteStore) ListTasksByOwner(ctx context.Context, userID int64) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, scheduled_time, status, created_at
		 FROM tasks WHERE user_id = ? ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		var createdAt int64
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.ScheduledTime, &t.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		t.CreatedAt = time.Unix(createdAt, 0)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) ListDealsByOwner(ctx context.Context, userID int64) ([]Deal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, amount, status, created_at
		 FROM deals WHERE user_id = ? ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query deals: %w", err)
	}
	defer rows.Close()

	var deals []Deal
	for rows.Next() {
		var d Deal
		var createdAt int64
		if err := rows.Scan(&d.ID, &d.UserID, &d.Title, &d.Amount, &d.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan deal row: %w", err)
		}
		d.CreatedAt = time.Unix(createdAt, 0)
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

func (s *SQLiteStore) CountCompletedTasks(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE user_id = ? AND status = ?`,
		userID, string(TaskDone),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count completed tasks: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) SumClosedDeals(ctx context.Context, userID int64) (int64, int64, error) {
	var count, total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM deals WHERE user_id = ? AND status = ?`,
		userID, string(DealClosed),
	).Scan(&count, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("sum closed deals: %w", err)
	}
	return count, total, nil
}

type sqliteTx struct {
	q sqlQuerier
}

func (t sqliteTx) FindUserByExternalID(ctx context.Context, externalID string) (*User, error) {
	return sqliteFindUser(ctx, t.q, externalID)
}

func (t sqliteTx) CreateUser(ctx context.Context, externalID, displayName string) (*User, error) {
	now := time.Now()
	res, err := t.q.ExecContext(ctx,
		`INSERT INTO users (external_id, display_name, created_at) VALUES (?, ?, ?)`,
		externalID, displayName, now.Unix(),
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &User{ID: id, ExternalID: externalID, DisplayName: displayName, CreatedAt: time.Unix(now.Unix(), 0)}, nil
}

func (t sqliteTx) CreateTask(ctx context.Context, userID int64, title, scheduledTime string, status TaskStatus) (*Task, error) {
	now := time.Now()
	res, err := t.q.ExecContext(ctx,
		`INSERT INTO tasks (user_id, title, scheduled_time, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, title, scheduledTime, string(status), now.Unix(),
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Task{ID: id, UserID: userID, Title: title, ScheduledTime: scheduledTime, Status: status, CreatedAt: time.Unix(now.Unix(), 0)}, nil
}

func (t sqliteTx) CreateDeal(ctx context.Context, userID int64, title string, amount int64, status DealStatus) (*Deal, error) {
	now := time.Now()
	res, err := t.q.ExecContext(ctx,
		`INSERT INTO deals (user_id, title, amount, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, title, amount, string(status), now.Unix(),
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Deal{ID: id, UserID: userID, Title: title, Amount: amount, Status: status, CreatedAt: time.Unix(now.Unix(), 0)}, nil
}

func (t sqliteTx) GetTask(ctx context.Context, id int64) (*Task, error) {
	return sqliteGetTask(ctx, t.q, id)
}

func (t sqliteTx) GetDeal(ctx context.Context, id int64) (*Deal, error) {
	return sqliteGetDeal(ctx, t.q, id)
}

func (t sqliteTx) SetTaskStatus(ctx context.Context, id int64, status TaskStatus) error {
	res, err := t.q.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (t sqliteTx) SetDealStatus(ctx context.Context, id int64, status DealStatus) error {
	res, err := t.q.ExecContext(ctx, `UPDATE deals SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (t sqliteTx) DeleteTask(ctx context.Context, id int64) error {
	_, err := t.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	return err
}

func (t sqliteTx) DeleteDeal(ctx context.Context, id int64) error {
	_, err := t.q.ExecContext(ctx, `DELETE FROM deals WHERE id = ?`, id)
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func sqliteFindUser(ctx context.Context, q sqlQuerier, externalID string) (*User, error) {
	var u User
	var createdAt int64
	err := q.QueryRowContext(ctx,
		`SELECT id, external_id, display_name, created_at FROM users WHERE external_id = ?`,
		externalID,
	).Scan(&u.ID, &u.ExternalID, &u.DisplayName, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(createdAt, 0)
	return &u, nil
}

func sqliteGetTask(ctx context.Context, q sqlQuerier, id int64) (*Task, error) {
	var t Task
	var createdAt int64
	err := q.QueryRowContext(ctx,
		`SELECT id, user_id, title, scheduled_time, status, created_at FROM tasks WHERE id = ?`,
		id,
	).Scan(&t.ID, &t.UserID, &t.Title, &t.ScheduledTime, &t.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.CreatedAt = time.Unix(createdAt, 0)
	return &t, nil
}

func sqliteGetDeal(ctx context.Context, q sqlQuerier, id int64) (*Deal, error) {
	var d Deal
	var createdAt int64
	err := q.QueryRowContext(ctx,
		`SELECT id, user_id, title, amount, status, created_at FROM deals WHERE id = ?`,
		id,
	).Scan(&d.ID, &d.UserID, &d.Title, &d.Amount, &d.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.CreatedAt = time.Unix(createdAt, 0)
	return &d, nil
}
