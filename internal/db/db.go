package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("record not found")

// Reader holds the read-only queries. Lists are returned in id order.
type Reader interface {
	// FindUserByExternalID returns nil, nil when no user exists.
	FindUserByExternalID(ctx context.Context, externalID string) (*User, error)
	ListTasksByOwner(ctx context.Context, userID int64) ([]Task, error)
	ListDealsByOwner(ctx context.Context, userID int64) ([]Deal, error)
	GetTask(ctx context.Context, id int64) (*Task, error)
	GetDeal(ctx context.Context, id int64) (*Deal, error)
	CountCompletedTasks(ctx context.Context, userID int64) (int64, error)
	SumClosedDeals(ctx context.Context, userID int64) (count int64, total int64, err error)
}

// Tx is a single atomic unit of work. Nothing written through it is visible
// unless the function passed to Store.Update returns nil.
type Tx interface {
	FindUserByExternalID(ctx context.Context, externalID string) (*User, error)
	CreateUser(ctx context.Context, externalID, displayName string) (*User, error)
	CreateTask(ctx context.Context, userID int64, title, scheduledTime string, status TaskStatus) (*Task, error)
	CreateDeal(ctx context.Context, userID int64, title string, amount int64, status DealStatus) (*Deal, error)
	GetTask(ctx context.Context, id int64) (*Task, error)
	GetDeal(ctx context.Context, id int64) (*Deal, error)
	SetTaskStatus(ctx context.Context, id int64, status TaskStatus) error
	SetDealStatus(ctx context.Context, id int64, status DealStatus) error
	// DeleteTask and DeleteDeal are no-ops for rows that are already gone.
	DeleteTask(ctx context.Context, id int64) error
	DeleteDeal(ctx context.Context, id int64) error
}

type Store interface {
	Reader
	Update(ctx context.Context, fn func(tx Tx) error) error
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// New picks a backend from the database URL: postgres:// and postgresql://
// use pgx, sqlite:<path> uses SQLite, and an empty URL keeps everything in memory.
func New(ctx context.Context, databaseURL string) (Store, error) {
	url := strings.TrimSpace(databaseURL)
	switch {
	case url == "":
		return NewMemory(), nil
	case strings.HasPrefix(url, "sqlite:"):
		return NewSQLite(strings.TrimPrefix(strings.TrimPrefix(url, "sqlite:"), "//"))
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return NewPostgres(ctx, url)
	default:
		return nil, fmt.Errorf("unsupported database url scheme: %q", url)
	}
}

// Mode names the backend for health output.
func Mode(s Store) string {
	switch s.(type) {
	case *PostgresStore:
		return "postgres"
	case *SQLiteStore:
		return "sqlite"
	case *MemoryStore:
		return "memory"
	default:
		return "unknown"
	}
}

// EnsureUser finds the user by external id or creates it. The created row has
// its surrogate key populated before the caller references it as an owner.
func EnsureUser(ctx context.Context, tx Tx, externalID, displayName string) (*User, error) {
	user, err := tx.FindUserByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user != nil {
		return user, nil
	}
	user, err = tx.CreateUser(ctx, externalID, displayName)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
