package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLite(filepath.Join(t.TempDir(), "bizbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })
	require.NoError(t, sqlite.Migrate(context.Background()))

	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestStore_EnsureUserCreatesOnce(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var first, second *User
			require.NoError(t, store.Update(ctx, func(tx Tx) error {
				var err error
				first, err = EnsureUser(ctx, tx, "42", "alice")
				return err
			}))
			require.NoError(t, store.Update(ctx, func(tx Tx) error {
				var err error
				second, err = EnsureUser(ctx, tx, "42", "alice")
				return err
			}))

			assert.NotZero(t, first.ID)
			assert.Equal(t, first.ID, second.ID)

			found, err := store.FindUserByExternalID(ctx, "42")
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, "alice", found.DisplayName)

			missing, err := store.FindUserByExternalID(ctx, "43")
			require.NoError(t, err)
			assert.Nil(t, missing)
		})
	}
}

func TestStore_UpdateRollsBackOnError(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			boom := errors.New("boom")
			err := store.Update(ctx, func(tx Tx) error {
				user, err := EnsureUser(ctx, tx, "7", "bob")
				if err != nil {
					return err
				}
				if _, err := tx.CreateTask(ctx, user.ID, "call", "18:00", TaskPending); err != nil {
					return err
				}
				return boom
			})
			require.ErrorIs(t, err, boom)

			user, err := store.FindUserByExternalID(ctx, "7")
			require.NoError(t, err)
			assert.Nil(t, user, "user insert must roll back with the task")
		})
	}
}

func TestStore_TaskLifecycle(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var owner *User
			var ids []int64
			require.NoError(t, store.Update(ctx, func(tx Tx) error {
				var err error
				owner, err = EnsureUser(ctx, tx, "1", "owner")
				if err != nil {
					return err
				}
				for _, title := range []string{"a", "b", "c"} {
					task, err := tx.CreateTask(ctx, owner.ID, title, "noon", TaskPending)
					if err != nil {
						return err
					}
					ids = append(ids, task.ID)
				}
				return nil
			}))

			require.NoError(t, store.Update(ctx, func(tx Tx) error {
				return tx.SetTaskStatus(ctx, ids[0], TaskDone)
			}))
			require.NoError(t, store.Update(ctx, func(tx Tx) error {
				return tx.DeleteTask(ctx, ids[1])
			}))
			// Deleting a missing row is a no-op.
			require.NoError(t, store.Update(ctx, func(tx Tx) error {
				return tx.DeleteTask(ctx, ids[1])
			}))

			err := store.Update(ctx, func(tx Tx) error {
				return tx.SetTaskStatus(ctx, ids[1], TaskDone)
			})
			assert.ErrorIs(t, err, ErrNotFound)

			tasks, err := store.ListTasksByOwner(ctx, owner.ID)
			require.NoError(t, err)
			require.Len(t, tasks, 2)
			assert.Equal(t, "a", tasks[0].Title)
			assert.Equal(t, TaskDone, tasks[0].Status)
			assert.Equal(t, "c", tasks[1].Title)

			n, err := store.CountCompletedTasks(ctx, owner.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			_, err = store.GetTask(ctx, ids[1])
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_DealsAndSums(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var owner *User
			require.NoError(t, store.Update(ctx, func(tx Tx) error {
				var err error
				owner, err = EnsureUser(ctx, tx, "9", "")
				if err != nil {
					return err
				}
				for _, d := range []struct {
					amount int64
					status DealStatus
				}{{100, DealClosed}, {250, DealClosed}, {999, DealOpen}} {
					if _, err := tx.CreateDeal(ctx, owner.ID, "deal", d.amount, d.status); err != nil {
						return err
					}
				}
				return nil
			}))

			count, total, err := store.SumClosedDeals(ctx, owner.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)
			assert.Equal(t, int64(350), total)

			deals, err := store.ListDealsByOwner(ctx, owner.ID)
			require.NoError(t, err)
			require.Len(t, deals, 3)
			require.NoError(t, store.Update(ctx, func(tx Tx) error {
				return tx.SetDealStatus(ctx, deals[2].ID, DealInProgress)
			}))
			got, err := store.GetDeal(ctx, deals[2].ID)
			require.NoError(t, err)
			assert.Equal(t, DealInProgress, got.Status)
		})
	}
}

func TestNew_PicksBackend(t *testing.T) {
	store, err := New(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "memory", Mode(store))

	store, err = New(context.Background(), "sqlite:"+filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, "sqlite", Mode(store))

	_, err = New(context.Background(), "mysql://nope")
	assert.Error(t, err)
}

func TestDealStatusParsing(t *testing.T) {
	st, ok := ParseDealStatus("in_progress")
	assert.True(t, ok)
	assert.Equal(t, DealInProgress, st)
	_, ok = ParseDealStatus("lost")
	assert.False(t, ok)

	assert.True(t, DealClosed.Terminal())
	assert.False(t, DealInProgress.Terminal())
	assert.Equal(t, TaskDone, TaskPending.Toggle())
	assert.Equal(t, TaskPending, TaskDone.Toggle())
}
