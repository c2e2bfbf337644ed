package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/susu3304/bizbot/internal/db"
)

func TestBuild(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemory()
	require.NoError(t, store.Update(ctx, func(tx db.Tx) error {
		owner, err := db.EnsureUser(ctx, tx, "500", "erin")
		if err != nil {
			return err
		}
		for _, st := range []db.TaskStatus{db.TaskDone, db.TaskDone, db.TaskPending} {
			if _, err := tx.CreateTask(ctx, owner.ID, "t", "x", st); err != nil {
				return err
			}
		}
		for _, d := range []struct {
			amount int64
			status db.DealStatus
		}{{100, db.DealClosed}, {250, db.DealClosed}, {999, db.DealOpen}} {
			if _, err := tx.CreateDeal(ctx, owner.ID, "d", d.amount, d.status); err != nil {
				return err
			}
		}
		return nil
	}))

	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	r, err := Build(ctx, store, "500", now)
	require.NoError(t, err)
	assert.Equal(t, Report{CompletedTasks: 2, ClosedDeals: 2, ClosedDealTotal: 350, GeneratedAt: now}, r)

	text := r.String()
	assert.Contains(t, text, "01.05.2024 09:30")
	assert.Contains(t, text, "Tasks completed: 2")
	assert.Contains(t, text, "Total amount: 350")
}

func TestBuildUnknownOwner(t *testing.T) {
	now := time.Now()
	r, err := Build(context.Background(), db.NewMemory(), "ghost", now)
	require.NoError(t, err)
	assert.Equal(t, Report{GeneratedAt: now}, r)
}
