// Package report summarizes a user's finished work.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/susu3304/bizbot/internal/db"
)

type Report struct {
	CompletedTasks  int64     `json:"completed_tasks"`
	ClosedDeals     int64     `json:"closed_deals"`
	ClosedDealTotal int64     `json:"closed_deal_total"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// Build reads the counts for one user. Unknown users get an all-zero report.
func Build(ctx context.Context, store db.Reader, ownerExternalID string, now time.Time) (Report, error) {
	r := Report{GeneratedAt: now}

	owner, err := store.FindUserByExternalID(ctx, ownerExternalID)
	if err != nil {
		return Report{}, fmt.Errorf("find owner: %w", err)
	}
	if owner == nil {
		return r, nil
	}

	r.CompletedTasks, err = store.CountCompletedTasks(ctx, owner.ID)
	if err != nil {
		return Report{}, fmt.Errorf("count completed tasks: %w", err)
	}
	r.ClosedDeals, r.ClosedDealTotal, err = store.SumClosedDeals(ctx, owner.ID)
	if err != nil {
		return Report{}, fmt.Errorf("sum closed deals: %w", err)
	}
	return r, nil
}

func (r Report) String() string {
	return fmt.Sprintf("📊 Report as of %s\n\n✅ Tasks completed: %d\n💼 Deals closed: %d\n💰 Total amount: %d",
		r.GeneratedAt.Format("02.01.2006 15:04"), r.CompletedTasks, r.ClosedDeals, r.ClosedDealTotal)
}
