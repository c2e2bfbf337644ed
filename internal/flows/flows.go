// Package flows defines the task, deal and marketing wizards and the
// procedures that run when each one completes.
package flows

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/susu3304/bizbot/internal/db"
	"github.com/susu3304/bizbot/internal/session"
	"github.com/susu3304/bizbot/internal/wizard"
)

const (
	TaskAwaitingTitle  = "task.awaiting_title"
	TaskAwaitingTime   = "task.awaiting_time"
	DealAwaitingTitle  = "deal.awaiting_title"
	DealAwaitingAmount = "deal.awaiting_amount"
	DealAwaitingStatus = "deal.awaiting_status"
	MarketingAwaiting  = "marketing.awaiting_problem"
)

type Advisor interface {
	MarketingAdvice(ctx context.Context, problem string) string
}

type Flows struct {
	Task      *wizard.Wizard
	Deal      *wizard.Wizard
	Marketing *wizard.Wizard

	store   db.Store
	advisor Advisor
	logger  *slog.Logger
}

func New(store db.Store, sessions session.Store, advisor Advisor, logger *slog.Logger) *Flows {
	f := &Flows{store: store, advisor: advisor, logger: logger}

	f.Task = wizard.New("task", sessions, f.commitTask,
		wizard.Step{
			State:    TaskAwaitingTitle,
			Prompt:   "Enter the task title (for example: Prepare the proposal):",
			Field:    "title",
			Validate: ValidateTitle,
			Next:     TaskAwaitingTime,
		},
		wizard.Step{
			State:    TaskAwaitingTime,
			Prompt:   "When is it due? (for example: 18:00)",
			Field:    "time",
			Validate: ValidateTime,
			Next:     wizard.Commit,
		},
	)

	f.Deal = wizard.New("deal", sessions, f.commitDeal,
		wizard.Step{
			State:    DealAwaitingTitle,
			Prompt:   "Enter the deal title (for example: Deal with Acme Ltd):",
			Field:    "title",
			Validate: ValidateTitle,
			Next:     DealAwaitingAmount,
		},
		wizard.Step{
			State:    DealAwaitingAmount,
			Prompt:   "Enter the deal amount (for example: 85000):",
			Field:    "amount",
			Validate: ValidateAmount,
			Next:     DealAwaitingStatus,
		},
		wizard.Step{
			State:   DealAwaitingStatus,
			Prompt:  "Choose the deal status:",
			Field:   "status",
			Choices: dealStatusChoices(),
			Next:    wizard.Commit,
		},
	)

	f.Marketing = wizard.New("marketing", sessions, f.commitMarketing,
		wizard.Step{
			State:    MarketingAwaiting,
			Prompt:   "Briefly describe your marketing task or problem, for example:\n\"How do I increase sales in summer?\"",
			Field:    "problem",
			Validate: ValidateProblem,
			Next:     wizard.Commit,
		},
	)
	return f
}

// All lists every wizard.
func (f *Flows) All() []*wizard.Wizard {
	return []*wizard.Wizard{f.Task, f.Deal, f.Marketing}
}

// Owner returns the wizard that owns state, or nil.
func (f *Flows) Owner(state string) *wizard.Wizard {
	for _, w := range f.All() {
		if w.Owns(state) {
			return w
		}
	}
	return nil
}

func dealStatusChoices() []wizard.Choice {
	choices := make([]wizard.Choice, 0, len(db.DealStatuses))
	for _, st := range db.DealStatuses {
		choices = append(choices, wizard.Choice{Label: st.Label(), Value: string(st)})
	}
	return choices
}

func (f *Flows) commitTask(ctx context.Context, actor wizard.Actor, fields map[string]any) (string, error) {
	title, ok1 := fields["title"].(string)
	when, ok2 := fields["time"].(string)
	if !ok1 || !ok2 {
		return "", fmt.Errorf("task fields incomplete: %v", fields)
	}

	var task *db.Task
	err := f.store.Update(ctx, func(tx db.Tx) error {
		owner, err := db.EnsureUser(ctx, tx, actor.ID, actor.Name)
		if err != nil {
			return err
		}
		task, err = tx.CreateTask(ctx, owner.ID, title, when, db.TaskPending)
		if err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	f.logger.Info("task created", "user", actor.ID, "task_id", task.ID, "title", title, "time", when)
	return fmt.Sprintf("✅ Task saved:\n• %s\n• Time: %s", title, when), nil
}

func (f *Flows) commitDeal(ctx context.Context, actor wizard.Actor, fields map[string]any) (string, error) {
	title, ok1 := fields["title"].(string)
	amount, ok2 := fields["amount"].(int64)
	raw, ok3 := fields["status"].(string)
	status, ok4 := db.ParseDealStatus(raw)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return "", fmt.Errorf("deal fields incomplete: %v", fields)
	}

	var deal *db.Deal
	err := f.store.Update(ctx, func(tx db.Tx) error {
		owner, err := db.EnsureUser(ctx, tx, actor.ID, actor.Name)
		if err != nil {
			return err
		}
		deal, err = tx.CreateDeal(ctx, owner.ID, title, amount, status)
		if err != nil {
			return fmt.Errorf("create deal: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	f.logger.Info("deal created", "user", actor.ID, "deal_id", deal.ID, "amount", amount, "status", status)
	return fmt.Sprintf("✅ Deal saved:\n• %s\n• Amount: %d\n• Status: %s", title, amount, status.Label()), nil
}

func (f *Flows) commitMarketing(ctx context.Context, _ wizard.Actor, fields map[string]any) (string, error) {
	problem, ok := fields["problem"].(string)
	if !ok {
		return "", fmt.Errorf("marketing fields incomplete: %v", fields)
	}
	advice := f.advisor.MarketingAdvice(ctx, problem)
	return "💡 Marketing advice:\n\n" + advice, nil
}
