// Package listing renders a user's tasks or deals with per-entity buttons and
// applies the actions those buttons carry.
package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/susu3304/bizbot/internal/action"
	"github.com/susu3304/bizbot/internal/db"
	"github.com/susu3304/bizbot/internal/observability"
	"github.com/susu3304/bizbot/internal/wizard"
)

type Kind string

const (
	Tasks Kind = "tasks"
	Deals Kind = "deals"
)

const (
	NoTasks = "You have no tasks yet."
	NoDeals = "You have no deals yet."
)

// Entry is one rendered entity.
type Entry struct {
	ID      int64
	Text    string
	Buttons []action.Button
}

// View is a rendered list. Empty views carry only Text.
type View struct {
	Kind    Kind
	Text    string
	Entries []Entry
}

func (v View) Empty() bool { return len(v.Entries) == 0 }

type Dispatcher struct {
	store   db.Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

func New(store db.Store, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{store: store, logger: logger, metrics: metrics}
}

// Render lists the owner's entities, unfinished ones first. Store order is kept
// inside each group.
func (d *Dispatcher) Render(ctx context.Context, ownerExternalID string, kind Kind) (View, error) {
	switch kind {
	case Tasks:
		tasks, err := SortedTasks(ctx, d.store, ownerExternalID)
		if err != nil {
			return View{}, err
		}
		if len(tasks) == 0 {
			return View{Kind: kind, Text: NoTasks}, nil
		}
		view := View{Kind: kind, Text: "📋 Your tasks:"}
		for _, t := range tasks {
			view.Entries = append(view.Entries, taskEntry(t))
		}
		return view, nil
	case Deals:
		deals, err := SortedDeals(ctx, d.store, ownerExternalID)
		if err != nil {
			return View{}, err
		}
		if len(deals) == 0 {
			return View{Kind: kind, Text: NoDeals}, nil
		}
		view := View{Kind: kind, Text: "💼 Your deals:"}
		for _, deal := range deals {
			view.Entries = append(view.Entries, dealEntry(deal))
		}
		return view, nil
	default:
		return View{}, fmt.Errorf("unknown list kind %q", kind)
	}
}

// SortedTasks returns the owner's tasks with pending ones first.
func SortedTasks(ctx context.Context, store db.Reader, ownerExternalID string) ([]db.Task, error) {
	owner, err := store.FindUserByExternalID(ctx, ownerExternalID)
	if err != nil {
		return nil, fmt.Errorf("find owner: %w", err)
	}
	if owner == nil {
		return nil, nil
	}
	tasks, err := store.ListTasksByOwner(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return !tasks[i].Status.Terminal() && tasks[j].Status.Terminal()
	})
	return tasks, nil
}

// SortedDeals returns the owner's deals with closed ones last.
func SortedDeals(ctx context.Context, store db.Reader, ownerExternalID string) ([]db.Deal, error) {
	owner, err := store.FindUserByExternalID(ctx, ownerExternalID)
	if err != nil {
		return nil, fmt.Errorf("find owner: %w", err)
	}
	if owner == nil {
		return nil, nil
	}
	deals, err := store.ListDealsByOwner(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	sort.SliceStable(deals, func(i, j int) bool {
		return !deals[i].Status.Terminal() && deals[j].Status.Terminal()
	})
	return deals, nil
}

func taskEntry(t db.Task) Entry {
	mark := "⏳"
	toggle := "✅ Done"
	if t.Status.Terminal() {
		mark = "✅"
		toggle = "↩️ Reopen"
	}
	return Entry{
		ID:   t.ID,
		Text: fmt.Sprintf("%s %s (%s) | %s", mark, t.Title, t.ScheduledTime, t.Status.Label()),
		Buttons: []action.Button{
			{Label: toggle, Token: action.New(action.TaskToggle, t.ID)},
			{Label: "🗑 Delete", Token: action.New(action.TaskDelete, t.ID)},
		},
	}
}

func dealEntry(d db.Deal) Entry {
	mark := "💼"
	if d.Status.Terminal() {
		mark = "🔒"
	}
	return Entry{
		ID:   d.ID,
		Text: fmt.Sprintf("%s %s | %d | %s", mark, d.Title, d.Amount, d.Status.Label()),
		Buttons: []action.Button{
			{Label: "🔄 Status", Token: action.New(action.DealMenu, d.ID)},
			{Label: "🗑 Delete", Token: action.New(action.DealDelete, d.ID)},
		},
	}
}

// Outcome is what the transport shows after an action.
type Outcome struct {
	// Text is posted as a normal reply. Alert is shown only to the clicker.
	Text  string
	Alert string
	// Menu holds follow-up buttons, such as the deal status options.
	Menu     []action.Button
	NotFound bool
	// Refresh names the list that changed and should be re-rendered.
	Refresh Kind
}

var errNotOwner = errors.New("entity belongs to another user")

// Apply performs one action token on behalf of actor. Each mutation runs in
// its own transaction. Entities owned by someone else look missing.
func (d *Dispatcher) Apply(ctx context.Context, actor wizard.Actor, tok action.Token) (Outcome, error) {
	out, err := d.apply(ctx, actor, tok)
	switch {
	case errors.Is(err, db.ErrNotFound), errors.Is(err, errNotOwner):
		d.metrics.Action(string(tok.Kind), "not_found")
		d.logger.Info("action on missing entity", "user", actor.ID, "token", tok.String())
		return Outcome{NotFound: true, Alert: "That item no longer exists."}, nil
	case err != nil:
		d.metrics.Action(string(tok.Kind), "error")
		return Outcome{}, err
	}
	d.metrics.Action(string(tok.Kind), "ok")
	return out, nil
}

func (d *Dispatcher) apply(ctx context.Context, actor wizard.Actor, tok action.Token) (Outcome, error) {
	switch tok.Kind {
	case action.TaskToggle:
		var next db.TaskStatus
		var title string
		err := d.store.Update(ctx, func(tx db.Tx) error {
			task, err := tx.GetTask(ctx, tok.ID)
			if err != nil {
				return err
			}
			if err := d.checkOwner(ctx, tx, actor, task.UserID); err != nil {
				return err
			}
			next, title = task.Status.Toggle(), task.Title
			return tx.SetTaskStatus(ctx, task.ID, next)
		})
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Alert: fmt.Sprintf("%q is now %s.", title, next.Label()), Refresh: Tasks}, nil

	case action.TaskDelete:
		err := d.store.Update(ctx, func(tx db.Tx) error {
			task, err := tx.GetTask(ctx, tok.ID)
			if errors.Is(err, db.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := d.checkOwner(ctx, tx, actor, task.UserID); err != nil {
				return err
			}
			return tx.DeleteTask(ctx, task.ID)
		})
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Alert: "Task deleted.", Refresh: Tasks}, nil

	case action.DealMenu:
		deal, err := d.store.GetDeal(ctx, tok.ID)
		if err != nil {
			return Outcome{}, err
		}
		if err := d.checkOwner(ctx, d.store, actor, deal.UserID); err != nil {
			return Outcome{}, err
		}
		menu := make([]action.Button, 0, len(db.DealStatuses))
		for _, st := range db.DealStatuses {
			menu = append(menu, action.Button{
				Label: st.Label(),
				Token: action.WithValue(action.DealSet, deal.ID, string(st)),
			})
		}
		return Outcome{Text: fmt.Sprintf("Choose a new status for %q:", deal.Title), Menu: menu}, nil

	case action.DealSet:
		status, ok := db.ParseDealStatus(tok.Value)
		if !ok {
			return Outcome{}, fmt.Errorf("%w: unknown deal status %q", action.ErrMalformedToken, tok.Value)
		}
		var title string
		err := d.store.Update(ctx, func(tx db.Tx) error {
			deal, err := tx.GetDeal(ctx, tok.ID)
			if err != nil {
				return err
			}
			if err := d.checkOwner(ctx, tx, actor, deal.UserID); err != nil {
				return err
			}
			title = deal.Title
			return tx.SetDealStatus(ctx, deal.ID, status)
		})
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Alert: fmt.Sprintf("%q is now %s.", title, status.Label()), Refresh: Deals}, nil

	case action.DealDelete:
		err := d.store.Update(ctx, func(tx db.Tx) error {
			deal, err := tx.GetDeal(ctx, tok.ID)
			if errors.Is(err, db.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := d.checkOwner(ctx, tx, actor, deal.UserID); err != nil {
				return err
			}
			return tx.DeleteDeal(ctx, deal.ID)
		})
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Alert: "Deal deleted.", Refresh: Deals}, nil

	default:
		return Outcome{}, fmt.Errorf("%w: %s is not a list action", action.ErrMalformedToken, tok.Kind)
	}
}

type userFinder interface {
	FindUserByExternalID(ctx context.Context, externalID string) (*db.User, error)
}

func (d *Dispatcher) checkOwner(ctx context.Context, q userFinder, actor wizard.Actor, ownerID int64) error {
	user, err := q.FindUserByExternalID(ctx, actor.ID)
	if err != nil {
		return fmt.Errorf("find actor: %w", err)
	}
	if user == nil || user.ID != ownerID {
		return errNotOwner
	}
	return nil
}
