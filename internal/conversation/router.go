package conversation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/susu3304/bizbot/internal/action"
	"github.com/susu3304/bizbot/internal/commands"
	"github.com/susu3304/bizbot/internal/db"
	"github.com/susu3304/bizbot/internal/flows"
	"github.com/susu3304/bizbot/internal/listing"
	"github.com/susu3304/bizbot/internal/observability"
	"github.com/susu3304/bizbot/internal/report"
	"github.com/susu3304/bizbot/internal/session"
	"github.com/susu3304/bizbot/internal/wizard"
)

const (
	welcomeText  = "Hi! I'm your sales and marketing assistant.\nChoose an action 👇"
	menuHint     = "Choose an action from the menu 👇"
	cancelText   = "Cancelled. Back to the main menu."
	failureText  = "Something went wrong. Please try again."
	expiredText  = "This choice is no longer active. Start again from the menu."
	useButtons   = "Please pick one of the options using the buttons."
	motivationPx = "⚡ "
)

type Motivator interface {
	Motivation(ctx context.Context) string
}

type Router struct {
	store    db.Store
	sessions *session.MemoryStore
	flows    *flows.Flows
	lists    *listing.Dispatcher
	advisor  Motivator
	locks    *session.KeyedMutex
	logger   *slog.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

type Deps struct {
	Store    db.Store
	Sessions *session.MemoryStore
	Flows    *flows.Flows
	Lists    *listing.Dispatcher
	Advisor  Motivator
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

func NewRouter(d Deps) *Router {
	return &Router{
		store:    d.Store,
		sessions: d.Sessions,
		flows:    d.Flows,
		lists:    d.Lists,
		advisor:  d.Advisor,
		locks:    session.NewKeyedMutex(),
		logger:   d.Logger,
		metrics:  d.Metrics,
		now:      time.Now,
	}
}

// Handle processes one event. Events from the same user are handled one at a
// time. Failures are logged and turned into a generic reply.
func (r *Router) Handle(ctx context.Context, ev Event) []Reply {
	unlock := r.locks.Lock(ev.Actor.ID)
	defer unlock()

	r.metrics.Event(ev.Kind.String())
	logger := r.logger.With("event", ev.ID, "user", ev.Actor.ID, "kind", ev.Kind.String())

	replies, err := r.route(ctx, ev, logger)
	r.metrics.SetActiveWizards(r.sessions.Len())
	if err != nil {
		logger.Error("event failed", "error", err)
		return []Reply{{Text: failureText, Ephemeral: ev.Kind == KindAction}}
	}
	return replies
}

func (r *Router) route(ctx context.Context, ev Event, logger *slog.Logger) ([]Reply, error) {
	switch ev.Kind {
	case KindCommand, KindButton:
		return r.intent(ctx, ev.Actor, ev.Intent, logger)
	case KindText:
		return r.text(ctx, ev.Actor, ev.Text)
	case KindAction:
		return r.action(ctx, ev.Actor, ev.Token)
	default:
		logger.Warn("unhandled event kind")
		return nil, nil
	}
}

func (r *Router) intent(ctx context.Context, actor wizard.Actor, intent commands.Intent, logger *slog.Logger) ([]Reply, error) {
	logger.Debug("intent", "intent", string(intent))
	switch intent {
	case commands.Start:
		return one(Reply{Text: welcomeText, Menu: true}), nil
	case commands.AddTask:
		return r.start(r.flows.Task, actor), nil
	case commands.AddDeal:
		return r.start(r.flows.Deal, actor), nil
	case commands.Marketing:
		return r.start(r.flows.Marketing, actor), nil
	case commands.Tasks:
		return r.list(ctx, actor, listing.Tasks)
	case commands.Deals:
		return r.list(ctx, actor, listing.Deals)
	case commands.Motivation:
		return one(Reply{Text: motivationPx + r.advisor.Motivation(ctx)}), nil
	case commands.Report:
		rep, err := report.Build(ctx, r.store, actor.ID, r.now())
		if err != nil {
			return nil, err
		}
		logger.Info("report sent")
		return one(Reply{Text: rep.String()}), nil
	case commands.Cancel:
		wizard.Cancel(r.sessions, actor.ID)
		return one(Reply{Text: cancelText, Menu: true}), nil
	case commands.Help:
		return one(Reply{Text: commands.HelpText()}), nil
	default:
		return one(Reply{Text: menuHint, Menu: true}), nil
	}
}

func (r *Router) start(w *wizard.Wizard, actor wizard.Actor) []Reply {
	res := w.Start(actor)
	r.metrics.WizardStep(w.Name(), "started")
	return one(wizardReply(res))
}

func (r *Router) list(ctx context.Context, actor wizard.Actor, kind listing.Kind) ([]Reply, error) {
	view, err := r.lists.Render(ctx, actor.ID, kind)
	if err != nil {
		return nil, err
	}
	if view.Empty() {
		return one(Reply{Text: view.Text}), nil
	}
	return one(Reply{Text: view.Text, List: &view}), nil
}

func (r *Router) text(ctx context.Context, actor wizard.Actor, text string) ([]Reply, error) {
	st, ok := r.sessions.Get(actor.ID)
	if !ok {
		return one(Reply{Text: menuHint, Menu: true}), nil
	}
	w := r.flows.Owner(st.Name)
	if w == nil {
		wizard.Cancel(r.sessions, actor.ID)
		return one(Reply{Text: menuHint, Menu: true}), nil
	}

	res, err := w.Advance(ctx, actor, text)
	r.metrics.WizardStep(w.Name(), res.Outcome.String())
	if err != nil {
		return nil, err
	}
	if res.Outcome == wizard.Ignored {
		cur, ok := w.Current(actor.ID)
		if !ok {
			return one(Reply{Text: menuHint, Menu: true}), nil
		}
		reply := wizardReply(cur)
		reply.Text = useButtons
		return one(reply), nil
	}
	return one(wizardReply(res)), nil
}

func (r *Router) action(ctx context.Context, actor wizard.Actor, tok action.Token) ([]Reply, error) {
	if tok.Kind == action.DealPick {
		return r.pick(ctx, actor, tok.Value)
	}

	out, err := r.lists.Apply(ctx, actor, tok)
	if errors.Is(err, action.ErrMalformedToken) {
		return one(Reply{Text: expiredText, Ephemeral: true}), nil
	}
	if err != nil {
		return nil, err
	}

	var replies []Reply
	if out.Alert != "" {
		replies = append(replies, Reply{Text: out.Alert, Ephemeral: true})
	}
	if out.Text != "" || len(out.Menu) > 0 {
		replies = append(replies, Reply{Text: out.Text, Buttons: out.Menu})
	}
	if out.Refresh != "" {
		more, err := r.list(ctx, actor, out.Refresh)
		if err != nil {
			return nil, err
		}
		replies = append(replies, more...)
	}
	return replies, nil
}

func (r *Router) pick(ctx context.Context, actor wizard.Actor, value string) ([]Reply, error) {
	st, ok := r.sessions.Get(actor.ID)
	var w *wizard.Wizard
	if ok {
		w = r.flows.Owner(st.Name)
	}
	if w == nil {
		return one(Reply{Text: expiredText, Ephemeral: true}), nil
	}

	res, err := w.Select(ctx, actor, value)
	r.metrics.WizardStep(w.Name(), res.Outcome.String())
	if err != nil {
		return nil, err
	}
	if res.Outcome == wizard.Ignored {
		return one(Reply{Text: expiredText, Ephemeral: true}), nil
	}
	return one(wizardReply(res)), nil
}

func wizardReply(res wizard.Result) Reply {
	reply := Reply{Text: res.Reply, Menu: res.Outcome == wizard.Committed}
	for _, c := range res.Choices {
		reply.Buttons = append(reply.Buttons, action.Button{
			Label: c.Label,
			Token: action.WithValue(action.DealPick, 0, c.Value),
		})
	}
	return reply
}

func one(r Reply) []Reply { return []Reply{r} }
