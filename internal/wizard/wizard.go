// Package wizard drives multi-step data entry from a static step table. Each
// step owns one session state, collects one field and names the step after it.
package wizard

import (
	"context"
	"fmt"

	"github.com/susu3304/bizbot/internal/session"
)

// Commit is the Next value of the final step.
const Commit = "commit"

// Actor identifies who sent an event and where replies go.
type Actor struct {
	ID        string
	Name      string
	ChannelID string
}

type Outcome int

const (
	// Ignored means the event did not belong to this wizard. Nothing changed.
	Ignored Outcome = iota
	Rejected
	Advanced
	Committed
	// Failed means the commit procedure returned an error. The session is
	// cleared all the same.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Rejected:
		return "rejected"
	case Advanced:
		return "advanced"
	case Committed:
		return "committed"
	case Failed:
		return "failed"
	default:
		return "ignored"
	}
}

type Choice struct {
	Label string
	Value string
}

// Rejection is returned by validators. Its text is shown to the user.
type Rejection string

func (r Rejection) Error() string { return string(r) }

// Step is one row of a wizard table. A step either validates free text or
// offers Choices that are answered through Select.
type Step struct {
	State    string
	Prompt   string
	Field    string
	Validate func(raw string) (any, error)
	Choices  []Choice
	Next     string
}

func (s Step) choiceDriven() bool { return len(s.Choices) > 0 }

type Result struct {
	Outcome Outcome
	Reply   string
	Choices []Choice
}

// CommitFunc persists the collected fields and returns the confirmation text.
type CommitFunc func(ctx context.Context, actor Actor, fields map[string]any) (string, error)

type Wizard struct {
	name   string
	steps  []Step
	index  map[string]int
	store  session.Store
	commit CommitFunc
}

// New builds a wizard. Step tables are static, so a malformed table panics.
func New(name string, store session.Store, commit CommitFunc, steps ...Step) *Wizard {
	if len(steps) == 0 {
		panic(fmt.Sprintf("wizard %s: no steps", name))
	}
	index := make(map[string]int, len(steps))
	for i, st := range steps {
		if _, dup := index[st.State]; dup {
			panic(fmt.Sprintf("wizard %s: duplicate state %q", name, st.State))
		}
		if st.Validate == nil && !st.choiceDriven() {
			panic(fmt.Sprintf("wizard %s: step %q has neither validator nor choices", name, st.State))
		}
		index[st.State] = i
	}
	for _, st := range steps {
		if _, ok := index[st.Next]; !ok && st.Next != Commit {
			panic(fmt.Sprintf("wizard %s: step %q points at unknown state %q", name, st.State, st.Next))
		}
	}
	return &Wizard{name: name, steps: steps, index: index, store: store, commit: commit}
}

func (w *Wizard) Name() string { return w.name }

// Owns reports whether state is one of this wizard's steps.
func (w *Wizard) Owns(state string) bool {
	_, ok := w.index[state]
	return ok
}

// Start discards whatever the user was doing and enters the first step.
func (w *Wizard) Start(actor Actor) Result {
	first := w.steps[0]
	w.store.Set(actor.ID, session.State{
		Name:      first.State,
		Fields:    map[string]any{},
		ChannelID: actor.ChannelID,
	})
	return prompt(first)
}

// Current re-renders the prompt of the step the user is on.
func (w *Wizard) Current(userID string) (Result, bool) {
	st, ok := w.store.Get(userID)
	if !ok {
		return Result{}, false
	}
	i, ok := w.index[st.Name]
	if !ok {
		return Result{}, false
	}
	return prompt(w.steps[i]), true
}

// Advance feeds free text to the current step.
func (w *Wizard) Advance(ctx context.Context, actor Actor, raw string) (Result, error) {
	st, step, ok := w.current(actor.ID)
	if !ok || step.choiceDriven() {
		return Result{Outcome: Ignored}, nil
	}
	value, err := step.Validate(raw)
	if err != nil {
		return Result{Outcome: Rejected, Reply: err.Error()}, nil
	}
	return w.accept(ctx, actor, st, step, value)
}

// Select answers a choice-driven step.
func (w *Wizard) Select(ctx context.Context, actor Actor, value string) (Result, error) {
	st, step, ok := w.current(actor.ID)
	if !ok || !step.choiceDriven() {
		return Result{Outcome: Ignored}, nil
	}
	for _, c := range step.Choices {
		if c.Value == value {
			return w.accept(ctx, actor, st, step, value)
		}
	}
	res := prompt(step)
	res.Outcome = Rejected
	return res, nil
}

// Cancel clears any wizard the user is in. Calling it twice is harmless.
func Cancel(store session.Store, userID string) {
	store.Clear(userID)
}

func (w *Wizard) current(userID string) (session.State, Step, bool) {
	st, ok := w.store.Get(userID)
	if !ok {
		return session.State{}, Step{}, false
	}
	i, ok := w.index[st.Name]
	if !ok {
		return session.State{}, Step{}, false
	}
	return st, w.steps[i], true
}

func (w *Wizard) accept(ctx context.Context, actor Actor, st session.State, step Step, value any) (Result, error) {
	st.Fields[step.Field] = value

	if step.Next != Commit {
		st.Name = step.Next
		if actor.ChannelID != "" {
			st.ChannelID = actor.ChannelID
		}
		w.store.Set(actor.ID, st)
		return prompt(w.steps[w.index[step.Next]]), nil
	}

	defer w.store.Clear(actor.ID)
	reply, err := w.commit(ctx, actor, st.Fields)
	if err != nil {
		return Result{Outcome: Failed}, fmt.Errorf("%s commit: %w", w.name, err)
	}
	return Result{Outcome: Committed, Reply: reply}, nil
}

func prompt(step Step) Result {
	return Result{Outcome: Advanced, Reply: step.Prompt, Choices: step.Choices}
}
