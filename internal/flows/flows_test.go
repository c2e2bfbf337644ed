package flows

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/susu3304/bizbot/internal/db"
	"github.com/susu3304/bizbot/internal/logging"
	"github.com/susu3304/bizbot/internal/session"
	"github.com/susu3304/bizbot/internal/wizard"
)

type stubAdvisor struct{ problems []string }

func (s *stubAdvisor) MarketingAdvice(_ context.Context, problem string) string {
	s.problems = append(s.problems, problem)
	return "Post on social media daily."
}

var bob = wizard.Actor{ID: "100", Name: "bob", ChannelID: "c1"}

func setup(t *testing.T) (*Flows, *db.MemoryStore, *session.MemoryStore, *stubAdvisor) {
	t.Helper()
	store := db.NewMemory()
	sessions := session.NewMemoryStore()
	adv := &stubAdvisor{}
	return New(store, sessions, adv, logging.Nop()), store, sessions, adv
}

func advance(t *testing.T, w *wizard.Wizard, actor wizard.Actor, text string) wizard.Result {
	t.Helper()
	res, err := w.Advance(context.Background(), actor, text)
	require.NoError(t, err)
	return res
}

func TestTaskWizardHappyPath(t *testing.T) {
	f, store, sessions, _ := setup(t)

	f.Task.Start(bob)
	assert.Equal(t, wizard.Advanced, advance(t, f.Task, bob, "Call supplier").Outcome)
	res := advance(t, f.Task, bob, "18:00")
	assert.Equal(t, wizard.Committed, res.Outcome)
	assert.Contains(t, res.Reply, "Call supplier")
	assert.Contains(t, res.Reply, "18:00")

	_, active := sessions.Get(bob.ID)
	assert.False(t, active)

	user, err := store.FindUserByExternalID(context.Background(), bob.ID)
	require.NoError(t, err)
	require.NotNil(t, user)
	tasks, err := store.ListTasksByOwner(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Call supplier", tasks[0].Title)
	assert.Equal(t, "18:00", tasks[0].ScheduledTime)
	assert.Equal(t, db.TaskPending, tasks[0].Status)
}

func TestTaskTimeBoundary(t *testing.T) {
	f, store, sessions, _ := setup(t)

	f.Task.Start(bob)
	advance(t, f.Task, bob, "Long one")
	res := advance(t, f.Task, bob, strings.Repeat("x", 51))
	assert.Equal(t, wizard.Rejected, res.Outcome)
	st, _ := sessions.Get(bob.ID)
	assert.Equal(t, TaskAwaitingTime, st.Name)
	assert.Equal(t, 0, store.UserCount())

	res = advance(t, f.Task, bob, strings.Repeat("x", 50))
	assert.Equal(t, wizard.Committed, res.Outcome)
}

func TestOwnerCreatedOnce(t *testing.T) {
	f, store, _, _ := setup(t)

	for _, title := range []string{"one", "two"} {
		f.Task.Start(bob)
		advance(t, f.Task, bob, title)
		advance(t, f.Task, bob, "noon")
	}
	assert.Equal(t, 1, store.UserCount())

	user, err := store.FindUserByExternalID(context.Background(), bob.ID)
	require.NoError(t, err)
	tasks, err := store.ListTasksByOwner(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestDealWizardAmountAndStatus(t *testing.T) {
	f, store, _, _ := setup(t)
	ctx := context.Background()

	f.Deal.Start(bob)
	advance(t, f.Deal, bob, "Acme")

	res := advance(t, f.Deal, bob, "12a")
	assert.Equal(t, wizard.Rejected, res.Outcome)
	assert.NotEmpty(t, res.Reply)

	res = advance(t, f.Deal, bob, " 85000 ")
	assert.Equal(t, wizard.Advanced, res.Outcome)
	require.Len(t, res.Choices, 3)
	assert.Equal(t, "in_progress", res.Choices[1].Value)

	// Typed text on the status step does nothing.
	assert.Equal(t, wizard.Ignored, advance(t, f.Deal, bob, "closed").Outcome)

	res, err := f.Deal.Select(ctx, bob, "in_progress")
	require.NoError(t, err)
	assert.Equal(t, wizard.Committed, res.Outcome)

	user, err := store.FindUserByExternalID(ctx, bob.ID)
	require.NoError(t, err)
	deals, err := store.ListDealsByOwner(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, int64(85000), deals[0].Amount)
	assert.Equal(t, db.DealInProgress, deals[0].Status)
}

type failingTx struct{ db.Tx }

func (failingTx) CreateTask(context.Context, int64, string, string, db.TaskStatus) (*db.Task, error) {
	return nil, errors.New("disk full")
}

type failingStore struct{ *db.MemoryStore }

func (s failingStore) Update(ctx context.Context, fn func(db.Tx) error) error {
	return s.MemoryStore.Update(ctx, func(tx db.Tx) error { return fn(failingTx{tx}) })
}

func TestTaskCommitFailureIsAtomic(t *testing.T) {
	mem := db.NewMemory()
	sessions := session.NewMemoryStore()
	f := New(failingStore{mem}, sessions, &stubAdvisor{}, logging.Nop())

	f.Task.Start(bob)
	advance(t, f.Task, bob, "Doomed")
	res, err := f.Task.Advance(context.Background(), bob, "18:00")
	require.Error(t, err)
	assert.Equal(t, wizard.Failed, res.Outcome)

	assert.Equal(t, 0, mem.UserCount())
	_, active := sessions.Get(bob.ID)
	assert.False(t, active)
}

func TestMarketingWizard(t *testing.T) {
	f, store, _, adv := setup(t)

	res := f.Marketing.Start(bob)
	assert.Contains(t, res.Reply, "marketing")
	assert.Equal(t, wizard.Rejected, advance(t, f.Marketing, bob, " ").Outcome)

	res = advance(t, f.Marketing, bob, "How to sell more?")
	assert.Equal(t, wizard.Committed, res.Outcome)
	assert.Contains(t, res.Reply, "Post on social media daily.")
	assert.Equal(t, []string{"How to sell more?"}, adv.problems)
	assert.Equal(t, 0, store.UserCount())
}

func TestOwner(t *testing.T) {
	f, _, _, _ := setup(t)
	assert.Same(t, f.Deal, f.Owner(DealAwaitingStatus))
	assert.Same(t, f.Task, f.Owner(TaskAwaitingTitle))
	assert.Same(t, f.Marketing, f.Owner(MarketingAwaiting))
	assert.Nil(t, f.Owner("nope"))
}

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"0", 0, true},
		{"85000", 85000, true},
		{" 42 ", 42, true},
		{"-5", 0, false},
		{"1.5", 0, false},
		{"1 000", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := ValidateAmount(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestValidateTitle(t *testing.T) {
	_, err := ValidateTitle("   ")
	assert.Error(t, err)
	_, err = ValidateTitle(strings.Repeat("я", 256))
	assert.Error(t, err)
	v, err := ValidateTitle(strings.Repeat("я", 255))
	require.NoError(t, err)
	assert.Len(t, []rune(v.(string)), 255)
}
