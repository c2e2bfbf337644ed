package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/susu3304/bizbot/internal/action"
	"github.com/susu3304/bizbot/internal/commands"
	"github.com/susu3304/bizbot/internal/db"
	"github.com/susu3304/bizbot/internal/flows"
	"github.com/susu3304/bizbot/internal/listing"
	"github.com/susu3304/bizbot/internal/logging"
	"github.com/susu3304/bizbot/internal/observability"
	"github.com/susu3304/bizbot/internal/session"
	"github.com/susu3304/bizbot/internal/wizard"
)

type stubAdvisor struct{}

func (stubAdvisor) MarketingAdvice(context.Context, string) string { return "Try email campaigns." }

func (stubAdvisor) Motivation(context.Context) string { return "Keep going!" }

type harness struct {
	router   *Router
	store    db.Store
	sessions *session.MemoryStore
	metrics  *observability.Metrics
}

func newHarness(t *testing.T, store db.Store) *harness {
	t.Helper()
	sessions := session.NewMemoryStore()
	logger := logging.Nop()
	metrics := observability.NewMetrics("test")
	r := NewRouter(Deps{
		Store:    store,
		Sessions: sessions,
		Flows:    flows.New(store, sessions, stubAdvisor{}, logger),
		Lists:    listing.New(store, logger, metrics),
		Advisor:  stubAdvisor{},
		Logger:   logger,
		Metrics:  metrics,
	})
	return &harness{router: r, store: store, sessions: sessions, metrics: metrics}
}

var frank = wizard.Actor{ID: "700", Name: "frank", ChannelID: "chan"}

func (h *harness) send(ev Event) []Reply {
	return h.router.Handle(context.Background(), ev)
}

func TestTaskFlowThroughRouter(t *testing.T) {
	h := newHarness(t, db.NewMemory())

	replies := h.send(Command(frank, commands.AddTask))
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "task title")

	h.send(Text(frank, "Send invoice"))
	replies = h.send(Text(frank, "17:30"))
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "Task saved")
	assert.True(t, replies[0].Menu)

	replies = h.send(Button(frank, commands.Tasks))
	require.Len(t, replies, 1)
	require.NotNil(t, replies[0].List)
	require.Len(t, replies[0].List.Entries, 1)
	assert.Contains(t, replies[0].List.Entries[0].Text, "Send invoice")
}

func TestDealFlowWithPick(t *testing.T) {
	h := newHarness(t, db.NewMemory())

	h.send(Button(frank, commands.AddDeal))
	h.send(Text(frank, "Acme"))
	replies := h.send(Text(frank, "abc"))
	assert.Contains(t, replies[0].Text, "whole number")

	replies = h.send(Text(frank, "1200"))
	require.Len(t, replies[0].Buttons, 3)
	closed := replies[0].Buttons[2].Token
	assert.Equal(t, action.WithValue(action.DealPick, 0, "closed"), closed)

	// Text while a choice is pending re-shows the buttons.
	replies = h.send(Text(frank, "closed"))
	assert.Len(t, replies[0].Buttons, 3)

	replies = h.send(Action(frank, closed))
	assert.Contains(t, replies[0].Text, "Deal saved")

	replies = h.send(Command(frank, commands.Report))
	assert.Contains(t, replies[0].Text, "Deals closed: 1")
	assert.Contains(t, replies[0].Text, "Total amount: 1200")
}

func TestCommandsPreemptWizard(t *testing.T) {
	h := newHarness(t, db.NewMemory())

	h.send(Command(frank, commands.AddTask))
	h.send(Command(frank, commands.AddDeal))
	st, ok := h.sessions.Get(frank.ID)
	require.True(t, ok)
	assert.Equal(t, flows.DealAwaitingTitle, st.Name)

	h.send(Command(frank, commands.Cancel))
	replies := h.send(Command(frank, commands.Cancel))
	assert.Equal(t, cancelText, replies[0].Text)
	_, ok = h.sessions.Get(frank.ID)
	assert.False(t, ok)

	replies = h.send(Text(frank, "hello?"))
	assert.Equal(t, menuHint, replies[0].Text)
	assert.True(t, replies[0].Menu)
}

func TestStalePickExpires(t *testing.T) {
	h := newHarness(t, db.NewMemory())
	replies := h.send(Action(frank, action.WithValue(action.DealPick, 0, "open")))
	require.Len(t, replies, 1)
	assert.True(t, replies[0].Ephemeral)
	assert.Equal(t, expiredText, replies[0].Text)
}

func TestActionRefreshesList(t *testing.T) {
	h := newHarness(t, db.NewMemory())
	h.send(Command(frank, commands.AddTask))
	h.send(Text(frank, "Ship order"))
	h.send(Text(frank, "today"))

	list := h.send(Command(frank, commands.Tasks))[0].List
	toggle := list.Entries[0].Buttons[0].Token

	replies := h.send(Action(frank, toggle))
	require.Len(t, replies, 2)
	assert.True(t, replies[0].Ephemeral)
	require.NotNil(t, replies[1].List)
	assert.Contains(t, replies[1].List.Entries[0].Text, "Done")

	replies = h.send(Action(frank, action.New(action.TaskToggle, 9999)))
	require.Len(t, replies, 1)
	assert.True(t, replies[0].Ephemeral)
}

func TestMotivationAndMarketing(t *testing.T) {
	h := newHarness(t, db.NewMemory())
	assert.Equal(t, "⚡ Keep going!", h.send(Command(frank, commands.Motivation))[0].Text)

	h.send(Button(frank, commands.Marketing))
	replies := h.send(Text(frank, "How to get leads?"))
	assert.Contains(t, replies[0].Text, "Try email campaigns.")
}

type brokenStore struct{ *db.MemoryStore }

func (brokenStore) Update(context.Context, func(db.Tx) error) error {
	return errors.New("connection reset")
}

func TestStoreFailureGivesGenericReply(t *testing.T) {
	h := newHarness(t, brokenStore{db.NewMemory()})
	h.send(Command(frank, commands.AddTask))
	h.send(Text(frank, "x"))
	replies := h.send(Text(frank, "y"))
	require.Len(t, replies, 1)
	assert.Equal(t, failureText, replies[0].Text)
	_, ok := h.sessions.Get(frank.ID)
	assert.False(t, ok)
}

func TestConcurrentUsersAreIsolated(t *testing.T) {
	h := newHarness(t, db.NewMemory())
	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			actor := wizard.Actor{ID: id, Name: id}
			h.send(Command(actor, commands.AddTask))
			h.send(Text(actor, "title-"+id))
			h.send(Text(actor, "noon"))
		}(id)
	}
	wg.Wait()

	for _, id := range []string{"a", "b", "c", "d"} {
		tasks, err := listing.SortedTasks(context.Background(), h.store, id)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "title-"+id, tasks[0].Title)
	}
	assert.Equal(t, 0, h.sessions.Len())
}
