package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGetClear(t *testing.T) {
	s := NewMemoryStore()
	_, ok := s.Get("u1")
	assert.False(t, ok)

	s.Set("u1", State{Name: "task.awaiting_time", Fields: map[string]any{"title": "call"}})
	st, ok := s.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "task.awaiting_time", st.Name)
	v, _ := st.Field("title")
	assert.Equal(t, "call", v)

	s.Clear("u1")
	s.Clear("u1")
	_, ok = s.Get("u1")
	assert.False(t, ok)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	s.Set("u1", State{Name: "x", Fields: map[string]any{"a": 1}})

	st, _ := s.Get("u1")
	st.Fields["a"] = 2

	again, _ := s.Get("u1")
	assert.Equal(t, 1, again.Fields["a"])
}

func TestMemoryStoreExpire(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	s.Set("old", State{Name: "deal.awaiting_amount", ChannelID: "c1"})
	now = now.Add(20 * time.Minute)
	s.Set("fresh", State{Name: "task.awaiting_title"})
	now = now.Add(15 * time.Minute)

	expired := s.Expire(30 * time.Minute)
	require.Len(t, expired, 1)
	assert.Equal(t, "old", expired[0].UserID)
	assert.Equal(t, "c1", expired[0].State.ChannelID)
	assert.Equal(t, 1, s.Len())

	assert.Nil(t, s.Expire(0))
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	k := NewKeyedMutex()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("same")
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, k.locks)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	k := NewKeyedMutex()
	unlockA := k.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := k.Lock("b")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
	unlockA()
}
