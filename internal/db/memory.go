package db

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	errDuplicateUser = errors.New("duplicate external_id")
	errMissingOwner  = errors.New("owner does not exist")
)

// MemoryStore keeps every table in process memory. It backs local runs without
// DATABASE_URL and the package tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data memData
}

type memData struct {
	users  []User
	tasks  []Task
	deals  []Deal
	nextID int64
}

func (d memData) clone() memData {
	return memData{
		users:  append([]User(nil), d.users...),
		tasks:  append([]Task(nil), d.tasks...),
		deals:  append([]Deal(nil), d.deals...),
		nextID: d.nextID,
	}
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Migrate(_ context.Context) error { return nil }

// Update runs fn against a private copy and swaps it in only when fn succeeds.
func (s *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&memTx{data: &work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *MemoryStore) FindUserByExternalID(_ context.Context, externalID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.findUser(externalID), nil
}

func (s *MemoryStore) GetTask(_ context.Context, id int64) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.getTask(id)
}

func (s *MemoryStore) GetDeal(_ context.Context, id int64) (*Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.getDeal(id)
}

func (s *MemoryStore) ListTasksByOwner(_ context.Context, userID int64) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Task
	for _, t := range s.data.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListDealsByOwner(_ context.Context, userID int64) ([]Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Deal
	for _, d := range s.data.deals {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *MemoryStore) CountCompletedTasks(_ context.Context, userID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, t := range s.data.tasks {
		if t.UserID == userID && t.Status == TaskDone {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) SumClosedDeals(_ context.Context, userID int64) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count, total int64
	for _, d := range s.data.deals {
		if d.UserID == userID && d.Status == DealClosed {
			count++
			total += d.Amount
		}
	}
	return count, total, nil
}

// UserCount is used by tests to assert owner creation.
func (s *MemoryStore) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.users)
}

func (d *memData) findUser(externalID string) *User {
	for i := range d.users {
		if d.users[i].ExternalID == externalID {
			u := d.users[i]
			return &u
		}
	}
	return nil
}

func (d *memData) getTask(id int64) (*Task, error) {
	for i := range d.tasks {
		if d.tasks[i].ID == id {
			t := d.tasks[i]
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

func (d *memData) getDeal(id int64) (*Deal, error) {
	for i := range d.deals {
		if d.deals[i].ID == id {
			deal := d.deals[i]
			return &deal, nil
		}
	}
	return nil, ErrNotFound
}

func (d *memData) hasUser(id int64) bool {
	for _, u := range d.users {
		if u.ID == id {
			return true
		}
	}
	return false
}

type memTx struct {
	data *memData
}

func (t *memTx) FindUserByExternalID(_ context.Context, externalID string) (*User, error) {
	return t.data.findUser(externalID), nil
}

func (t *memTx) CreateUser(_ context.Context, externalID, displayName string) (*User, error) {
	if t.data.findUser(externalID) != nil {
		return nil, errDuplicateUser
	}
	t.data.nextID++
	u := User{ID: t.data.nextID, ExternalID: externalID, DisplayName: displayName, CreatedAt: time.Now().UTC()}
	t.data.users = append(t.data.users, u)
	return &u, nil
}

func (t *memTx) CreateTask(_ context.Context, userID int64, title, scheduledTime string, status TaskStatus) (*Task, error) {
	if !t.data.hasUser(userID) {
		return nil, errMissingOwner
	}
	t.data.nextID++
	task := Task{ID: t.data.nextID, UserID: userID, Title: title, ScheduledTime: scheduledTime, Status: status, CreatedAt: time.Now().UTC()}
	t.data.tasks = append(t.data.tasks, task)
	return &task, nil
}

func (t *memTx) CreateDeal(_ context.Context, userID int64, title string, amount int64, status DealStatus) (*Deal, error) {
	if !t.data.hasUser(userID) {
		return nil, errMissingOwner
	}
	t.data.nextID++
	deal := Deal{ID: t.data.nextID, UserID: userID, Title: title, Amount: amount, Status: status, CreatedAt: time.Now().UTC()}
	t.data.deals = append(t.data.deals, deal)
	return &deal, nil
}

func (t *memTx) GetTask(_ context.Context, id int64) (*Task, error) {
	return t.data.getTask(id)
}

func (t *memTx) GetDeal(_ context.Context, id int64) (*Deal, error) {
	return t.data.getDeal(id)
}

func (t *memTx) SetTaskStatus(_ context.Context, id int64, status TaskStatus) error {
	for i := range t.data.tasks {
		if t.data.tasks[i].ID == id {
			t.data.tasks[i].Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (t *memTx) SetDealStatus(_ context.Context, id int64, status DealStatus) error {
	for i := range t.data.deals {
		if t.data.deals[i].ID == id {
			t.data.deals[i].Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (t *memTx) DeleteTask(_ context.Context, id int64) error {
	for i := range t.data.tasks {
		if t.data.tasks[i].ID == id {
			t.data.tasks = append(t.data.tasks[:i], t.data.tasks[i+1:]...)
			return nil
		}
	}
	return nil
}

func (t *memTx) DeleteDeal(_ context.Context, id int64) error {
	for i := range t.data.deals {
		if t.data.deals[i].ID == id {
			t.data.deals = append(t.data.deals[:i], t.data.deals[i+1:]...)
			return nil
		}
	}
	return nil
}
