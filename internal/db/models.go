package db

import "time"

const (
	MaxTitleLength = 255
	MaxTimeLength  = 50
)

type User struct {
	ID          int64     `json:"id"`
	ExternalID  string    `json:"external_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskDone    TaskStatus = "done"
)

// Terminal reports whether no further transition is expected in normal flow.
func (s TaskStatus) Terminal() bool { return s == TaskDone }

// Toggle flips between pending and done.
func (s TaskStatus) Toggle() TaskStatus {
	if s == TaskDone {
		return TaskPending
	}
	return TaskDone
}

func (s TaskStatus) Label() string {
	if s == TaskDone {
		return "Done"
	}
	return "Pending"
}

type DealStatus string

const (
	DealOpen       DealStatus = "open"
	DealInProgress DealStatus = "in_progress"
	DealClosed     DealStatus = "closed"
)

// DealStatuses lists every deal status in menu order.
var DealStatuses = []DealStatus{DealOpen, DealInProgress, DealClosed}

func ParseDealStatus(s string) (DealStatus, bool) {
	for _, st := range DealStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

func (s DealStatus) Terminal() bool { return s == DealClosed }

func (s DealStatus) Label() string {
	switch s {
	case DealInProgress:
		return "In progress"
	case DealClosed:
		return "Closed"
	default:
		return "Open"
	}
}

type Task struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	Title         string     `json:"title"`
	ScheduledTime string     `json:"scheduled_time"`
	Status        TaskStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Deal struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Title     string     `json:"title"`
	Amount    int64      `json:"amount"`
	Status    DealStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}
