package model

import "time"

type MissionStatus string

const (
	MissionStatusPending MissionStatus = "pending"
	MissionStatusDone    MissionStatus = "done"
)

type Mission struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Difficulty  string        `json:"difficulty"`
	Points      int           `json:"points"`
	Phase       string        `json:"phase"`
	Status      MissionStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
	ExpiresAt   time.Time     `json:"expiresAt"`
}

func (m Mission) Done() bool {
	return m.Status == MissionStatusDone
}

// MissionList is one pair's missions for one UTC day.
type MissionList []Mission

func (l MissionList) Find(id string) int {
	for i, m := range l {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (l MissionList) DoneCount() int {
	n := 0
	for _, m := range l {
		if m.Done() {
			n++
		}
	}
	return n
}
