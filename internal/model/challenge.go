package model

import "time"

type ChallengeStatus string

const (
	ChallengeStatusPending   ChallengeStatus = "pending"
	ChallengeStatusCompleted ChallengeStatus = "completed"
	ChallengeStatusApproved  ChallengeStatus = "approved"
)

// rank orders statuses so transitions can be checked as "forward only".
func (s ChallengeStatus) rank() int {
	switch s {
	case ChallengeStatusPending:
		return 0
	case ChallengeStatusCompleted:
		return 1
	case ChallengeStatusApproved:
		return 2
	default:
		return -1
	}
}

// Advances reports whether moving from s to next goes strictly forward by one step.
func (s ChallengeStatus) Advances(next ChallengeStatus) bool {
	return s.rank() >= 0 && next.rank() == s.rank()+1
}

type Challenge struct {
	ID          string          `json:"id"`
	Text        string          `json:"text"`
	Status      ChallengeStatus `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	ApprovedAt  *time.Time      `json:"approvedAt,omitempty"`
	ExpiresAt   time.Time       `json:"expiresAt"`
}
