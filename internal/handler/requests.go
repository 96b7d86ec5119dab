package handler

import (
	"strings"

	apperrors "github.com/pairsync/sync-server/internal/errors"
	"github.com/pairsync/sync-server/internal/util"
)

type connectRequest struct {
	Code string `json:"code"`
}

func (r *connectRequest) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return apperrors.MissingRequired("code")
	}
	return nil
}

type unlinkRequest struct {
	PairID string `json:"pairId"`
}

type completeMissionRequest struct {
	PairID    string `json:"pairId"`
	MissionID string `json:"missionId"`
	UpdateID  string `json:"updateId"`
}

func (r *completeMissionRequest) Validate() error {
	if r.MissionID == "" {
		return apperrors.MissingRequired("missionId")
	}
	if !util.IsValidIdentifier(r.MissionID) {
		return apperrors.InvalidInput("missionId", "malformed id")
	}
	return validateUpdateID(r.UpdateID)
}

type reactionRequest struct {
	PairID   string `json:"pairId"`
	Reaction string `json:"reaction"`
	Note     string `json:"note"`
	UpdateID string `json:"updateId"`
}

func (r *reactionRequest) Validate() error {
	return validateUpdateID(r.UpdateID)
}

type startChallengeRequest struct {
	PairID      string `json:"pairId"`
	Text        string `json:"text"`
	ChallengeID string `json:"challengeId"`
	UpdateID    string `json:"updateId"`
}

func (r *startChallengeRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return apperrors.MissingRequired("text")
	}
	return validateUpdateID(r.UpdateID)
}

type challengeActionRequest struct {
	PairID      string `json:"pairId"`
	ChallengeID string `json:"challengeId"`
	UpdateID    string `json:"updateId"`
}

func (r *challengeActionRequest) Validate() error {
	if r.ChallengeID == "" {
		return apperrors.MissingRequired("challengeId")
	}
	if !util.IsValidIdentifier(r.ChallengeID) {
		return apperrors.InvalidInput("challengeId", "malformed id")
	}
	return validateUpdateID(r.UpdateID)
}

// updateId ends up inside a store key, so it is held to the identifier shape.
func validateUpdateID(id string) error {
	if id != "" && !util.IsValidIdentifier(id) {
		return apperrors.InvalidInput("updateId", "must be 1-64 letters, digits, '-' or '_'")
	}
	return nil
}
