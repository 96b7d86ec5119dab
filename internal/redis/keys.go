package redis

import (
	"fmt"
	"strings"
	"time"
)

const (
	dayLayout = "2006-01-02"
)

func PairCodeKey(code string) string {
	return "pairCode:" + code
}

func PairIDByCodeKey(code string) string {
	return "pairIdByCode:" + code
}

func BlocklistKey(pairID string) string {
	return "blocklist:" + pairID
}

func StateKey(pairID string) string {
	return "state:" + pairID
}

func MissionsKey(pairID, day string) string {
	return fmt.Sprintf("missions:%s:%s", pairID, day)
}

func ReactionKey(pairID, day string) string {
	return fmt.Sprintf("reaction:%s:%s", pairID, day)
}

func ChallengeKey(pairID, challengeID string) string {
	return fmt.Sprintf("challenge:%s:%s", pairID, challengeID)
}

func ChallengeSetKey(pairID string) string {
	return "challenges:" + pairID
}

func ScoresKey(pairID, week string) string {
	return fmt.Sprintf("scores:%s:%s", pairID, week)
}

func EcologyKey(pairID string) string {
	return "ecology:" + pairID
}

func ActivityKey(pairID string) string {
	return "activity:" + pairID
}

// IdempotencyKey builds idem:<pairId>:<domain>:<parts...>:<updateId>.
func IdempotencyKey(pairID, domain, updateID string, parts ...string) string {
	segments := append([]string{"idem", pairID, domain}, parts...)
	segments = append(segments, updateID)
	return strings.Join(segments, ":")
}

func EventChannel(pairID string) string {
	return fmt.Sprintf("pair:%s:events", pairID)
}

// StatePairID extracts the pair id from a state:<pairId> key.
func StatePairID(key string) string {
	return strings.TrimPrefix(key, "state:")
}

// DayKey formats t as a UTC calendar day.
func DayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// WeekKey formats t as an ISO week, e.g. 2026-W42.
func WeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// EndOfDay is the last instant of t's UTC day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 23, 59, 59, 0, time.UTC)
}
