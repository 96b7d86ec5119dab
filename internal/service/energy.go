package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pairsync/sync-server/internal/config"
	"github.com/pairsync/sync-server/internal/model"
	redisclient "github.com/pairsync/sync-server/internal/redis"
)

// neutralMissionPct is used when a window holds no mission lists at all.
// neutralScore is the whole score when the window holds no activity of any kind.
const (
	neutralMissionPct = 50
	neutralScore      = 50
)

// DaySample is what one day contributes to the energy window.
type DaySample struct {
	HasMissions   bool
	MissionsTotal int
	MissionsDone  int
	Kudos         bool
}

type Energy struct {
	Score      int           `json:"score"`
	MissionPct int           `json:"missionPct"`
	KudosPct   int           `json:"kudosPct"`
	Weather    model.Weather `json:"weather"`
	Mood       model.Mood    `json:"mood"`
}

// ScoreWindow scores a window of day samples. The result is always in [0,100];
// a window with no missions and no reactions scores neutral.
func ScoreWindow(days []DaySample) Energy {
	var total, done, withMissions, kudosDays int
	for _, d := range days {
		if d.HasMissions {
			withMissions++
			total += d.MissionsTotal
			done += d.MissionsDone
		}
		if d.Kudos {
			kudosDays++
		}
	}

	missionPct := neutralMissionPct
	switch {
	case total > 0:
		missionPct = percent(done, total)
	case withMissions > 0:
		missionPct = 0
	}
	kudosPct := percent(kudosDays, config.EnergyWindowDays)

	score := clamp(int(math.Round(0.5*float64(missionPct)+0.5*float64(kudosPct))), 0, 100)
	if withMissions == 0 && kudosDays == 0 {
		score = neutralScore
	}
	return Energy{
		Score:      score,
		MissionPct: missionPct,
		KudosPct:   kudosPct,
		Weather:    WeatherFor(score),
		Mood:       MoodFor(score),
	}
}

func WeatherFor(score int) model.Weather {
	switch {
	case score < 40:
		return model.WeatherStormy
	case score < 55:
		return model.WeatherRainy
	case score < 80:
		return model.WeatherCloudy
	default:
		return model.WeatherSunny
	}
}

func MoodFor(score int) model.Mood {
	switch {
	case score < 40:
		return model.MoodStormy
	case score > 80:
		return model.MoodVibrant
	default:
		return model.MoodCalm
	}
}

// EnergyService loads the trailing window from the store and scores it.
type EnergyService struct {
	redis *redisclient.Client
}

func NewEnergyService(redis *redisclient.Client) *EnergyService {
	return &EnergyService{redis: redis}
}

// Compute scores the window of days ending at asOf, inclusive.
func (s *EnergyService) Compute(ctx context.Context, pairID string, asOf time.Time) (Energy, error) {
	days := make([]DaySample, 0, config.EnergyWindowDays)
	for _, day := range windowDays(asOf) {
		sample, err := s.sample(ctx, pairID, day)
		if err != nil {
			return Energy{}, err
		}
		days = append(days, sample)
	}
	return ScoreWindow(days), nil
}

// windowDays lists the UTC day keys of the window, newest first. Day
// arithmetic happens in UTC so a local DST change cannot repeat or skip a day.
func windowDays(asOf time.Time) []string {
	asOf = asOf.UTC()
	days := make([]string, 0, config.EnergyWindowDays)
	for i := 0; i < config.EnergyWindowDays; i++ {
		days = append(days, redisclient.DayKey(asOf.AddDate(0, 0, -i)))
	}
	return days
}

// Delta is the score difference between two evaluations.
func Delta(before, after Energy) int {
	return after.Score - before.Score
}

func (s *EnergyService) sample(ctx context.Context, pairID, day string) (DaySample, error) {
	var sample DaySample

	var list model.MissionList
	found, err := s.redis.GetJSON(ctx, redisclient.MissionsKey(pairID, day), &list)
	if err != nil {
		return sample, fmt.Errorf("energy missions %s: %w", day, err)
	}
	if found {
		sample.HasMissions = true
		sample.MissionsTotal = len(list)
		sample.MissionsDone = list.DoneCount()
	}

	n, err := s.redis.Exists(ctx, redisclient.ReactionKey(pairID, day)).Result()
	if err != nil {
		return sample, fmt.Errorf("energy reaction %s: %w", day, err)
	}
	sample.Kudos = n > 0

	return sample, nil
}

func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
