package service

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairsync/sync-server/internal/model"
	redisclient "github.com/pairsync/sync-server/internal/redis"
)

func week(fill func(i int) DaySample) []DaySample {
	days := make([]DaySample, 7)
	for i := range days {
		days[i] = fill(i)
	}
	return days
}

func TestScoreWindow(t *testing.T) {
	tests := []struct {
		name       string
		days       []DaySample
		score      int
		missionPct int
		kudosPct   int
	}{
		{
			name:       "no data is neutral",
			days:       week(func(int) DaySample { return DaySample{} }),
			score:      50,
			missionPct: 50,
			kudosPct:   0,
		},
		{
			name: "everything done every day",
			days: week(func(int) DaySample {
				return DaySample{HasMissions: true, MissionsTotal: 2, MissionsDone: 2, Kudos: true}
			}),
			score:      100,
			missionPct: 100,
			kudosPct:   100,
		},
		{
			name:       "empty lists count as zero",
			days:       week(func(i int) DaySample { return DaySample{HasMissions: i == 0} }),
			score:      0,
			missionPct: 0,
			kudosPct:   0,
		},
		{
			name: "partial week",
			days: week(func(i int) DaySample {
				return DaySample{HasMissions: i < 2, MissionsTotal: 2, MissionsDone: 1, Kudos: i < 3}
			}),
			score:      47,
			missionPct: 50,
			kudosPct:   43,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ScoreWindow(tt.days)
			assert.Equal(t, tt.score, e.Score)
			assert.Equal(t, tt.missionPct, e.MissionPct)
			assert.Equal(t, tt.kudosPct, e.KudosPct)
		})
	}
}

func TestScoreWindow_Bounds(t *testing.T) {
	for total := 0; total <= 3; total++ {
		for done := 0; done <= total; done++ {
			for kudos := 0; kudos <= 7; kudos++ {
				e := ScoreWindow(week(func(i int) DaySample {
					return DaySample{HasMissions: total > 0, MissionsTotal: total, MissionsDone: done, Kudos: i < kudos}
				}))
				assert.GreaterOrEqual(t, e.Score, 0)
				assert.LessOrEqual(t, e.Score, 100)
			}
		}
	}
}

func TestWeatherAndMood(t *testing.T) {
	assert.Equal(t, model.WeatherStormy, WeatherFor(39))
	assert.Equal(t, model.WeatherRainy, WeatherFor(40))
	assert.Equal(t, model.WeatherRainy, WeatherFor(54))
	assert.Equal(t, model.WeatherCloudy, WeatherFor(55))
	assert.Equal(t, model.WeatherCloudy, WeatherFor(79))
	assert.Equal(t, model.WeatherSunny, WeatherFor(80))

	assert.Equal(t, model.MoodStormy, MoodFor(39))
	assert.Equal(t, model.MoodCalm, MoodFor(40))
	assert.Equal(t, model.MoodCalm, MoodFor(80))
	assert.Equal(t, model.MoodVibrant, MoodFor(81))
}

func TestEnergyService_Compute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("empty store is neutral", func(t *testing.T) {
		e, err := f.energy.Compute(ctx, testPairID, testNow)
		require.NoError(t, err)
		assert.Equal(t, 50, e.Score)
		assert.Equal(t, 50, e.MissionPct)
		assert.Equal(t, 0, e.KudosPct)
	})

	t.Run("reads missions and reactions across the window", func(t *testing.T) {
		today := redisclient.DayKey(testNow)
		sixDaysAgo := redisclient.DayKey(testNow.AddDate(0, 0, -6))
		eightDaysAgo := redisclient.DayKey(testNow.AddDate(0, 0, -8))

		_, err := f.redis.SetJSONNX(ctx, redisclient.MissionsKey(testPairID, today), model.MissionList{
			{ID: "a", Status: model.MissionStatusDone},
			{ID: "b", Status: model.MissionStatusPending},
		}, 0)
		require.NoError(t, err)
		require.NoError(t, f.redis.HSet(ctx, redisclient.ReactionKey(testPairID, sixDaysAgo), "type", "kudos").Err())
		// outside the window
		require.NoError(t, f.redis.HSet(ctx, redisclient.ReactionKey(testPairID, eightDaysAgo), "type", "kudos").Err())

		e, err := f.energy.Compute(ctx, testPairID, testNow)
		require.NoError(t, err)
		assert.Equal(t, 50, e.MissionPct)
		assert.Equal(t, 14, e.KudosPct)
		assert.Equal(t, 32, e.Score)
		assert.Equal(t, model.WeatherStormy, e.Weather)
	})
}

func TestWindowDays(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	t.Run("crossing a local clock change keeps seven distinct days", func(t *testing.T) {
		// 2026-03-08 is the spring-forward day in New York; this instant is 2026-03-09 23:30 UTC.
		asOf := time.Date(2026, 3, 9, 19, 30, 0, 0, newYork)

		assert.Equal(t, []string{
			"2026-03-09", "2026-03-08", "2026-03-07", "2026-03-06",
			"2026-03-05", "2026-03-04", "2026-03-03",
		}, windowDays(asOf))
	})

	t.Run("local evening already on the next utc day", func(t *testing.T) {
		asOf := time.Date(2026, 10, 13, 21, 0, 0, 0, newYork)

		days := windowDays(asOf)
		assert.Equal(t, "2026-10-14", days[0])
		assert.Equal(t, "2026-10-08", days[6])
	})
}

func TestEnergyService_ComputeNonUTC(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	asOf := time.Date(2026, 3, 9, 19, 30, 0, 0, newYork)

	for _, day := range []string{"2026-03-09", "2026-03-08", "2026-03-03"} {
		require.NoError(t, f.redis.HSet(ctx, redisclient.ReactionKey(testPairID, day), "type", "kudos").Err())
	}

	e, err := f.energy.Compute(ctx, testPairID, asOf)
	require.NoError(t, err)
	assert.Equal(t, 43, e.KudosPct)
}
