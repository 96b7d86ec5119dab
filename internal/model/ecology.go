package model

import "time"

type Weather string

const (
	WeatherStormy Weather = "stormy"
	WeatherRainy  Weather = "rainy"
	WeatherCloudy Weather = "cloudy"
	WeatherSunny  Weather = "sunny"
)

type Mood string

const (
	MoodStormy  Mood = "stormy"
	MoodCalm    Mood = "calm"
	MoodVibrant Mood = "vibrant"
)

type EcologySnapshot struct {
	GardenMood   Mood       `json:"gardenMood"`
	WeatherState Weather    `json:"weatherState"`
	SyncEnergy   int        `json:"syncEnergy"`
	GlowUntil    *time.Time `json:"glowUntil"`
}
