package model

type ScoreTrend struct {
	Days         []string `json:"days"`
	PeacePassion []int    `json:"peacePassion"`
	Sync         []int    `json:"sync"`
	Empathy      []int    `json:"empathy"`
}

type WeeklyScores struct {
	Week         string     `json:"week"`
	PeacePassion int        `json:"peacePassion"`
	Sync         int        `json:"sync"`
	Empathy      int        `json:"empathy"`
	Trend        ScoreTrend `json:"trend"`
}
