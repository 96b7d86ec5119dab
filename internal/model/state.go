package model

// Counter is a per-pair version field in the shared state hash.
type Counter string

const (
	CounterMissions   Counter = "missionsVersion"
	CounterReactions  Counter = "reactionsVersion"
	CounterScores     Counter = "scoresVersion"
	CounterChallenges Counter = "challengesVersion"
	CounterEcology    Counter = "ecologyVersion"
	CounterGardenMood Counter = "gardenMoodVersion"
	CounterGlobal     Counter = "version"
)

var AllCounters = []Counter{
	CounterMissions,
	CounterReactions,
	CounterScores,
	CounterChallenges,
	CounterEcology,
	CounterGardenMood,
	CounterGlobal,
}

type SharedState struct {
	Versions    map[Counter]int64 `json:"versions"`
	CurrentDate string            `json:"currentDate,omitempty"`
	LastUpdated string            `json:"lastUpdated,omitempty"`
}

func (s SharedState) Version(c Counter) int64 {
	return s.Versions[c]
}

type ActivityEntry struct {
	Action string `json:"action"`
	At     string `json:"at"`
}
