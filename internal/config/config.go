package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port                    int    `env:"PORT" envDefault:"8080"`
	RedisURL                string `env:"REDIS_URL,required"`
	DatabaseURL             string `env:"DATABASE_URL" envDefault:""`
	LogLevel                string `env:"LOG_LEVEL" envDefault:"info"`
	PairingCodeTTLSeconds   int    `env:"PAIRING_CODE_TTL_SECONDS" envDefault:"600"`
	PairingResultTTLSeconds int    `env:"PAIRING_RESULT_TTL_SECONDS" envDefault:"120"`
	BlocklistTTLHours       int    `env:"BLOCKLIST_TTL_HOURS" envDefault:"48"`
	IdempotencyTTLHours     int    `env:"IDEMPOTENCY_TTL_HOURS" envDefault:"72"`
	ReactionTTLHours        int    `env:"REACTION_TTL_HOURS" envDefault:"48"`
	MissionsTTLDays         int    `env:"MISSIONS_TTL_DAYS" envDefault:"7"`
	ChallengeTTLHours       int    `env:"CHALLENGE_TTL_HOURS" envDefault:"24"`
	ScoresTTLDays           int    `env:"SCORES_TTL_DAYS" envDefault:"8"`
	StateTTLDays            int    `env:"STATE_TTL_DAYS" envDefault:"7"`
	GlowDurationMinutes     int    `env:"GLOW_DURATION_MINUTES" envDefault:"360"`
	LedgerRetentionDays     int    `env:"LEDGER_RETENTION_DAYS" envDefault:"90"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// TTLs collects every store-side expiry in one place so services do not
// reach back into the environment.
type TTLs struct {
	PairingCode   time.Duration
	PairingResult time.Duration
	Blocklist     time.Duration
	Idempotency   time.Duration
	Reaction      time.Duration
	Missions      time.Duration
	Challenge     time.Duration
	Scores        time.Duration
	State         time.Duration
	Glow          time.Duration
}

func (c *Config) TTLs() TTLs {
	return TTLs{
		PairingCode:   time.Duration(c.PairingCodeTTLSeconds) * time.Second,
		PairingResult: time.Duration(c.PairingResultTTLSeconds) * time.Second,
		Blocklist:     time.Duration(c.BlocklistTTLHours) * time.Hour,
		Idempotency:   time.Duration(c.IdempotencyTTLHours) * time.Hour,
		Reaction:      time.Duration(c.ReactionTTLHours) * time.Hour,
		Missions:      time.Duration(c.MissionsTTLDays) * 24 * time.Hour,
		Challenge:     time.Duration(c.ChallengeTTLHours) * time.Hour,
		Scores:        time.Duration(c.ScoresTTLDays) * 24 * time.Hour,
		State:         time.Duration(c.StateTTLDays) * 24 * time.Hour,
		Glow:          time.Duration(c.GlowDurationMinutes) * time.Minute,
	}
}

// DefaultTTLs mirrors the envDefault values above.
func DefaultTTLs() TTLs {
	cfg := Config{
		PairingCodeTTLSeconds:   600,
		PairingResultTTLSeconds: 120,
		BlocklistTTLHours:       48,
		IdempotencyTTLHours:     72,
		ReactionTTLHours:        48,
		MissionsTTLDays:         7,
		ChallengeTTLHours:       24,
		ScoresTTLDays:           8,
		StateTTLDays:            7,
		GlowDurationMinutes:     360,
	}
	return cfg.TTLs()
}

func (c *Config) LedgerRetention() time.Duration {
	return time.Duration(c.LedgerRetentionDays) * 24 * time.Hour
}

func (c *Config) LedgerEnabled() bool {
	return c.DatabaseURL != ""
}

func (c *Config) Validate(isProduction bool) error {
	positive := map[string]int{
		"PAIRING_CODE_TTL_SECONDS":   c.PairingCodeTTLSeconds,
		"PAIRING_RESULT_TTL_SECONDS": c.PairingResultTTLSeconds,
		"BLOCKLIST_TTL_HOURS":        c.BlocklistTTLHours,
		"IDEMPOTENCY_TTL_HOURS":      c.IdempotencyTTLHours,
		"REACTION_TTL_HOURS":         c.ReactionTTLHours,
		"MISSIONS_TTL_DAYS":          c.MissionsTTLDays,
		"CHALLENGE_TTL_HOURS":        c.ChallengeTTLHours,
		"SCORES_TTL_DAYS":            c.ScoresTTLDays,
		"STATE_TTL_DAYS":             c.StateTTLDays,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if isProduction {
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if c.DatabaseURL == "" {
			log.Warn().Msg("DATABASE_URL is empty in production: pair ledger disabled")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
