// Package config loads server configuration from the environment.
package config

import (
	"os"
	"strconv"
)

type Config struct {
	HTTPAddr          string
	WSReadBufferSize  int
	WSWriteBufferSize int
	DBDSN             string
	JWTSecret         string
	SnapshotInterval  int64
	RabbitMQURL       string

	// Game pacing knobs, in seconds. Zero leaves a phase untimed.
	BriefingSec   int
	ObituarySec   int
	DiscussionSec int
	NominationSec int
	TestimonySec  int
	JudgementSec  int
	FinalWordsSec int
	DuskSec       int
	NightSec      int

	// DisconnectGraceSec is how long a dropped player may reconnect
	// before the seat goes dark.
	DisconnectGraceSec int

	// SeedOverride pins every new game's PRNG seed, for replays and
	// deterministic test deployments. Zero means per-game seeds.
	SeedOverride int64
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func Load() Config {
	return Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		WSReadBufferSize:  getEnvInt("WS_READ_BUFFER", 4096),
		WSWriteBufferSize: getEnvInt("WS_WRITE_BUFFER", 4096),
		DBDSN:             getEnv("DB_DSN", "root:password@tcp(localhost:3306)/duskcourt?parseTime=true&multiStatements=true&charset=utf8mb4&collation=utf8mb4_unicode_ci"),
		JWTSecret:         getEnv("JWT_SECRET", "dev-secret-change"),
		SnapshotInterval:  int64(getEnvInt("SNAPSHOT_INTERVAL", 50)),
		RabbitMQURL:       getEnv("RABBITMQ_URL", ""),

		BriefingSec:   getEnvInt("PHASE_BRIEFING_SEC", 20),
		ObituarySec:   getEnvInt("PHASE_OBITUARY_SEC", 10),
		DiscussionSec: getEnvInt("PHASE_DISCUSSION_SEC", 120),
		NominationSec: getEnvInt("PHASE_NOMINATION_SEC", 60),
		TestimonySec:  getEnvInt("PHASE_TESTIMONY_SEC", 30),
		JudgementSec:  getEnvInt("PHASE_JUDGEMENT_SEC", 30),
		FinalWordsSec: getEnvInt("PHASE_FINAL_WORDS_SEC", 10),
		DuskSec:       getEnvInt("PHASE_DUSK_SEC", 10),
		NightSec:      getEnvInt("PHASE_NIGHT_SEC", 60),

		DisconnectGraceSec: getEnvInt("DISCONNECT_GRACE_SEC", 120),
		SeedOverride:       int64(getEnvInt("GAME_SEED_OVERRIDE", 0)),
	}
}
