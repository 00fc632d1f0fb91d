package app

import (
	"github.com/avionde/odp-backend/internal/platform/envutil"
)

type Config struct {
	HTTPPort  string
	LogMode   string
	WavesFile string
	SeedActor string
}

func LoadConfig() Config {
	return Config{
		HTTPPort:  envutil.Str("HTTP_PORT", "8080"),
		LogMode:   envutil.Str("LOG_MODE", "development"),
		WavesFile: envutil.Str("WAVES_FILE", ""),
		SeedActor: envutil.Str("SEED_ACTOR", "system"),
	}
}
