package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const defaultSheetURL = "https://docs.google.com/spreadsheets/d/1jJ5ZG1t5O792V74nk0j8pHBEUvz4MiaAIW13TiNLQn8/export?format=csv&gid=228801203"

type Config struct {
	ServerPort string
	DBPath     string
	StaticDir  string

	// Deck feed CSV export.
	SheetURL string

	// AlphaVantage upstream. The key stays server-side; an empty key is not
	// fatal at startup, the /weekly endpoint reports it per request instead.
	AlphaVantageKey     string
	AlphaVantageBaseURL string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		DBPath:              getEnv("DB_PATH", "tradem.db"),
		StaticDir:           getEnv("STATIC_DIR", "public"),
		SheetURL:            getEnv("SHEET_URL", defaultSheetURL),
		AlphaVantageKey:     getEnv("ALPHAVANTAGE_KEY", ""),
		AlphaVantageBaseURL: getEnv("ALPHAVANTAGE_BASE_URL", "https://www.alphavantage.co"),
	}

	if cfg.AlphaVantageKey == "" {
		logger.Warn().Msg("ALPHAVANTAGE_KEY not set, weekly series requests will fail")
	}

	logger.Info().
		Str("server_port", cfg.ServerPort).
		Str("db_path", cfg.DBPath).
		Str("static_dir", cfg.StaticDir).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
