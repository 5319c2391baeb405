package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

const (
	// TieBreakFastest ranks equal match counts by earliest submission.
	TieBreakFastest = "fastest"
	// TieBreakStable keeps equal match counts in submission-id order.
	TieBreakStable = "stable"
)

type Config struct {
	DefaultTimerSeconds      int
	DefaultTotalRounds       int
	GracePeriodSeconds       int
	HeartbeatTimeoutSeconds  int
	MaxPlayersPerGame        int
	TieBreak                 string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
	ImageAPIKey              string
	ImageAPIURL              string
	ImageModel               string
	ImageTimeoutSeconds      int
}

func Default() Config {
	return Config{
		DefaultTimerSeconds:      60,
		DefaultTotalRounds:       3,
		GracePeriodSeconds:       10,
		HeartbeatTimeoutSeconds:  45,
		MaxPlayersPerGame:        12,
		TieBreak:                 TieBreakFastest,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
		ImageAPIURL:              "https://api.openai.com/v1/images/generations",
		ImageModel:               "dall-e-3",
		ImageTimeoutSeconds:      30,
	}
}

// Load builds a Config from the environment on top of Default values.
func Load() Config {
	defaults := Default()
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("DEFAULT_TIMER_SECONDS", defaults.DefaultTimerSeconds)
	v.SetDefault("DEFAULT_TOTAL_ROUNDS", defaults.DefaultTotalRounds)
	v.SetDefault("GRACE_PERIOD_SECONDS", defaults.GracePeriodSeconds)
	v.SetDefault("HEARTBEAT_TIMEOUT_SECONDS", defaults.HeartbeatTimeoutSeconds)
	v.SetDefault("MAX_PLAYERS_PER_GAME", defaults.MaxPlayersPerGame)
	v.SetDefault("TIE_BREAK", defaults.TieBreak)
	v.SetDefault("DB_MAX_OPEN_CONNS", defaults.DBMaxOpenConns)
	v.SetDefault("DB_MAX_IDLE_CONNS", defaults.DBMaxIdleConns)
	v.SetDefault("DB_CONN_MAX_LIFETIME_SECONDS", defaults.DBConnMaxLifetimeSeconds)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME_SECONDS", defaults.DBConnMaxIdleTimeSeconds)
	v.SetDefault("IMAGE_API_URL", defaults.ImageAPIURL)
	v.SetDefault("IMAGE_MODEL", defaults.ImageModel)
	v.SetDefault("IMAGE_TIMEOUT_SECONDS", defaults.ImageTimeoutSeconds)

	return Config{
		DefaultTimerSeconds:      v.GetInt("DEFAULT_TIMER_SECONDS"),
		DefaultTotalRounds:       v.GetInt("DEFAULT_TOTAL_ROUNDS"),
		GracePeriodSeconds:       v.GetInt("GRACE_PERIOD_SECONDS"),
		HeartbeatTimeoutSeconds:  v.GetInt("HEARTBEAT_TIMEOUT_SECONDS"),
		MaxPlayersPerGame:        v.GetInt("MAX_PLAYERS_PER_GAME"),
		TieBreak:                 v.GetString("TIE_BREAK"),
		DBMaxOpenConns:           v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:           v.GetInt("DB_MAX_IDLE_CONNS"),
		DBConnMaxLifetimeSeconds: v.GetInt("DB_CONN_MAX_LIFETIME_SECONDS"),
		DBConnMaxIdleTimeSeconds: v.GetInt("DB_CONN_MAX_IDLE_TIME_SECONDS"),
		ImageAPIKey:              v.GetString("IMAGE_API_KEY"),
		ImageAPIURL:              v.GetString("IMAGE_API_URL"),
		ImageModel:               v.GetString("IMAGE_MODEL"),
		ImageTimeoutSeconds:      v.GetInt("IMAGE_TIMEOUT_SECONDS"),
	}
}
