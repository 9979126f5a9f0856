package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rm-hull/fuel-price-dashboard/internal/logger"
)

type Config struct {
	DatasetteURL    string
	Database        string
	StateDBPath     string
	Port            int
	LogLevel        string
	RefreshSchedule string
	URLSync         bool
	LookbackDays    int
	Location        *time.Location
}

func init() {
	viper.SetDefault("datasette_url", "http://localhost:8001")
	viper.SetDefault("datasette_db", "tankstellen")
	viper.SetDefault("state_db_path", "data/dashboard.db")
	viper.SetDefault("port", 8080)
	viper.SetDefault("log_level", logger.InfoLevel)
	viper.SetDefault("refresh_schedule", "*/15 * * * *")
	viper.SetDefault("url_sync", true)
	viper.SetDefault("lookback_days", 30)
	viper.SetDefault("station_timezone", "Europe/Berlin")
}

// Load reads configuration from an optional .env file, the environment and
// any flags previously bound into viper.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Get().Infow("no .env file found")
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	cfg := &Config{
		DatasetteURL:    strings.TrimRight(viper.GetString("datasette_url"), "/"),
		Database:        viper.GetString("datasette_db"),
		StateDBPath:     viper.GetString("state_db_path"),
		Port:            viper.GetInt("port"),
		LogLevel:        viper.GetString("log_level"),
		RefreshSchedule: viper.GetString("refresh_schedule"),
		URLSync:         viper.GetBool("url_sync"),
		LookbackDays:    viper.GetInt("lookback_days"),
	}

	if cfg.DatasetteURL == "" {
		return nil, errors.New("DATASETTE_URL is required")
	}
	if cfg.Database == "" {
		return nil, errors.New("DATASETTE_DB is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid PORT: %d", cfg.Port)
	}
	if cfg.LookbackDays <= 0 {
		return nil, fmt.Errorf("invalid LOOKBACK_DAYS: %d", cfg.LookbackDays)
	}

	tz := viper.GetString("station_timezone")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid STATION_TIMEZONE %q", tz)
	}
	cfg.Location = loc

	logger.Configure(cfg.LogLevel)
	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
