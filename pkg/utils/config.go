package utils

import (
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Queue    QueueConfig
	Booking  BookingConfig
	Sweep    SweepConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

// RedisConfig is optional: an empty Addr disables the seat map cache.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	TTLSeconds int
}

// QueueConfig is optional: an empty URL disables event publishing.
type QueueConfig struct {
	URL string
}

type BookingConfig struct {
	HoldLeaseMinutes int
}

type SweepConfig struct {
	ShowtimeSeconds    int
	BookingSeconds     int
	LockSeconds        int
	ConsistencySeconds int
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_TTL_SECONDS", 30)
	viper.SetDefault("HOLD_LEASE_MINUTES", 15)
	viper.SetDefault("SWEEP_SHOWTIME_SECONDS", 60)
	viper.SetDefault("SWEEP_BOOKING_SECONDS", 60)
	viper.SetDefault("SWEEP_LOCK_SECONDS", 60)
	viper.SetDefault("SWEEP_CONSISTENCY_SECONDS", 300)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Addr:       viper.GetString("REDIS_ADDR"),
			Password:   viper.GetString("REDIS_PASS"),
			DB:         viper.GetInt("REDIS_DB"),
			TTLSeconds: viper.GetInt("REDIS_TTL_SECONDS"),
		},
		Queue: QueueConfig{
			URL: viper.GetString("RABBITMQ_URL"),
		},
		Booking: BookingConfig{
			HoldLeaseMinutes: viper.GetInt("HOLD_LEASE_MINUTES"),
		},
		Sweep: SweepConfig{
			ShowtimeSeconds:    viper.GetInt("SWEEP_SHOWTIME_SECONDS"),
			BookingSeconds:     viper.GetInt("SWEEP_BOOKING_SECONDS"),
			LockSeconds:        viper.GetInt("SWEEP_LOCK_SECONDS"),
			ConsistencySeconds: viper.GetInt("SWEEP_CONSISTENCY_SECONDS"),
		},
	}

	return config, nil
}
