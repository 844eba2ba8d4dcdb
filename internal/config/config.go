package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                          string        `mapstructure:"PORT"`
	DatabaseDriver                string        `mapstructure:"DATABASE_DRIVER"`
	DatabasePath                  string        `mapstructure:"DATABASE_PATH"`
	DatabaseDSN                   string        `mapstructure:"DATABASE_DSN"`
	JWTSecret                     string        `mapstructure:"JWT_SECRET"`
	LogLevel                      string        `mapstructure:"LOG_LEVEL"`
	LogFormat                     string        `mapstructure:"LOG_FORMAT"`
	DefaultCurrency               string        `mapstructure:"DEFAULT_CURRENCY"`
	Timezone                      string        `mapstructure:"TIMEZONE"`
	LockBackend                   string        `mapstructure:"LOCK_BACKEND"`
	LockTTL                       time.Duration `mapstructure:"LOCK_TTL"`
	RedisAddr                     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword                 string        `mapstructure:"REDIS_PASSWORD"`
	DiscordBotToken               string        `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string        `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`
	AMQPURL                       string        `mapstructure:"AMQP_URL"`
	AMQPExchange                  string        `mapstructure:"AMQP_EXCHANGE"`
	EnableCORS                    bool          `mapstructure:"ENABLE_CORS"`
	CORSOrigins                   []string      `mapstructure:"CORS_ORIGINS"`
	RequestTimeout                time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	AdminEmail                    string        `mapstructure:"ADMIN_EMAIL"`
	AdminName                     string        `mapstructure:"ADMIN_NAME"`
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Unknown TIMEZONE %q, using UTC: %v", c.Timezone, err)
		return time.UTC
	}
	return loc
}

func LoadConfig() *Config {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DATABASE_DRIVER", "sqlite")
	viper.SetDefault("DATABASE_PATH", "reservations.db")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("DEFAULT_CURRENCY", "USD")
	viper.SetDefault("TIMEZONE", "UTC")
	viper.SetDefault("LOCK_BACKEND", "memory")
	viper.SetDefault("LOCK_TTL", 10*time.Second)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("AMQP_EXCHANGE", "reservations")
	viper.SetDefault("REQUEST_TIMEOUT", 15*time.Second)
	viper.SetDefault("ADMIN_NAME", "Administrator")

	viper.BindEnv("DATABASE_DSN")
	viper.BindEnv("JWT_SECRET")
	viper.BindEnv("REDIS_PASSWORD")
	viper.BindEnv("DISCORD_BOT_TOKEN")
	viper.BindEnv("DISCORD_NOTIFICATIONS_CHANNEL_ID")
	viper.BindEnv("AMQP_URL")
	viper.BindEnv("ENABLE_CORS")
	viper.BindEnv("CORS_ORIGINS")
	viper.BindEnv("ADMIN_EMAIL")

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	return &config
}
