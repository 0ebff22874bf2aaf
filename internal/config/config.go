package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Addr string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type MQTTConfig struct {
	Enabled     bool
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

type ScheduleConfig struct {
	TickMinutes int
	Timezone    string
}

type SlackConfig struct {
	BotToken  string
	ChannelID string
}

type LogConfig struct {
	Level string
}

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	MQTT     MQTTConfig
	Schedule ScheduleConfig
	Slack    SlackConfig
	Log      LogConfig
}

func LoadConfig() (*Config, error) {
	v := viper.New()

	v.BindEnv("server.addr", "SERVER_ADDR")

	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")

	v.BindEnv("mqtt.enabled", "MQTT_ENABLED")
	v.BindEnv("mqtt.broker", "MQTT_BROKER")
	v.BindEnv("mqtt.clientid", "MQTT_CLIENT_ID")
	v.BindEnv("mqtt.username", "MQTT_USERNAME")
	v.BindEnv("mqtt.password", "MQTT_PASSWORD")
	v.BindEnv("mqtt.topicprefix", "MQTT_TOPIC_PREFIX")

	v.BindEnv("schedule.tickminutes", "SCHEDULE_TICK_MINUTES")
	v.BindEnv("schedule.timezone", "SCHEDULE_TIMEZONE")

	v.BindEnv("slack.bottoken", "SLACK_BOT_TOKEN")
	v.BindEnv("slack.channelid", "SLACK_CHANNEL_ID")

	v.BindEnv("log.level", "LOG_LEVEL")

	v.SetDefault("server.addr", ":3005")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("mqtt.clientid", "smartgrowth-server")
	v.SetDefault("mqtt.topicprefix", "smartgrowth")
	v.SetDefault("schedule.tickminutes", 1)
	v.SetDefault("schedule.timezone", "Local")
	v.SetDefault("log.level", "info")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}

	if env == "local" {
		v.SetConfigFile(".env.local")
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				if _, statErr := os.Stat(".env.local"); statErr == nil {
					return nil, fmt.Errorf("error reading config file .env.local: %w", err)
				}
			}
			// .env.local is optional; environment variables are enough.
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

// DSN returns the PostgreSQL connection string.
func (cfg *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		cfg.Database.Host,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.Port,
		cfg.Database.SSLMode,
	)
}
