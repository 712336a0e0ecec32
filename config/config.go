package config

import (
	"errors"
	"io/fs"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	// LogLevel is one of silent, error, warn or info.
	LogLevel string `mapstructure:"loglevel"`
}

type NATSConfig struct {
	Host          string       `mapstructure:"host"`
	Port          int          `mapstructure:"port"`
	SubjectPrefix string       `mapstructure:"subjectprefix"`
	Stream        StreamConfig `mapstructure:"stream"`
}

type StreamConfig struct {
	Name     string   `mapstructure:"name"`
	Subjects []string `mapstructure:"subjects"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"hostport"`
	TaskQueue string `mapstructure:"taskqueue"`
}

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Server   ServerConfig   `mapstructure:"server"`
	Temporal TemporalConfig `mapstructure:"temporal"`
}

const envPrefix = "POKERSTATS"

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "pokerstats")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.loglevel", "warn")

	v.SetDefault("nats.host", "localhost")
	v.SetDefault("nats.port", 4222)
	v.SetDefault("nats.subjectprefix", "pokerstats.tournament")
	v.SetDefault("nats.stream.name", "POKERSTATS_TOURNAMENTS")
	v.SetDefault("nats.stream.subjects", []string{"pokerstats.tournament.>"})

	v.SetDefault("server.port", "8080")

	v.SetDefault("temporal.hostport", "localhost:7233")
	v.SetDefault("temporal.taskqueue", "pokerstats-totals")
}

// LoadConfig reads config.yaml from the working directory (or ./config) and
// lets POKERSTATS_* environment variables override any key, e.g.
// POKERSTATS_DATABASE_HOST. A missing config file is not an error.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Ignoring unreadable .env file: %v", err)
	}

	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
