package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP    HTTP     `mapstructure:"http"`
	Storage Storage  `mapstructure:"storage"`
	DB      Postgres `mapstructure:"database"`
	RMQ     RabbitMQ `mapstructure:"rabbitmq"`
	Redis   Redis    `mapstructure:"redis"`
	Auth    Auth     `mapstructure:"auth"`
}

type HTTP struct {
	Port int `mapstructure:"port"`
}

// Storage selects the order/session/shift repository driver.
type Storage struct {
	Driver string `mapstructure:"driver"` // "postgres" or "memory"
}

type Postgres struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

type RabbitMQ struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	VHost    string `mapstructure:"vhost"`
}

type Redis struct {
	Addr    string `mapstructure:"addr"`
	Enabled bool   `mapstructure:"enabled"`
}

type Auth struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	SessionTTLMin int    `mapstructure:"session_ttl_minutes"`
	StaffTTLMin   int    `mapstructure:"staff_token_ttl_minutes"`
	QRTTLMin      int    `mapstructure:"qr_ttl_minutes"`
}

// LoadConfig reads config.yaml and applies TABLEFLOW_* env overrides
// (e.g. TABLEFLOW_DATABASE_PASSWORD).
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("tableflow")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.port", 3000)
	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("database.port", 5432)
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.vhost", "/")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("auth.session_ttl_minutes", 180)
	v.SetDefault("auth.staff_token_ttl_minutes", 720)
	v.SetDefault("auth.qr_ttl_minutes", 5)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %q: %w", configPath, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
