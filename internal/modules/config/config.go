package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"binary_bot/internal/broker/deriv"
	"binary_bot/internal/broker/paper"
	"binary_bot/internal/indicator"
	"binary_bot/internal/models"
	"binary_bot/internal/runner"
	"binary_bot/internal/store"
	"binary_bot/pkg/logger"
	"binary_bot/pkg/tracing"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDirENV      = "CONFIG_DIR"
	envPrefix         = "BOT"
)

// secrets keep their conventional env names next to the BOT_ prefixed overrides.
var secretEnv = map[string]string{
	"telegram.token": "TELEGRAM_TOKEN",
	"deriv.token":    "DERIV_TOKEN",
	"store.dsn":      "DATABASE_DSN",
}

type ServiceConfig struct {
	Name       string `yaml:"name"`
	HealthAddr string `yaml:"health_addr"`
}

type TelegramConfig struct {
	Token   string  `yaml:"token"`
	ChatIDs []int64 `yaml:"chat_ids"`
}

type StoreConfig struct {
	Driver   string            `yaml:"driver"` // memory | postgres | redis
	DSN      string            `yaml:"dsn"`
	MaxConns int32             `yaml:"max_conns"`
	Redis    store.RedisConfig `yaml:"redis"`
}

// Config ...
type Config struct {
	Service   ServiceConfig    `yaml:"service"`
	Logger    logger.Config    `yaml:"logger"`
	Tracing   tracing.Config   `yaml:"tracing"`
	Telegram  TelegramConfig   `yaml:"telegram"`
	Store     StoreConfig      `yaml:"store"`
	Deriv     deriv.Config     `yaml:"deriv"`
	Paper     paper.Config     `yaml:"paper"`
	Runner    runner.Config    `yaml:"runner"`
	Indicator indicator.Config `yaml:"indicator"`
	Settings  models.Settings  `yaml:"settings"`
}

func defaultConfig() Config {
	return Config{
		Service:   ServiceConfig{Name: "binary_bot", HealthAddr: ":8080"},
		Logger:    logger.Config{Level: "info", Format: "json"},
		Store:     StoreConfig{Driver: "memory"},
		Indicator: indicator.DefaultConfig(),
		Settings:  models.DefaultSettings(),
	}
}

// NewConfig reads configs/$CONFIG_FILE (values_local.yaml by default). The file
// is decoded strictly, then env overrides are applied: BOT_<SECTION>_<KEY> for
// any key of the file plus the secret names in secretEnv.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	name := getenvDefault(configFilePathENV, "values_local.yaml")
	path := filepath.Join(getenvDefault(configDirENV, "configs"), name)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range secretEnv {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}
	if err := v.ReadConfig(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("viper read %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
