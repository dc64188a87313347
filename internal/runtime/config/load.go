package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. INGRESS_KAFKA_BROKERS.
const EnvPrefix = "INGRESS"

var defaults = map[string]any{
	"pubsub_system":         "channel",
	"kafka_brokers":         []string{},
	"kafka_client_id":       "ingress",
	"kafka_consumer_group":  "",
	"rabbitmq_url":          "",
	"rabbitmq_queue_suffix": "ingress",
	"nats_url":              "",
	"aws_region":            "",
	"aws_account_id":        "",
	"aws_access_key_id":     "",
	"aws_secret_access_key": "",
	"aws_endpoint":          "",
	"http_server_address":   ":8080",
	"postgres_url":          "",
	"postgres_schema":       "ingress",
	"sqlite_path":           "",
	"body_encoding":         "",
	"log_level":             "info",
	"metrics_enabled":       false,
	"metrics_namespace":     "ingress",
	"metrics_port":          9090,
}

// Load reads the configuration file at path (YAML, JSON or TOML, chosen by
// extension) and applies INGRESS_* environment overrides. An empty path
// loads defaults and environment only. The result is not validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
