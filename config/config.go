package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DBPath  string        `mapstructure:"db_path"`
	RPC     RPCConfig     `mapstructure:"rpc"`
	Signing SigningConfig `mapstructure:"signing"`
	Redis   RedisConfig   `mapstructure:"redis"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

type RPCConfig struct {
	URL     string        `mapstructure:"url"`
	User    string        `mapstructure:"user"`
	Pass    string        `mapstructure:"pass"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SigningConfig struct {
	// Code hash a lock must carry to be signed; empty accepts any.
	LockCodeHash string `mapstructure:"lock_code_hash"`
}

type RedisConfig struct {
	Addr string        `mapstructure:"addr"` // empty disables the live cell cache
	TTL  time.Duration `mapstructure:"ttl"`
}

type PubSubConfig struct {
	ProjectID   string `mapstructure:"project_id"` // empty disables events
	TopicPrefix string `mapstructure:"topic_prefix"`
}

type MetricsConfig struct {
	Pushgateway string `mapstructure:"pushgateway"`
	Job         string `mapstructure:"job"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	File   string `mapstructure:"file"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "./data/txbench")

	v.SetDefault("rpc.url", "http://127.0.0.1:8114")
	v.SetDefault("rpc.user", "")
	v.SetDefault("rpc.pass", "")
	v.SetDefault("rpc.timeout", 30*time.Second)

	v.SetDefault("signing.lock_code_hash", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.ttl", 30*time.Second)

	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_prefix", "")

	v.SetDefault("metrics.pushgateway", "")
	v.SetDefault("metrics.job", "txbench")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.file", "")
}

// Load reads the TOML file at path, or txbench.toml from the usual search
// paths when path is empty, then applies TXBENCH_* environment overrides.
// A missing file in the search paths is not an error.
func Load(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("txbench")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.txbench")
		v.AddConfigPath("/etc/txbench/")
	}

	v.SetEnvPrefix("TXBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
