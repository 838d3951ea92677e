package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks the environment variables Load reads.
const EnvPrefix = "JS_"

// Load reads defaults, then the TOML file (if provided), then env vars.
//
// Env names map onto keys by splitting at the first underscore after the
// prefix: JS_WORKER_RESULT_TIMEOUT sets worker.result_timeout and
// JS_INSTANCE sets instance.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaultValues() {
		if err := k.Set(key, val); err != nil {
			return nil, err
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("read %s: %w", configPath, err)
		}
	}

	// Empty values are skipped so they never override the TOML file.
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		return envKey(key), value
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.StorageDriver = DefaultStorageDriver
	driver, ok := ParseMessageQueueDriver(cfg.Broker.Driver)
	if !ok {
		return nil, fmt.Errorf("unknown broker driver %q", cfg.Broker.Driver)
	}
	cfg.MQDriver = driver

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, rest, found := strings.Cut(key, "_")
	if !found {
		return key
	}
	return section + "." + rest
}
