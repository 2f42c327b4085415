package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/kpelzel/artnode/internal/artnet"
	yamlv3 "gopkg.in/yaml.v3"
)

const (
	// EnvPrefix selects the environment overrides, e.g. ARTNODE_INPUT__ARTNET_PORT=6455.
	EnvPrefix = "ARTNODE_"

	// DefaultAdminPort is the UDP port of the administrative JSON protocol.
	DefaultAdminPort = 9494
)

func Defaults() *Config {
	return &Config{
		Input: Input{
			IP:         "0.0.0.0",
			ArtNetPort: artnet.Port,
			AdminPort:  DefaultAdminPort,
		},
		Store: Store{
			Path: "artnode-data",
		},
		Metrics: Metrics{
			Addr: ":9101",
		},
		Engine: Engine{
			ServiceInterval: time.Millisecond,
			StatsWindow:     1000,
			StatusInterval:  10 * time.Second,
		},
	}
}

// Load layers the defaults, the yaml file at path (skipped when it does not exist) and
// the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "yaml"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps ARTNODE_ENGINE__STATS_WINDOW to engine.stats_window.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func (c *Config) Validate() error {
	var errs []error
	if c.Input.ArtNetPort <= 0 || c.Input.ArtNetPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid artnet port %v", c.Input.ArtNetPort))
	}
	if c.Input.AdminPort <= 0 || c.Input.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid admin port %v", c.Input.AdminPort))
	}
	if c.Engine.ServiceInterval <= 0 {
		errs = append(errs, fmt.Errorf("invalid service interval %v", c.Engine.ServiceInterval))
	}
	if c.Engine.StatsWindow <= 0 {
		errs = append(errs, fmt.Errorf("invalid stats window %v", c.Engine.StatsWindow))
	}
	seen := make(map[int]bool)
	for _, o := range c.Outputs {
		if seen[o.Port] {
			errs = append(errs, fmt.Errorf("output for port[%v] configured twice", o.Port))
		}
		seen[o.Port] = true
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Dump renders the effective configuration as yaml.
func (c *Config) Dump() ([]byte, error) {
	return yamlv3.Marshal(c)
}
