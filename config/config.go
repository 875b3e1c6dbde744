// Package config loads the mixer client configuration from flags, the
// environment (MIXER_*) and an optional config file, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/kysee/zk-mixer/prover"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "MIXER"

const (
	defaultRPCURL     = "ws://127.0.0.1:9944"
	defaultRelayerURL = "ws://127.0.0.1:9955/ws"
	defaultChain      = "webb"
	defaultLogLevel   = "info"
	defaultWorkers    = 1
)

type Config struct {
	RPCURL       string `mapstructure:"rpc-url"`
	RelayerURL   string `mapstructure:"relayer-url"`
	Chain        string `mapstructure:"chain"`
	TreeID       uint32 `mapstructure:"tree-id"`
	TreeDepth    int    `mapstructure:"tree-depth"`
	ProvingKey   string `mapstructure:"proving-key"`
	VerifyingKey string `mapstructure:"verifying-key"`
	LogLevel     string `mapstructure:"log-level"`
	Workers      int    `mapstructure:"workers"`
}

func DefaultConfig() *Config {
	return &Config{
		RPCURL:       defaultRPCURL,
		RelayerURL:   defaultRelayerURL,
		Chain:        defaultChain,
		TreeDepth:    prover.DefaultTreeDepth,
		ProvingKey:   "mixer.pk",
		VerifyingKey: "mixer.vk",
		LogLevel:     defaultLogLevel,
		Workers:      defaultWorkers,
	}
}

// AddFlags registers every config key on flags, with its default value.
func AddFlags(flags *pflag.FlagSet) {
	def := DefaultConfig()
	flags.String("rpc-url", def.RPCURL, "Websocket url of the chain node")
	flags.String("relayer-url", def.RelayerURL, "Websocket url of the relayer")
	flags.String("chain", def.Chain, "Chain name sent to the relayer")
	flags.Uint32("tree-id", def.TreeID, "Mixer tree id")
	flags.Int("tree-depth", def.TreeDepth, "Mixer tree depth, must match the proving key")
	flags.String("proving-key", def.ProvingKey, "Path to the proving key")
	flags.String("verifying-key", def.VerifyingKey, "Path to the verifying key")
	flags.String("log-level", def.LogLevel, "Log level (trace, debug, info, warn, error)")
	flags.Int("workers", def.Workers, "Number of proofs computed at the same time")
}

// Load reads the configuration into a new viper instance. file may be empty.
func Load(flags *pflag.FlagSet, file string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	for name, u := range map[string]string{"rpc-url": c.RPCURL, "relayer-url": c.RelayerURL} {
		parsed, err := url.Parse(u)
		if err != nil || (parsed.Scheme != "ws" && parsed.Scheme != "wss") {
			errs = append(errs, fmt.Errorf("%s: want a ws:// or wss:// url, got %q", name, u))
		}
	}
	if c.TreeDepth <= 0 || c.TreeDepth > prover.MaxTreeDepth {
		errs = append(errs, fmt.Errorf("tree-depth: out of range: %d", c.TreeDepth))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers: must be positive: %d", c.Workers))
	}
	if c.Chain == "" {
		errs = append(errs, errors.New("chain: empty"))
	}
	return errors.Join(errs...)
}
