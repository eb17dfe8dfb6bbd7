package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const maxChunkSize = 16 * 1024 * 1024

type Config struct {
	Transfer TransferConfig `mapstructure:"transfer" yaml:"transfer"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

type TransferConfig struct {
	ChunkSize       int    `mapstructure:"chunk_size" yaml:"chunk_size"`
	Parallel        int    `mapstructure:"parallel" yaml:"parallel"`
	ContinueOnError bool   `mapstructure:"continue_on_error" yaml:"continue_on_error"`
	Digest          string `mapstructure:"digest" yaml:"digest"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
	// Listen serves /metrics on this address while transfers run.
	Listen string `mapstructure:"listen" yaml:"listen"`
	// Textfile, when set, receives the counters in the Prometheus text format
	// after the run.
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// Load reads the YAML file at path, if any, and applies CHUNKCOPY_* env
// overrides on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("transfer.chunk_size", 32*1024)
	v.SetDefault("transfer.parallel", 4)
	v.SetDefault("transfer.continue_on_error", true)
	v.SetDefault("transfer.digest", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.namespace", "chunkcopy")
	v.SetDefault("metrics.listen", "")
	v.SetDefault("metrics.textfile", "")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "error reading config file %s", path)
		}
	}

	v.SetEnvPrefix("CHUNKCOPY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "error decoding config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Transfer.ChunkSize <= 0 || c.Transfer.ChunkSize > maxChunkSize {
		return fmt.Errorf("transfer.chunk_size must be between 1 and %d, got %d", maxChunkSize, c.Transfer.ChunkSize)
	}

	if c.Transfer.Parallel <= 0 {
		c.Transfer.Parallel = 1
	}

	switch strings.ToLower(c.Transfer.Digest) {
	case "", "md5", "sha1", "sha256", "sha512":
		c.Transfer.Digest = strings.ToLower(c.Transfer.Digest)
	default:
		return fmt.Errorf("transfer.digest: unsupported algorithm %q", c.Transfer.Digest)
	}

	if (c.Metrics.Textfile != "" || c.Metrics.Listen != "") && c.Metrics.Namespace == "" {
		return errors.New("metrics.namespace is required when metrics are exported")
	}
	return nil
}
