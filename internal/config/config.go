// Package config binds the engine's tunable knobs (shard count, release
// window, metrics address) from an optional config file and environment
// variables, layered underneath the CLI's own flags. It follows the
// teacher's cmd/simulator pattern of a pflag.FlagSet bound into a
// spf13/viper instance, rather than urfave/cli's own flag set, so the
// same knobs can be supplied via a config file or environment in addition
// to the command line.
package config

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "accountsd"

// Options are the engine knobs this package knows how to resolve.
type Options struct {
	ShardCount  int
	Window      time.Duration
	MetricsAddr string
}

// BuildFlagSet declares config's flags with their defaults, mirroring the
// teacher's config.BuildFlagSet.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(envPrefix, pflag.ContinueOnError)
	fs.Int("shards", 4, "number of account-manager shards")
	fs.Duration("window", 100*time.Millisecond, "release window for buffered deposits/withdrawals")
	fs.String("metrics-addr", "", "address to serve Prometheus metrics on")
	return fs
}

// BuildViper binds fs into a fresh viper instance, layering in
// ACCOUNTSD_-prefixed environment variables and, if configPath is
// non-empty, a config file.
func BuildViper(fs *pflag.FlagSet, configPath string) (*viper.Viper, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Load reads Options out of v.
func Load(v *viper.Viper) Options {
	return Options{
		ShardCount:  v.GetInt("shards"),
		Window:      v.GetDuration("window"),
		MetricsAddr: v.GetString("metrics-addr"),
	}
}
