package main

import (
	"bytes"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/trim21/errgo"
)

// fileConfig is the optional TOML file given with --config.
type fileConfig struct {
	LogLevel string `toml:"log-level"`
	LogJSON  *bool  `toml:"log-json"`
	BS       string `toml:"bs"`
	Status   string `toml:"status"`
}

func loadConfigFile(path string) (fileConfig, error) {
	var cfg fileConfig

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, errgo.Wrap(err, "failed to read config file")
	}

	d := toml.NewDecoder(bytes.NewReader(raw))
	d.DisallowUnknownFields()
	if err := d.Decode(&cfg); err != nil {
		return cfg, errgo.Wrap(err, "failed to parse config file")
	}

	return cfg, nil
}

// setupConfig layers flags over WDD_* environment variables over the config
// file. Operands given on the command line are applied later and win over
// all of them.
func setupConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	v.SetEnvPrefix("WDD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return errgo.Wrap(err, "failed to combine arguments with env")
	}

	path := v.GetString("config")
	if path == "" {
		return nil
	}

	cfg, err := loadConfigFile(path)
	if err != nil {
		return err
	}
	if cfg.LogLevel != "" {
		v.SetDefault("log-level", cfg.LogLevel)
	}
	if cfg.LogJSON != nil {
		v.SetDefault("log-json", *cfg.LogJSON)
	}
	if cfg.BS != "" {
		v.SetDefault("bs", cfg.BS)
	}
	if cfg.Status != "" {
		v.SetDefault("status", cfg.Status)
	}

	return nil
}
