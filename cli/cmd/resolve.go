package cmd

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/faultline/cli/config"
)

// loadConfig loads --config, or ./faultline.yaml when present.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadOptional(c.String("config"))
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}
	return cfg, nil
}

// configVal reads a field from an optional config.
func configVal[T any](cfg *config.Config, get func(*config.Config) T) T {
	var zero T
	if cfg == nil {
		return zero
	}
	return get(cfg)
}

// resolveString returns the flag when set, else the config value when
// non-empty, else the flag default.
func resolveString(c *cli.Context, name, cfgVal string) string {
	if c.IsSet(name) || cfgVal == "" {
		return c.String(name)
	}
	return cfgVal
}

// resolveInt returns the flag when set, else the config value when non-zero.
func resolveInt(c *cli.Context, name string, cfgVal int) int {
	if c.IsSet(name) || cfgVal == 0 {
		return c.Int(name)
	}
	return cfgVal
}

// resolveInt64 returns the flag when set, else the config value when non-zero.
func resolveInt64(c *cli.Context, name string, cfgVal int64) int64 {
	if c.IsSet(name) || cfgVal == 0 {
		return c.Int64(name)
	}
	return cfgVal
}

// resolveBool returns the flag when set, else the config value.
func resolveBool(c *cli.Context, name string, cfgVal bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return cfgVal || c.Bool(name)
}

// resolveDuration returns the flag when set, else the config value when non-zero.
func resolveDuration(c *cli.Context, name string, cfgVal time.Duration) time.Duration {
	if c.IsSet(name) || cfgVal == 0 {
		return c.Duration(name)
	}
	return cfgVal
}

// resolveStrings returns the flag when set, else the config value when non-empty.
func resolveStrings(c *cli.Context, name string, cfgVal []string) []string {
	if c.IsSet(name) || len(cfgVal) == 0 {
		return c.StringSlice(name)
	}
	return cfgVal
}
