package config

import (
	"github.com/spf13/pflag"
)

// RegisterFlags defines the config override flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "path to YAML config file")
	fs.StringP("port", "p", "", "HTTP listen port")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("catalog-dir", "", "skill directory holding SKILL.md and cookbook/")
	fs.String("work-dir", "", "working directory for spawned terminals")
	fs.String("nats-url", "", "NATS server URL for the event mirror")
}

// FlagsFrom collects the flags that were explicitly set on fs.
// Flags left at their zero default stay nil so they do not override ENV.
func FlagsFrom(fs *pflag.FlagSet) CLIFlags {
	var f CLIFlags
	f.ConfigPath = changed(fs, "config")
	f.Port = changed(fs, "port")
	f.LogLevel = changed(fs, "log-level")
	f.CatalogDir = changed(fs, "catalog-dir")
	f.WorkDir = changed(fs, "work-dir")
	f.NatsURL = changed(fs, "nats-url")
	return f
}

// ParseFlags parses args into CLIFlags.
func ParseFlags(args []string) (CLIFlags, error) {
	fs := pflag.NewFlagSet("promptbox", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return CLIFlags{}, err
	}
	return FlagsFrom(fs), nil
}

func changed(fs *pflag.FlagSet, name string) *string {
	fl := fs.Lookup(name)
	if fl == nil || !fl.Changed {
		return nil
	}
	v := fl.Value.String()
	return &v
}
