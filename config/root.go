package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables overriding configuration keys.
const EnvPrefix = "RDMACTX"

// Configuration keys, shared by flags, environment and config files.
const (
	KeyResource  = "resource"
	KeyDevice    = "device"
	KeyCondition = "condition"
	KeyOutputDir = "output_dir"
	KeyJobs      = "jobs"
	KeyTool      = "tool"
	KeyCompact   = "compact"
	KeyDebug     = "debug"
)

// Root is the configuration for the root rdmactx command
type Root struct {
	Tool  string
	Debug bool
	Dump  DumpCommand
}

// NewViper returns a viper instance reading RDMACTX_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile merges the config file at path into v.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	return nil
}

// Load builds the root configuration from v.
func Load(v *viper.Viper) Root {
	return Root{
		Tool:  v.GetString(KeyTool),
		Debug: v.GetBool(KeyDebug),
		Dump: DumpCommand{
			Resource:   v.GetString(KeyResource),
			Device:     v.GetString(KeyDevice),
			Conditions: v.GetStringSlice(KeyCondition),
			OutputDir:  v.GetString(KeyOutputDir),
			Jobs:       v.GetInt(KeyJobs),
			Compact:    v.GetBool(KeyCompact),
		},
	}
}
