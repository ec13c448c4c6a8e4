package configuration

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/armadaproject/loadgate/internal/common"
	"github.com/armadaproject/loadgate/internal/common/config"
)

// Load builds the config from, in decreasing order of precedence, flags set in fs, environment
// variables, the config file and the defaults. Overrides given with --property are appended to
// those of the config file, so they win. The result is validated.
func Load(cfgFile string, fs *pflag.FlagSet) (LoadgateConfig, error) {
	v := viper.New()
	SetDefaults(v)
	if fs != nil {
		if err := BindFlags(v, fs); err != nil {
			return LoadgateConfig{}, err
		}
	}

	var c LoadgateConfig
	if err := common.LoadConfig(v, cfgFile, &c, config.CustomHooks...); err != nil {
		return LoadgateConfig{}, err
	}
	if fs != nil {
		extra, err := PropertyOverridesFromFlags(fs)
		if err != nil {
			return LoadgateConfig{}, err
		}
		c.Properties.Overrides = append(c.Properties.Overrides, extra...)
	}
	// Unset slice flags decode to empty slices, which the validator treats as given.
	if len(c.Artifacts.LibDirs) == 0 {
		c.Artifacts.LibDirs = nil
	}
	if err := config.Validate(c); err != nil {
		return LoadgateConfig{}, err
	}
	return c, nil
}
