package common

import (
	"os"
	"strings"
	"sync"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/weaveworks/promrus"
)

// EnvPrefix is the prefix of environment variables overriding config values,
// e.g., LOADGATE_TESTFILESDIR or LOADGATE_PROXY_HOST.
const EnvPrefix = "LOADGATE"

// LoadConfig reads the config file into v and unmarshals the result, together with any bound
// flags and environment variables, into config. If cfgFile is empty, .loadgate.yaml is looked up in
// the working directory and then in the user's home directory; not finding it is not an error.
func LoadConfig(v *viper.Viper, cfgFile string, config interface{}, opts ...viper.DecoderConfigOption) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return errors.Errorf("error getting user home directory: %s", err)
		}
		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.SetConfigName(".loadgate")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.MergeInConfig(); err != nil {
		switch err.(type) {
		case viper.ConfigFileNotFoundError:
			// Only returned when looking for the default file, which users don't have to provide.
		default:
			return errors.Errorf("error reading config file %s: %s", v.ConfigFileUsed(), err)
		}
	} else {
		log.Debugf("Using config file %s", v.ConfigFileUsed())
	}

	if err := v.Unmarshal(config, opts...); err != nil {
		return errors.WithMessage(err, "error decoding config")
	}
	return nil
}

func ConfigureCommandLineLogging() {
	log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	log.SetOutput(os.Stdout)
}

// SetLogLevel sets the level of the standard logger, e.g., "debug" or "warn".
func SetLogLevel(level string) error {
	l, err := log.ParseLevel(level)
	if err != nil {
		return errors.WithStack(err)
	}
	log.SetLevel(l)
	return nil
}

var (
	logMetricsOnce sync.Once
	logMetricsErr  error
)

// AddLogMetricsHook counts log messages by level in the default Prometheus registry.
// Only the first call adds the hook; the counters can only be registered once.
func AddLogMetricsHook() error {
	logMetricsOnce.Do(func() {
		hook, err := promrus.NewPrometheusHook()
		if err != nil {
			logMetricsErr = errors.WithMessage(err, "error creating log metrics hook")
			return
		}
		log.AddHook(hook)
	})
	return logMetricsErr
}
