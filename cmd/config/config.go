package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/internal/utils"
	"github.com/spf13/viper"
)

// LoadConfig fills v from the defaults, the config file at configFilePath and HALHARNESS_ environment variables.
// A missing config file is not an error.
func LoadConfig(v *viper.Viper, configFilePath string) error {
	utils.SetViperDefaults(v)
	v.SetEnvPrefix("HALHARNESS")
	// aggregate.name is read from HALHARNESS_AGGREGATE_NAME
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFilePath == "" {
		return nil
	}

	v.SetConfigFile(configFilePath)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			slog.Info("no config file found", "configFilePath", configFilePath)
			return nil
		}
		slog.Error("error during config read", "err", err)
		return err
	}
	return nil
}
