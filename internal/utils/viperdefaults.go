package utils

import "github.com/spf13/viper"

// Set the viper defaults for the harness.
// For use in cmd/halharness and its tests.
func SetViperDefaults(v *viper.Viper) {
	v.SetDefault("loglevel", "info")
	v.SetDefault("logfile", "")
	v.SetDefault("backend", "simulated")
	v.SetDefault("fixture", "")
	v.SetDefault("aggregate.name", "HarnessAggregateDevice")
	v.SetDefault("aggregate.vendor", "halharness")
	v.SetDefault("feed.address", "localhost:8089")
}
