// Package config loads the tunerwatch configuration.
//
// Values are layered: built-in defaults, then the YAML file, then
// TUNERWATCH_* environment variables. Validate reports every problem at once
// rather than stopping at the first.
//
// Devices are found by broadcast discovery unless
// TUNERWATCH_DISABLE_AUTO_DISCOVERY is set; TUNERWATCH_MANUAL_HOSTS adds
// hosts that broadcasts cannot reach. Keep the MQTT password and InfluxDB
// token in the environment rather than the file.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	hosts := cfg.Devices.ManualHosts
package config
