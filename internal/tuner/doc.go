// Package tuner talks to network tuners through their configuration tool.
//
// It has three layers:
//
//   - parser.go turns the tool's key=value text into typed records
//     (status, PLP table, L1 details, program lists, scan results).
//   - signal.go estimates dBm and dB from the raw debug counters.
//   - Probe issues the queries and commands for one device and tuner.
//
// Reads never fail loudly. A status that cannot be read is nil and tables
// that cannot be read are empty, so polling loops survive a device that
// drops off the network. Commands return errors wrapping ErrCommandFailed.
//
// Usage:
//
//	runner := process.NewRunner(cfg.Devices.ConfigBinary)
//	probe := tuner.NewProbe(runner, tuner.Options{QueryTimeout: cfg.Monitor.QueryTimeout})
//	status := probe.GetTunerStatus(ctx, "1084A2B3", 0)
package tuner
