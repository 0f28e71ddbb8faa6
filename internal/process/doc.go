// Package process runs the vendor configuration tool as short-lived subprocesses.
//
// Every device query in tunerwatch is one invocation of the tool
// (hdhomerun_config by default): "discover", "<id> get /tuner0/status",
// "<id> set /tuner0/channel auto:8" and so on. The Runner bounds each
// invocation with the caller's context, kills the whole process group when
// the deadline passes, and turns the tool's error conventions into Go errors.
//
// Example usage:
//
//	runner := process.NewRunner("hdhomerun_config")
//	runner.SetLogger(log)
//
//	ctx, cancel := context.WithTimeout(ctx, 700*time.Millisecond)
//	defer cancel()
//	out, err := runner.Run(ctx, "1040ABCD", "get", "/tuner0/status")
package process
