// Package monitor runs per-client tuner polling sessions.
//
// A client has at most one session. Two modes exist:
//
//   - Single: every tick reads status and current program of one tuner,
//     plus PLP and L1 detail while the tuner has a channel, and sends one
//     tuner_status event.
//   - Antenna: every tick reads the status of all tuners concurrently and
//     sends one antenna_status event holding an array with one entry per
//     tuner (nil for a tuner that could not be read).
//
// Each session is a goroutine with a time.Ticker. Stopping a session cancels
// its context and marks it dead under the session lock, so a tick already in
// flight is dropped instead of reaching the sink.
//
// Every status read by a live session is also passed to registered
// StatusObservers, which is how MQTT and InfluxDB publishing hook in.
package monitor
