// Package mqtt connects tunerwatch to an MQTT broker.
//
// It provides:
//   - Connection with auto-reconnect and an offline Last Will
//   - Retained tuner state on tunerwatch/state/{device}/{tuner}
//   - Optional tuner commands on tunerwatch/command/{device}/{tuner},
//     answered on tunerwatch/ack/{device}/{tuner}
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	manager.AddObserver(mqtt.NewStatePublisher(client))
//	err = client.ServeCommands(ctx, probe, cfg.Tuner.CommandTimeout)
//
// StatePublisher never waits for the broker, so a slow or absent broker does
// not stall monitoring sessions.
package mqtt
