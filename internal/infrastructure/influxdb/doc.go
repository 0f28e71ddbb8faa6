// Package influxdb records tuner signal history in InfluxDB v2.
//
// Every status a monitoring session reads becomes one point:
//
//	tuner_signal,device=1040ABCD,tuner=0,channel=auto:8 lock=true,ss=80i,snq=92i,ss_db=-52.1
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	manager.AddObserver(client)
//
// Writes are batched according to batch_size and flush_interval. Write
// errors arrive asynchronously and are logged.
package influxdb
