// tunerwatch - live signal monitoring for network TV tuners
//
// This is the main entry point. It discovers tuners on the local network,
// serves the REST and WebSocket API, and optionally mirrors tuner state to
// MQTT, signal history to InfluxDB and channel scans to SQLite.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/tunerwatch/internal/api"
	"github.com/nerrad567/tunerwatch/internal/device"
	"github.com/nerrad567/tunerwatch/internal/infrastructure/config"
	"github.com/nerrad567/tunerwatch/internal/infrastructure/database"
	"github.com/nerrad567/tunerwatch/internal/infrastructure/influxdb"
	"github.com/nerrad567/tunerwatch/internal/infrastructure/logging"
	"github.com/nerrad567/tunerwatch/internal/infrastructure/mqtt"
	"github.com/nerrad567/tunerwatch/internal/monitor"
	"github.com/nerrad567/tunerwatch/internal/process"
	"github.com/nerrad567/tunerwatch/internal/scanhistory"
	"github.com/nerrad567/tunerwatch/internal/tuner"
	"github.com/nerrad567/tunerwatch/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting tunerwatch",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Every device query goes through the vendor tool
	runner := process.NewRunner(cfg.Devices.ConfigBinary)
	runner.SetLogger(log.Component("process"))

	probe := tuner.NewProbe(runner, tuner.Options{
		QueryTimeout:   cfg.Monitor.QueryTimeout,
		CommandTimeout: cfg.Tuner.CommandTimeout,
		ScanTimeout:    cfg.Tuner.ScanTimeout,
	})
	probe.SetLogger(log.Component("tuner"))

	var cloud device.CloudSource
	if cfg.Devices.CloudDiscoveryURL != "" {
		cloud = device.NewCloudClient(cfg.Devices.CloudDiscoveryURL, cfg.Devices.DiscoveryTimeout)
	}
	discovery := device.NewDiscovery(runner, cloud, device.Options{
		AutoDiscovery:    cfg.Devices.AutoDiscovery,
		ManualHosts:      cfg.Devices.ManualHosts,
		HostCacheTTL:     cfg.Devices.HostCacheTTL,
		QueryTimeout:     cfg.Monitor.QueryTimeout,
		DiscoveryTimeout: cfg.Devices.DiscoveryTimeout,
	})
	discovery.SetLogger(log.Component("device"))

	manager := monitor.NewManager(probe, cfg.Monitor.Interval)
	manager.SetLogger(log.Component("monitor"))
	defer func() {
		log.Info("stopping monitoring sessions")
		manager.Close()
	}()

	deps := api.Deps{
		Config:         cfg.API,
		WS:             cfg.WebSocket,
		Logger:         log.Component("api"),
		Devices:        discovery,
		Tuners:         probe,
		Sessions:       manager,
		Runner:         runner,
		ProgramRetries: cfg.Tuner.ProgramRetries,
		Version:        version,
	}

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = connectMQTT(ctx, cfg, probe, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		manager.AddObserver(mqtt.NewStatePublisher(mqttClient))
		deps.MQTT = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetLogger(log.Component("influxdb"))
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		manager.AddObserver(influxClient)
		deps.InfluxDB = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	// Scan history (optional)
	var db *database.DB
	if cfg.Database.Enabled {
		db, err = openScanHistory(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		deps.Scans = scanhistory.NewSQLiteRepository(db.DB)
	} else {
		log.Info("scan history disabled")
	}

	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, server, mqttClient, influxClient, db); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Warm the device cache so the first list request is fast
	go func() {
		devices := discovery.Discover(ctx, false)
		log.Info("initial discovery complete", "devices", len(devices))
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server (stops accepting sessions)
	// 2. Database
	// 3. InfluxDB (flushes pending points)
	// 4. MQTT (publishes offline status)
	// 5. Monitoring sessions

	log.Info("tunerwatch stopped")
	return nil
}

// connectMQTT connects to the broker and, when enabled, starts serving
// tuner commands.
func connectMQTT(ctx context.Context, cfg *config.Config, probe *tuner.Probe, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttLog := log.Component("mqtt")
	client.SetLogger(mqttLog)
	client.SetOnConnect(func() {
		mqttLog.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		mqttLog.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	if cfg.MQTT.Commands {
		if err := client.ServeCommands(ctx, probe, cfg.Tuner.CommandTimeout); err != nil {
			client.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("subscribing to MQTT commands: %w", err)
		}
		log.Info("MQTT tuner commands enabled", "topic", mqtt.Topics{}.AllTunerCommands())
	}

	return client, nil
}

// openScanHistory opens the database, applies migrations and drops scans
// older than the retention window.
func openScanHistory(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*database.DB, error) {
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database opened", "path", db.Path(), "wal", cfg.WALMode)

	if cfg.Retention > 0 {
		repo := scanhistory.NewSQLiteRepository(db.DB)
		pruned, err := repo.Prune(ctx, time.Now().Add(-cfg.Retention))
		if err != nil {
			log.Warn("pruning old scans failed", "error", err)
		} else if pruned > 0 {
			log.Info("pruned old scans", "count", pruned, "retention", cfg.Retention)
		}
	}
	return db, nil
}

// getConfigPath returns the configuration file path.
// Uses TUNERWATCH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TUNERWATCH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthChecker is implemented by every component with a health check.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// healthCheck verifies the server and any enabled backends.
// mqttClient, influxClient and db may be nil when disabled.
func healthCheck(ctx context.Context, server healthChecker, mqttClient *mqtt.Client, influxClient *influxdb.Client, db *database.DB) error {
	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	return nil
}
