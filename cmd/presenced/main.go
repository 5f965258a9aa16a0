// presenced - occupancy sensor telemetry service
//
// This is the main entry point for the presence service. It ingests
// occupancy telemetry from ESP32 sensor pods over MQTT, tracks per-pod
// state in SQLite, and fans every accepted reading out to Home Assistant
// discovery topics, WebSocket clients, and optionally InfluxDB.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/Jmi2020/Presence-Sensor/migrations"

	"github.com/Jmi2020/Presence-Sensor/internal/api"
	"github.com/Jmi2020/Presence-Sensor/internal/fanout"
	"github.com/Jmi2020/Presence-Sensor/internal/hass"
	"github.com/Jmi2020/Presence-Sensor/internal/infrastructure/config"
	"github.com/Jmi2020/Presence-Sensor/internal/infrastructure/database"
	"github.com/Jmi2020/Presence-Sensor/internal/infrastructure/influxdb"
	"github.com/Jmi2020/Presence-Sensor/internal/infrastructure/logging"
	"github.com/Jmi2020/Presence-Sensor/internal/infrastructure/mqtt"
	"github.com/Jmi2020/Presence-Sensor/internal/ingest"
	"github.com/Jmi2020/Presence-Sensor/internal/pod"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting presenced",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise the pod tracker
	tracker := pod.NewTracker(pod.NewSQLiteRepository(db.DB))
	tracker.SetLogger(log)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Assemble the fanout: every accepted observation reaches every sink.
	// Sink failures are isolated, one broken consumer never blocks the rest.
	dispatcher := fanout.NewDispatcher()
	dispatcher.SetLogger(log)

	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)
	dispatcher.Register(fanout.SinkFunc("websocket", func(_ context.Context, p *pod.Pod) error {
		hub.BroadcastPodUpdate(p)
		return nil
	}))

	if cfg.HomeAssistant.Enabled {
		haAdapter := hass.New(mqttClient, cfg.HomeAssistant)
		haAdapter.SetLogger(log)
		dispatcher.Register(haAdapter)
		log.Info("Home Assistant discovery enabled", "prefix", cfg.HomeAssistant.DiscoveryPrefix)
	} else {
		log.Info("Home Assistant discovery disabled")
	}

	if influxClient != nil {
		dispatcher.Register(fanout.SinkFunc("influxdb", func(_ context.Context, p *pod.Pod) error {
			influxClient.WriteObservation(p)
			return nil
		}))
	}

	// Start the ingest pipeline
	// #nosec G115 -- QoS validated to 0..2 by config.Validate
	qos := byte(cfg.MQTT.QoS)
	pipeline := ingest.New(mqttClient, tracker, dispatcher, cfg.Ingest, qos)
	pipeline.SetLogger(log)
	if startErr := pipeline.Start(ctx); startErr != nil {
		return fmt.Errorf("starting ingest pipeline: %w", startErr)
	}
	log.Info("ingest pipeline started", "topic_prefix", cfg.Ingest.TopicPrefix)

	// Start the API server, sharing the hub already wired into the fanout
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Tracker:     tracker,
		Dispatcher:  dispatcher,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Database

	log.Info("presenced stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses PRESENCE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PRESENCE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
