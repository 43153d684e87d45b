// judo2mqtt bridges JUDO water-treatment appliances to MQTT.
//
// It polls the appliance's local HTTPS control API for events and
// status values and publishes them retained under a configurable
// instance prefix. The appliance API is read-only from the bridge's
// point of view; inbound set/cmd topics are logged and dropped.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/graywater/judo2mqtt/internal/bridge"
	"github.com/graywater/judo2mqtt/internal/history"
	"github.com/graywater/judo2mqtt/internal/infrastructure/config"
	"github.com/graywater/judo2mqtt/internal/infrastructure/database"
	"github.com/graywater/judo2mqtt/internal/infrastructure/influxdb"
	"github.com/graywater/judo2mqtt/internal/infrastructure/logging"
	"github.com/graywater/judo2mqtt/internal/infrastructure/mqtt"
	"github.com/graywater/judo2mqtt/internal/judo"
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

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting judo2mqtt",
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

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the event archive (optional)
	var archive *history.Store
	if cfg.Archive.Enabled {
		db, dbErr := database.Open(database.Config{
			Path:        cfg.Archive.Path,
			WALMode:     cfg.Archive.WALMode,
			BusyTimeout: cfg.Archive.BusyTimeout,
		})
		if dbErr != nil {
			return fmt.Errorf("opening event archive: %w", dbErr)
		}
		defer func() {
			log.Info("closing event archive")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing event archive", "error", closeErr)
			}
		}()

		archive, err = history.New(ctx, db)
		if err != nil {
			return fmt.Errorf("initialising event archive: %w", err)
		}
		archived, err := archive.Count(ctx)
		if err != nil {
			return fmt.Errorf("reading event archive: %w", err)
		}
		log.Info("event archive ready", "path", cfg.Archive.Path, "events", archived)
	} else {
		log.Info("event archive disabled")
	}

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

	// Connect to MQTT broker
	topics := mqtt.Topics{Prefix: cfg.Instance}
	mqttClient, err := mqtt.Connect(cfg.MQTT, cfg.ClientID(), topics)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.ClientID(),
	)

	// Build the appliance session
	judoClient := judo.NewClient(cfg.Device.Address, cfg.Device.Port, cfg.DeviceTimeout())
	judoClient.SetLogger(log)
	session := judo.NewSession(judoClient, cfg.Device.Username, cfg.Device.Password)
	session.SetLogger(log)

	// Wire the bridge
	b, err := bridge.New(bridge.Options{
		Config:  cfg,
		MQTT:    mqttClient,
		Session: session,
		Influx:  influxClient,
		Archive: archive,
		Logger:  log,
	})
	if err != nil {
		return fmt.Errorf("building bridge: %w", err)
	}

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT (re)connected")
		b.OnBrokerConnect()
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer b.Stop()

	log.Info("judo2mqtt running",
		"instance", cfg.Instance,
		"device", fmt.Sprintf("%s:%d", cfg.Device.Address, cfg.Device.Port),
		"poll_interval", cfg.PollInterval().String(),
	)

	// Block until shutdown signal
	<-ctx.Done()
	log.Info("shutdown signal received")

	return nil
}

// getConfigPath returns the configuration file path.
// Priority: command-line argument > JUDO2MQTT_CONFIG env var > default.
func getConfigPath() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	if path := os.Getenv("JUDO2MQTT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
