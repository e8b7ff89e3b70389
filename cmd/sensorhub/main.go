// sensorhub receives sensor readings over HTTP, gRPC and MQTT, stores
// them in SQLite and serves them to authenticated accounts.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/gustavobizon/sprint-programacao/internal/api"
	"github.com/gustavobizon/sprint-programacao/internal/audit"
	"github.com/gustavobizon/sprint-programacao/internal/auth"
	"github.com/gustavobizon/sprint-programacao/internal/availability"
	"github.com/gustavobizon/sprint-programacao/internal/infrastructure/config"
	"github.com/gustavobizon/sprint-programacao/internal/infrastructure/database"
	"github.com/gustavobizon/sprint-programacao/internal/infrastructure/influxdb"
	"github.com/gustavobizon/sprint-programacao/internal/infrastructure/logging"
	"github.com/gustavobizon/sprint-programacao/internal/infrastructure/mqtt"
	"github.com/gustavobizon/sprint-programacao/internal/ingest"
	"github.com/gustavobizon/sprint-programacao/internal/rpc"
	"github.com/gustavobizon/sprint-programacao/internal/sensor"
	"github.com/gustavobizon/sprint-programacao/migrations"
)

// Set at build time:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run parses args, wires every component and blocks until ctx is done.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("sensorhub", pflag.ContinueOnError)
	flags.SetOutput(stdout)
	configPath := flags.String("config", os.Getenv("SENSORHUB_CONFIG"), "path to the YAML config file")
	envFile := flags.String("env-file", ".env", "dotenv file loaded before environment overrides")
	showVersion := flags.Bool("version", false, "print version information and exit")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if *showVersion {
		fmt.Fprintf(stdout, "sensorhub %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	log := logging.Default()

	if err := config.LoadEnvFile(*envFile); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", *configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("starting sensorhub", "version", version, "commit", commit, "build_date", date)

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

	if err := db.Migrate(ctx, migrations.FS, log.Logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	auditLogs := audit.NewSQLiteRepository(db.DB)
	trail := audit.NewTrail(auditLogs, log.Logger)

	tokens := auth.NewTokenService(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer)
	accounts := auth.NewService(auth.NewAccountRepository(db.DB), tokens, trail)
	readings := sensor.NewService(sensor.NewSQLiteRepository(db.DB), trail, log.Logger)

	gate := availability.NewGate()
	gate.Observe(recordAvailability(trail))

	checks := []api.HealthCheck{{Name: "database", Check: db.HealthCheck}}

	if cfg.MQTT.Enabled {
		client, subscriber, mqttErr := startMQTT(ctx, cfg.MQTT, readings, gate, log)
		if mqttErr != nil {
			return mqttErr
		}
		defer func() {
			subscriber.Stop()
			log.Info("disconnecting from MQTT")
			if closeErr := client.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		checks = append(checks, api.HealthCheck{Name: "mqtt", Check: client.HealthCheck})
	} else {
		log.Info("MQTT ingest disabled")
	}

	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		readings.AddSink(influxClient)
		checks = append(checks, api.HealthCheck{Name: "influxdb", Check: influxClient.HealthCheck})
		log.Info("InfluxDB mirror enabled", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	apiServer, err := api.New(api.Deps{
		Config:    cfg.API,
		Stream:    cfg.Stream,
		Logger:    log,
		Accounts:  accounts,
		Readings:  readings,
		Gate:      gate,
		AuditLogs: auditLogs,
		Checks:    checks,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if cfg.GRPC.Enabled {
		grpcServer, grpcErr := rpc.New(rpc.Deps{
			Addr:     cfg.GRPCAddr(),
			Logger:   log,
			Tokens:   tokens,
			Readings: readings,
			Gate:     gate,
		})
		if grpcErr != nil {
			return fmt.Errorf("creating gRPC server: %w", grpcErr)
		}
		if startErr := grpcServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting gRPC server: %w", startErr)
		}
		defer func() {
			log.Info("stopping gRPC server")
			if closeErr := grpcServer.Close(); closeErr != nil {
				log.Error("error closing gRPC server", "error", closeErr)
			}
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// startMQTT connects to the broker, starts the readings subscriber and
// publishes availability changes.
func startMQTT(ctx context.Context, cfg config.MQTTConfig, readings *sensor.Service, gate *availability.Gate, log *logging.Logger) (*mqtt.Client, *ingest.MQTTSubscriber, error) {
	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
	)

	client.SetLogger(log.Logger)
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	gate.Observe(ingest.AvailabilityPublisher(client, log.Logger))

	subscriber, err := ingest.NewMQTTSubscriber(ingest.SubscriberOptions{
		Client:   client,
		Readings: readings,
		Logger:   log.Logger,
		// #nosec G115 -- validated to 0..2 by config.Validate
		QoS: byte(cfg.QoS),
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	if err := subscriber.Start(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("starting MQTT ingest: %w", err)
	}
	return client, subscriber, nil
}

// recordAvailability writes every applied gate state to the audit trail.
func recordAvailability(rec audit.Recorder) availability.Observer {
	return func(ctx context.Context, state availability.State, actor string) {
		rec.Record(ctx, &audit.Log{
			Action:     audit.ActionAvailability,
			EntityType: "service",
			ActorID:    actor,
			Source:     "api",
			Details:    map[string]any{"state": string(state)},
		})
	}
}
