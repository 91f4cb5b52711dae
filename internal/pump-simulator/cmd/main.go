package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model/messages"
	pumpsim "github.com/LeonardoBeccarini/pump_simulator/internal/pump-simulator"
	"github.com/LeonardoBeccarini/pump_simulator/internal/services/api"
	"github.com/LeonardoBeccarini/pump_simulator/internal/services/device"
	"github.com/LeonardoBeccarini/pump_simulator/internal/services/firmware"
	"github.com/LeonardoBeccarini/pump_simulator/internal/services/network"
	"github.com/LeonardoBeccarini/pump_simulator/internal/services/telemetry"
	"github.com/LeonardoBeccarini/pump_simulator/pkg/broker"
	"github.com/LeonardoBeccarini/pump_simulator/pkg/dedup"
)

const shutdownGrace = 5 * time.Second

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	// .env is optional
	_ = godotenv.Load()
	cfg := loadConfig()

	root := &cobra.Command{
		Use:   "pump-simulator",
		Short: "Simulated peristaltic pump controller",
	}
	root.AddCommand(serveCmd(&cfg), stateCmd(), execCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pump engine with its HTTP, gRPC and MQTT faces",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger(cfg.LogDev)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *cfg, log)
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP listen address")
	f.StringVar(&cfg.GRPCAddr, "grpc", cfg.GRPCAddr, "gRPC listen address")
	f.BoolVar(&cfg.MQTTEnabled, "mqtt", cfg.MQTTEnabled, "connect to the MQTT broker")
	f.StringVar(&cfg.InfluxURL, "influx", cfg.InfluxURL, "InfluxDB URL, empty disables it")
	f.BoolVar(&cfg.LogDev, "dev", cfg.LogDev, "development logging")
	return cmd
}

func serve(ctx context.Context, cfg Config, log *zap.Logger) error {
	// === Engine ===
	engine := pumpsim.NewEngine(pumpsim.Config{
		TickInterval: cfg.TickInterval,
		Expansion:    cfg.Expansion,
		Logger:       log.Named("engine"),
	})
	engine.Start(ctx)
	defer engine.Stop()

	schedule := pumpsim.NewScheduleStore()
	go pumpsim.NewDoseScheduler(engine, schedule, cfg.ScheduleInterval, log.Named("scheduler")).Run(ctx)

	history := telemetry.NewHistory(cfg.HistorySize)
	apiCfg := api.Config{
		Engine:   engine,
		Schedule: schedule,
		History:  history,
		WiFi:     network.NewWiFi(cfg.WiFiSSID, cfg.WiFiIP, log.Named("wifi")),
		Logger:   log.Named("api"),
	}

	// === InfluxDB ===
	var writer *telemetry.Writer
	if cfg.InfluxURL != "" {
		opts := influxdb2.DefaultOptions().
			SetBatchSize(uint(cfg.BatchSize)).
			SetFlushInterval(uint(cfg.FlushInterval.Milliseconds()))
		influx := influxdb2.NewClientWithOptions(cfg.InfluxURL, cfg.InfluxToken, opts)
		defer influx.Close()
		writer = telemetry.NewWriter(influx.WriteAPI(cfg.InfluxOrg, cfg.InfluxBucket), log.Named("influx"))
		apiCfg.InfluxWriter = writer
		apiCfg.InfluxHistory = telemetry.NewInfluxHistory(influx.QueryAPI(cfg.InfluxOrg), cfg.InfluxBucket)
		log.Info("influx enabled", zap.String("url", cfg.InfluxURL), zap.String("bucket", cfg.InfluxBucket))
	}

	// === MQTT ===
	var (
		sender telemetry.Sender
		zigOut network.Sender
	)
	if cfg.MQTTEnabled {
		client, err := broker.Connect(ctx, cfg.MQTT, log.Named("mqtt"))
		if err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
		defer broker.Close(client, log)

		pub := broker.NewPublisher(client, log.Named("mqtt"))
		sender, zigOut = pub, pub
		apiCfg.MQTT = client

		commands := telemetry.NewCommandHandler(engine, dedup.New(cfg.DedupTTL, cfg.DedupMax), log.Named("commands"))
		go broker.NewSubscriber(client, []string{telemetry.CommandTopic}, commands.Handle, log.Named("mqtt")).Run(ctx)
	}
	apiCfg.Zigbee = network.NewZigbee(zigOut, log.Named("zigbee"))

	reporter := telemetry.NewReporter(engine, sender, writer, history, cfg.StateInterval, log.Named("telemetry"))
	engine.OnDosingComplete(reporter.ReportDosingResult)
	go reporter.Run(ctx)

	// === Firmware ===
	var source firmware.ReleaseSource
	if cfg.FirmwareReleasesURL != "" {
		source = firmware.NewUpstream(firmware.UpstreamConfig{
			BaseURL: cfg.FirmwareReleasesURL,
			Timeout: cfg.FirmwareTimeout,
			Retries: cfg.FirmwareRetries,
		}, log.Named("firmware"))
	}
	apiCfg.Firmware = firmware.NewService(pumpsim.FirmwareVersion, cfg.FirmwareRepo, source, log.Named("firmware"))

	// === HTTP ===
	hs := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewServer(apiCfg).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 2)
	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http server: %w", err)
		}
	}()

	// === gRPC ===
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}
	gs := grpc.NewServer()
	device.RegisterPumpServiceServer(gs, device.NewGrpcHandler(engine, log.Named("grpc")))
	go func() {
		log.Info("grpc listening", zap.String("addr", cfg.GRPCAddr))
		if err := gs.Serve(lis); err != nil {
			errc <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errc:
		log.Error("server failed", zap.Error(err))
	}

	shCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	_ = hs.Shutdown(shCtx)
	gs.GracefulStop()
	return err
}

// ===================== client subcommands =====================

func dial(addr string) (*device.Client, func(), error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return device.NewClient(conn), func() { _ = conn.Close() }, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func stateCmd() *cobra.Command {
	var (
		addr  string
		motor string
	)
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the state of a running simulator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, closeFn, err := dial(addr)
			if err != nil {
				return err
			}
			defer closeFn()
			snap, err := c.GetState(cmd.Context(), messages.ParseMotorID(motor))
			if err != nil {
				return err
			}
			return printJSON(snap)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:50051", "gRPC address")
	cmd.Flags().StringVar(&motor, "motor", "", "motor id (default: selected)")
	return cmd
}

func execCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:     "exec <command-json>",
		Short:   "Send one pump command to a running simulator",
		Example: `  pump-simulator exec '{"cmd":"flow","litersPerHour":12}'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pc messages.PumpCommand
			if err := json.Unmarshal([]byte(args[0]), &pc); err != nil {
				return fmt.Errorf("invalid command json: %w", err)
			}
			c, closeFn, err := dial(addr)
			if err != nil {
				return err
			}
			defer closeFn()
			snap, err := c.Execute(cmd.Context(), pc)
			if err != nil {
				return err
			}
			return printJSON(snap)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:50051", "gRPC address")
	return cmd
}
