package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model/entities"
	"github.com/LeonardoBeccarini/pump_simulator/pkg/broker"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string
	LogDev   bool

	TickInterval     time.Duration
	ScheduleInterval time.Duration
	StateInterval    time.Duration
	Expansion        entities.Expansion

	WiFiSSID string
	WiFiIP   string

	// MQTT (optional)
	MQTTEnabled bool
	MQTT        broker.Config
	DedupTTL    time.Duration
	DedupMax    int

	// InfluxDB (optional, disabled when the URL is empty)
	InfluxURL     string
	InfluxToken   string
	InfluxOrg     string
	InfluxBucket  string
	BatchSize     int
	FlushInterval time.Duration
	HistorySize   int

	FirmwareRepo        string
	FirmwareReleasesURL string // e.g. https://api.github.com
	FirmwareTimeout     time.Duration
	FirmwareRetries     int
}

func getenv(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getenvBool(k string, d bool) bool {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return d
}

func getenvMs(k string, d int) time.Duration {
	return time.Duration(getenvInt(k, d)) * time.Millisecond
}

func loadConfig() Config {
	return Config{
		HTTPAddr: getenv("HTTP_ADDR", ":8080"),
		GRPCAddr: getenv("GRPC_ADDR", ":50051"),
		LogDev:   getenvBool("LOG_DEV", false),

		TickInterval:     getenvMs("TICK_INTERVAL_MS", 10),
		ScheduleInterval: getenvMs("SCHEDULE_INTERVAL_MS", 1000),
		StateInterval:    getenvMs("STATE_PUBLISH_INTERVAL_MS", 5000),
		Expansion: entities.Expansion{
			Enabled:    getenvBool("EXPANSION_ENABLED", false),
			Interface:  entities.ExpansionInterface(getenv("EXPANSION_INTERFACE", string(entities.InterfaceI2C))),
			MotorCount: getenvInt("EXPANSION_MOTORS", 0),
		},

		WiFiSSID: getenv("WIFI_SSID", "TestWiFi"),
		WiFiIP:   getenv("WIFI_IP", "127.0.0.1"),

		MQTTEnabled: getenvBool("MQTT_ENABLED", false),
		MQTT: broker.Config{
			Host:     getenv("MQTT_HOST", "localhost"),
			Port:     getenvInt("MQTT_PORT", 1883),
			User:     getenv("MQTT_USER", ""),
			Password: getenv("MQTT_PASSWORD", ""),
			ClientID: getenv("HOSTNAME", "pump-simulator"),
			Retries:  getenvInt("MQTT_CONNECT_RETRIES", 10),
		},
		DedupTTL: getenvMs("DEDUP_TTL_MS", 600000),
		DedupMax: getenvInt("DEDUP_MAX", 10000),

		InfluxURL:     getenv("INFLUX_URL", ""),
		InfluxToken:   getenv("INFLUX_TOKEN", ""),
		InfluxOrg:     getenv("INFLUX_ORG", "pump"),
		InfluxBucket:  getenv("INFLUX_BUCKET", "pump"),
		BatchSize:     getenvInt("WRITE_BATCH_SIZE", 10),
		FlushInterval: getenvMs("WRITE_FLUSH_INTERVAL_MS", 1000),
		HistorySize:   getenvInt("HISTORY_SIZE", 50),

		FirmwareRepo:        getenv("FIRMWARE_REPO", ""),
		FirmwareReleasesURL: getenv("FIRMWARE_RELEASES_URL", ""),
		FirmwareTimeout:     getenvMs("FIRMWARE_TIMEOUT_MS", 3000),
		FirmwareRetries:     getenvInt("FIRMWARE_RETRIES", 2),
	}
}
