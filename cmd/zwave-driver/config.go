package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type appConfig struct {
	serialDev    string
	baud         int
	serialReadTO time.Duration

	ownNodeID  int
	nodeIdType string // "8bit" | "16bit"
	networkKey string // hex-encoded S0 network key, optional

	logFormat       string
	logLevel        string
	metricsAddr     string
	logMetricsEvery time.Duration

	eventFeedAddr string // TCP listen address for the subscriber event feed; empty disables it
	hubBuffer     int
	hubPolicy     string
	maxClients    int
	handshakeTO   time.Duration
	clientReadTO  time.Duration
	mdnsEnable    bool
	mdnsName      string

	cacheMirrorAddr     string // Redis address; empty disables the mirror
	cacheMirrorPassword string
	cacheMirrorDB       int
	cacheMirrorPrefix   string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	serialDev := flag.String("serial", "/dev/ttyUSB0", "Serial device path")
	baud := flag.Int("baud", 115200, "Serial baud rate")
	serialReadTO := flag.Duration("serial-read-timeout", 50*time.Millisecond, "Serial read timeout")
	ownNodeID := flag.Int("own-node-id", 1, "Controller's own node ID")
	nodeIdType := flag.String("node-id-type", "8bit", "Node ID wire width: 8bit|16bit")
	networkKey := flag.String("network-key", "", "S0 network key, 32 hex chars (16 bytes); empty disables S0 security")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters (for non-Prometheus setups)")
	eventFeedAddr := flag.String("event-feed-listen", "", "TCP listen address for the decoded-event subscriber feed (e.g., :20000); empty disables the feed")
	hubBuf := flag.Int("hub-buffer", 512, "Per-client event-feed buffer (events)")
	hubPolicy := flag.String("hub-policy", "drop", "Event-feed backpressure policy: drop|kick")
	maxClients := flag.Int("max-clients", 0, "Maximum simultaneous event-feed clients (0 = unlimited)")
	handshakeTO := flag.Duration("handshake-timeout", 3*time.Second, "Event-feed client handshake timeout")
	clientReadTO := flag.Duration("client-read-timeout", 60*time.Second, "Event-feed per-connection read deadline")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS advertisement of the event feed")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default zwave-driver-<hostname>)")
	cacheMirrorAddr := flag.String("cache-mirror-addr", "", "Redis address for the value-cache mirror (e.g., localhost:6379); empty disables mirroring")
	cacheMirrorPassword := flag.String("cache-mirror-password", "", "Redis password for the value-cache mirror")
	cacheMirrorDB := flag.Int("cache-mirror-db", 0, "Redis DB index for the value-cache mirror")
	cacheMirrorPrefix := flag.String("cache-mirror-prefix", "zwave", "Key/hash prefix for the value-cache mirror")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.serialDev = *serialDev
	cfg.baud = *baud
	cfg.serialReadTO = *serialReadTO
	cfg.ownNodeID = *ownNodeID
	cfg.nodeIdType = *nodeIdType
	cfg.networkKey = *networkKey
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.eventFeedAddr = *eventFeedAddr
	cfg.hubBuffer = *hubBuf
	cfg.hubPolicy = *hubPolicy
	cfg.maxClients = *maxClients
	cfg.handshakeTO = *handshakeTO
	cfg.clientReadTO = *clientReadTO
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName
	cfg.cacheMirrorAddr = *cacheMirrorAddr
	cfg.cacheMirrorPassword = *cacheMirrorPassword
	cfg.cacheMirrorDB = *cacheMirrorDB
	cfg.cacheMirrorPrefix = *cacheMirrorPrefix

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

// validate performs basic semantic validation of the parsed configuration.
// It does not attempt to open devices or listeners -- only checks values/ranges.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	switch c.nodeIdType {
	case "8bit", "16bit":
	default:
		return fmt.Errorf("invalid node-id-type: %s", c.nodeIdType)
	}
	switch c.hubPolicy {
	case "drop", "kick":
	default:
		return fmt.Errorf("invalid hub-policy: %s", c.hubPolicy)
	}
	if c.ownNodeID <= 0 || c.ownNodeID > 0xFFFF {
		return fmt.Errorf("own-node-id out of range: %d", c.ownNodeID)
	}
	if c.networkKey != "" {
		raw, err := hex.DecodeString(c.networkKey)
		if err != nil {
			return fmt.Errorf("invalid network-key: %w", err)
		}
		if len(raw) != 16 {
			return fmt.Errorf("network-key must decode to 16 bytes, got %d", len(raw))
		}
	}
	if c.hubBuffer <= 0 {
		return fmt.Errorf("hub-buffer must be > 0 (got %d)", c.hubBuffer)
	}
	if c.baud <= 0 {
		return fmt.Errorf("baud must be > 0 (got %d)", c.baud)
	}
	if c.serialReadTO <= 0 {
		return fmt.Errorf("serial-read-timeout must be > 0")
	}
	if c.handshakeTO <= 0 {
		return fmt.Errorf("handshake-timeout must be > 0")
	}
	if c.clientReadTO <= 0 {
		return fmt.Errorf("client-read-timeout must be > 0")
	}
	if c.maxClients < 0 {
		return fmt.Errorf("max-clients must be >= 0")
	}
	if c.cacheMirrorDB < 0 {
		return fmt.Errorf("cache-mirror-db must be >= 0")
	}
	return nil
}

// applyEnvOverrides maps ZWAVE_DRIVER_* environment variables to config
// fields unless a corresponding flag was explicitly set: flags win.
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }

	if _, ok := set["serial"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_SERIAL"); ok && v != "" {
			c.serialDev = v
		}
	}
	if _, ok := set["baud"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_BAUD"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.baud = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid ZWAVE_DRIVER_BAUD: %w", err)
			}
		}
	}
	if _, ok := set["serial-read-timeout"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_SERIAL_READ_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.serialReadTO = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid ZWAVE_DRIVER_SERIAL_READ_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["own-node-id"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_OWN_NODE_ID"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.ownNodeID = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid ZWAVE_DRIVER_OWN_NODE_ID: %w", err)
			}
		}
	}
	if _, ok := set["node-id-type"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_NODE_ID_TYPE"); ok && v != "" {
			c.nodeIdType = v
		}
	}
	if _, ok := set["network-key"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_NETWORK_KEY"); ok {
			c.networkKey = v
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["log-metrics-interval"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_LOG_METRICS_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.logMetricsEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid ZWAVE_DRIVER_LOG_METRICS_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["event-feed-listen"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_EVENT_FEED_LISTEN"); ok {
			c.eventFeedAddr = v
		}
	}
	if _, ok := set["hub-buffer"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_HUB_BUFFER"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.hubBuffer = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid ZWAVE_DRIVER_HUB_BUFFER: %w", err)
			}
		}
	}
	if _, ok := set["hub-policy"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_HUB_POLICY"); ok && v != "" {
			c.hubPolicy = v
		}
	}
	if _, ok := set["max-clients"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_MAX_CLIENTS"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.maxClients = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid ZWAVE_DRIVER_MAX_CLIENTS: %w", err)
			}
		}
	}
	if _, ok := set["handshake-timeout"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_HANDSHAKE_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.handshakeTO = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid ZWAVE_DRIVER_HANDSHAKE_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["client-read-timeout"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_CLIENT_READ_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.clientReadTO = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid ZWAVE_DRIVER_CLIENT_READ_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	if _, ok := set["cache-mirror-addr"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_CACHE_MIRROR_ADDR"); ok {
			c.cacheMirrorAddr = v
		}
	}
	if _, ok := set["cache-mirror-password"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_CACHE_MIRROR_PASSWORD"); ok {
			c.cacheMirrorPassword = v
		}
	}
	if _, ok := set["cache-mirror-db"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_CACHE_MIRROR_DB"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.cacheMirrorDB = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid ZWAVE_DRIVER_CACHE_MIRROR_DB: %w", err)
			}
		}
	}
	if _, ok := set["cache-mirror-prefix"]; !ok {
		if v, ok := get("ZWAVE_DRIVER_CACHE_MIRROR_PREFIX"); ok && v != "" {
			c.cacheMirrorPrefix = v
		}
	}
	return firstErr
}
