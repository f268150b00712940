package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Reconnect modes.
const (
	ReconnectBackoff = "backoff"
	ReconnectNone    = "none"
)

// Config holds all application configuration values.
type Config struct {
	AppEnv   string `yaml:"app_env"`
	LogLevel string `yaml:"log_level"`

	// Source socket
	SourceURL            string `yaml:"source_url"`
	HandshakeMessage     string `yaml:"handshake_message"`
	HandshakeTimeout     int    `yaml:"handshake_timeout"`      // milliseconds
	WriteTimeout         int    `yaml:"write_timeout"`          // milliseconds
	Reconnect            string `yaml:"reconnect"`              // "backoff" or "none"
	ReconnectBaseDelay   int    `yaml:"reconnect_base_delay"`   // milliseconds
	ReconnectMaxDelay    int    `yaml:"reconnect_max_delay"`    // milliseconds
	ReconnectMaxAttempts int    `yaml:"reconnect_max_attempts"` // 0 = unlimited

	// Web Server
	WebServerPort int    `yaml:"web_server_port"`
	WebStaticDir  string `yaml:"web_static_dir"`

	// Gauges
	GaugeMin             float64 `yaml:"gauge_min"`
	GaugeMax             float64 `yaml:"gauge_max"`
	GaugeVerticalTitle   string  `yaml:"gauge_vertical_title"`
	GaugeHorizontalTitle string  `yaml:"gauge_horizontal_title"`

	// MQTT (empty broker disables publishing)
	MQTTBroker          string `yaml:"mqtt_broker"`
	MQTTClientIDViewer  string `yaml:"mqtt_client_id_viewer"`
	MQTTClientIDConsole string `yaml:"mqtt_client_id_console"`
	TopicAngles         string `yaml:"topic_angles"`

	// OLED panel
	PanelEnabled        bool `yaml:"panel_enabled"`
	PanelUpdateInterval int  `yaml:"panel_update_interval"` // milliseconds

	// Mock producer
	ProducerPort     int `yaml:"producer_port"`
	ProducerInterval int `yaml:"producer_interval"` // milliseconds

	// Zero is a valid bound, so presence is tracked separately.
	gaugeMinSet bool
	gaugeMaxSet bool
}

// gaugeBounds picks up which range bounds a YAML document sets.
type gaugeBounds struct {
	GaugeMin *float64 `yaml:"gauge_min"`
	GaugeMax *float64 `yaml:"gauge_max"`
}

// Default values for optional configuration fields.
const (
	DefaultAppEnv               = "dev"
	DefaultLogLevel             = "info"
	DefaultSourceURL            = "ws://localhost:5801"
	DefaultHandshakeMessage     = "hi there"
	DefaultHandshakeTimeout     = 10000
	DefaultWriteTimeout         = 5000
	DefaultReconnectBaseDelay   = 500
	DefaultReconnectMaxDelay    = 30000
	DefaultWebServerPort        = 8080
	DefaultWebStaticDir         = "web"
	DefaultGaugeMin             = -45
	DefaultGaugeMax             = 45
	DefaultGaugeVerticalTitle   = "Vertical Angle"
	DefaultGaugeHorizontalTitle = "Horizontal Angle"
	DefaultMQTTClientIDViewer   = "angle-viewer-web"
	DefaultMQTTClientIDConsole  = "angle-viewer-console"
	DefaultTopicAngles          = "bullseye/angles"
	DefaultPanelUpdateInterval  = 200
	DefaultProducerPort         = 5801
	DefaultProducerInterval     = 50
)

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct with
// defaults applied. Files ending in .yaml or .yml are parsed as YAML,
// anything else as KEY=VALUE lines.
func Load(configPath string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		cfg, err = loadYAML(configPath)
	default:
		cfg, err = loadKeyValue(configPath)
	}
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration made only of defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func loadYAML(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	var bounds gaugeBounds
	if err := yaml.Unmarshal([]byte(expanded), &bounds); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	cfg.gaugeMinSet = bounds.GaugeMin != nil
	cfg.gaugeMaxSet = bounds.GaugeMax != nil
	return cfg, nil
}

func loadKeyValue(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := &Config{}
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	case "APP_ENV":
		c.AppEnv = value
	case "LOG_LEVEL":
		c.LogLevel = value

	// Source socket
	case "SOURCE_URL":
		c.SourceURL = value
	case "HANDSHAKE_MESSAGE":
		c.HandshakeMessage = value
	case "HANDSHAKE_TIMEOUT":
		return setInt(&c.HandshakeTimeout, key, value)
	case "WRITE_TIMEOUT":
		return setInt(&c.WriteTimeout, key, value)
	case "RECONNECT":
		c.Reconnect = value
	case "RECONNECT_BASE_DELAY":
		return setInt(&c.ReconnectBaseDelay, key, value)
	case "RECONNECT_MAX_DELAY":
		return setInt(&c.ReconnectMaxDelay, key, value)
	case "RECONNECT_MAX_ATTEMPTS":
		return setInt(&c.ReconnectMaxAttempts, key, value)

	// Web Server
	case "WEB_SERVER_PORT":
		return setInt(&c.WebServerPort, key, value)
	case "WEB_STATIC_DIR":
		c.WebStaticDir = value

	// Gauges
	case "GAUGE_MIN":
		c.gaugeMinSet = true
		return setFloat(&c.GaugeMin, key, value)
	case "GAUGE_MAX":
		c.gaugeMaxSet = true
		return setFloat(&c.GaugeMax, key, value)
	case "GAUGE_VERTICAL_TITLE":
		c.GaugeVerticalTitle = value
	case "GAUGE_HORIZONTAL_TITLE":
		c.GaugeHorizontalTitle = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_VIEWER":
		c.MQTTClientIDViewer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "TOPIC_ANGLES":
		c.TopicAngles = value

	// Panel
	case "PANEL_ENABLED":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid PANEL_ENABLED %q: %w", value, err)
		}
		c.PanelEnabled = enabled
	case "PANEL_UPDATE_INTERVAL":
		return setInt(&c.PanelUpdateInterval, key, value)

	// Producer
	case "PRODUCER_PORT":
		return setInt(&c.ProducerPort, key, value)
	case "PRODUCER_INTERVAL":
		return setInt(&c.ProducerInterval, key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key, value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = f
	return nil
}

func (c *Config) applyDefaults() {
	if c.AppEnv == "" {
		c.AppEnv = DefaultAppEnv
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.SourceURL == "" {
		c.SourceURL = DefaultSourceURL
	}
	if c.HandshakeMessage == "" {
		c.HandshakeMessage = DefaultHandshakeMessage
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.Reconnect == "" {
		c.Reconnect = ReconnectBackoff
	}
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.WebServerPort == 0 {
		c.WebServerPort = DefaultWebServerPort
	}
	if c.WebStaticDir == "" {
		c.WebStaticDir = DefaultWebStaticDir
	}
	if !c.gaugeMinSet {
		c.GaugeMin = DefaultGaugeMin
		c.gaugeMinSet = true
	}
	if !c.gaugeMaxSet {
		c.GaugeMax = DefaultGaugeMax
		c.gaugeMaxSet = true
	}
	if c.GaugeVerticalTitle == "" {
		c.GaugeVerticalTitle = DefaultGaugeVerticalTitle
	}
	if c.GaugeHorizontalTitle == "" {
		c.GaugeHorizontalTitle = DefaultGaugeHorizontalTitle
	}
	if c.MQTTClientIDViewer == "" {
		c.MQTTClientIDViewer = DefaultMQTTClientIDViewer
	}
	if c.MQTTClientIDConsole == "" {
		c.MQTTClientIDConsole = DefaultMQTTClientIDConsole
	}
	if c.TopicAngles == "" {
		c.TopicAngles = DefaultTopicAngles
	}
	if c.PanelUpdateInterval == 0 {
		c.PanelUpdateInterval = DefaultPanelUpdateInterval
	}
	if c.ProducerPort == 0 {
		c.ProducerPort = DefaultProducerPort
	}
	if c.ProducerInterval == 0 {
		c.ProducerInterval = DefaultProducerInterval
	}
}

// validate checks that values are usable.
func (c *Config) validate() error {
	switch c.AppEnv {
	case "dev", "prod":
	default:
		return fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", c.AppEnv)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if !strings.HasPrefix(c.SourceURL, "ws://") && !strings.HasPrefix(c.SourceURL, "wss://") {
		return fmt.Errorf("SOURCE_URL must start with ws:// or wss://, got %q", c.SourceURL)
	}
	switch c.Reconnect {
	case ReconnectBackoff, ReconnectNone:
	default:
		return fmt.Errorf("RECONNECT must be %q or %q, got %q", ReconnectBackoff, ReconnectNone, c.Reconnect)
	}
	if c.HandshakeTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("HANDSHAKE_TIMEOUT and WRITE_TIMEOUT must not be negative (0 selects the default)")
	}
	if c.ReconnectBaseDelay < 0 || c.ReconnectMaxDelay < c.ReconnectBaseDelay {
		return fmt.Errorf("RECONNECT_MAX_DELAY (%d) must be >= RECONNECT_BASE_DELAY (%d) >= 0", c.ReconnectMaxDelay, c.ReconnectBaseDelay)
	}
	if c.ReconnectMaxAttempts < 0 {
		return fmt.Errorf("RECONNECT_MAX_ATTEMPTS must be >= 0, got %d", c.ReconnectMaxAttempts)
	}
	if err := validPort("WEB_SERVER_PORT", c.WebServerPort); err != nil {
		return err
	}
	if err := validPort("PRODUCER_PORT", c.ProducerPort); err != nil {
		return err
	}
	if c.GaugeMax <= c.GaugeMin {
		return fmt.Errorf("GAUGE_MAX (%g) must be greater than GAUGE_MIN (%g)", c.GaugeMax, c.GaugeMin)
	}
	if c.PanelUpdateInterval <= 0 {
		return fmt.Errorf("PANEL_UPDATE_INTERVAL must be positive, got %d", c.PanelUpdateInterval)
	}
	if c.ProducerInterval <= 0 {
		return fmt.Errorf("PRODUCER_INTERVAL must be positive, got %d", c.ProducerInterval)
	}
	return nil
}

func validPort(key string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", key, port)
	}
	return nil
}

// ParseLogLevel maps LOG_LEVEL to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once so only the first call loads; later calls are no-ops.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
