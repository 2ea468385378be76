// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Server() ServerConfig
	API() APIConfig
	Browser() BrowserConfig
	Scraper() ScraperConfig
	Probe() ProbeConfig

	// Server Setters
	SetServerPort(int)

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserExecPath(string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	ServerCfg  ServerConfig  `mapstructure:"server" yaml:"server"`
	APICfg     APIConfig     `mapstructure:"api" yaml:"api"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	ScraperCfg ScraperConfig `mapstructure:"scraper" yaml:"scraper"`
	ProbeCfg   ProbeConfig   `mapstructure:"probe" yaml:"probe"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Server() ServerConfig   { return c.ServerCfg }
func (c *Config) API() APIConfig         { return c.APICfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Scraper() ScraperConfig { return c.ScraperCfg }
func (c *Config) Probe() ProbeConfig     { return c.ProbeCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetServerPort(p int)         { c.ServerCfg.Port = p }
func (c *Config) SetBrowserHeadless(b bool)   { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserExecPath(p string) { c.BrowserCfg.ExecPath = p }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// RateLimit is the sustained number of requests per second accepted by the
	// endpoint. Zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst" yaml:"rate_burst"`
	// MaxConnections caps simultaneously open client connections. Zero means
	// no cap.
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections"`
}

// Addr returns the host:port pair the server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// APIConfig holds the static metadata reported in every response envelope.
type APIConfig struct {
	Name              string `mapstructure:"name" yaml:"name"`
	Version           string `mapstructure:"version" yaml:"version"`
	Description       string `mapstructure:"description" yaml:"description"`
	SupportedPrinters string `mapstructure:"supported_printers" yaml:"supported_printers"`
	RequestFormat     string `mapstructure:"request_format" yaml:"request_format"`
	ResponseType      string `mapstructure:"response_type" yaml:"response_type"`
}

// BrowserConfig holds settings for the headless browser instances.
type BrowserConfig struct {
	Headless        bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ExecPath        string        `mapstructure:"exec_path" yaml:"exec_path"`
	Args            []string      `mapstructure:"args" yaml:"args"`
	LaunchTimeout   time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	// MaxSessions caps the number of browser processes alive at once.
	// Zero means unlimited.
	MaxSessions int `mapstructure:"max_sessions" yaml:"max_sessions"`
}

// ScraperConfig tunes the page extraction steps.
type ScraperConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	IdleQuietPeriod   time.Duration `mapstructure:"idle_quiet_period" yaml:"idle_quiet_period"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	MaxTrayIndex      int           `mapstructure:"max_tray_index" yaml:"max_tray_index"`
	ConcurrentSteps   bool          `mapstructure:"concurrent_steps" yaml:"concurrent_steps"`
	Scheme            string        `mapstructure:"scheme" yaml:"scheme"`
}

// ProbeConfig configures the reachability check run before every scrape.
type ProbeConfig struct {
	Method     string        `mapstructure:"method" yaml:"method"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Ports      []int         `mapstructure:"ports" yaml:"ports"`
	Privileged bool          `mapstructure:"privileged" yaml:"privileged"`
}

const (
	ProbeMethodTCP  = "tcp"
	ProbeMethodICMP = "icmp"
)

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "snatcher")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Server --
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", 5)
	v.SetDefault("server.max_connections", 64)

	// -- API metadata --
	v.SetDefault("api.name", "Printer Info Snatcher")
	v.SetDefault("api.version", "")
	v.SetDefault("api.description", "Returns printer info from IP address")
	v.SetDefault("api.supported_printers", "HP Enterprise M-series")
	v.SetDefault("api.request_format", "http://app-ip-address?ip=w.x.y.z")
	v.SetDefault("api.response_type", "json")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	// Printers ship self-signed certificates.
	v.SetDefault("browser.ignore_tls_errors", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.launch_timeout", "20s")
	v.SetDefault("browser.max_sessions", 4)

	// -- Scraper --
	v.SetDefault("scraper.navigation_timeout", "5s")
	v.SetDefault("scraper.idle_quiet_period", "500ms")
	v.SetDefault("scraper.request_timeout", "45s")
	v.SetDefault("scraper.max_tray_index", 16)
	v.SetDefault("scraper.concurrent_steps", true)
	v.SetDefault("scraper.scheme", "https")

	// -- Probe --
	v.SetDefault("probe.method", ProbeMethodTCP)
	v.SetDefault("probe.timeout", "3s")
	v.SetDefault("probe.ports", []int{443, 80})
	v.SetDefault("probe.privileged", false)
}

// BindEnv wires environment variables into v. Everything is reachable through
// the SNATCHER_ prefix; PORT and VER are also honoured unprefixed.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix("SNATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("server.port", "SNATCHER_SERVER_PORT", "PORT")
	v.BindEnv("api.version", "SNATCHER_API_VERSION", "VER")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.ServerCfg.Port <= 0 || c.ServerCfg.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.ServerCfg.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	if c.ServerCfg.RateLimit > 0 && c.ServerCfg.RateBurst <= 0 {
		return fmt.Errorf("server.rate_burst must be a positive integer when rate limiting is enabled")
	}
	if c.ServerCfg.MaxConnections < 0 {
		return fmt.Errorf("server.max_connections must not be negative")
	}
	if c.BrowserCfg.MaxSessions < 0 {
		return fmt.Errorf("browser.max_sessions must not be negative")
	}
	if err := c.ScraperCfg.Validate(); err != nil {
		return fmt.Errorf("scraper configuration invalid: %w", err)
	}
	if err := c.ProbeCfg.Validate(); err != nil {
		return fmt.Errorf("probe configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the scraper settings.
func (s *ScraperConfig) Validate() error {
	if s.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation_timeout must be a positive duration")
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be a positive duration")
	}
	if s.MaxTrayIndex < 2 {
		return fmt.Errorf("max_tray_index must be at least 2")
	}
	if s.Scheme != "http" && s.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", s.Scheme)
	}
	return nil
}

// Validate checks the reachability probe settings.
func (p *ProbeConfig) Validate() error {
	switch p.Method {
	case ProbeMethodTCP:
		if len(p.Ports) == 0 {
			return fmt.Errorf("ports must list at least one port for the tcp method")
		}
		for _, port := range p.Ports {
			if port <= 0 || port > 65535 {
				return fmt.Errorf("invalid port %d", port)
			}
		}
	case ProbeMethodICMP:
	default:
		return fmt.Errorf("unknown method %q (expected %q or %q)", p.Method, ProbeMethodTCP, ProbeMethodICMP)
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("timeout must be a positive duration")
	}
	return nil
}
