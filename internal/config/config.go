package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"sensorcli/internal/dataprocessing"
)

// EnvPrefix namespaces every environment variable, e.g. SENSOR_SERVER_PORT.
const EnvPrefix = "SENSOR"

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server" envconfig:"SERVER"`
	Security    SecurityConfig    `yaml:"security" envconfig:"SECURITY"`
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
	Paths       PathsConfig       `yaml:"paths" envconfig:"PATHS"`
	Calibration CalibrationConfig `yaml:"calibration" envconfig:"CALIBRATION"`
	Processing  ProcessingConfig  `yaml:"processing" envconfig:"PROCESSING"`
	Storage     StorageConfig     `yaml:"storage" envconfig:"STORAGE"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb" envconfig:"INFLUXDB"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" envconfig:"TELEMETRY"`
	WebSocket   WebSocketConfig   `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths configuration.
// Relative directories are resolved against BaseDir, or the executable
// directory when BaseDir is empty.
type PathsConfig struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	UploadsDir string `yaml:"uploads_dir" envconfig:"UPLOADS_DIR"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// CalibrationConfig mirrors dataprocessing.CalibrationConfig in a flat,
// environment-friendly shape.
type CalibrationConfig struct {
	SensitivityFactor float64 `yaml:"sensitivity_factor" envconfig:"SENSITIVITY_FACTOR"`
	TemperatureMin    float64 `yaml:"temperature_min" envconfig:"TEMPERATURE_MIN"`
	TemperatureMax    float64 `yaml:"temperature_max" envconfig:"TEMPERATURE_MAX"`
	HumidityMin       float64 `yaml:"humidity_min" envconfig:"HUMIDITY_MIN"`
	HumidityMax       float64 `yaml:"humidity_max" envconfig:"HUMIDITY_MAX"`
	HumidityPadding   float64 `yaml:"humidity_padding" envconfig:"HUMIDITY_PADDING"`
	Mode              string  `yaml:"mode" envconfig:"MODE"`
}

// ProcessingConfig controls ingestion and batch processing
type ProcessingConfig struct {
	Workers        int       `yaml:"workers" envconfig:"WORKERS"`
	Sentinels      []float64 `yaml:"sentinels" envconfig:"SENTINELS"`
	MaxUploadSize  int64     `yaml:"max_upload_size" envconfig:"MAX_UPLOAD_SIZE"`
	SuppressPadded bool      `yaml:"suppress_padded" envconfig:"SUPPRESS_PADDED"`
}

// StorageConfig contains the SQLite record store configuration
type StorageConfig struct {
	Enabled     bool          `yaml:"enabled" envconfig:"ENABLED"`
	Path        string        `yaml:"path" envconfig:"DB_PATH"`
	BusyTimeout time.Duration `yaml:"busy_timeout" envconfig:"BUSY_TIMEOUT"`
}

// InfluxDBConfig contains the time-series sink configuration
type InfluxDBConfig struct {
	Enabled       bool          `yaml:"enabled" envconfig:"ENABLED"`
	URL           string        `yaml:"url" envconfig:"URL"`
	Token         string        `yaml:"token" envconfig:"AUTH_TOKEN"`
	Org           string        `yaml:"org" envconfig:"ORG"`
	Bucket        string        `yaml:"bucket" envconfig:"BUCKET"`
	BatchSize     uint          `yaml:"batch_size" envconfig:"BATCH_SIZE"`
	FlushInterval time.Duration `yaml:"flush_interval" envconfig:"FLUSH_INTERVAL"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// Load loads configuration from defaults, the first config file found and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit config file. An empty path skips the file.
func LoadFrom(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Fields without a matching variable are left untouched.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// CalibrationParams converts the calibration section for the calculator.
func (c *Config) CalibrationParams() dataprocessing.CalibrationConfig {
	mode, _ := dataprocessing.ParseMode(c.Calibration.Mode)
	return dataprocessing.CalibrationConfig{
		SensitivityFactor: c.Calibration.SensitivityFactor,
		TemperatureRange:  dataprocessing.Range{Min: c.Calibration.TemperatureMin, Max: c.Calibration.TemperatureMax},
		HumidityRange:     dataprocessing.Range{Min: c.Calibration.HumidityMin, Max: c.Calibration.HumidityMax},
		HumidityPadding:   c.Calibration.HumidityPadding,
		Mode:              mode,
	}
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output %q: want console, file or both", c.Logging.Output)
	}

	// Logs are always JSON.
	c.Logging.Format = "json"

	if err := c.CalibrationParams().Validate(); err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	if _, err := dataprocessing.ParseMode(c.Calibration.Mode); err != nil {
		return fmt.Errorf("calibration: %w", err)
	}

	if c.Processing.Workers < 0 {
		return fmt.Errorf("processing workers must not be negative")
	}
	if c.Processing.MaxUploadSize <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}

	if c.Storage.Enabled && c.Storage.Path == "" {
		return fmt.Errorf("storage path is required when storage is enabled")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			return fmt.Errorf("influxdb url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			return fmt.Errorf("influxdb org and bucket are required when influxdb is enabled")
		}
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}

	// Check for config file in common locations
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	cal := dataprocessing.DefaultCalibrationConfig()
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Paths: PathsConfig{
			DataDir:    "data",
			UploadsDir: "data/uploads",
			ReportsDir: "data/reports",
			LogsDir:    "logs",
		},
		Calibration: CalibrationConfig{
			SensitivityFactor: cal.SensitivityFactor,
			TemperatureMin:    cal.TemperatureRange.Min,
			TemperatureMax:    cal.TemperatureRange.Max,
			HumidityMin:       cal.HumidityRange.Min,
			HumidityMax:       cal.HumidityRange.Max,
			HumidityPadding:   cal.HumidityPadding,
			Mode:              string(cal.Mode),
		},
		Processing: ProcessingConfig{
			Workers:       0,
			Sentinels:     append([]float64(nil), dataprocessing.DefaultSentinels...),
			MaxUploadSize: 32 << 20, // 32MB
		},
		Storage: StorageConfig{
			Enabled:     true,
			Path:        "data/sensor.db",
			BusyTimeout: 5 * time.Second,
		},
		InfluxDB: InfluxDBConfig{
			Enabled:       false,
			URL:           "http://localhost:8086",
			Bucket:        "sensors",
			BatchSize:     100,
			FlushInterval: time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "sensorcli",
			MetricsEnabled: true,
			TracingEnabled: false,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}
