package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	// Embedded zone database; the station host may not ship one
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends
const (
	BackendFirestore = "firestore"
	BackendFile      = "file"
)

type Config struct {
	LocationName string            `yaml:"location_name"`
	Timezone     string            `yaml:"timezone" validate:"required"`
	Debug        bool              `yaml:"debug"`
	Store        StoreConfig       `yaml:"store"`
	ForecastAPI  ForecastAPIConfig `yaml:"forecast_api"`
	AI           AIConfig          `yaml:"ai"`
	Poll         PollConfig        `yaml:"poll"`
	Monitoring   MonitoringConfig  `yaml:"monitoring"`
	Email        EmailConfig       `yaml:"email"`
	Sensor       SensorConfig      `yaml:"sensor"`
}

type StoreConfig struct {
	Backend               string `yaml:"backend" validate:"oneof=firestore file"`
	ProjectID             string `yaml:"project_id" validate:"required_if=Backend firestore"`
	CredentialsFile       string `yaml:"credentials_file"`
	ReadingsCollection    string `yaml:"readings_collection"`
	PredictionsCollection string `yaml:"predictions_collection"`
	DataDir               string `yaml:"data_dir" validate:"required_if=Backend file"`
}

type ForecastAPIConfig struct {
	URL                string        `yaml:"url" validate:"required,url"`
	UserAgent          string        `yaml:"user_agent"`
	Timeout            time.Duration `yaml:"timeout"`
	FallbackPressureMb float64       `yaml:"fallback_pressure_mb" validate:"gt=0"`

	// Consecutive failures before the breaker opens
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

type AIConfig struct {
	GeminiAPIKey string `yaml:"gemini_api_key"`
	Model        string `yaml:"model"`
}

type PollConfig struct {
	Interval      time.Duration `yaml:"interval" validate:"gt=0"`
	HistoryWindow time.Duration `yaml:"history_window"` // 0 = all history
	PredictionTTL time.Duration `yaml:"prediction_ttl" validate:"gt=0"`
	SampleSize    int           `yaml:"sample_size" validate:"gt=0"`
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port"`
}

type EmailConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	FromEmail  string `yaml:"from_email"`
	ToEmail    string `yaml:"to_email"`
}

type SensorConfig struct {
	SerialDevice   string        `yaml:"serial_device"`
	Baud           int           `yaml:"baud"`
	UploadInterval time.Duration `yaml:"upload_interval"`
	HealthPort     int           `yaml:"health_port"`
}

var validate = validator.New()

func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	return Parse(data)
}

// Parse decodes YAML config data, applies environment fallbacks and
// defaults, and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.AI.GeminiAPIKey == "" {
		cfg.AI.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Store.ProjectID == "" {
		cfg.Store.ProjectID = os.Getenv("FIRESTORE_PROJECT_ID")
	}
	if cfg.Store.CredentialsFile == "" {
		cfg.Store.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if cfg.Email.Username == "" {
		cfg.Email.Username = os.Getenv("EMAIL_USERNAME")
	}
	if cfg.Email.Password == "" {
		cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LocationName == "" {
		c.LocationName = "Storm-Sync Weather"
	}
	if c.Timezone == "" {
		c.Timezone = "America/New_York"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = BackendFirestore
	}
	if c.Store.ReadingsCollection == "" {
		c.Store.ReadingsCollection = "WeatherData"
	}
	if c.Store.PredictionsCollection == "" {
		c.Store.PredictionsCollection = "Predictions"
	}
	if c.Store.DataDir == "" {
		c.Store.DataDir = "data"
	}
	if c.ForecastAPI.URL == "" {
		c.ForecastAPI.URL = "https://api.weather.gov/gridpoints/AKQ/73,68/forecast/hourly"
	}
	if c.ForecastAPI.UserAgent == "" {
		c.ForecastAPI.UserAgent = "storm-sync/1.0"
	}
	if c.ForecastAPI.Timeout == 0 {
		c.ForecastAPI.Timeout = 30 * time.Second
	}
	if c.ForecastAPI.FallbackPressureMb == 0 {
		c.ForecastAPI.FallbackPressureMb = 1021.1
	}
	if c.ForecastAPI.BreakerFailures == 0 {
		c.ForecastAPI.BreakerFailures = 5
	}
	if c.ForecastAPI.BreakerCooldown == 0 {
		c.ForecastAPI.BreakerCooldown = 5 * time.Minute
	}
	if c.AI.Model == "" {
		c.AI.Model = "gemini-2.5-flash"
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = 60 * time.Second
	}
	if c.Poll.PredictionTTL == 0 {
		c.Poll.PredictionTTL = time.Hour
	}
	if c.Poll.SampleSize == 0 {
		c.Poll.SampleSize = 6
	}
	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8080
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Sensor.SerialDevice == "" {
		c.Sensor.SerialDevice = "/dev/ttyACM0"
	}
	if c.Sensor.Baud == 0 {
		c.Sensor.Baud = 9600
	}
	if c.Sensor.UploadInterval == 0 {
		c.Sensor.UploadInterval = 10 * time.Second
	}
	if c.Sensor.HealthPort == 0 {
		c.Sensor.HealthPort = 8081
	}
}

func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s is invalid (rule %q)", fe.Namespace(), fe.Tag())
		}
		return err
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured local timezone. validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ValidateStormSync checks the settings only the dashboard agent needs
func (c *Config) ValidateStormSync() error {
	if c.AI.GeminiAPIKey == "" {
		return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or ai.gemini_api_key)")
	}
	if c.Email.Enabled {
		if c.Email.SMTPServer == "" || c.Email.ToEmail == "" || c.Email.FromEmail == "" {
			return fmt.Errorf("email alerts need email.smtp_server, email.from_email and email.to_email")
		}
		if c.Email.Username == "" || c.Email.Password == "" {
			return fmt.Errorf("email alerts need credentials (set EMAIL_USERNAME/EMAIL_PASSWORD or email.username/email.password)")
		}
	}
	return nil
}

// ValidateSensorUploader checks the settings only the sensor uploader needs
func (c *Config) ValidateSensorUploader() error {
	if c.Sensor.SerialDevice == "" {
		return fmt.Errorf("sensor.serial_device is required")
	}
	if c.Sensor.Baud <= 0 {
		return fmt.Errorf("sensor.baud must be positive")
	}
	if c.Sensor.UploadInterval <= 0 {
		return fmt.Errorf("sensor.upload_interval must be positive")
	}
	return nil
}
