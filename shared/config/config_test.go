package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv keeps the host environment out of the env fallbacks
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GEMINI_API_KEY", "FIRESTORE_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS", "EMAIL_USERNAME", "EMAIL_PASSWORD"} {
		t.Setenv(key, "")
	}
}

func TestParseDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte("store:\n  backend: file\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Timezone != "America/New_York" {
		t.Errorf("Expected default timezone, got %q", cfg.Timezone)
	}
	if cfg.Store.DataDir != "data" || cfg.Store.ReadingsCollection != "WeatherData" || cfg.Store.PredictionsCollection != "Predictions" {
		t.Errorf("Unexpected store defaults: %+v", cfg.Store)
	}
	if cfg.ForecastAPI.FallbackPressureMb != 1021.1 {
		t.Errorf("Expected fallback pressure 1021.1, got %v", cfg.ForecastAPI.FallbackPressureMb)
	}
	if !strings.HasPrefix(cfg.ForecastAPI.URL, "https://api.weather.gov/") {
		t.Errorf("Unexpected forecast URL %q", cfg.ForecastAPI.URL)
	}
	if cfg.Poll.Interval != time.Minute || cfg.Poll.PredictionTTL != time.Hour || cfg.Poll.SampleSize != 6 {
		t.Errorf("Unexpected poll defaults: %+v", cfg.Poll)
	}
	if cfg.Poll.HistoryWindow != 0 {
		t.Errorf("Expected unbounded history by default, got %v", cfg.Poll.HistoryWindow)
	}
	if cfg.Monitoring.HealthPort != 8080 {
		t.Errorf("Expected health port 8080, got %d", cfg.Monitoring.HealthPort)
	}
	if cfg.Sensor.SerialDevice != "/dev/ttyACM0" || cfg.Sensor.Baud != 9600 || cfg.Sensor.UploadInterval != 10*time.Second || cfg.Sensor.HealthPort != 8081 {
		t.Errorf("Unexpected sensor defaults: %+v", cfg.Sensor)
	}
	if cfg.Location().String() != "America/New_York" {
		t.Errorf("Expected America/New_York location, got %s", cfg.Location())
	}
}

func TestParseEnvFallbacks(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("FIRESTORE_PROJECT_ID", "weather-station")
	t.Setenv("EMAIL_USERNAME", "station@example.com")
	t.Setenv("EMAIL_PASSWORD", "hunter2")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/etc/storm-sync/sa.json")

	cfg, err := Parse([]byte("location_name: Backyard\npoll:\n  interval: 30s\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.AI.GeminiAPIKey != "test-key" {
		t.Errorf("Expected API key from env, got %q", cfg.AI.GeminiAPIKey)
	}
	if cfg.Store.Backend != BackendFirestore || cfg.Store.ProjectID != "weather-station" {
		t.Errorf("Expected firestore backend with project from env, got %+v", cfg.Store)
	}
	if cfg.Email.Username != "station@example.com" || cfg.Email.Password != "hunter2" {
		t.Errorf("Expected email credentials from env, got %q/%q", cfg.Email.Username, cfg.Email.Password)
	}
	if cfg.Store.CredentialsFile != "/etc/storm-sync/sa.json" {
		t.Errorf("Expected credentials file from env, got %q", cfg.Store.CredentialsFile)
	}
	if cfg.Poll.Interval != 30*time.Second {
		t.Errorf("Expected interval 30s, got %v", cfg.Poll.Interval)
	}
	if cfg.LocationName != "Backyard" {
		t.Errorf("Expected location name from file, got %q", cfg.LocationName)
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"Unknown backend", "store:\n  backend: postgres\n"},
		{"Firestore without project", "store:\n  backend: firestore\n"},
		{"Unknown timezone", "timezone: Mars/Olympus_Mons\nstore:\n  backend: file\n"},
		{"Bad forecast URL", "store:\n  backend: file\nforecast_api:\n  url: not a url\n"},
		{"Negative pressure", "store:\n  backend: file\nforecast_api:\n  fallback_pressure_mb: -1\n"},
		{"Negative interval", "store:\n  backend: file\npoll:\n  interval: -5s\n"},
		{"Malformed YAML", "store: [backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "storm-sync.yaml")
	content := "timezone: America/Chicago\nstore:\n  backend: file\n  data_dir: /var/lib/storm-sync\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Timezone != "America/Chicago" || cfg.Store.DataDir != "/var/lib/storm-sync" {
		t.Errorf("Unexpected config: timezone=%s data_dir=%s", cfg.Timezone, cfg.Store.DataDir)
	}

	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestValidateStormSync(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		expectErr bool
	}{
		{
			name:      "Missing API key",
			cfg:       Config{},
			expectErr: true,
		},
		{
			name:      "API key, email disabled",
			cfg:       Config{AI: AIConfig{GeminiAPIKey: "key"}},
			expectErr: false,
		},
		{
			name: "Email enabled without recipients",
			cfg: Config{
				AI:    AIConfig{GeminiAPIKey: "key"},
				Email: EmailConfig{Enabled: true, SMTPServer: "smtp.example.com", Username: "u", Password: "p"},
			},
			expectErr: true,
		},
		{
			name: "Email enabled without credentials",
			cfg: Config{
				AI:    AIConfig{GeminiAPIKey: "key"},
				Email: EmailConfig{Enabled: true, SMTPServer: "smtp.example.com", FromEmail: "a@example.com", ToEmail: "b@example.com"},
			},
			expectErr: true,
		},
		{
			name: "Email fully configured",
			cfg: Config{
				AI: AIConfig{GeminiAPIKey: "key"},
				Email: EmailConfig{
					Enabled:    true,
					SMTPServer: "smtp.example.com",
					FromEmail:  "a@example.com",
					ToEmail:    "b@example.com",
					Username:   "u",
					Password:   "p",
				},
			},
			expectErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateStormSync()
			if (err != nil) != tt.expectErr {
				t.Errorf("Expected error=%v, got %v", tt.expectErr, err)
			}
		})
	}
}

func TestValidateSensorUploader(t *testing.T) {
	cfg := Config{Sensor: SensorConfig{SerialDevice: "/dev/ttyUSB0", Baud: 9600, UploadInterval: 10 * time.Second}}
	if err := cfg.ValidateSensorUploader(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	cfg.Sensor.Baud = 0
	if err := cfg.ValidateSensorUploader(); err == nil {
		t.Error("Expected error for zero baud rate")
	}

	cfg.Sensor = SensorConfig{Baud: 9600, UploadInterval: 10 * time.Second}
	if err := cfg.ValidateSensorUploader(); err == nil {
		t.Error("Expected error for missing serial device")
	}
}
