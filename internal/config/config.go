package config

import (
	"fmt"
	"os"
	"strings"
)

// Config aggregates settings for both binaries; each reads its own section.
type Config struct {
	Relay   RelayConfig
	Console ConsoleConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	relay, err := loadRelayConfig()
	if err != nil {
		return nil, err
	}
	return &Config{
		Relay:   relay,
		Console: loadConsoleConfig(),
	}, nil
}

// RelayConfig describes the relay HTTP server.
type RelayConfig struct {
	Addr string
}

func loadRelayConfig() (RelayConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return RelayConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return RelayConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return RelayConfig{Addr: ":" + port}, nil
}

// ConsoleConfig describes the doctor console client.
type ConsoleConfig struct {
	ServerURL   string
	DisplayName string
	PatientID   string
	PrefsPath   string
}

func loadConsoleConfig() ConsoleConfig {
	return ConsoleConfig{
		ServerURL:   getEnvOrDefault("RELAY_URL", "ws://localhost:8080/ws"),
		DisplayName: getEnvOrDefault("DOCTOR_NAME", "Dr. Dharshini"),
		PatientID:   strings.TrimSpace(os.Getenv("PATIENT_ID")),
		PrefsPath:   getEnvOrDefault("PREFS_PATH", "docboard.yaml"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
