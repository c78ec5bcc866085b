package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Quanta-Naut/CivicBridge-App/internal/logger"
)

// Environment variables read by LoadSettings.
const (
	EnvAPIClient     = "CIVIC_API_CLIENT"
	EnvEndpointsFile = "CIVIC_ENDPOINTS_FILE"
	EnvBridgeAddr    = "CIVIC_BRIDGE_ADDR"
)

// DefaultBridgeAddr is where the local HTTP surface listens by default.
const DefaultBridgeAddr = "127.0.0.1:8765"

// Settings is the process-wide runtime configuration. It is built once at
// start-up and passed by value; nothing mutates it afterwards.
type Settings struct {
	// Networked selects the real API client. When false the simulated
	// client answers every remote operation locally.
	Networked bool

	// EndpointsFile replaces the embedded endpoint asset when set.
	EndpointsFile string

	// BridgeAddr is the listen address of the local HTTP surface.
	BridgeAddr string

	// LogLevel is the minimum log level.
	LogLevel logger.Level
}

// LoadDotEnv loads variables from .env files into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			logger.Warn("config: failed to load %s: %v", path, err)
			continue
		}
		logger.Debug("config: loaded environment from %s", path)
	}
}

// LoadSettings reads Settings through lookup for platform goos.
func LoadSettings(lookup func(string) (string, bool), goos string) (Settings, error) {
	settings := Settings{
		Networked:  !IsMobile(goos),
		BridgeAddr: DefaultBridgeAddr,
		LogLevel:   logger.LevelInfo,
	}

	if value, ok := lookup(EnvAPIClient); ok && strings.TrimSpace(value) != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "enabled", "on", "true", "1":
			settings.Networked = true
		case "disabled", "off", "false", "0", "simulated":
			settings.Networked = false
		default:
			return settings, fmt.Errorf("%s: unknown value %q: expected enabled or disabled", EnvAPIClient, value)
		}
	}

	if value, ok := lookup(EnvEndpointsFile); ok {
		settings.EndpointsFile = strings.TrimSpace(value)
	}
	if value, ok := lookup(EnvBridgeAddr); ok && strings.TrimSpace(value) != "" {
		settings.BridgeAddr = strings.TrimSpace(value)
	}

	level, err := logger.LevelFromEnv(lookup, logger.LevelInfo)
	if err != nil {
		return settings, err
	}
	settings.LogLevel = level

	return settings, nil
}

// LoadProcessSettings is LoadSettings for the running process.
func LoadProcessSettings() (Settings, error) {
	return LoadSettings(os.LookupEnv, runtime.GOOS)
}
