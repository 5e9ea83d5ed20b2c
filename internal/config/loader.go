// Package config provides configuration loading for fileguardcore.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment variables.
// If configFile is empty, it searches for fileguardcore.yaml/.yml in standard locations.
// The search requires an explicit YAML extension to avoid matching the binary itself,
// which Viper's built-in SetConfigName would match (same base name, no extension).
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file found in any standard location.
		// Set name/type without search paths so ReadInConfig returns
		// ConfigFileNotFoundError (handled gracefully by callers).
		viper.SetConfigName("fileguardcore")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: FILEGUARDCORE_CONTROL_SOCKET
	viper.SetEnvPrefix("FILEGUARDCORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for a fileguardcore config file
// with an explicit YAML extension (.yaml or .yml). This prevents Viper from
// matching the binary "fileguardcore" (no extension) in the current directory.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".fileguardcore"),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "fileguardcore"))
		}
	} else {
		paths = append(paths, "/etc/fileguardcore")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths searches the given directories for fileguardcore.yaml or .yml.
// Returns the full path of the first match, or empty string if none found.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "fileguardcore"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds config keys for environment variable support.
// Example: FILEGUARDCORE_CONTROL_SOCKET overrides control_socket.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("log_level")
	_ = viper.BindEnv("control_socket")
	_ = viper.BindEnv("monitor_socket")
	_ = viper.BindEnv("metrics_addr")
	_ = viper.BindEnv("max_records")
	_ = viper.BindEnv("readonly_deny_code")

	_ = viper.BindEnv("admin_auth.enabled")
	_ = viper.BindEnv("admin_auth.secret_hash")
	_ = viper.BindEnv("admin_auth.handshake_timeout")

	_ = viper.BindEnv("host_adapter.kind")
	// Note: host_adapter.watch_roots is an array; use the config file for it.

	_ = viper.BindEnv("history.enabled")
	_ = viper.BindEnv("history.db_path")

	_ = viper.BindEnv("tracing.enabled")

	_ = viper.BindEnv("dev_mode")
}

// LoadConfig reads the configuration file, applies environment overrides,
// sets defaults, and returns the Config.
// Note: callers that want CLI flags (e.g. --dev) to take effect before
// validation should call LoadConfigRaw instead.
func LoadConfig() (*Config, error) {
	cfg, err := LoadConfigRaw()
	if err != nil {
		return nil, err
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigRaw reads the configuration file and applies defaults, but
// does NOT apply dev defaults or validate.
func LoadConfigRaw() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars only.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was
// loaded, or an empty string if none was found (env vars only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
