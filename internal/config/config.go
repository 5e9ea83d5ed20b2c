// Package config provides configuration types for fileguardcore.
//
// The schema is intentionally small: a single admin-facing engine has
// far fewer moving parts than a multi-tenant proxy. It intentionally
// excludes:
//
//   - NO remote/network control channel (local socket only)
//   - NO rule persistence across restarts (admin re-pushes rules)
//   - NO multi-tenant support
package config

import "time"

// Config is the top-level configuration for fileguardcore.
type Config struct {
	// LogLevel controls log/slog verbosity: debug, info, warn, error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// ControlSocket is the filesystem path of the control-channel
	// listener (Unix domain socket).
	ControlSocket string `yaml:"control_socket" mapstructure:"control_socket" validate:"required"`

	// MonitorSocket is the filesystem path of the monitor-channel
	// listener, separate from ControlSocket per §6.
	MonitorSocket string `yaml:"monitor_socket" mapstructure:"monitor_socket" validate:"required"`

	// MetricsAddr is the host:port the Prometheus /metrics endpoint
	// listens on. Empty disables metrics serving.
	MetricsAddr string `yaml:"metrics_addr" mapstructure:"metrics_addr" validate:"omitempty,hostname_port"`

	// MaxRecords bounds the monitor queue (§3). Zero uses
	// monitor.DefaultMaxRecords.
	MaxRecords int `yaml:"max_records" mapstructure:"max_records" validate:"omitempty,min=1"`

	// ReadonlyDenyCode accepts "access_denied" (default) or "not_found".
	// It is validated and defaulted, but the pipeline does not read it:
	// MajorReadOnly denials always complete with StatusAccessDenied.
	ReadonlyDenyCode string `yaml:"readonly_deny_code" mapstructure:"readonly_deny_code" validate:"omitempty,oneof=access_denied not_found"`

	// AdminAuth configures the one-shot control-channel auth handshake.
	AdminAuth AdminAuthConfig `yaml:"admin_auth" mapstructure:"admin_auth"`

	// HostAdapter selects and configures the inbound file-event source.
	HostAdapter HostAdapterConfig `yaml:"host_adapter" mapstructure:"host_adapter"`

	// History configures the optional sqlite-backed audit history
	// sink (§4.F addition). Disabled by default.
	History HistoryConfig `yaml:"history" mapstructure:"history"`

	// Tracing configures OpenTelemetry span export.
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`

	// DevMode enables permissive defaults (e.g. disables AdminAuth)
	// for local experimentation; never set in production.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// AdminAuthConfig configures the argon2id-based shared-secret
// handshake prepended to every new control-channel connection
// (SPEC_FULL.md §4.E). It authenticates the connecting process; it
// does not encrypt the channel.
type AdminAuthConfig struct {
	// Enabled turns the handshake on. DevMode turns it off when no
	// SecretHash is set.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// SecretHash is the argon2id hash of the shared admin secret, as
	// produced by `fileguardctl hash-secret`.
	SecretHash string `yaml:"secret_hash" mapstructure:"secret_hash" validate:"required_if=Enabled true"`
	// HandshakeTimeout bounds how long a new connection has to
	// complete the handshake before it is dropped.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" mapstructure:"handshake_timeout"`
}

// HostAdapterConfig selects the inbound file-event source.
type HostAdapterConfig struct {
	// Kind is the adapter implementation: currently only "posixfs"
	// (the fsnotify + stat-based reference adapter).
	Kind string `yaml:"kind" mapstructure:"kind" validate:"omitempty,oneof=posixfs"`
	// WatchRoots lists directories the posixfs adapter recursively
	// watches.
	WatchRoots []string `yaml:"watch_roots" mapstructure:"watch_roots" validate:"omitempty,dive,required"`
}

// HistoryConfig configures the optional sqlite audit history sink.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	DBPath  string `yaml:"db_path" mapstructure:"db_path" validate:"required_if=Enabled true"`
}

// TracingConfig configures OpenTelemetry span export.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// SetDefaults fills unset optional fields with production-safe
// defaults, mirroring the source's SetDefaults/SetDevDefaults split.
func (c *Config) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ControlSocket == "" {
		c.ControlSocket = "/var/run/fileguardcore/control.sock"
	}
	if c.MonitorSocket == "" {
		c.MonitorSocket = "/var/run/fileguardcore/monitor.sock"
	}
	if c.ReadonlyDenyCode == "" {
		c.ReadonlyDenyCode = "access_denied"
	}
	if c.HostAdapter.Kind == "" {
		c.HostAdapter.Kind = "posixfs"
	}
	if c.AdminAuth.HandshakeTimeout == 0 {
		c.AdminAuth.HandshakeTimeout = 5 * time.Second
	}
}

// SetDevDefaults applies permissive overrides when DevMode is set,
// applied after SetDefaults and before Validate.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	// In dev mode an operator running the engine against a scratch
	// directory shouldn't need to mint an admin secret first.
	if c.AdminAuth.SecretHash == "" {
		c.AdminAuth.Enabled = false
	}
}
