package logging

import "strings"

// Config defines the logging configuration. It is read from the "logging" section of
// the portal config file and from PORTAL_LOG_* environment variables.
type Config struct {
	// Level is the minimum log level to output (e.g., "debug", "info", "warn", "error").
	// Can be overridden by the PORTAL_LOG_LEVEL environment variable.
	Level string `yaml:"level,omitempty" toml:"level,omitempty" json:"level,omitempty" jsonschema:"enum=trace,enum=debug,enum=info,enum=warn,enum=error"`

	// ReportCaller, if true, includes the file, line, and function name in the log output.
	// Can be enabled with the PORTAL_LOG_CALLER=true environment variable.
	ReportCaller bool `yaml:"report_caller,omitempty" toml:"report_caller,omitempty" json:"report_caller,omitempty"`

	// File configures logging to a file.
	File FileSinkConfig `yaml:"file,omitempty" toml:"file,omitempty" json:"file,omitempty"`

	// Format configures the appearance of the log output.
	Format FormatConfig `yaml:"format,omitempty" toml:"format,omitempty" json:"format,omitempty"`
}

// FileSinkConfig configures the file logging sink.
type FileSinkConfig struct {
	Enabled bool `yaml:"enabled,omitempty" toml:"enabled,omitempty" json:"enabled,omitempty"`
	// Path is the full path to the log file.
	Path string `yaml:"path,omitempty" toml:"path,omitempty" json:"path,omitempty"`
}

// FormatConfig controls the log output format.
type FormatConfig struct {
	// Preset can be "default" (rich text), "simple" (minimal text), or "json".
	Preset string `yaml:"preset,omitempty" toml:"preset,omitempty" json:"preset,omitempty" jsonschema:"enum=default,enum=text,enum=simple,enum=json"`
	// DisableTimestamp disables the timestamp from the "default" and "simple" formats.
	DisableTimestamp bool `yaml:"disable_timestamp,omitempty" toml:"disable_timestamp,omitempty" json:"disable_timestamp,omitempty"`
	// DisableComponent disables the component name from the "default" and "simple" formats.
	DisableComponent bool `yaml:"disable_component,omitempty" toml:"disable_component,omitempty" json:"disable_component,omitempty"`
	// StructuredToStderr controls when structured logs are sent to stderr.
	// Can be "always" (default), "auto", or "never".
	StructuredToStderr string `yaml:"structured_to_stderr,omitempty" toml:"structured_to_stderr,omitempty" json:"structured_to_stderr,omitempty" jsonschema:"enum=always,enum=auto,enum=never"`
}

// ApplyEnv overlays PORTAL_LOG_* variables from getenv onto c.
func (c Config) ApplyEnv(getenv func(string) string) Config {
	if v := getenv("PORTAL_LOG_LEVEL"); v != "" {
		c.Level = v
	}
	if v := getenv("PORTAL_LOG_FORMAT"); v != "" {
		c.Format.Preset = v
	}
	if getenv("PORTAL_LOG_CALLER") == "true" {
		c.ReportCaller = true
	}
	if v := getenv("PORTAL_LOG_FILE"); v != "" {
		c.File.Enabled = true
		c.File.Path = v
	}
	c.Format.Preset = strings.ToLower(c.Format.Preset)
	return c
}
