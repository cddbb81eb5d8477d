package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/grovetools/i2pportal/errors"
	"github.com/grovetools/i2pportal/logging"
	"github.com/grovetools/i2pportal/schema"
	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Settings holds the overridable session settings. Every field is optional: a nil
// field falls through to the next source (environment over file over default).
// The mapstructure tags name the environment variables; the yaml/toml tags name
// the config file keys.
type Settings struct {
	Display         *string `mapstructure:"DISPLAY" yaml:"display,omitempty" toml:"display,omitempty" json:"display,omitempty" jsonschema:"description=X display address used by the browser and window tools"`
	DisplayGeometry *string `mapstructure:"DISPLAY_GEOMETRY" yaml:"display_geometry,omitempty" toml:"display_geometry,omitempty" json:"display_geometry,omitempty" jsonschema:"pattern=^[0-9]+x[0-9]+$,description=Display resolution as WIDTHxHEIGHT"`
	DisplayDepth    *int    `mapstructure:"DISPLAY_DEPTH" yaml:"display_depth,omitempty" toml:"display_depth,omitempty" json:"display_depth,omitempty" jsonschema:"minimum=1,description=Display color depth in bits"`
	DisplayWait     *string `mapstructure:"DISPLAY_WAIT" yaml:"display_wait,omitempty" toml:"display_wait,omitempty" json:"display_wait,omitempty" jsonschema:"oneof_type=string;number,description=How long to wait for a local X socket as a duration or seconds (0 disables)"`

	Identity   *string `mapstructure:"I2P_USER" yaml:"user,omitempty" toml:"user,omitempty" json:"user,omitempty" jsonschema:"description=Unprivileged user the router and browser run as"`
	ConfigRoot *string `mapstructure:"CONFIG_ROOT" yaml:"config_root,omitempty" toml:"config_root,omitempty" json:"config_root,omitempty" jsonschema:"description=Persisted state root"`

	RouterHome      *string `mapstructure:"I2P_HOME" yaml:"router_home,omitempty" toml:"router_home,omitempty" json:"router_home,omitempty" jsonschema:"description=Router install directory"`
	RouterConfigDir *string `mapstructure:"I2P_CONFIG_DIR" yaml:"router_config_dir,omitempty" toml:"router_config_dir,omitempty" json:"router_config_dir,omitempty"`
	RouterLogDir    *string `mapstructure:"I2P_LOG_DIR" yaml:"router_log_dir,omitempty" toml:"router_log_dir,omitempty" json:"router_log_dir,omitempty"`
	RouterPIDDir    *string `mapstructure:"I2P_PID_DIR" yaml:"router_pid_dir,omitempty" toml:"router_pid_dir,omitempty" json:"router_pid_dir,omitempty"`
	RouterCommand   *string `mapstructure:"ROUTER_COMMAND" yaml:"router_command,omitempty" toml:"router_command,omitempty" json:"router_command,omitempty" jsonschema:"description=Router launch script"`
	JVMHeap         *string `mapstructure:"JVM_HEAP" yaml:"jvm_heap,omitempty" toml:"jvm_heap,omitempty" json:"jvm_heap,omitempty" jsonschema:"pattern=^[0-9]+[kKmMgG]?$,description=Router maximum heap (-Xmx)"`
	ExtPort         *int    `mapstructure:"EXT_PORT" yaml:"ext_port,omitempty" toml:"ext_port,omitempty" json:"ext_port,omitempty" jsonschema:"minimum=1,maximum=65535,description=External port substituted into router config files"`

	BrowserBin     *string `mapstructure:"BROWSER_BIN" yaml:"browser_bin,omitempty" toml:"browser_bin,omitempty" json:"browser_bin,omitempty"`
	BrowserProfile *string `mapstructure:"BROWSER_PROFILE" yaml:"browser_profile,omitempty" toml:"browser_profile,omitempty" json:"browser_profile,omitempty"`
	BrowserWindow  *string `mapstructure:"BROWSER_WINDOW" yaml:"browser_window,omitempty" toml:"browser_window,omitempty" json:"browser_window,omitempty" jsonschema:"description=Substring matched against window titles"`

	WindowAttempts   *int    `mapstructure:"WINDOW_ATTEMPTS" yaml:"window_attempts,omitempty" toml:"window_attempts,omitempty" json:"window_attempts,omitempty" jsonschema:"minimum=0"`
	WindowInterval   *string `mapstructure:"WINDOW_INTERVAL" yaml:"window_interval,omitempty" toml:"window_interval,omitempty" json:"window_interval,omitempty" jsonschema:"oneof_type=string;number,description=Window poll interval as a duration or seconds"`
	TeardownAttempts *int    `mapstructure:"TEARDOWN_ATTEMPTS" yaml:"teardown_attempts,omitempty" toml:"teardown_attempts,omitempty" json:"teardown_attempts,omitempty" jsonschema:"minimum=0"`
	TeardownInterval *string `mapstructure:"TEARDOWN_INTERVAL" yaml:"teardown_interval,omitempty" toml:"teardown_interval,omitempty" json:"teardown_interval,omitempty" jsonschema:"oneof_type=string;number,description=Teardown poll interval as a duration or seconds"`

	SeedRoot *string `mapstructure:"SEED_ROOT" yaml:"seed_root,omitempty" toml:"seed_root,omitempty" json:"seed_root,omitempty" jsonschema:"description=First-run skeleton source"`

	Logging *logging.Config `mapstructure:"-" yaml:"logging,omitempty" toml:"logging,omitempty" json:"logging,omitempty"`
}

// ConfigFileNames are probed in the config root, in order, when PORTAL_CONFIG is unset.
var ConfigFileNames = []string{"portal.yml", "portal.yaml", "portal.toml"}

// envKeys returns the environment variable names that map onto Settings.
func envKeys() []string {
	var keys []string
	t := reflect.TypeOf(Settings{})
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("mapstructure"); tag != "" && tag != "-" {
			keys = append(keys, tag)
		}
	}
	return keys
}

// decodeEnv decodes the non-empty recognised variables of env into Settings.
func decodeEnv(env map[string]string) (*Settings, error) {
	input := make(map[string]interface{})
	for _, key := range envKeys() {
		if v := strings.TrimSpace(env[key]); v != "" {
			input[key] = v
		}
	}

	var s Settings
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid environment override")
	}
	return &s, nil
}

// overlay copies every non-nil field of src onto dst.
func overlay(dst, src *Settings) {
	if src == nil {
		return
	}
	dv := reflect.ValueOf(dst).Elem()
	sv := reflect.ValueOf(src).Elem()
	for i := 0; i < sv.NumField(); i++ {
		if f := sv.Field(i); f.Kind() == reflect.Ptr && !f.IsNil() {
			dv.Field(i).Set(f)
		}
	}
}

// findConfigFile returns the config file to load, or "" when there is none.
// An explicitly named file must exist.
func findConfigFile(env map[string]string) (string, error) {
	if explicit := strings.TrimSpace(env["PORTAL_CONFIG"]); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", errors.Wrap(err, errors.ErrCodeConfigInvalid, "config file not readable").
				WithDetail("path", explicit)
		}
		return explicit, nil
	}

	root := DefaultConfigRoot
	if v := strings.TrimSpace(env["CONFIG_ROOT"]); v != "" {
		root = v
	}
	for _, name := range ConfigFileNames {
		candidate := filepath.Join(root, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

// LoadFile reads a YAML or TOML settings file, validates it against the
// settings schema and decodes it.
func LoadFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}
	return LoadFromBytes(data, formatFor(path))
}

// Format is a config file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

func formatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// LoadFromBytes parses, validates and decodes settings in the given format.
func LoadFromBytes(data []byte, format Format) (*Settings, error) {
	var raw map[string]interface{}
	var s Settings

	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML config")
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML config")
		}
	}

	if len(raw) == 0 {
		return &s, nil
	}

	validator, err := settingsValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build settings schema")
	}
	if err := validator.Validate(raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "config file does not match schema")
	}

	if err := decodeFile(raw, &s); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, fmt.Sprintf("failed to decode %s config", strings.ToUpper(string(format))))
	}
	return &s, nil
}

// decodeFile maps the validated file contents onto Settings by their yaml key
// names. Weak typing lets interval keys be written as bare seconds (2 or 0.5).
func decodeFile(raw map[string]interface{}, s *Settings) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           s,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

func settingsValidator() (*schema.Validator, error) {
	data, err := GenerateSchema()
	if err != nil {
		return nil, err
	}
	return schema.NewValidator("portal.schema.json", data)
}
