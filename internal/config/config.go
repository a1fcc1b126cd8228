// Package config loads camseq settings from TOML files, CAMSEQ_ environment
// variables and command-line flags, and watches camera profiles for changes.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smazurov/camseq/internal/logging"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "CAMSEQ_"

var durationType = reflect.TypeOf(time.Duration(0))

// LoadConfig fills the exported fields of the struct pointed to by opts.
// Precedence is CLI flags > environment > TOML file. Fields are mapped with
// `toml:"section.key"` and `env:"KEY"` tags; the TOML path comes from a
// string field named Config. Flags explicitly set on cmd are left alone.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: expected pointer to struct, got %T", opts)
	}
	v = v.Elem()

	var path string
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String {
		path = f.String()
	}
	file, err := readTOML(path)
	if err != nil {
		return err
	}
	set := setFlags(cmd)

	t := v.Type()
	for i := range t.NumField() {
		sf, field := t.Field(i), v.Field(i)
		if !sf.IsExported() || set[flagName(sf.Name)] {
			continue
		}
		if key := sf.Tag.Get("toml"); key != "" {
			if value := lookupPath(file, key); value != nil {
				if err := assign(field, value); err != nil {
					return fmt.Errorf("%s: %w", key, err)
				}
			}
		}
		if key := sf.Tag.Get("env"); key != "" {
			if value := os.Getenv(EnvPrefix + key); value != "" {
				if err := assign(field, value); err != nil {
					return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
				}
			}
		}
	}
	return nil
}

// readTOML decodes path into a generic table. A missing file yields nil.
func readTOML(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var table map[string]any
	if err := toml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config %s: %w", path, err)
	}
	return table, nil
}

// setFlags names the flags given explicitly on the command line.
func setFlags(cmd *cobra.Command) map[string]bool {
	set := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().Visit(func(f *pflag.Flag) { set[f.Name] = true })
	}
	return set
}

// flagName turns a field name into its kebab-case flag, as humacli does:
// "LoggingLevel" becomes "logging-level".
func flagName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// lookupPath follows a dotted key through nested tables.
func lookupPath(table map[string]any, key string) any {
	head, rest, nested := strings.Cut(key, ".")
	if !nested {
		return table[head]
	}
	sub, ok := table[head].(map[string]any)
	if !ok {
		return nil
	}
	return lookupPath(sub, rest)
}

// assign stores value in field. Strings (from env, or quoted in TOML) are
// parsed into the field's type; decoded TOML numbers, booleans and arrays
// are converted. Integer durations count milliseconds.
func assign(field reflect.Value, value any) error {
	if !field.CanSet() {
		return nil
	}
	if s, ok := value.(string); ok {
		return parseInto(field, s)
	}

	switch n := value.(type) {
	case int64:
		switch {
		case field.Type() == durationType:
			field.SetInt(n * int64(time.Millisecond))
		case field.CanInt():
			field.SetInt(n)
		case field.CanFloat():
			field.SetFloat(float64(n))
		default:
			return fmt.Errorf("cannot use integer for %s", field.Type())
		}
	case float64:
		if !field.CanFloat() {
			return fmt.Errorf("cannot use float for %s", field.Type())
		}
		field.SetFloat(n)
	case bool:
		if field.Kind() != reflect.Bool {
			return fmt.Errorf("cannot use bool for %s", field.Type())
		}
		field.SetBool(n)
	case []any:
		if field.Kind() != reflect.Slice || field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("cannot use array for %s", field.Type())
		}
		items := make([]string, 0, len(n))
		for _, item := range n {
			items = append(items, fmt.Sprint(item))
		}
		field.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported value %T", value)
	}
	return nil
}

func parseInto(field reflect.Value, s string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(s, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice %s", field.Type())
		}
		parts := strings.Split(s, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

// LoadLoggingConfig reads the [logging] table of a TOML file. Per-module
// levels may sit directly in the table or in [logging.modules]. Defaults
// are returned when the file is missing or unreadable.
func LoadLoggingConfig(configPath string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}
	if configPath == "" {
		return cfg
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg
	}

	var raw struct {
		Logging map[string]any `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil || raw.Logging == nil {
		return cfg
	}

	for key, value := range raw.Logging {
		switch val := value.(type) {
		case string:
			switch key {
			case "level":
				cfg.Level = val
			case "format":
				cfg.Format = val
			default:
				cfg.Modules[key] = val
			}
		case map[string]any:
			if key != "modules" {
				continue
			}
			for module, level := range val {
				if s, ok := level.(string); ok {
					cfg.Modules[module] = s
				}
			}
		}
	}
	return cfg
}
