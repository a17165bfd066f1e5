// Package config loads struct configuration from environment variables and an
// optional .env file.
//
// Fields are mapped with an `env` tag:
//
//	type Config struct {
//	    ClientID string        `env:"CLIENT_ID,required"`
//	    Timeout  time.Duration `env:"HTTP_TIMEOUT,default:30s"`
//	    Headers  map[string]string `env:"DEFAULT_HEADERS"`
//	}
//
//	var cfg Config
//	err := config.Load(&cfg, config.LoadOptions{Prefix: "MYAPP_"})
//	// reads MYAPP_CLIENT_ID, MYAPP_HTTP_TIMEOUT, MYAPP_DEFAULT_HEADERS
//
// Values already present in the process environment win over the .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultPrefix is prepended to every variable name unless LoadOptions says otherwise.
const DefaultPrefix = "REDDIT_"

// ErrNotStructPointer is returned when Load is not given a pointer to a struct.
var ErrNotStructPointer = errors.New("config: target must be a non-nil pointer to a struct")

// LoadOptions defines options for loading configuration from environment variables.
type LoadOptions struct {
	Prefix   string   // Prefix for variable names (default: "REDDIT_")
	Debug    bool     // Print every resolved variable, secrets masked
	EnvFiles []string // Files handed to godotenv; defaults to ".env"
}

// MissingError reports a required variable that was neither set nor defaulted.
type MissingError struct {
	Name string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("config: required variable %s is not set", e.Name)
}

// FieldError reports a value that could not be converted to the field's type.
type FieldError struct {
	Name  string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config: invalid value for %s: %v", e.Name, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

type tagSpec struct {
	name         string
	defaultValue string
	hasDefault   bool
	required     bool
}

// Load populates cfg from the environment. Supported kinds are string, int,
// int64, float64, bool, time.Duration, []string (comma separated) and
// map[string]string (comma separated key=value pairs). Fields without an env
// tag, and fields of other kinds, are left untouched.
func Load(cfg interface{}, opts ...LoadOptions) error {
	options := LoadOptions{Prefix: DefaultPrefix}
	if len(opts) > 0 {
		options = opts[0]
	}

	rv := reflect.ValueOf(cfg)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrNotStructPointer
	}

	// A missing .env file is not an error.
	_ = godotenv.Load(options.EnvFiles...)

	debug := options.Debug || os.Getenv(options.Prefix+"CONFIG_DEBUG") == "true"

	v := rv.Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		envTag := field.Tag.Get("env")
		if envTag == "" || !field.IsExported() {
			continue
		}

		spec := parseTag(envTag)
		fullName := options.Prefix + spec.name

		value, ok := os.LookupEnv(fullName)
		if !ok || value == "" {
			value = spec.defaultValue
		}
		if value == "" {
			if spec.required && !spec.hasDefault {
				return &MissingError{Name: fullName}
			}
			continue
		}

		if debug {
			fmt.Printf("[config] %s=%s\n", fullName, mask(spec.name, value))
		}

		if err := setFieldValue(v.Field(i), value); err != nil {
			return &FieldError{Name: fullName, Value: value, Err: err}
		}
	}

	return nil
}

func parseTag(tag string) tagSpec {
	parts := strings.Split(tag, ",")
	spec := tagSpec{name: parts[0]}

	for i := 1; i < len(parts); i++ {
		part := parts[i]
		switch {
		case strings.HasPrefix(part, "default:"):
			// Defaults may themselves contain commas (e.g. a list); everything
			// up to the next recognised option belongs to the default.
			def := strings.TrimPrefix(part, "default:")
			for i+1 < len(parts) && !isOption(parts[i+1]) {
				i++
				def += "," + parts[i]
			}
			spec.defaultValue = def
			spec.hasDefault = true
		case part == "required":
			spec.required = true
		}
	}
	return spec
}

func isOption(part string) bool {
	return part == "required" || strings.HasPrefix(part, "default:") || strings.Contains(part, ":")
}

// setFieldValue converts value to the field's type and assigns it.
func setFieldValue(field reflect.Value, value string) error {
	if field.Type() == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		field.Set(reflect.ValueOf(splitList(value)))
	case reflect.Map:
		if field.Type().Key().Kind() != reflect.String || field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		m, err := parsePairs(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(m))
	default:
		return nil
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parsePairs(value string) (map[string]string, error) {
	out := make(map[string]string)
	for _, item := range splitList(value) {
		k, v, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("expected key=value, got %q", item)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}

// mask hides values of variables whose names look like credentials.
func mask(name, value string) string {
	upper := strings.ToUpper(name)
	for _, marker := range []string{"SECRET", "PASSWORD", "TOKEN", "KEY"} {
		if strings.Contains(upper, marker) {
			return "****"
		}
	}
	return value
}
