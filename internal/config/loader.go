// Package config loads dashboard client configuration from YAML with .env and
// environment variable overrides.
//
// Sources are applied in this order, later sources winning:
//
//  1. the YAML file (optional for LoadFileOptional)
//  2. ENV_FILE if set, otherwise .env.local then .env
//  3. process environment, matched through `env:"NAME"` struct tags
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

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// localEnvFiles are tried in order when ENV_FILE is unset. godotenv keeps the
// first value it sees for a key, so earlier files win.
var localEnvFiles = []string{".env.local", ".env"}

var durationType = reflect.TypeOf(time.Duration(0))

func loadEnvFiles() error {
	files := localEnvFiles
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		files = []string{envFile}
	}
	for _, name := range files {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// LoadFile reads the YAML file at path into T and applies environment overrides.
func LoadFile[T any](path string) (*T, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	cfg := new(T)
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err = overrideFromEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFileOptional behaves like LoadFile but treats a missing file as an empty document.
func LoadFileOptional[T any](path string) (*T, error) {
	cfg, err := LoadFile[T](path)
	if !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}

	cfg = new(T)
	if err = overrideFromEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetConfigPath returns CONFIG_PATH when set, otherwise defaultPath.
func GetConfigPath(defaultPath string) string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return defaultPath
}

type lookupFunc func(string) (string, bool)

// envOverrider walks a struct and assigns every field tagged `env:"NAME"`
// whose variable is set and non-empty. Values that do not parse for the
// field's type are collected rather than silently dropped.
type envOverrider struct {
	lookup lookupFunc
	errs   []error
}

func overrideFromEnv(cfg any, lookup lookupFunc) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return nil
	}
	o := &envOverrider{lookup: lookup}
	o.walk(v.Elem())
	return errors.Join(o.errs...)
}

func (o *envOverrider) walk(v reflect.Value) {
	t := v.Type()
	for i := range v.NumField() {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			o.walk(field)
			continue
		}

		name := t.Field(i).Tag.Get("env")
		if name == "" {
			continue
		}
		raw, ok := o.lookup(name)
		if !ok || raw == "" {
			continue
		}
		if err := assign(field, raw); err != nil {
			o.errs = append(o.errs, &ValidationError{
				Field:   name,
				Message: fmt.Sprintf("invalid value %q", raw),
				Err:     err,
			})
		}
	}
}

func assign(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
