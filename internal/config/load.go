package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is read from the working directory when present.
const DefaultEnvFile = ".env"

// Options control where Load looks.
type Options struct {
	// Path is an optional .json/.yaml/.yml file. Empty skips it.
	Path string
	// EnvFile is a dotenv file; a missing file is not an error.
	// Empty means DefaultEnvFile, "-" disables it.
	EnvFile string
	// Lookup reads the process environment. Defaults to os.LookupEnv.
	Lookup LookupFunc
}

// Load builds the configuration. Later sources win:
// defaults, config file, dotenv file, process environment.
func Load(opts Options) (Config, error) {
	cfg := Defaults()

	if p := strings.TrimSpace(opts.Path); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeFile(p, b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	dotenv, err := readEnvFile(opts.EnvFile)
	if err != nil {
		return Config{}, err
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	// Process environment shadows the dotenv file, as godotenv.Load would.
	merged := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := applyEnv(&cfg, merged); err != nil {
		return Config{}, fmt.Errorf("environment: %w", err)
	}
	return cfg, nil
}

func readEnvFile(path string) (map[string]string, error) {
	path = strings.TrimSpace(path)
	if path == "-" {
		return nil, nil
	}
	if path == "" {
		path = DefaultEnvFile
	}
	m, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return m, nil
}
