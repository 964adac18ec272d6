// Package config fills typed configuration structs from the process
// environment, optionally seeded from an env file named by the -env
// flag (falling back to ./.env when one exists).
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

var (
	envFilePath string
	seedOnce    sync.Once
	seedErr     error
)

// MustNew loads T and panics on failure. Used for configuration the
// process cannot start without.
func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

// New fills T from environment variables carrying the given prefix.
// Optional backends probe with New and skip their wiring when the
// required variables are absent.
func New[T any](prefix string) (*T, error) {
	if err := seedEnvironment(); err != nil {
		return nil, err
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

// seedEnvironment exports the env file into the process environment
// exactly once. New is called once per prefix during startup and the
// file must not be re-read for each of them.
func seedEnvironment() error {
	seedOnce.Do(func() {
		path := strings.TrimSpace(envFlag())
		if path == "" {
			info, err := os.Stat(".env")
			if err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					seedErr = err
				}
				return
			}
			if info.IsDir() {
				return
			}
			path = ".env"
		}
		seedErr = exportFile(path)
	})
	return seedErr
}

func envFlag() string {
	if flag.Lookup("env") == nil {
		flag.StringVar(&envFilePath, "env", "", "path to .env file")
	}
	if !flag.Parsed() {
		flag.Parse()
	}
	return envFilePath
}

func exportFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read env file %s: %w", path, err)
	}

	for key, val := range v.AllSettings() {
		if err := os.Setenv(strings.ToUpper(key), fmt.Sprint(val)); err != nil {
			return err
		}
	}
	return nil
}
