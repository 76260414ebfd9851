// Package config loads typed configuration structs from environment
// variables (github.com/caarlos0/env), with a best-effort .env file load
// (github.com/joho/godotenv) on first use. Each config type is parsed once
// and cached, so independent components can load the same struct without
// re-reading the environment.
//
//	type AppConfig struct {
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
//
//	var cfg AppConfig
//	config.MustLoad(&cfg)
package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrNilPointer    = errors.New("nil pointer provided to config loader")
	ErrParsingConfig = errors.New("failed to parse environment variables into config")
)

var (
	dotenvOnce sync.Once

	cacheMu sync.RWMutex
	cache   = make(map[string]any)
)

// Load populates v from the environment. The first call in the process
// also loads a .env file when one exists; a missing file is not an error.
// Subsequent loads of the same type return the cached value.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})

	key := typeName[T]()

	cacheMu.RLock()
	cached, ok := cache[key]
	cacheMu.RUnlock()
	if ok {
		*v = cached.(T)
		return nil
	}

	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	cacheMu.Lock()
	// Another goroutine may have parsed the same type in the meantime;
	// first writer wins so every caller sees one consistent value.
	if cached, ok := cache[key]; ok {
		parsed = cached.(T)
	} else {
		cache[key] = parsed
	}
	cacheMu.Unlock()

	*v = parsed
	return nil
}

// MustLoad works like Load but panics on failure. Use for configuration
// the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

func typeName[T any]() string {
	t := reflect.TypeOf(*new(T))
	if t == nil {
		return fmt.Sprintf("%T", *new(T))
	}
	return t.String()
}
